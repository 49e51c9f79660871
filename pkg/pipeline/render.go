package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/stemma/pkg/apparatus"
	"github.com/matzehuels/stemma/pkg/collate"
	errs "github.com/matzehuels/stemma/pkg/errors"
	stemmaio "github.com/matzehuels/stemma/pkg/io"
	"github.com/matzehuels/stemma/pkg/render"
	"github.com/matzehuels/stemma/pkg/render/nodelink"
)

// Render generates output artifacts in the requested formats.
// The SVG is rendered once and shared by the svg, png and pdf formats.
func Render(ctx context.Context, res *collate.Result, tbl *apparatus.Table, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var svg []byte

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatTable:
			data = []byte(TableText(tbl) + "\n")
		case FormatJSON:
			data, err = json.MarshalIndent(tbl, "", "  ")
		case FormatDOT:
			data = []byte(dot(res, opts))
		case FormatGraph:
			var buf bytes.Buffer
			err = stemmaio.WriteGraph(res.Graph, res.Ranking, &buf)
			data = buf.Bytes()
		case FormatSVG, FormatPNG, FormatPDF:
			if svg == nil {
				if svg, err = nodelink.RenderSVG(ctx, dot(res, opts)); err != nil {
					break
				}
			}
			switch format {
			case FormatSVG:
				data = svg
			case FormatPNG:
				data, err = render.ToPNG(svg, opts.Scale)
			case FormatPDF:
				data, err = render.ToPDF(svg)
			}
		default:
			return nil, errs.New(errs.ErrCodeInvalidFormat, "unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func dot(res *collate.Result, opts Options) string {
	return nodelink.ToDOT(res.Graph, res.Ranking, nodelink.Options{
		Detailed: opts.Detailed,
		Vertical: opts.Vertical,
	})
}

// TableText renders the alignment table with one row per witness and one
// column per entry. Empty cells are shown as "-".
func TableText(tbl *apparatus.Table) string {
	return NewTable(tbl).String()
}

// NewTable builds the unstyled lipgloss table behind [TableText]. Callers
// may add a StyleFunc before rendering.
func NewTable(tbl *apparatus.Table) *table.Table {
	headers := make([]string, len(tbl.Entries)+1)
	for i := range tbl.Entries {
		headers[i+1] = strconv.Itoa(i + 1)
	}

	rows := make([][]string, len(tbl.Witnesses))
	for i, sigil := range tbl.Witnesses {
		row := append([]string{sigil}, tbl.Row(sigil)...)
		for j := 1; j < len(row); j++ {
			if row[j] == "" {
				row[j] = "-"
			}
		}
		rows[i] = row
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
}
