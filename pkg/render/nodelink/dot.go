package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/stemma/pkg/render"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
)

// Options configures variant graph rendering.
type Options struct {
	// Detailed adds the rank and the witnesses of each vertex to its label.
	// Ranks are only shown when a ranking is passed to [ToDOT].
	Detailed bool

	// Vertical lays the graph out top to bottom instead of left to right.
	Vertical bool
}

// ToDOT converts a variant graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Vertices are labelled with their contents and edges with the sigils of the
// witnesses that take them. Start and End are drawn as "#". When r is not
// nil, vertices of equal rank are pinned to the same Graphviz rank.
func ToDOT(g *vgraph.Graph, r *ranking.Ranking, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if opts.Vertical {
		buf.WriteString("  rankdir=TB;\n")
	} else {
		buf.WriteString("  rankdir=LR;\n")
	}
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	for _, v := range g.Vertices() {
		attrs := fmtAttrs(g, v, fmtLabel(v, r, opts.Detailed))
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(v.ID), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %s -> %s [label=%q];\n", nodeID(e.From), nodeID(e.To), e.Label())
	}

	if r != nil {
		buf.WriteString("\n")
		for _, column := range r.ByRank() {
			if len(column) < 2 {
				continue
			}
			ids := make([]string, len(column))
			for i, id := range column {
				ids[i] = nodeID(id)
			}
			fmt.Fprintf(&buf, "  { rank=same; %s; }\n", strings.Join(ids, "; "))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(id vgraph.VertexID) string { return "v" + strconv.Itoa(int(id)) }

func fmtLabel(v *vgraph.Vertex, r *ranking.Ranking, detailed bool) string {
	label := v.String()
	if !detailed {
		return label
	}

	var parts []string
	if r != nil {
		if rank, ok := r.RankOf(v.ID); ok {
			parts = append(parts, fmt.Sprintf("rank: %d", rank))
		}
	}
	if ws := v.Witnesses(); len(ws) > 0 {
		parts = append(parts, "witnesses: "+strings.Join(ws, ", "))
	}
	if len(parts) == 0 {
		return label
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(g *vgraph.Graph, v *vgraph.Vertex, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if g.IsSentinel(v.ID) {
		attrs = append(attrs, "shape=circle", "fillcolor=lightgrey")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
