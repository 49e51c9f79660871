// Package pipeline runs the load → collate → render pipeline shared by the
// CLI and the HTTP service.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: read witnesses from JSON, TOML job, TEI or plain-text files
//  2. Collate: merge the witnesses into a variant graph
//  3. Render: produce the requested output formats
//
// Collation always runs; it is cheap next to rendering, and callers need the
// graph for diagnostics. Rendered artifacts are cached by a hash of the
// witnesses, the matching settings and the render options.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	in, err := pipeline.Load(paths, pipeline.LoadOptions{})
//	result, err := runner.Execute(ctx, in.Witnesses, pipeline.Options{
//	    Match:   in.MatchOptions(match.DefaultOptions()),
//	    Formats: []string{pipeline.FormatTable, pipeline.FormatSVG},
//	})
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemma/pkg/apparatus"
	"github.com/matzehuels/stemma/pkg/cache"
	"github.com/matzehuels/stemma/pkg/collate"
	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
)

// Format constants for output formats.
const (
	FormatTable = "table" // Plain-text alignment table
	FormatJSON  = "json"  // Alignment table, CollateX JSON layout
	FormatDOT   = "dot"   // Variant graph, Graphviz source
	FormatSVG   = "svg"
	FormatPNG   = "png"
	FormatPDF   = "pdf"
	FormatGraph = "graph" // Variant graph JSON export
)

// DefaultFormat is used when no format is requested.
const DefaultFormat = FormatTable

// DefaultScale is the PNG resolution multiplier.
const DefaultScale = 2.0

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatTable: true,
	FormatJSON:  true,
	FormatDOT:   true,
	FormatSVG:   true,
	FormatPNG:   true,
	FormatPDF:   true,
	FormatGraph: true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		names := make([]string, 0, len(ValidFormats))
		for f := range ValidFormats {
			names = append(names, f)
		}
		slices.Sort(names)
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(names, ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// Options contains all configuration for a pipeline run.
type Options struct {
	// Collate options
	Match match.Options `json:"-"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"` // Rank and witnesses in graph labels
	Vertical bool     `json:"vertical,omitempty"` // Top-to-bottom graph layout
	Scale    float64  `json:"scale,omitempty"`    // PNG scale
	Refresh  bool     `json:"refresh,omitempty"`  // Ignore cached artifacts

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
}

// ValidateAndSetDefaults checks the options and fills in defaults.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.Match.Validate(); err != nil {
		return err
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Scale <= 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// CollationKeyOpts returns cache key options for the collation settings.
func (o *Options) CollationKeyOpts() cache.CollationKeyOpts {
	return cache.CollationKeyOpts{
		Algorithm: o.Match.Mode.String(),
		Threshold: o.Match.Threshold,
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	switch format {
	case FormatDOT, FormatSVG, FormatPNG, FormatPDF:
		opts.Detailed, opts.Vertical = o.Detailed, o.Vertical
	}
	if format == FormatPNG {
		opts.Format = fmt.Sprintf("%s@%.2f", format, o.Scale)
	}
	return opts
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Collation is the collated variant graph with its diagnostics.
	Collation *collate.Result

	// Table is the alignment table of the collation.
	Table *apparatus.Table

	// InputHash identifies the witnesses and matching settings.
	InputHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which artifacts came from the cache.
	CacheInfo CacheInfo
}

// Transpositions counts the transpositions reported across all witnesses.
func (r *Result) Transpositions() int {
	n := 0
	for _, ts := range r.Collation.Transpositions {
		n += len(ts)
	}
	return n
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Witnesses   int
	VertexCount int
	EdgeCount   int
	Entries     int
	CollateTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for the render stage.
type CacheInfo struct {
	RenderHit bool     // Whether all artifacts came from cache
	Hits      []string // Formats served from cache
}
