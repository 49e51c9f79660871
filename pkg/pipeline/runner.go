package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemma/pkg/apparatus"
	"github.com/matzehuels/stemma/pkg/cache"
	"github.com/matzehuels/stemma/pkg/collate"
	"github.com/matzehuels/stemma/pkg/witness"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and service use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute collates the witnesses and renders every requested format.
func (r *Runner) Execute(ctx context.Context, ws []*witness.Witness, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	// Stage 1: Collate
	collateStart := time.Now()
	res, err := collate.Collate(ctx, ws, collate.Options{Match: opts.Match, Logger: opts.Logger})
	if err != nil {
		return nil, fmt.Errorf("collate: %w", err)
	}
	result := &Result{
		Collation: res,
		Table:     apparatus.FromResult(res),
		InputHash: r.Keyer.CollationKey(cache.HashWitnesses(ws), opts.CollationKeyOpts()),
	}
	result.Stats = Stats{
		Witnesses:   len(ws),
		VertexCount: res.Graph.VertexCount(),
		EdgeCount:   res.Graph.EdgeCount(),
		Entries:     len(result.Table.Entries),
		CollateTime: time.Since(collateStart),
	}

	r.Logger.Info("collated witnesses",
		"run", res.RunID,
		"witnesses", len(ws),
		"vertices", res.Graph.VertexCount(),
		"transpositions", result.Transpositions(),
		"duration", result.Stats.CollateTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, hits, err := r.RenderWithCacheInfo(ctx, result, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo = CacheInfo{Hits: hits, RenderHit: len(hits) == len(opts.Formats)}

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", len(hits),
		"duration", result.Stats.RenderTime)

	return result, nil
}

// RenderWithCacheInfo renders the formats of opts for a collated result,
// serving what it can from the cache. It returns the formats that were
// cache hits.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, result *Result, opts Options) (map[string][]byte, []string, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var hits, missing []string

	for _, format := range opts.Formats {
		if !opts.Refresh {
			key := r.Keyer.ArtifactKey(result.InputHash, opts.ArtifactKeyOpts(format))
			if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
				artifacts[format] = data
				hits = append(hits, format)
				continue
			}
		}
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, hits, nil
	}

	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(ctx, result.Collation, result.Table, renderOpts)
	if err != nil {
		return nil, nil, err
	}

	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(result.InputHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "err", err)
		}
	}

	return artifacts, hits, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
