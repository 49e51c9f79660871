// Package collate merges witnesses into a variant graph.
//
// A [Collation] collects witnesses and merges them one at a time into a fresh
// graph. Each merge runs the same stages:
//
//	ranking.Of -> match.Matcher.Match -> transposition.Detect -> Plan -> Builder.Merge
//
// The first witness meets an empty graph, so all of its tokens become gaps
// and form a straight path. Later witnesses attach to the readings they
// share with earlier ones.
//
// # Usage
//
//	res, err := collate.Collate(ctx, []*witness.Witness{a, b}, collate.Options{
//	    Match: match.Options{Mode: match.Near, Threshold: 0.4},
//	})
//	if err != nil {
//	    return err
//	}
//	for sigil, ts := range res.Transpositions {
//	    fmt.Println(sigil, len(ts))
//	}
//
// # Errors
//
// Invalid options and bad witness sigils are CONFIGURATION errors raised
// before any graph is touched. A broken invariant during a merge is a
// CONSISTENCY error; the graph must then be discarded.
//
// # Concurrency
//
// Merges into one graph are strictly sequential and a merge is never
// interrupted: the context is only checked between witnesses. Independent
// collations can run in parallel with [RunAll].
package collate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/observability"
	"github.com/matzehuels/stemma/pkg/transposition"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
	"github.com/matzehuels/stemma/pkg/witness"
)

// ErrDuplicateWitness is wrapped by the CONFIGURATION error returned when a
// sigil is added twice.
var ErrDuplicateWitness = errors.New("duplicate witness sigil")

var discardLogger = log.New(io.Discard)

// Options configure a collation.
type Options struct {
	Match  match.Options
	Logger *log.Logger                  // Optional; debug lines per witness
	Hooks  observability.CollationHooks // Optional; defaults to the registered hooks
}

// Result is a finished collation.
type Result struct {
	RunID     string
	Graph     *vgraph.Graph
	Ranking   *ranking.Ranking
	Witnesses []*witness.Witness
	// Transpositions maps each witness sigil to the transpositions reported
	// while merging it. Witnesses without transpositions are absent.
	Transpositions map[string][]transposition.Transposition
	Stats          []MergeStats
}

// Collation merges witnesses into one variant graph.
type Collation struct {
	opts      Options
	matcher   *match.Matcher
	witnesses []*witness.Witness
	sigils    map[string]struct{}
}

// New validates opts and returns an empty collation.
func New(opts Options) (*Collation, error) {
	m, err := match.New(opts.Match)
	if err != nil {
		return nil, err
	}
	return &Collation{opts: opts, matcher: m, sigils: make(map[string]struct{})}, nil
}

// AddWitness queues w for merging. Empty, malformed or duplicate sigils are
// CONFIGURATION errors.
func (c *Collation) AddWitness(w *witness.Witness) error {
	if w == nil {
		return errs.Configuration(nil, "witness is nil")
	}
	if err := errs.ValidateSigil(w.Sigil); err != nil {
		return err
	}
	if _, dup := c.sigils[w.Sigil]; dup {
		return errs.Configuration(ErrDuplicateWitness, "witness %s", w.Sigil)
	}
	c.sigils[w.Sigil] = struct{}{}
	c.witnesses = append(c.witnesses, w)
	return nil
}

// Witnesses returns the queued witnesses in merge order.
func (c *Collation) Witnesses() []*witness.Witness {
	return append([]*witness.Witness(nil), c.witnesses...)
}

// Run merges every queued witness into a fresh graph.
//
// ctx is checked before each witness; a cancelled collation returns the
// context error and no result.
func (c *Collation) Run(ctx context.Context) (res *Result, err error) {
	logger := c.opts.Logger
	if logger == nil {
		logger = discardLogger
	}
	hooks := c.opts.Hooks
	if hooks == nil {
		hooks = observability.Collation()
	}

	runID := uuid.NewString()
	start := time.Now()
	g := vgraph.New()
	hooks.OnCollationStart(ctx, runID, len(c.witnesses))
	defer func() {
		hooks.OnCollationComplete(ctx, runID, g.VertexCount(), time.Since(start), err)
	}()

	res = &Result{
		RunID:          runID,
		Graph:          g,
		Witnesses:      c.Witnesses(),
		Transpositions: make(map[string][]transposition.Transposition),
	}
	logger = logger.With("run", runID)
	b := &Builder{Logger: logger}

	for _, w := range c.witnesses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hooks.OnMergeStart(ctx, w.Sigil, w.Len())
		stats, ts, err := c.merge(g, b, w, logger)
		hooks.OnMergeComplete(ctx, w.Sigil, stats.hookStats(), stats.Elapsed, err)
		if err != nil {
			return nil, err
		}
		if len(ts) > 0 {
			res.Transpositions[w.Sigil] = ts
		}
		res.Stats = append(res.Stats, stats)
	}

	r, err := ranking.Of(g)
	if err != nil {
		return nil, err
	}
	res.Ranking = r
	logger.Debug("collation complete", "witnesses", len(c.witnesses), "vertices", g.VertexCount(), "edges", g.EdgeCount(), "elapsed", time.Since(start).Round(time.Microsecond))
	return res, nil
}

func (c *Collation) merge(g *vgraph.Graph, b *Builder, w *witness.Witness, logger *log.Logger) (MergeStats, []transposition.Transposition, error) {
	start := time.Now()
	stats := MergeStats{Witness: w.Sigil, Tokens: w.Len()}

	r, err := ranking.Of(g)
	if err != nil {
		return stats, nil, err
	}
	a, err := c.matcher.Match(w, g, r)
	if err != nil {
		return stats, nil, err
	}
	rep, err := transposition.Detect(a.Phrases, r)
	if err != nil {
		return stats, nil, err
	}

	stats, err = b.Merge(g, r, w, Plan(a, rep))
	stats.Transpositions = len(rep.Transpositions)
	stats.Elapsed = time.Since(start)
	if err != nil {
		return stats, nil, err
	}

	logger.Debug("merged witness",
		"witness", w.Sigil,
		"tokens", w.Len(),
		"phrases", len(a.Phrases),
		"gaps", len(a.Gaps),
		"transpositions", len(rep.Transpositions),
		"new", stats.NewVertices,
		"elapsed", stats.Elapsed.Round(time.Microsecond))
	for _, t := range rep.Transpositions {
		logger.Debug("transposition", "witness", w.Sigil, "phrase", t.Index, "tokens", t.Phrase.Len(), "expected", t.Expected, "actual", t.Actual)
	}
	return stats, rep.Transpositions, nil
}

// Collate is the one-shot form of [New], [Collation.AddWitness] and
// [Collation.Run].
func Collate(ctx context.Context, witnesses []*witness.Witness, opts Options) (*Result, error) {
	c, err := New(opts)
	if err != nil {
		return nil, err
	}
	for _, w := range witnesses {
		if err := c.AddWitness(w); err != nil {
			return nil, err
		}
	}
	return c.Run(ctx)
}

// Job is one independent collation for [RunAll].
type Job struct {
	Name      string
	Witnesses []*witness.Witness
	Options   Options
}

// RunAll runs independent collations in parallel, at most limit at a time
// (limit <= 0 means no limit). Results are returned in job order. The first
// failing job cancels the others and its error is returned.
func RunAll(ctx context.Context, jobs []Job, limit int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	eg, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		eg.SetLimit(limit)
	}

	for i, job := range jobs {
		eg.Go(func() error {
			res, err := Collate(ctx, job.Witnesses, job.Options)
			if err != nil {
				if job.Name != "" {
					return fmt.Errorf("job %s: %w", job.Name, err)
				}
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
