package collate

import (
	"slices"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/observability"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
	"github.com/matzehuels/stemma/pkg/witness"
)

// MergeStats summarizes the merge of one witness.
type MergeStats struct {
	Witness        string
	Tokens         int // Tokens in the witness
	Matched        int // Tokens attached to the vertex they matched
	Demoted        int // Matched tokens placed as gaps to keep ranks increasing
	Reused         int // Gap tokens placed on an existing reading
	NewVertices    int // Vertices created
	Transpositions int // Reported transpositions
	Elapsed        time.Duration
}

func (s MergeStats) hookStats() observability.MergeStats {
	return observability.MergeStats{
		Tokens:         s.Tokens,
		Matched:        s.Matched,
		Reused:         s.Reused,
		NewVertices:    s.NewVertices,
		Transpositions: s.Transpositions,
	}
}

// Builder merges planned segments into a variant graph.
// The zero value is usable and logs nothing.
type Builder struct {
	Logger *log.Logger
}

type placement struct {
	vertex vgraph.VertexID
	placed bool
	old    bool // vertex existed before this merge
}

// Merge adds the witness w to g following segs, which must come from
// [Plan] over an alignment computed against g and r.
//
// Merge proceeds in five steps:
//
//  1. The working order is rebuilt from r (rank, then previous position).
//  2. Exact and near tokens join their vertex as long as the ranks of the
//     joined vertices strictly increase along the witness. A token that
//     would break that order is demoted and placed like a gap token.
//  3. Gap, transposed and demoted tokens are placed in witness order between
//     the vertices of their placed neighbours. A gap token may reuse a
//     vertex with the same reading that lies strictly between the
//     neighbours both in the working order and in rank; otherwise a new
//     vertex is inserted just before the upper neighbour.
//  4. The witness path is connected from Start through its vertices to End.
//  5. The working order is stored back on g.
//
// Because every pre-existing vertex on the new path has a strictly larger
// rank than the one before it, the graph stays acyclic.
func (b *Builder) Merge(g *vgraph.Graph, r *ranking.Ranking, w *witness.Witness, segs []Segment) (MergeStats, error) {
	start := time.Now()
	logger := b.logger()
	stats := MergeStats{Witness: w.Sigil, Tokens: w.Len()}

	if r.Len() != g.VertexCount() {
		return stats, errs.Consistency(match.ErrStaleRanking, "merge %s: ranking covers %d of %d vertices", w.Sigil, r.Len(), g.VertexCount())
	}
	list := r.Order()

	tokens := w.Tokens()
	ordinal := make(map[int]int, len(tokens))
	for i, t := range tokens {
		ordinal[t.Index] = i
	}
	places := make([]placement, len(tokens))
	kinds := make([]Kind, len(tokens))

	lastRank := 0
	for _, s := range segs {
		if (s.Kind == KindExact || s.Kind == KindNear) && len(s.Vertices) != len(s.Tokens) {
			return stats, errs.New(errs.ErrCodeInternal, "merge %s: %s segment with %d tokens and %d vertices", w.Sigil, s.Kind, len(s.Tokens), len(s.Vertices))
		}
		for j, t := range s.Tokens {
			i, ok := ordinal[t.Index]
			if !ok {
				return stats, errs.New(errs.ErrCodeInternal, "merge %s: token %s is not part of the witness", w.Sigil, t)
			}
			kinds[i] = s.Kind

			switch s.Kind {
			case KindExact, KindNear:
				v := s.Vertices[j]
				rank, ok := r.RankOf(v)
				if !ok {
					return stats, errs.Consistency(match.ErrStaleRanking, "merge %s: vertex %d has no rank", w.Sigil, v)
				}
				if rank <= lastRank {
					logger.Debug("demoting out-of-order match", "witness", w.Sigil, "token", t, "rank", rank, "after", lastRank)
					kinds[i] = KindGap
					stats.Demoted++
					continue
				}
				if err := g.AddToken(v, t); err != nil {
					return stats, errs.Wrap(errs.ErrCodeInternal, err, "merge %s", w.Sigil)
				}
				places[i] = placement{vertex: v, placed: true, old: true}
				lastRank = rank
				stats.Matched++
			case KindGap, KindTransposed:
			default:
				return stats, errs.New(errs.ErrCodeInternal, "merge %s: unknown segment kind %s", w.Sigil, s.Kind)
			}
		}
	}

	rankOf := func(v vgraph.VertexID) int {
		rank, _ := r.RankOf(v)
		return rank
	}

	for i, t := range tokens {
		if places[i].placed {
			continue
		}

		lower, lowRank := g.Start(), 0
		for j := i - 1; j >= 0; j-- {
			if places[j].placed {
				lower = places[j].vertex
				break
			}
		}
		for j := i - 1; j >= 0; j-- {
			if places[j].placed && places[j].old {
				lowRank = rankOf(places[j].vertex)
				break
			}
		}
		upper := g.End()
		for j := i + 1; j < len(tokens); j++ {
			if places[j].placed {
				upper = places[j].vertex
				break
			}
		}
		highRank := rankOf(upper)

		lo, hi := slices.Index(list, lower), slices.Index(list, upper)
		if lo < 0 || hi <= lo {
			return stats, errs.Consistency(nil, "merge %s: bounds of token %s out of order", w.Sigil, t)
		}

		if hi > lo+1 && kinds[i] == KindGap {
			if v, ok := b.reusable(g, r, list[lo+1:hi], t, lowRank, highRank); ok {
				if err := g.AddToken(v, t); err != nil {
					return stats, errs.Wrap(errs.ErrCodeInternal, err, "merge %s", w.Sigil)
				}
				places[i] = placement{vertex: v, placed: true, old: true}
				stats.Reused++
				continue
			}
		}

		v := g.AddVertex(t)
		list = slices.Insert(list, hi, v)
		places[i] = placement{vertex: v, placed: true}
		stats.NewVertices++
	}

	prev := g.Start()
	for _, p := range places {
		if _, err := g.Connect(prev, p.vertex, w.Sigil); err != nil {
			return stats, errs.Wrap(errs.ErrCodeInternal, err, "merge %s", w.Sigil)
		}
		prev = p.vertex
	}
	if _, err := g.Connect(prev, g.End(), w.Sigil); err != nil {
		return stats, errs.Wrap(errs.ErrCodeInternal, err, "merge %s", w.Sigil)
	}

	if err := g.Reorder(list); err != nil {
		return stats, errs.Wrap(errs.ErrCodeInternal, err, "merge %s", w.Sigil)
	}
	stats.Elapsed = time.Since(start)
	return stats, nil
}

// reusable finds a pre-existing vertex among between whose reading equals
// the token and whose rank lies strictly inside (lowRank, highRank).
func (b *Builder) reusable(g *vgraph.Graph, r *ranking.Ranking, between []vgraph.VertexID, t witness.Token, lowRank, highRank int) (vgraph.VertexID, bool) {
	for _, id := range between {
		rank, ok := r.RankOf(id)
		if !ok || rank <= lowRank || rank >= highRank {
			continue
		}
		v, _ := g.Vertex(id)
		if v.Normalized() == t.Normalized && !v.Has(t.Witness) {
			return id, true
		}
	}
	return 0, false
}

func (b *Builder) logger() *log.Logger {
	if b.Logger == nil {
		return discardLogger
	}
	return b.Logger
}
