// Package match aligns the tokens of one witness against a variant graph.
//
// For every token the [Matcher] looks for a graph vertex with the same
// reading that this witness has not used yet. In [Exact] mode readings must
// be identical; in [Near] mode any reading within the configured distance
// threshold qualifies. Candidates whose rank is at least the rank of the
// previous match are preferred. Only when none exists may a token fall back
// to an earlier-ranked vertex, which starts a new phrase for the
// transposition detector to examine.
//
// Among acceptable candidates the lowest distance wins, then the lowest rank,
// then the vertex inserted first. Ambiguity is always resolved this way and
// never reported as an error.
//
// Consecutive matched tokens whose vertices are linked by a graph edge form a
// [PhraseMatch]. Tokens without a candidate are gaps.
package match

import (
	"errors"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
	"github.com/matzehuels/stemma/pkg/witness"
)

// ErrStaleRanking is wrapped by the CONSISTENCY error returned when the
// ranking passed to [Matcher.Match] does not cover the graph.
var ErrStaleRanking = errors.New("ranking does not cover graph")

// TokenMatch pairs a witness token with the vertex it aligned to.
type TokenMatch struct {
	Token    witness.Token
	Vertex   vgraph.VertexID
	Distance float64
}

// PhraseMatch is a run of consecutive witness tokens aligned to a run of
// vertices, each a direct graph successor of the one before.
type PhraseMatch struct {
	Tokens []TokenMatch
}

// Anchor returns the first vertex of the phrase.
func (p PhraseMatch) Anchor() vgraph.VertexID { return p.Tokens[0].Vertex }

// Len returns the number of tokens in the phrase.
func (p PhraseMatch) Len() int { return len(p.Tokens) }

// Mode returns Near if any token matched with a non-zero distance.
func (p PhraseMatch) Mode() Mode {
	for _, t := range p.Tokens {
		if t.Distance > 0 {
			return Near
		}
	}
	return Exact
}

// Vertices returns the vertex run of the phrase.
func (p PhraseMatch) Vertices() []vgraph.VertexID {
	out := make([]vgraph.VertexID, len(p.Tokens))
	for i, t := range p.Tokens {
		out[i] = t.Vertex
	}
	return out
}

// Alignment is the result of matching one witness against a graph.
// Phrases and Gaps are each in witness order.
type Alignment struct {
	Witness string
	Phrases []PhraseMatch
	Gaps    []witness.Token
}

// Matched returns the number of tokens that found a vertex.
func (a *Alignment) Matched() int {
	n := 0
	for _, p := range a.Phrases {
		n += p.Len()
	}
	return n
}

// Matcher aligns witnesses against a graph. It holds no per-witness state
// and is safe for concurrent use.
type Matcher struct {
	opts Options
	dist DistanceFunc // nil for the built-in NormalizedDistance
}

// New returns a Matcher after validating opts.
func New(opts Options) (*Matcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{opts: opts, dist: opts.Distance}, nil
}

// Options returns the options the matcher was created with.
func (m *Matcher) Options() Options { return m.opts }

type candidate struct {
	vertex   vgraph.VertexID
	rank     int
	distance float64
}

func (c candidate) better(o candidate) bool {
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	if c.rank != o.rank {
		return c.rank < o.rank
	}
	return c.vertex < o.vertex
}

// Match aligns the witness tokens against g using the ranking r, which must
// have been computed from g in its current state.
func (m *Matcher) Match(w *witness.Witness, g *vgraph.Graph, r *ranking.Ranking) (*Alignment, error) {
	// Readings are lowercased once per call.
	var lower *cases.Caser
	if m.folds() {
		c := cases.Lower(language.Und)
		lower = &c
	}

	content, err := m.contentVertices(g, r, lower)
	if err != nil {
		return nil, err
	}

	a := &Alignment{Witness: w.Sigil}
	consumed := make(map[vgraph.VertexID]bool)
	prevRank := 0
	var phrase *PhraseMatch

	for _, tok := range w.Tokens() {
		rd := reading{normalized: tok.Normalized}
		if lower != nil {
			rd.folded = fold(*lower, tok.Normalized)
		}
		best, ok := m.pick(rd, content, consumed, prevRank)
		if !ok {
			a.Gaps = append(a.Gaps, tok)
			phrase = nil
			continue
		}
		consumed[best.vertex] = true

		tm := TokenMatch{Token: tok, Vertex: best.vertex, Distance: best.distance}
		if phrase != nil && best.rank >= prevRank && g.IsSuccessor(phrase.Tokens[len(phrase.Tokens)-1].Vertex, best.vertex) {
			phrase.Tokens = append(phrase.Tokens, tm)
		} else {
			a.Phrases = append(a.Phrases, PhraseMatch{Tokens: []TokenMatch{tm}})
			phrase = &a.Phrases[len(a.Phrases)-1]
		}
		prevRank = best.rank
	}
	return a, nil
}

// reading is a normalized text plus, for the built-in distance, its
// lowercased runes.
type reading struct {
	normalized string
	folded     []rune
}

type rankedVertex struct {
	vertex *vgraph.Vertex
	rank   int
	reading
}

// folds reports whether near matching uses the built-in distance, which
// compares pre-lowercased readings.
func (m *Matcher) folds() bool {
	return m.opts.Mode == Near && m.dist == nil
}

func (m *Matcher) contentVertices(g *vgraph.Graph, r *ranking.Ranking, lower *cases.Caser) ([]rankedVertex, error) {
	out := make([]rankedVertex, 0, g.VertexCount())
	for _, v := range g.Vertices() {
		if g.IsSentinel(v.ID) {
			continue
		}
		rank, ok := r.RankOf(v.ID)
		if !ok {
			return nil, errs.Consistency(ErrStaleRanking, "match: vertex %d has no rank", v.ID)
		}
		rv := rankedVertex{vertex: v, rank: rank, reading: reading{normalized: v.Normalized()}}
		if lower != nil {
			rv.folded = fold(*lower, rv.normalized)
		}
		out = append(out, rv)
	}
	return out, nil
}

// pick chooses the best vertex for tok. The monotone tier (rank >= prevRank)
// is searched first; the earlier-ranked tier is only used when it is empty.
func (m *Matcher) pick(tok reading, content []rankedVertex, consumed map[vgraph.VertexID]bool, prevRank int) (candidate, bool) {
	var monotone, fallback candidate
	var haveMonotone, haveFallback bool

	for _, rv := range content {
		if consumed[rv.vertex.ID] {
			continue
		}
		d, ok := m.accept(tok, rv.reading)
		if !ok {
			continue
		}
		c := candidate{vertex: rv.vertex.ID, rank: rv.rank, distance: d}
		if rv.rank >= prevRank {
			if !haveMonotone || c.better(monotone) {
				monotone, haveMonotone = c, true
			}
		} else if !haveFallback || c.better(fallback) {
			fallback, haveFallback = c, true
		}
	}

	if haveMonotone {
		return monotone, true
	}
	return fallback, haveFallback
}

func (m *Matcher) accept(token, rd reading) (float64, bool) {
	if token.normalized == rd.normalized {
		return 0, true
	}
	if m.opts.Mode != Near {
		return 0, false
	}
	var d float64
	if m.dist != nil {
		d = m.dist(token.normalized, rd.normalized)
	} else {
		d = foldedDistance(token.folded, rd.folded)
	}
	return d, d <= m.opts.Threshold
}
