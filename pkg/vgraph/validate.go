package vgraph

import (
	"errors"

	errs "github.com/matzehuels/stemma/pkg/errors"
)

var (
	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge and
	// the adjacency index disagree. This indicates graph corruption.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a cycle is detected.
	ErrGraphHasCycle = errors.New("graph contains a cycle")

	// ErrSentinelTokens is returned by [Graph.Validate] when Start or End
	// holds a token.
	ErrSentinelTokens = errors.New("sentinel holds tokens")

	// ErrWitnessPath is returned by [Graph.Validate] when a witness does not
	// have exactly one Start→End path reproducing its token order.
	ErrWitnessPath = errors.New("broken witness path")
)

// Validate checks graph integrity and returns nil if valid.
// It verifies, in order:
//
//  1. Every edge is indexed at both endpoints
//  2. Start and End hold no tokens
//  3. The graph is acyclic
//  4. Every witness has exactly one Start→End path that visits all of its
//     tokens in ascending index order
//
// Failures are CONSISTENCY errors wrapping one of the package sentinels.
func (g *Graph) Validate() error {
	if err := g.validateEdgeConsistency(); err != nil {
		return errs.Consistency(err, "validate graph")
	}
	if len(g.vertices[g.start].tokens) > 0 || len(g.vertices[g.end].tokens) > 0 {
		return errs.Consistency(ErrSentinelTokens, "validate graph")
	}
	if err := g.detectCycles(); err != nil {
		return errs.Consistency(err, "validate graph")
	}
	for _, sigil := range g.AllWitnesses() {
		if err := g.validatePath(sigil); err != nil {
			return errs.Consistency(err, "validate witness %s", sigil)
		}
	}
	return nil
}

func (g *Graph) validateEdgeConsistency() error {
	for _, e := range g.edges {
		if !g.Has(e.From) || !g.Has(e.To) {
			return ErrInvalidEdgeEndpoint
		}
		if id, ok := g.pairs[pair{e.From, e.To}]; !ok || id != e.ID {
			return ErrInvalidEdgeEndpoint
		}
	}
	return nil
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(g.vertices))
	var hasCycle bool

	var dfs func(id VertexID)
	dfs = func(id VertexID) {
		color[id] = gray
		for _, eid := range g.outgoing[id] {
			next := g.edges[eid].To
			switch color[next] {
			case white:
				dfs(next)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for id := range g.vertices {
		if color[id] == white {
			dfs(VertexID(id))
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

func (g *Graph) validatePath(sigil string) error {
	onVertices := 0
	for _, v := range g.vertices {
		if v.Has(sigil) {
			onVertices++
		}
	}

	curr, prevIndex, steps := g.start, -1, 0
	for curr != g.end {
		var next []VertexID
		for _, eid := range g.outgoing[curr] {
			if g.edges[eid].Has(sigil) {
				next = append(next, g.edges[eid].To)
			}
		}
		if len(next) != 1 {
			return ErrWitnessPath
		}
		curr = next[0]
		if curr == g.end {
			break
		}

		t, ok := g.vertices[curr].TokenOf(sigil)
		if !ok || t.Index <= prevIndex {
			return ErrWitnessPath
		}
		prevIndex = t.Index
		steps++
	}

	if steps != onVertices {
		return ErrWitnessPath
	}
	return nil
}
