// Package ranking derives longest-path ranks for variant graph vertices.
//
// The rank of a vertex is the length of the longest path reaching it from
// Start: Start has rank 0, a vertex without predecessors has rank 0, and any
// other vertex has rank one more than the highest-ranked of its direct
// predecessors. Vertices of equal rank form the columns of an alignment
// table.
//
// A [Ranking] is a snapshot. It is never stored on the graph and goes stale
// as soon as the graph is mutated; callers recompute it after every merge.
package ranking

import (
	"cmp"
	"errors"
	"slices"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/vgraph"
)

// ErrCycle is wrapped by the CONSISTENCY error [Of] returns when some
// vertices can never be released because they sit on a cycle.
var ErrCycle = errors.New("variant graph contains a cycle")

// Ranking maps vertices to ranks.
type Ranking struct {
	ranks   []int // indexed by VertexID
	order   []vgraph.VertexID
	columns [][]vgraph.VertexID
}

// Of ranks every vertex of g.
//
// Of uses Kahn's algorithm: vertices without incoming edges start at rank 0
// and are queued in working order; each dequeued vertex pushes its successors
// to at least its own rank plus one and releases them once all their
// predecessors have been processed.
//
// If any vertex is never released, the graph has a cycle and Of returns a
// CONSISTENCY error wrapping [ErrCycle].
//
// Time complexity is O(V + E) plus O(V log V) for sorting the order.
func Of(g *vgraph.Graph) (*Ranking, error) {
	n := g.VertexCount()
	inDegree := make([]int, n)
	ranks := make([]int, n)
	queue := make([]vgraph.VertexID, 0, n)

	for _, v := range g.Vertices() {
		degree := g.InDegree(v.ID)
		inDegree[v.ID] = degree
		if degree == 0 {
			queue = append(queue, v.ID)
		}
	}

	processed := 0
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		processed++

		for _, next := range g.Successors(curr) {
			if rank := ranks[curr] + 1; rank > ranks[next] {
				ranks[next] = rank
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if processed < n {
		return nil, errs.Consistency(ErrCycle, "rank graph: %d of %d vertices unreachable", n-processed, n)
	}

	r := &Ranking{ranks: ranks, order: g.Order()}
	slices.SortStableFunc(r.order, func(a, b vgraph.VertexID) int {
		if c := cmp.Compare(ranks[a], ranks[b]); c != 0 {
			return c
		}
		return cmp.Compare(g.Position(a), g.Position(b))
	})

	for _, id := range r.order {
		rank := ranks[id]
		for len(r.columns) <= rank {
			r.columns = append(r.columns, nil)
		}
		r.columns[rank] = append(r.columns[rank], id)
	}
	return r, nil
}

// RankOf returns the rank of the vertex, or false if the ranking does not
// know it (for instance, a vertex added after the snapshot was taken).
func (r *Ranking) RankOf(id vgraph.VertexID) (int, bool) {
	if id < 0 || int(id) >= len(r.ranks) {
		return 0, false
	}
	return r.ranks[id], true
}

// Order returns all vertices sorted by rank, ties in working order.
func (r *Ranking) Order() []vgraph.VertexID { return slices.Clone(r.order) }

// ByRank returns the vertices grouped by rank. Index i holds the vertices of
// rank i in working order. Ranks without vertices yield empty columns.
func (r *Ranking) ByRank() [][]vgraph.VertexID {
	out := make([][]vgraph.VertexID, len(r.columns))
	for i, col := range r.columns {
		out[i] = slices.Clone(col)
	}
	return out
}

// MaxRank returns the highest rank, which is the rank of End in a connected
// graph.
func (r *Ranking) MaxRank() int { return len(r.columns) - 1 }

// Len returns the number of ranked vertices.
func (r *Ranking) Len() int { return len(r.ranks) }
