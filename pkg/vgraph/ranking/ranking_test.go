package ranking

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/witness"
)

func add(g *vgraph.Graph, sigil string, index int, text string) vgraph.VertexID {
	return g.AddVertex(witness.Token{Witness: sigil, Index: index, Content: text, Normalized: text})
}

func mustRank(t *testing.T, g *vgraph.Graph) *Ranking {
	t.Helper()
	r, err := Of(g)
	if err != nil {
		t.Fatalf("Of() error: %v", err)
	}
	return r
}

func rankOf(t *testing.T, r *Ranking, id vgraph.VertexID) int {
	t.Helper()
	rank, ok := r.RankOf(id)
	if !ok {
		t.Fatalf("RankOf(%d) not found", id)
	}
	return rank
}

func TestOf_EmptyGraph(t *testing.T) {
	g := vgraph.New()
	r := mustRank(t, g)

	if got := rankOf(t, r, g.Start()); got != 0 {
		t.Errorf("rank(start) = %d, want 0", got)
	}
	if got := rankOf(t, r, g.End()); got != 0 {
		t.Errorf("rank(end) = %d, want 0 without predecessors", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestOf_LongestPath(t *testing.T) {
	// start -> a -> b -> c -> end
	//      \-------> d -----/
	g := vgraph.New()
	a := add(g, "A", 0, "a")
	b := add(g, "A", 1, "b")
	c := add(g, "A", 2, "c")
	d := add(g, "B", 0, "d")
	for _, e := range [][2]vgraph.VertexID{{g.Start(), a}, {a, b}, {b, c}, {c, g.End()}, {g.Start(), d}, {d, g.End()}} {
		if _, err := g.Connect(e[0], e[1], "A"); err != nil {
			t.Fatalf("Connect() error: %v", err)
		}
	}
	r := mustRank(t, g)

	want := map[vgraph.VertexID]int{g.Start(): 0, a: 1, b: 2, c: 3, d: 1, g.End(): 4}
	for id, rank := range want {
		if got := rankOf(t, r, id); got != rank {
			t.Errorf("rank(%d) = %d, want %d", id, got, rank)
		}
	}

	// rank(end) = 1 + max rank of its predecessors
	maxPred := 0
	for _, p := range g.Predecessors(g.End()) {
		maxPred = max(maxPred, rankOf(t, r, p))
	}
	if got := rankOf(t, r, g.End()); got != maxPred+1 {
		t.Errorf("rank(end) = %d, want %d", got, maxPred+1)
	}
	if r.MaxRank() != 4 {
		t.Errorf("MaxRank() = %d, want 4", r.MaxRank())
	}

	wantCols := [][]vgraph.VertexID{{g.Start()}, {a, d}, {b}, {c}, {g.End()}}
	if diff := cmp.Diff(wantCols, r.ByRank()); diff != "" {
		t.Errorf("ByRank() mismatch (-want +got):\n%s", diff)
	}
	wantOrder := []vgraph.VertexID{g.Start(), a, d, b, c, g.End()}
	if diff := cmp.Diff(wantOrder, r.Order()); diff != "" {
		t.Errorf("Order() mismatch (-want +got):\n%s", diff)
	}
}

func TestOf_TiesFollowWorkingOrder(t *testing.T) {
	g := vgraph.New()
	x := add(g, "A", 0, "x")
	y := add(g, "B", 0, "y")
	for _, v := range []vgraph.VertexID{x, y} {
		_, _ = g.Connect(g.Start(), v, "A")
		_, _ = g.Connect(v, g.End(), "A")
	}
	if err := g.Reorder([]vgraph.VertexID{g.Start(), y, x, g.End()}); err != nil {
		t.Fatalf("Reorder() error: %v", err)
	}

	r := mustRank(t, g)
	if diff := cmp.Diff([]vgraph.VertexID{g.Start(), y, x, g.End()}, r.Order()); diff != "" {
		t.Errorf("Order() mismatch (-want +got):\n%s", diff)
	}
}

func TestOf_Cycle(t *testing.T) {
	g := vgraph.New()
	a := add(g, "A", 0, "a")
	b := add(g, "A", 1, "b")
	_, _ = g.Connect(g.Start(), a, "A")
	_, _ = g.Connect(a, b, "A")
	_, _ = g.Connect(b, a, "A")
	_, _ = g.Connect(b, g.End(), "A")

	r, err := Of(g)
	if r != nil {
		t.Error("Of() should not return a ranking for a cyclic graph")
	}
	if !errors.Is(err, ErrCycle) {
		t.Errorf("Of() error = %v, want ErrCycle", err)
	}
	if !errs.IsConsistency(err) {
		t.Errorf("Of() code = %q, want CONSISTENCY", errs.GetCode(err))
	}
}

func TestRankOf_UnknownVertex(t *testing.T) {
	g := vgraph.New()
	r := mustRank(t, g)
	late := add(g, "A", 0, "late")

	if _, ok := r.RankOf(late); ok {
		t.Error("RankOf() should not know vertices added after the snapshot")
	}
	if _, ok := r.RankOf(-1); ok {
		t.Error("RankOf(-1) should be false")
	}
}
