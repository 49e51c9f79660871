package vgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/matzehuels/stemma/pkg/witness"
)

var (
	// ErrUnknownVertex is returned when a vertex ID is not part of the graph.
	ErrUnknownVertex = errors.New("unknown vertex")

	// ErrSentinelVertex is returned by [Graph.AddToken] when the target is
	// Start or End. Sentinels never hold tokens.
	ErrSentinelVertex = errors.New("sentinel vertex holds no tokens")

	// ErrWitnessOnVertex is returned by [Graph.AddToken] when the vertex
	// already holds a token of the same witness.
	ErrWitnessOnVertex = errors.New("witness already on vertex")

	// ErrSelfLoop is returned by [Graph.Connect] when from and to are equal.
	ErrSelfLoop = errors.New("self loop")

	// ErrSentinelEdge is returned by [Graph.Connect] for edges into Start or
	// out of End.
	ErrSentinelEdge = errors.New("edge into start or out of end")

	// ErrInvalidOrder is returned by [Graph.Reorder] when the order is not a
	// permutation of all vertices with Start first and End last.
	ErrInvalidOrder = errors.New("invalid working order")
)

// VertexID addresses a vertex in the graph arena.
type VertexID int

// EdgeID addresses an edge in the graph arena.
type EdgeID int

// Vertex is a reading shared by the tokens of one or more witnesses.
// Vertices are owned by their graph; use [Graph.AddToken] to extend them.
type Vertex struct {
	ID     VertexID
	tokens []witness.Token
}

// Tokens returns a copy of the vertex tokens in insertion order.
func (v *Vertex) Tokens() []witness.Token { return slices.Clone(v.tokens) }

// TokenOf returns the token the witness contributes to this vertex.
func (v *Vertex) TokenOf(sigil string) (witness.Token, bool) {
	for _, t := range v.tokens {
		if t.Witness == sigil {
			return t, true
		}
	}
	return witness.Token{}, false
}

// Has reports whether the witness has a token on this vertex.
func (v *Vertex) Has(sigil string) bool {
	_, ok := v.TokenOf(sigil)
	return ok
}

// Normalized returns the reading of the vertex, which is the normalized text
// of its first token. Sentinels return "".
func (v *Vertex) Normalized() string {
	if len(v.tokens) == 0 {
		return ""
	}
	return v.tokens[0].Normalized
}

// Contents returns the raw content of the first token, trimmed.
// Sentinels return "".
func (v *Vertex) Contents() string {
	if len(v.tokens) == 0 {
		return ""
	}
	return strings.TrimSpace(v.tokens[0].Content)
}

// Witnesses returns the sorted sigils of the tokens on this vertex.
func (v *Vertex) Witnesses() []string {
	out := make([]string, 0, len(v.tokens))
	for _, t := range v.tokens {
		out = append(out, t.Witness)
	}
	slices.Sort(out)
	return out
}

func (v *Vertex) String() string {
	if len(v.tokens) == 0 {
		return "#"
	}
	return v.Contents()
}

// Edge is a directed step between two vertices carrying the witnesses that
// take it. Edges returned by the graph are copies.
type Edge struct {
	ID     EdgeID
	From   VertexID
	To     VertexID
	Sigils []string // Sorted, no duplicates
}

// Has reports whether the witness traverses the edge.
func (e Edge) Has(sigil string) bool {
	_, ok := slices.BinarySearch(e.Sigils, sigil)
	return ok
}

// Label joins the sigils as "A, B".
func (e Edge) Label() string { return strings.Join(e.Sigils, ", ") }

type pair struct{ from, to VertexID }

// Graph is the variant graph. The zero value is not usable; use [New].
type Graph struct {
	vertices []*Vertex
	edges    []*Edge
	pairs    map[pair]EdgeID
	outgoing [][]EdgeID // vertex -> edges out
	incoming [][]EdgeID // vertex -> edges in
	order    []VertexID
	position []int
	start    VertexID
	end      VertexID
}

// New creates a graph holding only the Start and End sentinels.
func New() *Graph {
	g := &Graph{pairs: make(map[pair]EdgeID)}
	g.start = g.newVertex()
	g.end = g.newVertex()
	g.order = []VertexID{g.start, g.end}
	g.position = []int{0, 1}
	return g
}

func (g *Graph) newVertex() VertexID {
	id := VertexID(len(g.vertices))
	g.vertices = append(g.vertices, &Vertex{ID: id})
	g.outgoing = append(g.outgoing, nil)
	g.incoming = append(g.incoming, nil)
	return id
}

// Start returns the Start sentinel.
func (g *Graph) Start() VertexID { return g.start }

// End returns the End sentinel.
func (g *Graph) End() VertexID { return g.end }

// IsSentinel reports whether id is Start or End.
func (g *Graph) IsSentinel(id VertexID) bool { return id == g.start || id == g.end }

// AddVertex creates a vertex holding the given tokens and inserts it into the
// working order just before End. Tokens must come from distinct witnesses;
// AddVertex panics otherwise.
func (g *Graph) AddVertex(tokens ...witness.Token) VertexID {
	id := g.newVertex()
	for _, t := range tokens {
		if err := g.AddToken(id, t); err != nil {
			panic(fmt.Sprintf("vgraph: AddVertex: %v", err))
		}
	}

	last := len(g.order) - 1
	g.order = slices.Insert(g.order, last, id)
	g.position = append(g.position, last)
	g.position[g.end] = last + 1
	return id
}

// AddToken adds a witness token to an existing vertex.
// Returns ErrUnknownVertex, ErrSentinelVertex or ErrWitnessOnVertex.
func (g *Graph) AddToken(id VertexID, t witness.Token) error {
	v, ok := g.Vertex(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVertex, id)
	}
	if g.IsSentinel(id) {
		return ErrSentinelVertex
	}
	if v.Has(t.Witness) {
		return fmt.Errorf("%w: %s on vertex %d", ErrWitnessOnVertex, t.Witness, id)
	}
	v.tokens = append(v.tokens, t)
	return nil
}

// Connect adds the witnesses to the edge from→to, creating the edge if it
// does not exist yet. There is never more than one edge per ordered pair.
func (g *Graph) Connect(from, to VertexID, sigils ...string) (EdgeID, error) {
	if !g.Has(from) {
		return -1, fmt.Errorf("%w: %d", ErrUnknownVertex, from)
	}
	if !g.Has(to) {
		return -1, fmt.Errorf("%w: %d", ErrUnknownVertex, to)
	}
	if from == to {
		return -1, fmt.Errorf("%w: %d", ErrSelfLoop, from)
	}
	if to == g.start || from == g.end {
		return -1, ErrSentinelEdge
	}

	if id, ok := g.pairs[pair{from, to}]; ok {
		e := g.edges[id]
		for _, s := range sigils {
			if i, found := slices.BinarySearch(e.Sigils, s); !found {
				e.Sigils = slices.Insert(e.Sigils, i, s)
			}
		}
		return id, nil
	}

	set := slices.Clone(sigils)
	slices.Sort(set)
	id := EdgeID(len(g.edges))
	g.edges = append(g.edges, &Edge{ID: id, From: from, To: to, Sigils: slices.Compact(set)})
	g.pairs[pair{from, to}] = id
	g.outgoing[from] = append(g.outgoing[from], id)
	g.incoming[to] = append(g.incoming[to], id)
	return id, nil
}

// Has reports whether id addresses a vertex of this graph.
func (g *Graph) Has(id VertexID) bool { return id >= 0 && int(id) < len(g.vertices) }

// Vertex returns the vertex with the given ID and true, or nil and false.
func (g *Graph) Vertex(id VertexID) (*Vertex, bool) {
	if !g.Has(id) {
		return nil, false
	}
	return g.vertices[id], true
}

// Vertices returns all vertices in working order, Start first and End last.
func (g *Graph) Vertices() []*Vertex {
	out := make([]*Vertex, len(g.order))
	for i, id := range g.order {
		out[i] = g.vertices[id]
	}
	return out
}

// Order returns a copy of the working order.
func (g *Graph) Order() []VertexID { return slices.Clone(g.order) }

// Position returns the index of the vertex in the working order, or -1.
func (g *Graph) Position(id VertexID) int {
	if !g.Has(id) {
		return -1
	}
	return g.position[id]
}

// VertexCount returns the number of vertices, sentinels included.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = copyEdge(e)
	}
	return out
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edge returns the edge from→to and true, or false if none exists.
func (g *Graph) Edge(from, to VertexID) (Edge, bool) {
	id, ok := g.pairs[pair{from, to}]
	if !ok {
		return Edge{}, false
	}
	return copyEdge(g.edges[id]), true
}

// OutEdges returns copies of the edges leaving the vertex in insertion order.
func (g *Graph) OutEdges(id VertexID) []Edge {
	if !g.Has(id) {
		return nil
	}
	out := make([]Edge, len(g.outgoing[id]))
	for i, eid := range g.outgoing[id] {
		out[i] = copyEdge(g.edges[eid])
	}
	return out
}

// Successors returns the targets of the vertex's outgoing edges.
// Returns nil if the vertex has none or doesn't exist.
func (g *Graph) Successors(id VertexID) []VertexID {
	if !g.Has(id) {
		return nil
	}
	var out []VertexID
	for _, eid := range g.outgoing[id] {
		out = append(out, g.edges[eid].To)
	}
	return out
}

// Predecessors returns the sources of the vertex's incoming edges.
// Returns nil if the vertex has none or doesn't exist.
func (g *Graph) Predecessors(id VertexID) []VertexID {
	if !g.Has(id) {
		return nil
	}
	var out []VertexID
	for _, eid := range g.incoming[id] {
		out = append(out, g.edges[eid].From)
	}
	return out
}

// OutDegree returns the number of outgoing edges, or 0 for unknown vertices.
func (g *Graph) OutDegree(id VertexID) int {
	if !g.Has(id) {
		return 0
	}
	return len(g.outgoing[id])
}

// InDegree returns the number of incoming edges, or 0 for unknown vertices.
func (g *Graph) InDegree(id VertexID) int {
	if !g.Has(id) {
		return 0
	}
	return len(g.incoming[id])
}

// IsSuccessor reports whether there is an edge from→to.
func (g *Graph) IsSuccessor(from, to VertexID) bool {
	_, ok := g.pairs[pair{from, to}]
	return ok
}

// Witnesses returns the sorted union of witness sigils on the vertex.
func (g *Graph) Witnesses(id VertexID) []string {
	v, ok := g.Vertex(id)
	if !ok {
		return nil
	}
	return v.Witnesses()
}

// AllWitnesses returns the sorted sigils of every witness in the graph.
func (g *Graph) AllWitnesses() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range g.vertices {
		for _, t := range v.tokens {
			if _, ok := seen[t.Witness]; !ok {
				seen[t.Witness] = struct{}{}
				out = append(out, t.Witness)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Reorder replaces the working order. order must contain every vertex
// exactly once, with Start first and End last.
func (g *Graph) Reorder(order []VertexID) error {
	if len(order) != len(g.vertices) {
		return fmt.Errorf("%w: %d vertices, graph has %d", ErrInvalidOrder, len(order), len(g.vertices))
	}
	if order[0] != g.start || order[len(order)-1] != g.end {
		return fmt.Errorf("%w: sentinels out of place", ErrInvalidOrder)
	}

	position := make([]int, len(g.vertices))
	seen := make([]bool, len(g.vertices))
	for i, id := range order {
		if !g.Has(id) || seen[id] {
			return fmt.Errorf("%w: vertex %d missing or repeated", ErrInvalidOrder, id)
		}
		seen[id] = true
		position[id] = i
	}

	g.order = slices.Clone(order)
	g.position = position
	return nil
}

// WitnessPath follows the edges tagged with sigil from Start and returns the
// content vertices visited, in order. The walk stops at End or when no
// tagged edge leaves the current vertex.
func (g *Graph) WitnessPath(sigil string) []VertexID {
	var path []VertexID
	curr := g.start
	for steps := 0; steps <= len(g.vertices); steps++ {
		next, ok := g.nextOn(curr, sigil)
		if !ok || next == g.end {
			return path
		}
		path = append(path, next)
		curr = next
	}
	return path
}

func (g *Graph) nextOn(id VertexID, sigil string) (VertexID, bool) {
	for _, eid := range g.outgoing[id] {
		if g.edges[eid].Has(sigil) {
			return g.edges[eid].To, true
		}
	}
	return 0, false
}

// EdgeString renders an edge as "the -> black: A, B".
// Sentinels are rendered as "#".
func (g *Graph) EdgeString(e Edge) string {
	return fmt.Sprintf("%s -> %s: %s", g.vertices[e.From], g.vertices[e.To], e.Label())
}

func copyEdge(e *Edge) Edge {
	c := *e
	c.Sigils = slices.Clone(e.Sigils)
	return c
}
