// Package vgraph provides the variant graph: a directed acyclic graph that
// merges several witnesses of a text into one structure.
//
// # Overview
//
// Each [Vertex] holds the tokens of one or more witnesses that share a
// reading. Each [Edge] carries the set of witness sigils that step from one
// vertex to the next. Two sentinel vertices, Start and End, exist exactly once
// per graph and hold no tokens. After a witness has been merged, following
// the edges tagged with its sigil from Start reaches End through the
// witness's tokens in their original order.
//
// # Storage
//
// Vertices and edges live in arenas and are addressed by [VertexID] and
// [EdgeID]. IDs are assigned in insertion order and never reused, so the ID
// doubles as the insertion-order tie-break used by the matcher. Nothing is
// ever deleted; a graph is discarded as a whole.
//
// # Basic Usage
//
//	g := vgraph.New()
//	the := g.AddVertex(tokA0)
//	_ = g.AddToken(the, tokB0)
//	_, _ = g.Connect(g.Start(), the, "A", "B")
//	_, _ = g.Connect(the, g.End(), "A", "B")
//
// [Graph.Connect] unions witness sigils into an existing edge instead of
// creating a parallel one.
//
// # Working Order
//
// The graph keeps a working topological order of its vertices. New vertices
// enter it just before End; the collation builder rebuilds it after every
// merge and stores it back with [Graph.Reorder]. [Graph.Vertices] iterates in
// this order.
//
// Ranks are not stored here. See the ranking subpackage, which derives them
// on demand.
//
// # Concurrency
//
// Graph is not safe for concurrent use. Merges into one graph are sequential.
package vgraph
