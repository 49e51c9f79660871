package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
)

type graph struct {
	Vertices []vertex `json:"vertices"`
	Edges    []edge   `json:"edges"`
}

type vertex struct {
	ID        int      `json:"id"`
	Kind      string   `json:"kind,omitempty"`
	Rank      *int     `json:"rank,omitempty"`
	Reading   string   `json:"reading,omitempty"`
	Witnesses []string `json:"witnesses,omitempty"`
	Tokens    []token  `json:"tokens,omitempty"`
}

type token struct {
	Witness string `json:"witness"`
	Index   int    `json:"index"`
	T       string `json:"t"`
	N       string `json:"n"`
}

type edge struct {
	From      int      `json:"from"`
	To        int      `json:"to"`
	Witnesses []string `json:"witnesses"`
}

// WriteGraph encodes a variant graph as JSON and writes it to w.
//
// Vertices appear in working order with their tokens and witnesses; Start
// and End carry kind "start" and "end". When r is not nil every vertex also
// carries its rank. Edges appear in insertion order with their sigils.
func WriteGraph(g *vgraph.Graph, r *ranking.Ranking, w io.Writer) error {
	out := graph{
		Vertices: make([]vertex, 0, g.VertexCount()),
		Edges:    make([]edge, 0, g.EdgeCount()),
	}

	for _, v := range g.Vertices() {
		vx := vertex{ID: int(v.ID), Reading: v.Normalized(), Witnesses: v.Witnesses()}
		switch v.ID {
		case g.Start():
			vx.Kind = "start"
		case g.End():
			vx.Kind = "end"
		}
		if r != nil {
			if rank, ok := r.RankOf(v.ID); ok {
				vx.Rank = &rank
			}
		}
		for _, t := range v.Tokens() {
			vx.Tokens = append(vx.Tokens, token{Witness: t.Witness, Index: t.Index, T: t.Content, N: t.Normalized})
		}
		out.Vertices = append(out.Vertices, vx)
	}
	for _, e := range g.Edges() {
		out.Edges = append(out.Edges, edge{From: int(e.From), To: int(e.To), Witnesses: e.Sigils})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportGraph writes the graph JSON to the file at path.
func ExportGraph(g *vgraph.Graph, r *ranking.Ranking, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteGraph(g, r, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
