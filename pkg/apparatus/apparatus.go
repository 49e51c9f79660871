// Package apparatus projects a variant graph onto an alignment table.
//
// Vertices of equal rank form one [Entry] (a column of the table). Each
// witness contributes at most one token per entry, because ranks strictly
// increase along a witness path. An entry is invariant when one reading is
// shared by every witness, semi-invariant when one reading is shared by some
// witnesses and the others have nothing there, and variant when readings
// differ.
//
// The JSON form follows the CollateX alignment table:
//
//	{"witnesses":["A","B"],"table":[[[{"t":"the ","n":"the"}],...],...]}
//
// where table[w][c] is the list of tokens witness w has in column c.
package apparatus

import (
	"encoding/json"
	"strings"

	"github.com/matzehuels/stemma/pkg/collate"
	"github.com/matzehuels/stemma/pkg/vgraph"
	"github.com/matzehuels/stemma/pkg/vgraph/ranking"
	"github.com/matzehuels/stemma/pkg/witness"
)

// State classifies an entry.
type State int

const (
	Invariant State = iota
	SemiInvariant
	Variant
)

func (s State) String() string {
	switch s {
	case Invariant:
		return "invariant"
	case SemiInvariant:
		return "semi-invariant"
	default:
		return "variant"
	}
}

// Entry is one column of the table.
type Entry struct {
	Rank      int
	Vertices  []vgraph.VertexID
	witnesses []string
	cells     map[string][]witness.Token
}

// Covers reports whether the witness has a token in this entry.
func (e *Entry) Covers(sigil string) bool { return len(e.cells[sigil]) > 0 }

// ReadingOf returns the tokens of the witness in this entry. An uncovered
// witness has an empty reading.
func (e *Entry) ReadingOf(sigil string) []witness.Token {
	return append([]witness.Token(nil), e.cells[sigil]...)
}

// Text joins the trimmed contents of the witness's reading.
func (e *Entry) Text(sigil string) string {
	var parts []string
	for _, t := range e.cells[sigil] {
		parts = append(parts, strings.TrimSpace(t.Content))
	}
	return strings.Join(parts, " ")
}

// HasEmptyCells reports whether some witness has no token in this entry.
func (e *Entry) HasEmptyCells() bool {
	covered := 0
	for _, s := range e.witnesses {
		if e.Covers(s) {
			covered++
		}
	}
	return covered != len(e.witnesses)
}

// State classifies the entry.
func (e *Entry) State() State {
	if len(e.Vertices) != 1 {
		return Variant
	}
	if e.HasEmptyCells() {
		return SemiInvariant
	}
	return Invariant
}

// Table is the alignment table of a collation.
type Table struct {
	Witnesses []string
	Entries   []*Entry
}

// Build projects g onto a table using ranking r. Witness columns follow the
// order of sigils. Start and End are left out.
func Build(g *vgraph.Graph, r *ranking.Ranking, sigils []string) *Table {
	t := &Table{Witnesses: append([]string(nil), sigils...)}
	for rank, column := range r.ByRank() {
		var e *Entry
		for _, id := range column {
			if g.IsSentinel(id) {
				continue
			}
			if e == nil {
				e = &Entry{Rank: rank, witnesses: t.Witnesses, cells: make(map[string][]witness.Token)}
			}
			v, _ := g.Vertex(id)
			e.Vertices = append(e.Vertices, id)
			for _, s := range t.Witnesses {
				if tok, ok := v.TokenOf(s); ok {
					e.cells[s] = append(e.cells[s], tok)
				}
			}
		}
		if e != nil {
			t.Entries = append(t.Entries, e)
		}
	}
	return t
}

// FromResult builds the table of a finished collation, with witnesses in
// merge order.
func FromResult(res *collate.Result) *Table {
	return Build(res.Graph, res.Ranking, witness.Sigils(res.Witnesses))
}

// Row returns the cell texts of one witness across all entries.
func (t *Table) Row(sigil string) []string {
	row := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		row[i] = e.Text(sigil)
	}
	return row
}

// Variants counts the entries that are not invariant.
func (t *Table) Variants() int {
	n := 0
	for _, e := range t.Entries {
		if e.State() != Invariant {
			n++
		}
	}
	return n
}

type jsonToken struct {
	T string `json:"t"`
	N string `json:"n"`
}

type jsonTable struct {
	Witnesses []string        `json:"witnesses"`
	Table     [][][]jsonToken `json:"table"`
	States    []string        `json:"states,omitempty"`
}

// MarshalJSON encodes the table in the CollateX layout, plus the state of
// every column.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := jsonTable{Witnesses: t.Witnesses, Table: make([][][]jsonToken, len(t.Witnesses))}
	for i, s := range t.Witnesses {
		row := make([][]jsonToken, len(t.Entries))
		for j, e := range t.Entries {
			cell := []jsonToken{}
			for _, tok := range e.cells[s] {
				cell = append(cell, jsonToken{T: tok.Content, N: tok.Normalized})
			}
			row[j] = cell
		}
		out.Table[i] = row
	}
	for _, e := range t.Entries {
		out.States = append(out.States, e.State().String())
	}
	return json.Marshal(out)
}
