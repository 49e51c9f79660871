package apparatus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stemma/pkg/collate"
	"github.com/matzehuels/stemma/pkg/witness"
)

func table(t *testing.T, texts map[string]string, order ...string) *Table {
	t.Helper()
	var ws []*witness.Witness
	for _, s := range order {
		ws = append(ws, witness.Tokenize(s, texts[s]))
	}
	res, err := collate.Collate(context.Background(), ws, collate.Options{})
	if err != nil {
		t.Fatalf("Collate() error: %v", err)
	}
	return FromResult(res)
}

func TestBuild(t *testing.T) {
	tbl := table(t, map[string]string{
		"A": "the black cat",
		"B": "the white cat",
		"C": "the cat",
	}, "A", "B", "C")

	if diff := cmp.Diff([]string{"A", "B", "C"}, tbl.Witnesses); diff != "" {
		t.Errorf("Witnesses mismatch (-want +got):\n%s", diff)
	}

	rows := map[string][]string{
		"A": {"the", "black", "cat"},
		"B": {"the", "white", "cat"},
		"C": {"the", "", "cat"},
	}
	for sigil, want := range rows {
		if diff := cmp.Diff(want, tbl.Row(sigil)); diff != "" {
			t.Errorf("Row(%s) mismatch (-want +got):\n%s", sigil, diff)
		}
	}

	var states []State
	for _, e := range tbl.Entries {
		states = append(states, e.State())
	}
	if diff := cmp.Diff([]State{Invariant, Variant, Invariant}, states); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if tbl.Variants() != 1 {
		t.Errorf("Variants() = %d, want 1", tbl.Variants())
	}
}

func TestEntryHelpers(t *testing.T) {
	tbl := table(t, map[string]string{
		"A": "a b c",
		"B": "a c",
	}, "A", "B")

	if len(tbl.Entries) != 3 {
		t.Fatalf("Entries = %d, want 3", len(tbl.Entries))
	}
	mid := tbl.Entries[1]

	if mid.State() != SemiInvariant {
		t.Errorf("State() = %v, want semi-invariant", mid.State())
	}
	if !mid.Covers("A") || mid.Covers("B") {
		t.Error("Covers() mismatch")
	}
	if !mid.HasEmptyCells() {
		t.Error("HasEmptyCells() = false, want true")
	}
	if len(mid.ReadingOf("B")) != 0 {
		t.Errorf("ReadingOf(B) = %v, want empty", mid.ReadingOf("B"))
	}
	if got := mid.ReadingOf("A"); len(got) != 1 || got[0].Normalized != "b" {
		t.Errorf("ReadingOf(A) = %v, want [b]", got)
	}
	if tbl.Entries[0].HasEmptyCells() {
		t.Error("first entry should have no empty cells")
	}
}

func TestMarshalJSON(t *testing.T) {
	tbl := table(t, map[string]string{
		"A": "a b",
		"B": "a",
	}, "A", "B")

	data, err := json.Marshal(tbl)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got struct {
		Witnesses []string
		Table     [][][]struct{ T, N string }
		States    []string
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, got.Witnesses); diff != "" {
		t.Errorf("witnesses mismatch (-want +got):\n%s", diff)
	}
	if len(got.Table) != 2 || len(got.Table[1]) != 2 {
		t.Fatalf("table shape = %v, want 2x2", got.Table)
	}
	if got.Table[0][1][0].N != "b" {
		t.Errorf("table[A][1] = %v, want b", got.Table[0][1])
	}
	if len(got.Table[1][1]) != 0 {
		t.Errorf("table[B][1] = %v, want empty cell", got.Table[1][1])
	}
	if diff := cmp.Diff([]string{"invariant", "semi-invariant"}, got.States); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}
