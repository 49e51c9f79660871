package io

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stemma/pkg/collate"
	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/witness"
)

func normalized(w *witness.Witness) []string {
	var out []string
	for _, t := range w.Tokens() {
		out = append(out, t.Normalized)
	}
	return out
}

func TestReadJSON(t *testing.T) {
	input := `{
	  "witnesses": [
	    {"id": "A", "content": "The black cat"},
	    {"id": "B", "tokens": [{"t": "the "}, {"t": "White ", "n": "white"}, {"t": "cat"}]}
	  ]
	}`

	in, err := ReadJSON(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	ws, err := in.Build(witness.Tokenizer{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(ws) != 2 {
		t.Fatalf("Build() = %d witnesses, want 2", len(ws))
	}
	if diff := cmp.Diff([]string{"the", "black", "cat"}, normalized(ws[0])); diff != "" {
		t.Errorf("witness A mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"the", "white", "cat"}, normalized(ws[1])); diff != "" {
		t.Errorf("witness B mismatch (-want +got):\n%s", diff)
	}
	if got := ws[1].Token(1); got.Witness != "B" || got.Index != 1 || got.Content != "White " {
		t.Errorf("token = %+v, want B:1 with raw content", got)
	}
}

func TestReadJSON_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"malformed", `{"witnesses": [`},
		{"no witnesses", `{"witnesses": []}`},
		{"wrong type", `{"witnesses": "A"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(tt.input))
			if errs.GetCode(err) != errs.ErrCodeInvalidInput {
				t.Errorf("ReadJSON() error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestInputMatchOptions(t *testing.T) {
	threshold, tooHigh, negative := 0.4, 5.0, -1.0
	tests := []struct {
		name    string
		in      Input
		base    match.Options
		want    match.Options
		wantErr bool
	}{
		{"defaults kept", Input{}, match.Options{Mode: match.Near, Threshold: 0.2}, match.Options{Mode: match.Near, Threshold: 0.2}, false},
		{"near override", Input{Algorithm: "near", Threshold: &threshold}, match.Options{}, match.Options{Mode: match.Near, Threshold: 0.4}, false},
		{"exact drops threshold", Input{Algorithm: "exact"}, match.Options{Mode: match.Near, Threshold: 0.2}, match.Options{}, false},
		{"unknown algorithm", Input{Algorithm: "fuzzy"}, match.Options{}, match.Options{}, true},
		{"threshold implies near", Input{Threshold: &threshold}, match.Options{}, match.Options{Mode: match.Near, Threshold: 0.4}, false},
		{"exact ignores valid threshold", Input{Algorithm: "exact", Threshold: &threshold}, match.Options{}, match.Options{}, false},
		{"threshold above one", Input{Threshold: &tooHigh}, match.Options{}, match.Options{}, true},
		{"exact with negative threshold", Input{Algorithm: "exact", Threshold: &negative}, match.Options{}, match.Options{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.MatchOptions(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MatchOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errs.IsConfiguration(err) {
					t.Errorf("MatchOptions() error = %v, want CONFIGURATION", err)
				}
				return
			}
			if got.Mode != tt.want.Mode || got.Threshold != tt.want.Threshold {
				t.Errorf("MatchOptions() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

const teiDoc = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
  <text><body><p>
    <w>The</w> <w norm="colour">color</w> <w>of</w>
    <w>the
      cat</w>
  </p></body></text>
</TEI>`

func TestReadTEI(t *testing.T) {
	w, err := ReadTEI(strings.NewReader(teiDoc), "T", TEIOptions{})
	if err != nil {
		t.Fatalf("ReadTEI() error: %v", err)
	}
	if diff := cmp.Diff([]string{"the", "colour", "of", "the cat"}, normalized(w)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
	if got := w.Token(1).Content; got != "color " {
		t.Errorf("Content = %q, want %q", got, "color ")
	}
}

func TestReadTEI_FallsBackToText(t *testing.T) {
	doc := `<TEI xmlns="http://www.tei-c.org/ns/1.0"><teiHeader><title>Ignored</title></teiHeader><text>a b c</text></TEI>`
	w, err := ReadTEI(strings.NewReader(doc), "T", TEIOptions{})
	if err != nil {
		t.Fatalf("ReadTEI() error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, normalized(w)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTEI_CustomXPath(t *testing.T) {
	doc := `<doc><seg>one</seg><seg>two</seg><note>skip</note></doc>`
	w, err := ReadTEI(strings.NewReader(doc), "X", TEIOptions{XPath: "//seg"})
	if err != nil {
		t.Fatalf("ReadTEI() error: %v", err)
	}
	if diff := cmp.Diff([]string{"one", "two"}, normalized(w)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTEI_Errors(t *testing.T) {
	if _, err := ReadTEI(strings.NewReader(teiDoc), "T", TEIOptions{XPath: "//w["}); !errs.IsConfiguration(err) {
		t.Errorf("bad xpath error = %v, want CONFIGURATION", err)
	}
	if _, err := ReadTEI(strings.NewReader("<a><b></a>"), "T", TEIOptions{}); errs.GetCode(err) != errs.ErrCodeInvalidInput {
		t.Errorf("bad xml error = %v, want INVALID_INPUT", err)
	}
}

func TestReadText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ms-b.txt")
	if err := os.WriteFile(path, []byte("Hello, world"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := ReadText(path, witness.Tokenizer{Normalize: witness.TrimNormalizer})
	if err != nil {
		t.Fatalf("ReadText() error: %v", err)
	}
	if w.Sigil != "ms-b" {
		t.Errorf("Sigil = %q, want ms-b", w.Sigil)
	}
	if diff := cmp.Diff([]string{"Hello", ",", "world"}, normalized(w)); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteGraph(t *testing.T) {
	res, err := collate.Collate(context.Background(), []*witness.Witness{
		witness.Tokenize("A", "the black cat"),
		witness.Tokenize("B", "the white cat"),
	}, collate.Options{})
	if err != nil {
		t.Fatalf("Collate() error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteGraph(res.Graph, res.Ranking, &buf); err != nil {
		t.Fatalf("WriteGraph() error: %v", err)
	}

	var got graph
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if len(got.Vertices) != 6 || len(got.Edges) != 6 {
		t.Fatalf("got %d vertices and %d edges, want 6 and 6", len(got.Vertices), len(got.Edges))
	}

	first, last := got.Vertices[0], got.Vertices[len(got.Vertices)-1]
	if first.Kind != "start" || *first.Rank != 0 {
		t.Errorf("first vertex = %+v, want start at rank 0", first)
	}
	if last.Kind != "end" || *last.Rank != 4 {
		t.Errorf("last vertex = %+v, want end at rank 4", last)
	}
	the := got.Vertices[1]
	if the.Reading != "the" || len(the.Tokens) != 2 {
		t.Errorf("vertex = %+v, want reading the with 2 tokens", the)
	}
	if diff := cmp.Diff([]string{"A", "B"}, got.Edges[0].Witnesses); diff != "" {
		t.Errorf("edge witnesses mismatch (-want +got):\n%s", diff)
	}
}
