package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/stemma/pkg/cache"
	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/witness"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"table", false},
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"graph", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && errs.GetCode(err) != errs.ErrCodeInvalidFormat {
			t.Errorf("ValidateFormat(%q) code = %s, want INVALID_FORMAT", tt.format, errs.GetCode(err))
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "table"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}
	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if diff := cmp.Diff([]string{DefaultFormat}, o.Formats); diff != "" {
		t.Errorf("Formats mismatch (-want +got):\n%s", diff)
	}
	if o.Scale != DefaultScale || o.Logger == nil {
		t.Errorf("defaults not applied: scale=%v logger=%v", o.Scale, o.Logger)
	}

	bad := Options{Match: match.Options{Mode: match.Near, Threshold: 2}}
	if err := bad.ValidateAndSetDefaults(); !errs.IsConfiguration(err) {
		t.Errorf("bad threshold error = %v, want CONFIGURATION", err)
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := Options{Detailed: true, Scale: 2}
	if got := o.ArtifactKeyOpts(FormatTable); got.Detailed {
		t.Error("table key should ignore graph options")
	}
	if got := o.ArtifactKeyOpts(FormatSVG); !got.Detailed {
		t.Error("svg key should include graph options")
	}
	if got := o.ArtifactKeyOpts(FormatPNG).Format; got != "png@2.00" {
		t.Errorf("png key format = %q, want png@2.00", got)
	}
}

func witnesses() []*witness.Witness {
	return []*witness.Witness{
		witness.Tokenize("A", "the black cat"),
		witness.Tokenize("B", "the white cat"),
		witness.Tokenize("C", "the cat"),
	}
}

func TestRunnerExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), witnesses(), Options{
		Formats: []string{FormatTable, FormatJSON, FormatDOT, FormatGraph},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if res.Stats.Witnesses != 3 || res.Stats.Entries != 3 || res.Stats.VertexCount != 6 {
		t.Errorf("Stats = %+v, want 3 witnesses, 3 entries, 6 vertices", res.Stats)
	}
	if res.CacheInfo.RenderHit {
		t.Error("NullCache run should not report cache hits")
	}

	text := string(res.Artifacts[FormatTable])
	for _, want := range []string{"black", "white", "-"} {
		if !strings.Contains(text, want) {
			t.Errorf("table missing %q:\n%s", want, text)
		}
	}

	var tbl struct{ Witnesses []string }
	if err := json.Unmarshal(res.Artifacts[FormatJSON], &tbl); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, tbl.Witnesses); diff != "" {
		t.Errorf("json witnesses mismatch (-want +got):\n%s", diff)
	}

	if !strings.HasPrefix(string(res.Artifacts[FormatDOT]), "digraph G {") {
		t.Error("dot artifact is not a digraph")
	}
	if !json.Valid(res.Artifacts[FormatGraph]) {
		t.Error("graph artifact is not valid JSON")
	}
}

func TestRunnerCachesArtifacts(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, nil)
	opts := Options{Formats: []string{FormatTable, FormatDOT}}

	first, err := r.Execute(ctx, witnesses(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	second, err := r.Execute(ctx, witnesses(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !second.CacheInfo.RenderHit {
		t.Errorf("second run hits = %v, want all formats", second.CacheInfo.Hits)
	}
	if diff := cmp.Diff(first.Artifacts, second.Artifacts); diff != "" {
		t.Errorf("cached artifacts differ (-first +second):\n%s", diff)
	}

	// Other matching settings must not reuse the artifacts.
	near := opts
	near.Match = match.Options{Mode: match.Near, Threshold: 0.3}
	third, err := r.Execute(ctx, witnesses(), near)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if len(third.CacheInfo.Hits) != 0 {
		t.Errorf("near run hits = %v, want none", third.CacheInfo.Hits)
	}

	refresh := opts
	refresh.Refresh = true
	fourth, _ := r.Execute(ctx, witnesses(), refresh)
	if len(fourth.CacheInfo.Hits) != 0 {
		t.Errorf("refresh run hits = %v, want none", fourth.CacheInfo.Hits)
	}
}

func TestRunnerExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	ctx := context.Background()

	_, err := r.Execute(ctx, witnesses(), Options{Formats: []string{"bmp"}})
	if errs.GetCode(err) != errs.ErrCodeInvalidFormat {
		t.Errorf("bad format error = %v, want INVALID_FORMAT", err)
	}

	dup := []*witness.Witness{witness.Tokenize("A", "x"), witness.Tokenize("A", "y")}
	if _, err := r.Execute(ctx, dup, Options{}); !errs.IsConfiguration(err) {
		t.Errorf("duplicate sigil error = %v, want CONFIGURATION", err)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "A.txt", "the black cat"),
		writeFile(t, dir, "req.json", `{"witnesses":[{"id":"B","content":"the white cat"}],"algorithm":"near","threshold":0.3}`),
		writeFile(t, dir, "C.xml", `<TEI xmlns="http://www.tei-c.org/ns/1.0"><text><w>the</w><w>cat</w></text></TEI>`),
	}

	in, err := Load(paths, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, witness.Sigils(in.Witnesses)); diff != "" {
		t.Errorf("sigils mismatch (-want +got):\n%s", diff)
	}
	got := in.MatchOptions(match.DefaultOptions())
	if got.Mode != match.Near || got.Threshold != 0.3 {
		t.Errorf("MatchOptions() = %+v, want near at 0.3", got)
	}
}

func TestLoad_Job(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one two")
	job := writeFile(t, dir, "job.toml", "[[witness]]\nfile = \"a.txt\"\n[[witness]]\nsigil = \"B\"\ncontent = \"two one\"\n")

	in, err := Load([]string{job}, LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "B"}, witness.Sigils(in.Witnesses)); diff != "" {
		t.Errorf("sigils mismatch (-want +got):\n%s", diff)
	}
	if in.Match == nil || in.Match.Mode != match.Exact {
		t.Errorf("Match = %+v, want exact from the job file", in.Match)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(nil, LoadOptions{}); errs.GetCode(err) != errs.ErrCodeInvalidInput {
		t.Errorf("no inputs error = %v, want INVALID_INPUT", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.txt")
	if _, err := Load([]string{missing}, LoadOptions{}); errs.GetCode(err) != errs.ErrCodeFileNotFound {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}
