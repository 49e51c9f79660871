package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/witness"
)

// Input is a collation request in the CollateX JSON layout.
type Input struct {
	Witnesses []InputWitness `json:"witnesses"`

	// Optional matching settings. Zero values leave the caller's defaults.
	Algorithm string   `json:"algorithm,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// InputWitness is one witness of an [Input]. Exactly one of Content and
// Tokens is expected; Tokens wins when both are present.
type InputWitness struct {
	ID      string       `json:"id"`
	Content string       `json:"content,omitempty"`
	Tokens  []InputToken `json:"tokens,omitempty"`
}

// InputToken is a pre-tokenized token: t is the raw text, n the normalized
// form. An empty n is filled in by the tokenizer's normalizer.
type InputToken struct {
	T string `json:"t"`
	N string `json:"n,omitempty"`
}

// ReadJSON decodes a collation request from r.
//
// ReadJSON returns an INVALID_INPUT error if the JSON is malformed or has no
// witnesses. Sigils are checked later, when witnesses join a collation.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode collation input")
	}
	if len(in.Witnesses) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "collation input has no witnesses")
	}
	return &in, nil
}

// ImportJSON reads a collation request from the file at path.
func ImportJSON(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// Build turns the request into witnesses. Witnesses with content are split
// by tk; pre-tokenized witnesses keep their tokens as given.
func (in *Input) Build(tk witness.Tokenizer) ([]*witness.Witness, error) {
	norm := tk.Normalize
	if norm == nil {
		norm = witness.DefaultNormalizer
	}

	out := make([]*witness.Witness, 0, len(in.Witnesses))
	for _, iw := range in.Witnesses {
		if iw.Tokens == nil {
			out = append(out, tk.Tokenize(iw.ID, iw.Content))
			continue
		}
		tokens := make([]witness.Token, len(iw.Tokens))
		for i, t := range iw.Tokens {
			n := t.N
			if n == "" {
				n = norm(t.T)
			}
			tokens[i] = witness.Token{Index: i, Content: t.T, Normalized: n}
		}
		w, err := witness.New(iw.ID, tokens)
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "witness %s", iw.ID)
		}
		out = append(out, w)
	}
	return out, nil
}

// MatchOptions applies the request's settings on top of base. A threshold
// without an algorithm selects near matching. A valid threshold is ignored
// by exact matching; an out-of-range one is always a CONFIGURATION error.
func (in *Input) MatchOptions(base match.Options) (match.Options, error) {
	opts := base
	if in.Algorithm != "" {
		mode, err := match.ParseMode(in.Algorithm)
		if err != nil {
			return match.Options{}, err
		}
		opts.Mode = mode
	}
	if in.Threshold != nil {
		if err := errs.ValidateThreshold(*in.Threshold); err != nil {
			return match.Options{}, err
		}
		opts.Threshold = *in.Threshold
		if in.Algorithm == "" {
			opts.Mode = match.Near
		}
	}
	if opts.Mode == match.Exact {
		opts.Threshold = 0
	}
	return opts, opts.Validate()
}

// ReadText reads a plain-text witness. The sigil is the file's base name
// without its extension.
func ReadText(path string, tk witness.Tokenizer) (*witness.Witness, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return tk.Tokenize(SigilFromPath(path), string(data)), nil
}

// SigilFromPath derives a witness sigil from a file name.
func SigilFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
