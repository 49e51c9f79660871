// Package witness defines the token stream that stemma collates.
//
// A [Witness] is one version of a text: a sigil (identifier) and an ordered,
// immutable sequence of [Token] values. Tokens carry their witness sigil, a
// position index that is unique and ascending within the witness, the raw
// content, and the normalized text used for matching.
//
// Producing tokens is the job of a collaborator. [Tokenizer] is the default
// one: it splits text into words and punctuation runs and normalizes each
// token with a pluggable [Normalizer]. Index counters are scoped to the
// witness being tokenized, so two tokenizers never share state.
package witness

import (
	"fmt"
	"slices"
	"strings"
)

// Token is the minimal alignable unit of a witness.
type Token struct {
	Witness    string // Sigil of the owning witness
	Index      int    // Position within the witness (unique, ascending)
	Content    string // Raw text, including trailing whitespace
	Normalized string // Text compared during matching
}

// String renders the token as "sigil:index:'normalized'".
func (t Token) String() string {
	return fmt.Sprintf("%s:%d:'%s'", t.Witness, t.Index, t.Normalized)
}

// Compare orders two tokens of the same witness by position.
// It returns a negative number when t precedes o, zero when they share a
// position and a positive number otherwise. Comparing tokens of different
// witnesses is meaningless; Compare orders them by sigil first so the result
// is still a total order.
func (t Token) Compare(o Token) int {
	if t.Witness != o.Witness {
		return strings.Compare(t.Witness, o.Witness)
	}
	return t.Index - o.Index
}

// Witness is one version of a text being collated.
// The zero value is not usable; construct witnesses with [New] or a
// [Tokenizer].
type Witness struct {
	Sigil  string
	tokens []Token
}

// New creates a witness from pre-built tokens.
//
// Each token's Witness field is overwritten with sigil. Indices must be
// strictly ascending; New returns an error otherwise. The token slice is
// copied, so later changes to tokens do not affect the witness.
func New(sigil string, tokens []Token) (*Witness, error) {
	out := make([]Token, len(tokens))
	for i, t := range tokens {
		if i > 0 && t.Index <= tokens[i-1].Index {
			return nil, fmt.Errorf("witness %s: token index %d not ascending after %d", sigil, t.Index, tokens[i-1].Index)
		}
		t.Witness = sigil
		out[i] = t
	}
	return &Witness{Sigil: sigil, tokens: out}, nil
}

// Tokens returns a copy of the witness tokens in order.
func (w *Witness) Tokens() []Token { return slices.Clone(w.tokens) }

// Len returns the number of tokens.
func (w *Witness) Len() int { return len(w.tokens) }

// Token returns the i-th token.
func (w *Witness) Token(i int) Token { return w.tokens[i] }

// Text joins the token contents back into a string.
func (w *Witness) Text() string {
	var b strings.Builder
	for _, t := range w.tokens {
		b.WriteString(t.Content)
	}
	return strings.TrimSpace(b.String())
}

func (w *Witness) String() string { return w.Sigil }

// Sigils extracts the sigil of each witness in order.
func Sigils(ws []*Witness) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Sigil
	}
	return out
}
