package witness

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalizer maps a raw token to the text used for matching.
type Normalizer func(content string) string

// tokenPattern matches a word with its trailing whitespace, or a run of
// punctuation with its trailing whitespace.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+\s*|[^\p{L}\p{N}_\s]+\s*`)

// DefaultNormalizer trims whitespace and lowercases the token.
func DefaultNormalizer(content string) string {
	// Casers are stateful; build one per call so tokenizers can run concurrently.
	return cases.Lower(language.Und).String(strings.TrimSpace(content))
}

// TrimNormalizer only trims whitespace, keeping case.
func TrimNormalizer(content string) string {
	return strings.TrimSpace(content)
}

// Tokenizer splits witness text into tokens.
// The zero value uses [DefaultNormalizer].
type Tokenizer struct {
	Normalize Normalizer
}

// Tokenize splits text into tokens for the witness identified by sigil.
// Leading whitespace is dropped; each token keeps its trailing whitespace
// in Content. Indices start at 0 and count tokens of this witness only.
func (tk Tokenizer) Tokenize(sigil, text string) *Witness {
	norm := tk.Normalize
	if norm == nil {
		norm = DefaultNormalizer
	}

	matches := tokenPattern.FindAllString(text, -1)
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		tokens = append(tokens, Token{
			Witness:    sigil,
			Index:      len(tokens),
			Content:    m,
			Normalized: norm(m),
		})
	}
	return &Witness{Sigil: sigil, tokens: tokens}
}

// Tokenize splits text with the default tokenizer.
func Tokenize(sigil, text string) *Witness {
	return Tokenizer{}.Tokenize(sigil, text)
}
