package io

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/witness"
)

// TEINamespace is the TEI P5 namespace, bound to the "tei" prefix in queries.
const TEINamespace = "http://www.tei-c.org/ns/1.0"

// DefaultTokenXPath selects TEI word elements.
const DefaultTokenXPath = "//tei:w"

var namespaces = map[string]string{"tei": TEINamespace}

// TEIOptions configures [ReadTEI].
type TEIOptions struct {
	// XPath selects one element per token. Defaults to [DefaultTokenXPath].
	// The "tei" prefix is bound to [TEINamespace].
	XPath string

	// Tokenizer normalizes selected tokens and splits the document text
	// when the query selects nothing.
	Tokenizer witness.Tokenizer
}

// ReadTEI reads a witness from a TEI (or any XML) document.
//
// Each element selected by the query becomes one token: its text is the
// content and its "norm" attribute, if present, the normalized form. When the
// query selects nothing, the text of the document's tei:text element (or the
// whole document) is tokenized instead. ReadTEI does not close r.
func ReadTEI(r io.Reader, sigil string, opts TEIOptions) (*witness.Witness, error) {
	expr := opts.XPath
	if expr == "" {
		expr = DefaultTokenXPath
	}
	compiled, err := xpath.CompileWithNS(expr, namespaces)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeConfiguration, err, "invalid token xpath %q", expr)
	}

	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse TEI witness %s", sigil)
	}

	nodes := xmlquery.QuerySelectorAll(doc, compiled)
	if len(nodes) == 0 {
		return opts.Tokenizer.Tokenize(sigil, documentText(doc)), nil
	}

	norm := opts.Tokenizer.Normalize
	if norm == nil {
		norm = witness.DefaultNormalizer
	}
	tokens := make([]witness.Token, 0, len(nodes))
	for _, n := range nodes {
		content := strings.Join(strings.Fields(n.InnerText()), " ")
		if content == "" {
			continue
		}
		normalized := n.SelectAttr("norm")
		if normalized == "" {
			normalized = norm(content)
		}
		tokens = append(tokens, witness.Token{
			Index:      len(tokens),
			Content:    content + " ",
			Normalized: normalized,
		})
	}
	return witness.New(sigil, tokens)
}

func documentText(doc *xmlquery.Node) string {
	if body := xmlquery.QuerySelector(doc, xpath.MustCompile("//*[local-name()='text']")); body != nil {
		return body.InnerText()
	}
	return doc.InnerText()
}

// ImportTEI reads a TEI witness from the file at path. An empty sigil is
// derived from the file name.
func ImportTEI(path, sigil string, opts TEIOptions) (*witness.Witness, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if sigil == "" {
		sigil = SigilFromPath(path)
	}
	return ReadTEI(f, sigil, opts)
}
