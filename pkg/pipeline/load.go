package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stemma/pkg/config"
	errs "github.com/matzehuels/stemma/pkg/errors"
	stemmaio "github.com/matzehuels/stemma/pkg/io"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/witness"
)

// LoadOptions configures [Load].
type LoadOptions struct {
	Tokenizer witness.Tokenizer // For text, TEI and JSON content witnesses
	XPath     string            // Token elements of TEI witnesses
}

// Inputs are the witnesses read from a set of files, in file order.
type Inputs struct {
	Witnesses []*witness.Witness

	// Match holds the matching settings of the last job or JSON file that
	// carried any. Nil when no file did.
	Match *match.Options
}

// MatchOptions returns the loaded settings, or base when no file had any.
func (in *Inputs) MatchOptions(base match.Options) match.Options {
	if in.Match == nil {
		return base
	}
	return *in.Match
}

// Load reads witnesses from files. The kind of each file follows its
// extension:
//
//   - .json: CollateX JSON input, any number of witnesses
//   - .toml: a job file (see package config), any number of witnesses
//   - .xml, .tei: one TEI witness named after the file
//   - anything else: one plain-text witness named after the file
func Load(paths []string, opts LoadOptions) (*Inputs, error) {
	if len(paths) == 0 {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no input files")
	}

	in := &Inputs{}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "input %s", path)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			req, err := stemmaio.ImportJSON(path)
			if err != nil {
				return nil, err
			}
			ws, err := req.Build(opts.Tokenizer)
			if err != nil {
				return nil, err
			}
			in.Witnesses = append(in.Witnesses, ws...)
			if req.Algorithm != "" || req.Threshold != nil {
				mo, err := req.MatchOptions(match.DefaultOptions())
				if err != nil {
					return nil, err
				}
				in.Match = &mo
			}

		case ".toml":
			c, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			ws, err := c.Witnesses(filepath.Dir(path))
			if err != nil {
				return nil, err
			}
			in.Witnesses = append(in.Witnesses, ws...)
			mo, err := c.MatchOptions()
			if err != nil {
				return nil, err
			}
			in.Match = &mo

		case ".xml", ".tei":
			w, err := stemmaio.ImportTEI(path, "", stemmaio.TEIOptions{XPath: opts.XPath, Tokenizer: opts.Tokenizer})
			if err != nil {
				return nil, err
			}
			in.Witnesses = append(in.Witnesses, w)

		default:
			w, err := stemmaio.ReadText(path, opts.Tokenizer)
			if err != nil {
				return nil, err
			}
			in.Witnesses = append(in.Witnesses, w)
		}
	}
	return in, nil
}
