// Package config loads collation jobs from TOML files.
//
// A job file names the matching algorithm, the tokenizer settings and the
// witnesses to collate:
//
//	[collation]
//	algorithm = "near"      # "exact" | "near"
//	threshold = 0.4
//
//	[tokenizer]
//	lowercase = true
//	xpath = "//tei:w"       # token elements of TEI witnesses
//
//	[[witness]]
//	sigil = "A"
//	file  = "a.txt"         # or content = "...", or tei = "a.xml"
//
// Witness paths are relative to the job file and may not leave its
// directory. Command-line flags override the values loaded here.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/stemma/pkg/errors"
	stemmaio "github.com/matzehuels/stemma/pkg/io"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/witness"
)

// Config is a parsed job file.
type Config struct {
	Collation Collation `toml:"collation"`
	Tokenizer Tokenizer `toml:"tokenizer"`
	Witness   []Source  `toml:"witness"`
}

// Collation holds the matching settings.
type Collation struct {
	Algorithm string  `toml:"algorithm"`
	Threshold float64 `toml:"threshold"`
}

// Tokenizer holds the tokenizer settings.
type Tokenizer struct {
	Lowercase *bool  `toml:"lowercase"` // Defaults to true
	XPath     string `toml:"xpath"`
}

// Source names where one witness comes from. Exactly one of File, Content
// and TEI must be set.
type Source struct {
	Sigil   string `toml:"sigil"`
	File    string `toml:"file"`
	Content string `toml:"content"`
	TEI     string `toml:"tei"`
}

// sigil returns the configured sigil, or one derived from the source file.
func (s Source) sigil() string {
	switch {
	case s.Sigil != "":
		return s.Sigil
	case s.File != "":
		return stemmaio.SigilFromPath(s.File)
	case s.TEI != "":
		return stemmaio.SigilFromPath(s.TEI)
	}
	return ""
}

// Load reads and validates the job file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "job file %s", path)
		}
		return nil, errs.Configuration(err, "read job file %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a job file. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errs.Configuration(err, "decode job file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errs.Configuration(nil, "unknown keys in job file: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings and the witness list.
func (c *Config) Validate() error {
	if _, err := c.MatchOptions(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Witness))
	for i, s := range c.Witness {
		set := 0
		for _, v := range []string{s.File, s.Content, s.TEI} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return errs.Configuration(nil, "witness %d: exactly one of file, content or tei is required", i+1)
		}

		sigil := s.sigil()
		if err := errs.ValidateSigil(sigil); err != nil {
			return errs.Configuration(err, "witness %d", i+1)
		}
		if seen[sigil] {
			return errs.Configuration(nil, "witness %d: duplicate sigil %q", i+1, sigil)
		}
		seen[sigil] = true

		for _, p := range []string{s.File, s.TEI} {
			if p == "" {
				continue
			}
			if err := errs.ValidatePath(p); err != nil {
				return errs.Configuration(err, "witness %s", sigil)
			}
		}
	}
	return nil
}

// MatchOptions converts the collation section to matcher options.
func (c *Config) MatchOptions() (match.Options, error) {
	mode, err := match.ParseMode(c.Collation.Algorithm)
	if err != nil {
		return match.Options{}, err
	}
	opts := match.Options{Mode: mode, Threshold: c.Collation.Threshold}
	if err := opts.Validate(); err != nil {
		return match.Options{}, err
	}
	return opts, nil
}

// WitnessTokenizer returns the tokenizer described by the tokenizer section.
func (c *Config) WitnessTokenizer() witness.Tokenizer {
	if c.Tokenizer.Lowercase != nil && !*c.Tokenizer.Lowercase {
		return witness.Tokenizer{Normalize: witness.TrimNormalizer}
	}
	return witness.Tokenizer{Normalize: witness.DefaultNormalizer}
}

// Witnesses loads the configured witnesses in file order. Paths are resolved
// against baseDir, normally the directory of the job file.
func (c *Config) Witnesses(baseDir string) ([]*witness.Witness, error) {
	tk := c.WitnessTokenizer()
	out := make([]*witness.Witness, 0, len(c.Witness))
	for _, s := range c.Witness {
		sigil := s.sigil()
		var (
			w   *witness.Witness
			err error
		)
		switch {
		case s.Content != "":
			w = tk.Tokenize(sigil, s.Content)
		case s.File != "":
			var data []byte
			data, err = os.ReadFile(filepath.Join(baseDir, s.File))
			if err == nil {
				w = tk.Tokenize(sigil, string(data))
			}
		case s.TEI != "":
			w, err = stemmaio.ImportTEI(filepath.Join(baseDir, s.TEI), sigil, stemmaio.TEIOptions{
				XPath:     c.Tokenizer.XPath,
				Tokenizer: tk,
			})
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "load witness %s", sigil)
		}
		out = append(out, w)
	}
	return out, nil
}
