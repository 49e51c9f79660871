package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/stemma/pkg/errors"
	"github.com/matzehuels/stemma/pkg/match"
	"github.com/matzehuels/stemma/pkg/pipeline"
	"github.com/matzehuels/stemma/pkg/transposition"
	"github.com/matzehuels/stemma/pkg/witness"
)

// inputOpts holds the flags shared by commands that load witnesses.
type inputOpts struct {
	config    string  // TOML job file, read before the positional inputs
	algorithm string  // "exact" or "near"; overrides the inputs when set
	threshold float64 // near-match threshold; overrides the inputs when set
	xpath     string  // token elements of TEI inputs
	lowercase bool    // lowercase tokens before matching
}

func (o *inputOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.config, "config", "c", "", "collation job file (TOML)")
	cmd.Flags().StringVarP(&o.algorithm, "algorithm", "a", "", "matching algorithm: exact (default), near")
	cmd.Flags().Float64Var(&o.threshold, "threshold", 0, "maximum normalized edit distance for near matches")
	cmd.Flags().StringVar(&o.xpath, "xpath", "", "XPath selecting token elements of TEI inputs (default //tei:w)")
	cmd.Flags().BoolVar(&o.lowercase, "lowercase", true, "lowercase tokens before matching")
}

// load reads the witnesses named by the job file and args, then applies
// flag overrides to the matching settings found in them.
func (o *inputOpts) load(cmd *cobra.Command, args []string) ([]*witness.Witness, match.Options, error) {
	paths := args
	if o.config != "" {
		paths = append([]string{o.config}, args...)
	}

	tk := witness.Tokenizer{Normalize: witness.DefaultNormalizer}
	if !o.lowercase {
		tk.Normalize = witness.TrimNormalizer
	}
	in, err := pipeline.Load(paths, pipeline.LoadOptions{Tokenizer: tk, XPath: o.xpath})
	if err != nil {
		return nil, match.Options{}, err
	}

	mo := in.MatchOptions(match.DefaultOptions())
	if cmd.Flags().Changed("algorithm") {
		mode, err := match.ParseMode(o.algorithm)
		if err != nil {
			return nil, match.Options{}, err
		}
		mo.Mode = mode
	}
	if cmd.Flags().Changed("threshold") {
		if err := errs.ValidateThreshold(o.threshold); err != nil {
			return nil, match.Options{}, err
		}
		mo.Threshold = o.threshold
		if !cmd.Flags().Changed("algorithm") && mo.Mode == match.Exact {
			mo.Mode = match.Near
		}
	}
	if mo.Mode == match.Exact {
		mo.Threshold = 0
	}
	if err := mo.Validate(); err != nil {
		return nil, match.Options{}, err
	}
	return in.Witnesses, mo, nil
}

// collateOpts holds the command-line flags for the collate command.
type collateOpts struct {
	inputOpts
	output   string // output file, or base path when several formats are written
	formats  string // comma-separated output formats
	noCache  bool   // skip the rendered-output cache
	detailed bool   // rank and witnesses in graph labels
	vertical bool   // top-to-bottom graph layout
	scale    float64
}

// collateCommand creates the collate command.
func (c *CLI) collateCommand() *cobra.Command {
	opts := collateOpts{scale: pipeline.DefaultScale}

	cmd := &cobra.Command{
		Use:   "collate [inputs...]",
		Short: "Collate witnesses into an alignment table or variant graph",
		Long: `Collate aligns the given witnesses and writes the result.

Inputs are CollateX JSON files (.json), collation jobs (.toml), TEI documents
(.xml, .tei) or plain-text files. Each TEI or text file is one witness named
after the file.

Output formats:
  table   alignment table (default)
  json    alignment table, CollateX JSON layout
  dot     variant graph, Graphviz source
  svg     variant graph, rendered
  png     variant graph, rendered (needs rsvg-convert)
  pdf     variant graph, rendered (needs rsvg-convert)
  graph   variant graph, JSON export`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && opts.config == "" {
				return errs.New(errs.ErrCodeInvalidInput, "no inputs: pass witness files or --config")
			}
			return c.runCollate(cmd, args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): table (default), json, dot, svg, png, pdf, graph (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the rendered-output cache")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show ranks and witnesses in graph labels")
	cmd.Flags().BoolVar(&opts.vertical, "vertical", false, "lay the graph out top to bottom")
	cmd.Flags().Float64Var(&opts.scale, "scale", opts.scale, "PNG scale factor")

	return cmd
}

func (c *CLI) runCollate(cmd *cobra.Command, args []string, opts collateOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)
	logger := loggerFromContext(ctx)

	prog := newProgress(logger)
	ws, mo, err := opts.load(cmd, args)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d witnesses", len(ws)))

	formats := parseFormats(opts.formats)
	if err := pipeline.ValidateFormats(formats); err != nil {
		return err
	}
	if len(formats) > 1 && opts.output == "" {
		return errs.New(errs.ErrCodeInvalidInput, "-o is required for multiple formats")
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := pipeline.Options{
		Match:    mo,
		Formats:  formats,
		Detailed: opts.detailed,
		Vertical: opts.vertical,
		Scale:    opts.scale,
		Refresh:  opts.noCache,
		Logger:   mergeLogger(c),
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Collating %d witnesses...", len(ws)))
	spinner.Start()
	result, err := runner.Execute(ctx, ws, popts)
	spinner.Stop()
	if err != nil {
		return err
	}

	paths, err := writeArtifacts(cmd.OutOrStdout(), result.Artifacts, formats, opts.output)
	if err != nil {
		return err
	}

	if len(paths) > 0 {
		printSuccess("Collated %s", strings.Join(witness.Sigils(result.Collation.Witnesses), ", "))
		for _, p := range paths {
			printFile(p)
		}
	}
	printStats(collationStats{
		witnesses:      result.Stats.Witnesses,
		vertices:       result.Stats.VertexCount,
		entries:        result.Stats.Entries,
		variants:       result.Table.Variants(),
		transpositions: result.Transpositions(),
		cached:         result.CacheInfo.RenderHit,
	})
	printTranspositions(result.Collation.Transpositions)

	if len(paths) > 0 && result.Table.Variants() > 0 {
		printNextStep("Browse the variants", appName+" browse "+strings.Join(args, " "))
	}
	return nil
}

// mergeLogger returns the collator's per-witness logger, or nil unless the
// CLI logs at debug level.
func mergeLogger(c *CLI) *log.Logger {
	if c.Logger.GetLevel() > log.DebugLevel {
		return nil
	}
	return c.Logger.WithPrefix("merge")
}

// writeArtifacts writes every format to its file, or the single format to
// stdout when no output path is given. It returns the written paths.
func writeArtifacts(stdout io.Writer, artifacts map[string][]byte, formats []string, output string) ([]string, error) {
	if output == "" {
		if len(formats) > 1 {
			return nil, errs.New(errs.ErrCodeInvalidInput, "-o is required for multiple formats")
		}
		_, err := stdout.Write(artifacts[formats[0]])
		return nil, err
	}

	var paths []string
	for _, f := range formats {
		path := output
		if len(formats) > 1 {
			path = strings.TrimSuffix(output, filepath.Ext(output)) + "." + extension(f)
		}
		if err := os.WriteFile(path, artifacts[f], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// extension maps a format to its file extension.
func extension(format string) string {
	switch format {
	case pipeline.FormatTable:
		return "txt"
	case pipeline.FormatGraph:
		return "graph.json"
	default:
		return format
	}
}

// printTranspositions reports the phrases found out of order, grouped by
// witness in sigil order.
func printTranspositions(byWitness map[string][]transposition.Transposition) {
	sigils := make([]string, 0, len(byWitness))
	for s, ts := range byWitness {
		if len(ts) > 0 {
			sigils = append(sigils, s)
		}
	}
	sort.Strings(sigils)

	for _, s := range sigils {
		for _, t := range byWitness[s] {
			printWarning("%s: transposed %q (expected rank %d, found %d)", s, phraseText(t.Phrase), t.Expected, t.Actual)
		}
	}
}

func phraseText(p match.PhraseMatch) string {
	words := make([]string, len(p.Tokens))
	for i, tm := range p.Tokens {
		words[i] = strings.TrimSpace(tm.Token.Content)
	}
	return strings.Join(words, " ")
}
