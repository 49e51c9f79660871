package match

import (
	"strings"

	errs "github.com/matzehuels/stemma/pkg/errors"
)

// Mode selects how token readings are compared.
type Mode int

const (
	// Exact matches tokens whose normalized text is identical.
	Exact Mode = iota
	// Near also matches tokens whose distance is within the threshold.
	Near
)

func (m Mode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Near:
		return "near"
	default:
		return "unknown"
	}
}

// ParseMode parses "exact" or "near" (case-insensitive). An empty string
// selects Exact.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exact":
		return Exact, nil
	case "near":
		return Near, nil
	default:
		return Exact, errs.Configuration(nil, "unknown matching algorithm %q (want exact or near)", s)
	}
}

// Options configure a [Matcher].
type Options struct {
	Mode      Mode
	Threshold float64      // Maximum accepted distance in Near mode
	Distance  DistanceFunc // Nil selects NormalizedDistance
}

// DefaultOptions returns exact matching.
func DefaultOptions() Options {
	return Options{Mode: Exact}
}

// Validate returns a CONFIGURATION error for an unknown mode, a threshold
// that is NaN or outside [0, 1], or a non-zero threshold in Exact mode.
func (o Options) Validate() error {
	if o.Mode != Exact && o.Mode != Near {
		return errs.Configuration(nil, "unknown matching mode %d", o.Mode)
	}
	if err := errs.ValidateThreshold(o.Threshold); err != nil {
		return err
	}
	if o.Mode == Exact && o.Threshold != 0 {
		return errs.Configuration(nil, "threshold %v requires near matching", o.Threshold)
	}
	return nil
}
