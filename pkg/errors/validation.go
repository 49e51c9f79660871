package errors

import (
	"math"
	"strings"
	"unicode"
)

// MaxSigilLength bounds witness identifiers. Sigils end up in DOT labels,
// table headers and cache keys.
const MaxSigilLength = 64

// ValidateSigil validates a witness identifier.
//
// The rules are conservative:
//   - No empty sigils
//   - No control characters or whitespace
//   - No commas (edge labels join sigils with ", ")
//   - Maximum length of MaxSigilLength characters
func ValidateSigil(sigil string) error {
	if sigil == "" {
		return New(ErrCodeConfiguration, "witness sigil cannot be empty")
	}
	if len(sigil) > MaxSigilLength {
		return New(ErrCodeConfiguration, "witness sigil too long (max %d characters)", MaxSigilLength)
	}
	for _, r := range sigil {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeConfiguration, "witness sigil %q contains whitespace or control characters", sigil)
		}
	}
	if strings.Contains(sigil, ",") {
		return New(ErrCodeConfiguration, "witness sigil %q contains a comma", sigil)
	}
	return nil
}

// ValidateThreshold validates a normalized distance threshold.
// Thresholds must be finite and lie in [0, 1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return New(ErrCodeConfiguration, "distance threshold must be a finite number")
	}
	if threshold < 0 || threshold > 1 {
		return New(ErrCodeConfiguration, "distance threshold %v out of range [0, 1]", threshold)
	}
	return nil
}

// ValidatePath validates a witness source path referenced from a job file.
// It prevents path traversal out of the job directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
