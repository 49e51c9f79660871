// Package cache stores collation artifacts (rendered tables, graphs, SVGs)
// keyed by a hash of their inputs.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under the user cache directory.
//     Used by the CLI.
//   - [RedisCache]: a shared Redis instance. Used by the HTTP service when
//     several replicas should share results.
//   - [NullCache]: stores nothing. Used for --no-cache and in tests.
//
// Wrap any backend with [WithHooks] to report hits, misses and writes to the
// registered [observability.CacheHooks].
//
// # Keys
//
// A [Keyer] derives keys from the collation input. Keys look like
// "collation:<sha256>" or "artifact:<sha256>"; the segment before the hash
// is the key type reported to the hooks. [ScopedKeyer] prefixes every
// key, which separates tenants sharing one Redis.
//
// [observability.CacheHooks]: github.com/matzehuels/stemma/pkg/observability.CacheHooks
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. A miss is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// Entry lifetimes.
const (
	TTLCollation = 24 * time.Hour
	TTLArtifact  = 7 * 24 * time.Hour
)

// Keyer generates cache keys.
type Keyer interface {
	// CollationKey identifies the result of collating an input.
	CollationKey(inputHash string, opts CollationKeyOpts) string

	// ArtifactKey identifies one rendering of a collation result.
	ArtifactKey(collationHash string, opts ArtifactKeyOpts) string
}

// CollationKeyOpts are the settings that change a collation result.
type CollationKeyOpts struct {
	Algorithm string  `json:"algorithm"`
	Threshold float64 `json:"threshold"`
}

// ArtifactKeyOpts are the settings that change a rendering.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
	Vertical bool   `json:"vertical,omitempty"`
}

// DefaultKeyer hashes every key component.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// CollationKey returns "collation:<hash>".
func (DefaultKeyer) CollationKey(inputHash string, opts CollationKeyOpts) string {
	return hashKey("collation", inputHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(collationHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", collationHash, opts)
}
