// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup to
// receive events about collation runs, cache operations, and served requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, so the collation core never
// imports a metrics backend. [NewPrometheus] is the implementation the
// service installs.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := observability.NewPrometheus(prometheus.DefaultRegisterer)
//	    observability.SetCollationHooks(m)
//	    observability.SetCacheHooks(m)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Collation().OnMergeStart(ctx, sigil, tokens)
//	// ... merge ...
//	observability.Collation().OnMergeComplete(ctx, sigil, stats, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Collation Hooks
// =============================================================================

// MergeStats summarizes one witness merge for instrumentation.
type MergeStats struct {
	Tokens         int // Tokens in the witness
	Matched        int // Tokens attached to existing vertices
	Reused         int // Gap tokens placed on an existing reading
	NewVertices    int // Vertices created by the merge
	Transpositions int // Reported transpositions
}

// CollationHooks receives events from the collation engine.
type CollationHooks interface {
	// Run events
	OnCollationStart(ctx context.Context, runID string, witnesses int)
	OnCollationComplete(ctx context.Context, runID string, vertices int, duration time.Duration, err error)

	// Merge events, one pair per witness
	OnMergeStart(ctx context.Context, sigil string, tokens int)
	OnMergeComplete(ctx context.Context, sigil string, stats MergeStats, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the HTTP collation service.
type ServerHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records a completed request.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopCollationHooks is a no-op implementation of CollationHooks.
type NoopCollationHooks struct{}

func (NoopCollationHooks) OnCollationStart(context.Context, string, int) {}
func (NoopCollationHooks) OnCollationComplete(context.Context, string, int, time.Duration, error) {
}
func (NoopCollationHooks) OnMergeStart(context.Context, string, int) {}
func (NoopCollationHooks) OnMergeComplete(context.Context, string, MergeStats, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	collationHooks CollationHooks = NoopCollationHooks{}
	cacheHooks     CacheHooks     = NoopCacheHooks{}
	serverHooks    ServerHooks    = NoopServerHooks{}
	hooksMu        sync.RWMutex
)

// SetCollationHooks registers custom collation hooks.
// This should be called once at application startup before any collation runs.
func SetCollationHooks(h CollationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		collationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom server hooks.
// This should be called once at application startup before serving requests.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// Collation returns the registered collation hooks.
func Collation() CollationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return collationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	collationHooks = NoopCollationHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
