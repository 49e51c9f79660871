package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/stemma/pkg/observability"
)

// HookedCache reports cache traffic to the registered cache hooks.
type HookedCache struct {
	inner Cache
}

// WithHooks wraps c so that every Get and Set is reported to
// [observability.Cache].
func WithHooks(c Cache) Cache {
	return &HookedCache{inner: c}
}

// Get forwards to the wrapped cache and reports a hit or a miss.
// Errors are reported as misses.
func (c *HookedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.inner.Get(ctx, key)
	if ok {
		observability.Cache().OnCacheHit(ctx, keyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
	}
	return data, ok, err
}

// Set forwards to the wrapped cache and reports the stored size.
func (c *HookedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := c.inner.Set(ctx, key, data, ttl); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, keyType(key), len(data))
	return nil
}

// Delete forwards to the wrapped cache.
func (c *HookedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, key)
}

// Close closes the wrapped cache.
func (c *HookedCache) Close() error { return c.inner.Close() }

// keyType returns the segment before the hash: "collation" for both
// "collation:ab12" and "tenant:x:collation:ab12".
func keyType(key string) string {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return "other"
	}
	head := key[:i]
	return head[strings.LastIndex(head, ":")+1:]
}

var _ Cache = (*HookedCache)(nil)
