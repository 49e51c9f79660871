package cache

// ScopedKeyer wraps a Keyer with a prefix for multi-tenant isolation.
// Services sharing one Redis give each tenant its own prefix:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "tenant:abc123:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// CollationKey generates a prefixed key for collation results.
func (k *ScopedKeyer) CollationKey(inputHash string, opts CollationKeyOpts) string {
	return k.prefix + k.inner.CollationKey(inputHash, opts)
}

// ArtifactKey generates a prefixed key for rendered artifacts.
func (k *ScopedKeyer) ArtifactKey(collationHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(collationHash, opts)
}
