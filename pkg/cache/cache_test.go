package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/stemma/pkg/observability"
	"github.com/matzehuels/stemma/pkg/witness"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, _ := c.Get(ctx, "artifact:abc"); hit {
		t.Error("empty cache should miss")
	}

	if err := c.Set(ctx, "artifact:abc", []byte("<svg/>"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "artifact:abc")
	if err != nil || !hit || string(data) != "<svg/>" {
		t.Errorf("Get = %q, %v, %v; want <svg/>, true, nil", data, hit, err)
	}

	if err := c.Delete(ctx, "artifact:abc"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "artifact:abc"); hit {
		t.Error("deleted entry should miss")
	}
	if err := c.Delete(ctx, "artifact:abc"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	_ = c.Set(ctx, "k", []byte("v"), 0)
	if err := os.WriteFile(c.path("k"), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit=%v err=%v, want miss without error", hit, err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear() = %d, want 3", n)
	}
	entries, _ := os.ReadDir(c.Dir())
	if len(entries) != 0 {
		t.Errorf("cache dir has %d entries after Clear, want 0", len(entries))
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestHashWitnesses(t *testing.T) {
	a := []*witness.Witness{witness.Tokenize("A", "the cat"), witness.Tokenize("B", "a cat")}

	tests := []struct {
		name string
		ws   []*witness.Witness
		same bool
	}{
		{"same input", []*witness.Witness{witness.Tokenize("A", "the cat"), witness.Tokenize("B", "a cat")}, true},
		{"swapped order", []*witness.Witness{witness.Tokenize("B", "a cat"), witness.Tokenize("A", "the cat")}, false},
		{"other sigil", []*witness.Witness{witness.Tokenize("X", "the cat"), witness.Tokenize("B", "a cat")}, false},
		{"other normalizer", []*witness.Witness{
			witness.Tokenizer{Normalize: strings.ToUpper}.Tokenize("A", "the cat"),
			witness.Tokenize("B", "a cat"),
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HashWitnesses(a) == HashWitnesses(tt.ws); got != tt.same {
				t.Errorf("hashes equal = %v, want %v", got, tt.same)
			}
		})
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	ck1 := k.CollationKey("hash123", CollationKeyOpts{Algorithm: "exact"})
	ck2 := k.CollationKey("hash123", CollationKeyOpts{Algorithm: "near", Threshold: 0.4})
	if ck1 == ck2 {
		t.Error("Different CollationKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(ck1, "collation:") {
		t.Errorf("CollationKey unexpected: %s", ck1)
	}

	ak1 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey("hash123", ArtifactKeyOpts{Format: "svg", Detailed: true})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey unexpected: %s", ak1)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "tenant:123:")

	want := "tenant:123:" + inner.CollationKey("h", CollationKeyOpts{})
	if got := scoped.CollationKey("h", CollationKeyOpts{}); got != want {
		t.Errorf("CollationKey = %s, want %s", got, want)
	}
	if got := NewScopedKeyer(nil, "p:").ArtifactKey("h", ArtifactKeyOpts{}); !strings.HasPrefix(got, "p:artifact:") {
		t.Errorf("nil inner should fall back to the default keyer: %s", got)
	}
}

func TestKeyType(t *testing.T) {
	tests := map[string]string{
		"collation:ab12":         "collation",
		"tenant:x:artifact:ab12": "artifact",
		"plain":                  "other",
		"artifact:":              "artifact",
	}
	for key, want := range tests {
		if got := keyType(key); got != want {
			t.Errorf("keyType(%q) = %q, want %q", key, got, want)
		}
	}
}

type recordingHooks struct {
	mu     sync.Mutex
	events []string
}

func (h *recordingHooks) record(e string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
}

func (h *recordingHooks) OnCacheHit(_ context.Context, keyType string)  { h.record("hit " + keyType) }
func (h *recordingHooks) OnCacheMiss(_ context.Context, keyType string) { h.record("miss " + keyType) }
func (h *recordingHooks) OnCacheSet(_ context.Context, keyType string, _ int) {
	h.record("set " + keyType)
}

func TestWithHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, _ := NewFileCache(t.TempDir())
	c := WithHooks(fc)

	_, _, _ = c.Get(ctx, "artifact:1")
	_ = c.Set(ctx, "artifact:1", []byte("x"), 0)
	_, _, _ = c.Get(ctx, "artifact:1")

	want := []string{"miss artifact", "set artifact", "hit artifact"}
	if strings.Join(hooks.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", hooks.events, want)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "http://not-redis"); err == nil {
		t.Error("NewRedisCache should reject a non-redis URL")
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("wrapped error should unwrap to ErrNetwork")
	}
	if IsRetryable(ErrNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		failures  int
		err       error
		wantCalls int
		wantErr   error
	}{
		{"success first try", 0, nil, 1, nil},
		{"non-retryable stops", 5, permanent, 1, permanent},
		{"retry then succeed", 1, Retryable(ErrNetwork), 2, nil},
		{"gives up after three", 5, Retryable(ErrNetwork), 3, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retry(ctx, time.Millisecond, func() error {
				calls++
				if calls <= tt.failures {
					return tt.err
				}
				return nil
			})
			if !errors.Is(err, tt.wantErr) && !(err == nil && tt.wantErr == nil) {
				t.Errorf("retry() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
