package tokenize

import (
	"reflect"
	"testing"
	"time"

	"github.com/mpavlenko/squadron/internal/cache"
)

// countingTokenizer records how often the inner tokenizer runs
type countingTokenizer struct {
	inner Tokenizer
	calls int
}

func (c *countingTokenizer) EncodePair(a, b string, opts EncodeOptions) ([]Encoding, error) {
	c.calls++
	return c.inner.EncodePair(a, b, opts)
}

func TestCachedTokenizer_HitSkipsInner(t *testing.T) {
	counting := &countingTokenizer{inner: NewWordTokenizer()}
	cached := NewCachedTokenizer(counting, cache.NewMemoryCache(time.Minute, time.Minute))

	opts := EncodeOptions{MaxLength: 32, TruncateSecond: true}

	first, err := cached.EncodePair("question", "some context text", opts)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := cached.EncodePair("question", "some context text", opts)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if counting.calls != 1 {
		t.Errorf("Expected 1 inner call, got %d", counting.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Cached encodings differ from the original")
	}
}

func TestCachedTokenizer_DistinctOptionsMiss(t *testing.T) {
	counting := &countingTokenizer{inner: NewWordTokenizer()}
	cached := NewCachedTokenizer(counting, cache.NewMemoryCache(time.Minute, time.Minute))

	if _, err := cached.EncodePair("q", "ctx words here", EncodeOptions{MaxLength: 32, TruncateSecond: true}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := cached.EncodePair("q", "ctx words here", EncodeOptions{MaxLength: 16, TruncateSecond: true}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if counting.calls != 2 {
		t.Errorf("Expected 2 inner calls for distinct options, got %d", counting.calls)
	}
}
