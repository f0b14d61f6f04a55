package tokenize

import (
	"encoding/json"
	"fmt"

	"github.com/mpavlenko/squadron/internal/cache"
)

// CachedTokenizer memoizes pair encodings through a cache layer.
// Re-encoding the same dataset (a train pass followed by a validation pass
// over shared contexts) hits the cache instead of re-tokenizing.
type CachedTokenizer struct {
	inner Tokenizer
	store cache.Cache
}

// NewCachedTokenizer wraps a tokenizer with the given cache
func NewCachedTokenizer(inner Tokenizer, store cache.Cache) *CachedTokenizer {
	return &CachedTokenizer{inner: inner, store: store}
}

// EncodePair returns cached encodings when available
func (t *CachedTokenizer) EncodePair(a, b string, opts EncodeOptions) ([]Encoding, error) {
	key := cache.Key("encode", a, b,
		fmt.Sprintf("%d:%d:%t:%t", opts.MaxLength, opts.Stride, opts.TruncateSecond, opts.PadToMaxLength))

	if data, found := t.store.Get(key); found {
		var encodings []Encoding
		if err := json.Unmarshal(data, &encodings); err == nil {
			return encodings, nil
		}
		// Corrupt entry, fall through and re-encode
		_ = t.store.Delete(key)
	}

	encodings, err := t.inner.EncodePair(a, b, opts)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(encodings); err == nil {
		_ = t.store.Set(key, data, 0)
	}
	return encodings, nil
}
