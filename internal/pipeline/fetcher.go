package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mpavlenko/squadron/internal/cache"
	"github.com/mpavlenko/squadron/internal/dataset"
	"github.com/mpavlenko/squadron/internal/model"
	"github.com/mpavlenko/squadron/internal/worker"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// Fetcher downloads dataset JSON over HTTP. Downloads are rate limited per
// host and cached so repeated runs against the same URL stay local.
type Fetcher struct {
	httpClient *http.Client
	limiter    *worker.Limiter
	store      cache.Cache // nil disables caching
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a dataset fetcher with the given HTTP configuration
func NewFetcher(cfg model.HTTPConfig, store cache.Cache) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		limiter:   worker.NewLimiter(cfg.RequestsPerSecond, 2),
		store:     store,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
	}
}

// FetchExamples downloads and parses a SQuAD dataset from the given URL
func (f *Fetcher) FetchExamples(ctx context.Context, rawURL string) ([]model.Example, error) {
	body, err := f.fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return dataset.Load(bytes.NewReader(body))
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.Key("dataset", rawURL)
	if f.store != nil {
		if body, found := f.store.Get(key); found {
			return body, nil
		}
	}

	var body []byte
	var err error
	for attempt := 1; attempt <= fetchMaxRetries; attempt++ {
		body, err = f.fetchOnce(ctx, rawURL)
		if err == nil || !retryable(err) {
			break
		}
		if attempt < fetchMaxRetries {
			fetchSleepFunc(time.Duration(attempt) * time.Second)
		}
	}
	if err != nil {
		return nil, err
	}

	if f.store != nil {
		_ = f.store.Set(key, body, 0)
	}
	return body, nil
}

// transientError marks a failure worth retrying
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func retryable(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &transientError{fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("dataset exceeds size limit of %d bytes", f.maxBytes)
	}
	return body, nil
}
