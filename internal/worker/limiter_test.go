package worker

import (
	"context"
	"testing"
	"time"
)

func TestNewLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.defaultRate != 1 {
		t.Errorf("expected default rate 1, got %v", l.defaultRate)
	}
	if l.defaultBurst != 1 {
		t.Errorf("expected default burst 1, got %d", l.defaultBurst)
	}
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(1, 1)
	url := "https://example.com/dev-v2.0.json"

	if !l.Allow(url) {
		t.Error("first request should be allowed")
	}
	// Burst of 1 is consumed; an immediate second request must be denied
	if l.Allow(url) {
		t.Error("second immediate request should be denied")
	}
}

func TestLimiter_PerHost(t *testing.T) {
	l := NewLimiter(1, 1)

	if !l.Allow("https://one.example.com/data.json") {
		t.Error("first host should be allowed")
	}
	// A different host has its own bucket
	if !l.Allow("https://two.example.com/data.json") {
		t.Error("second host should have its own limit")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	l := NewLimiter(0.001, 1)
	url := "https://example.com/data.json"

	// Drain the single token
	if !l.Allow(url) {
		t.Fatal("expected first request to be allowed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, url); err == nil {
		t.Error("expected Wait to fail when the context expires")
	}
}

func TestLimiter_BadURL(t *testing.T) {
	l := NewLimiter(1, 1)
	if l.Allow("://not a url") {
		t.Error("expected malformed URL to be denied")
	}
}
