package httputil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func fastConfig(name string) ClientConfig {
	return ClientConfig{
		Name:         name,
		Timeout:      time.Second,
		Retries:      1,
		RetryBackoff: time.Millisecond,
		TripAfter:    2,
		Cooldown:     time.Minute,
	}
}

func TestClientGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "skytonight") {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	c := NewClient(fastConfig("test-success"), testLogger)
	body, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %q", body)
	}
}

// TestClientRetryOnce verifies a transient 503 is retried exactly once.
func TestClientRetryOnce(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := NewClient(fastConfig("test-retry"), testLogger)
	body, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server saw %d calls, want 2", n)
	}
}

func TestClientNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(fastConfig("test-404"), testLogger)
	for i := 0; i < 5; i++ {
		_, err := c.Get(context.Background(), server.URL)
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			t.Fatalf("expected 404 StatusError, got %v", err)
		}
	}
	if n := calls.Load(); n != 5 {
		t.Errorf("server saw %d calls, want 5 (no retries)", n)
	}
	if c.State() != "closed" {
		t.Errorf("breaker state = %s, 404s must not trip it", c.State())
	}
}

func TestClientBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(fastConfig("test-breaker"), testLogger)
	for i := 0; i < 2; i++ {
		if _, err := c.Get(context.Background(), server.URL); err == nil {
			t.Fatal("expected error")
		}
	}
	if c.State() != "open" {
		t.Fatalf("breaker state = %s, want open", c.State())
	}

	before := calls.Load()
	if _, err := c.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected rejection while open")
	}
	if calls.Load() != before {
		t.Error("open breaker should not reach the server")
	}
}

func TestClientPerAttemptTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := fastConfig("test-timeout")
	cfg.Timeout = 50 * time.Millisecond
	c := NewClient(cfg, testLogger)

	start := time.Now()
	if _, err := c.Get(context.Background(), server.URL); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("two attempts took %v, expected well under 1s", elapsed)
	}
}

func TestClientBodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("A", 4096)))
	}))
	defer server.Close()

	cfg := fastConfig("test-limit")
	cfg.MaxBodyBytes = 1024
	c := NewClient(cfg, testLogger)

	_, err := c.Get(context.Background(), server.URL)
	if err == nil || !strings.Contains(err.Error(), "byte limit") {
		t.Errorf("expected body limit error, got: %v", err)
	}
}
