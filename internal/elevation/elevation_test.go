package elevation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/star/skytonight/internal/httputil"
	"github.com/star/skytonight/internal/kvstore"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func newTestClient(t *testing.T, body string, status int) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("locations"); got != "41.000000,-73.000000" {
			t.Errorf("locations = %q", got)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	kv, err := kvstore.Open(kvstore.Config{}, testLogger)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	hc := httputil.NewClient(httputil.ClientConfig{
		Name:         "elevation-test-" + t.Name(),
		Timeout:      time.Second,
		Retries:      1,
		RetryBackoff: time.Millisecond,
	}, testLogger)

	return NewClient(server.URL, hc, kv, testLogger), &calls
}

func TestElevationLookupAndCache(t *testing.T) {
	c, calls := newTestClient(t, `{"results":[{"latitude":41.0,"longitude":-73.0,"elevation":85.0}]}`, http.StatusOK)

	for i := 0; i < 3; i++ {
		m, err := c.Elevation(context.Background(), 41.0, -73.0)
		if err != nil {
			t.Fatalf("Elevation: %v", err)
		}
		if m != 85.0 {
			t.Errorf("elevation = %v, want 85", m)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server saw %d calls, want 1 (cached)", n)
	}
}

func TestElevationErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		noRes  bool
	}{
		{"empty results", `{"results":[]}`, http.StatusOK, true},
		{"null elevation", `{"results":[{"latitude":41,"longitude":-73,"elevation":null}]}`, http.StatusOK, true},
		{"implausible", `{"results":[{"latitude":41,"longitude":-73,"elevation":-32768}]}`, http.StatusOK, true},
		{"bad json", `<html>`, http.StatusOK, false},
		{"server error", `oops`, http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.body, tt.status)
			_, err := c.Elevation(context.Background(), 41.0, -73.0)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrNoResult) != tt.noRes {
				t.Errorf("errors.Is(ErrNoResult) = %v, want %v (err=%v)", !tt.noRes, tt.noRes, err)
			}
		})
	}
}

func TestStatic(t *testing.T) {
	m, err := Static(1234.5).Elevation(context.Background(), 0, 0)
	if err != nil || m != 1234.5 {
		t.Errorf("Static = %v, %v", m, err)
	}
}

func TestCacheKeyRounding(t *testing.T) {
	if cacheKey(41.00001, -73.00004) != cacheKey(41.0, -73.0) {
		t.Error("nearby coordinates should share a cache key")
	}
	if cacheKey(41.001, -73.0) == cacheKey(41.0, -73.0) {
		t.Error("distinct coordinates should not share a cache key")
	}
}
