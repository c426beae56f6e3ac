package kvstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

type elevationRecord struct {
	Meters float64 `json:"meters"`
	Source string  `json:"source"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{}, testLogger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	want := elevationRecord{Meters: 85.5, Source: "open-elevation"}
	if err := s.Put("elev:41.0000,-73.0000", want, 0); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got elevationRecord
	ok, err := s.Get("elev:41.0000,-73.0000", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to be found")
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	var got elevationRecord
	ok, err := s.Get("missing", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected missing key to report false")
	}
}

func TestDeleteAndCount(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"sesame:ngc7000", "sesame:ic434", "elev:0,0"} {
		if err := s.Put(k, k, 0); err != nil {
			t.Fatalf("Put(%s): %v", k, err)
		}
	}

	n, err := s.Count("sesame:")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count(sesame:) = %d, want 2", n)
	}

	if err := s.Delete("sesame:ic434"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("sesame:never-stored"); err != nil {
		t.Errorf("Delete of missing key should succeed: %v", err)
	}

	n, _ = s.Count("sesame:")
	if n != 1 {
		t.Errorf("Count after delete = %d, want 1", n)
	}
}

func TestTTLExpiry(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put("short", 1, time.Second); err != nil {
		t.Fatalf("Put: %v", err)
	}
	var v int
	if ok, _ := s.Get("short", &v); !ok {
		t.Fatal("expected entry before expiry")
	}

	// Badger expiry has one-second resolution.
	time.Sleep(2100 * time.Millisecond)

	if ok, _ := s.Get("short", &v); ok {
		t.Error("expected entry to be expired")
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	s := openTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
