package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/star/skytonight/internal/metrics"
)

//go:embed messier.yaml
var messierYAML []byte

// Store provides thread-safe access to the current catalog.
type Store struct {
	catalog atomic.Pointer[Catalog]
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog, or nil if none has been loaded.
func (s *Store) Get() *Catalog {
	return s.catalog.Load()
}

// Set atomically replaces the current catalog.
func (s *Store) Set(c *Catalog) {
	s.catalog.Store(c)
	if c != nil {
		metrics.SetCatalogObjects(len(c.Objects))
	}
}

// Lookup finds an object in the current catalog.
func (s *Store) Lookup(name string) (Object, bool) {
	return s.catalog.Load().Lookup(name)
}

// AgeSeconds returns the age of the current catalog in seconds.
// Returns -1 if no catalog is loaded.
func (s *Store) AgeSeconds() float64 {
	c := s.catalog.Load()
	if c == nil {
		return -1
	}
	return time.Since(c.LoadedAt).Seconds()
}

// Load parses the embedded Messier catalog, merges the optional extra catalog
// file over it and installs the result.
func (s *Store) Load(extraPath string, logger *slog.Logger) error {
	base, err := Parse(bytes.NewReader(messierYAML), "messier", logger)
	if err != nil {
		return fmt.Errorf("embedded catalog: %w", err)
	}

	if extraPath != "" {
		f, err := os.Open(extraPath)
		if err != nil {
			return fmt.Errorf("opening extra catalog: %w", err)
		}
		defer f.Close()

		extra, err := Parse(f, extraPath, logger)
		if err != nil {
			return err
		}
		base = base.Merge(extra)
	}

	s.Set(base)
	logger.Info("catalog loaded", "source", base.Source, "objects", len(base.Objects))
	return nil
}
