package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/star/skytonight/internal/transform"
)

// Service answers position and metadata queries from the local catalog,
// falling back to the remote resolver when one is configured.
type Service struct {
	store    *Store
	resolver *Resolver
	logger   *slog.Logger
}

// NewService creates a catalog service. resolver may be nil.
func NewService(store *Store, resolver *Resolver, logger *slog.Logger) *Service {
	return &Service{store: store, resolver: resolver, logger: logger}
}

// Catalog returns the loaded local catalog, or nil before the first load.
func (s *Service) Catalog() *Catalog {
	return s.store.Get()
}

// Find returns the catalog entry for name, resolving it remotely if needed.
func (s *Service) Find(ctx context.Context, name string) (Object, error) {
	if obj, ok := s.store.Lookup(name); ok {
		return obj, nil
	}
	if s.resolver == nil {
		return Object{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.resolver.Resolve(ctx, name)
}

// Position returns the fixed J2000 position of name.
func (s *Service) Position(ctx context.Context, name string) (transform.Equatorial, error) {
	obj, err := s.Find(ctx, name)
	if err != nil {
		return transform.Equatorial{}, err
	}
	return obj.Position(), nil
}

// Lookup returns descriptive metadata for an object id. Solar-system bodies
// are answered locally.
func (s *Service) Lookup(ctx context.Context, id string) (Metadata, error) {
	if md, ok := bodyMetadata(strings.ToLower(strings.TrimSpace(id))); ok {
		return md, nil
	}
	obj, err := s.Find(ctx, id)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata for %q: %w", id, err)
	}
	return DeriveMetadata(obj), nil
}
