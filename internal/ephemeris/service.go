package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/star/skytonight/internal/transform"
)

// ErrUnknownBody is returned when a name is not a supported solar-system body.
var ErrUnknownBody = errors.New("unknown solar-system body")

// Bodies lists the supported solar-system bodies.
var Bodies = []string{"sun", "moon", "mercury", "venus", "mars", "jupiter", "saturn", "uranus", "neptune"}

// PositionSource resolves a catalog designation to a fixed J2000 position.
type PositionSource interface {
	Position(ctx context.Context, name string) (transform.Equatorial, error)
}

// Service is the in-process coordinate service: body ephemerides, catalog
// positions from a PositionSource, and the batched horizontal transform.
type Service struct {
	catalog PositionSource
	logger  *slog.Logger
}

// NewService creates a coordinate service. catalog may be nil, in which case
// every catalog lookup fails.
func NewService(catalog PositionSource, logger *slog.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// ResolveBody returns the geocentric position of a solar-system body at instant.
func (s *Service) ResolveBody(_ context.Context, name string, instant time.Time) (transform.Equatorial, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "sun":
		return SunPosition(instant), nil
	case "moon":
		return MoonPosition(instant), nil
	default:
		return PlanetPosition(n, instant)
	}
}

// ResolveCatalogObject returns the fixed position of a catalog object.
func (s *Service) ResolveCatalogObject(ctx context.Context, name string) (transform.Equatorial, error) {
	if s.catalog == nil {
		return transform.Equatorial{}, fmt.Errorf("resolve %q: no catalog configured", name)
	}
	pos, err := s.catalog.Position(ctx, name)
	if err != nil {
		return transform.Equatorial{}, fmt.Errorf("resolve %q: %w", name, err)
	}
	return pos, nil
}

// ToHorizontal converts pos into look angles for every instant in times as
// seen from obs. One call covers the whole time sequence.
func (s *Service) ToHorizontal(ctx context.Context, pos transform.Equatorial, times []time.Time, obs transform.ObserverPosition) ([]transform.LookAngles, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("empty time sequence")
	}

	start := time.Now()
	out, err := transform.ToHorizontal(obs, pos, times)
	if err != nil {
		return nil, fmt.Errorf("horizontal transform: %w", err)
	}

	s.logger.Debug("horizontal transform",
		"samples", len(times),
		"ra_deg", pos.RADeg,
		"dec_deg", pos.DecDeg,
		"duration_us", time.Since(start).Microseconds(),
	)
	return out, nil
}
