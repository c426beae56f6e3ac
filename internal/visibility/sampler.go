package visibility

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/star/skytonight/internal/transform"
)

// solarSystemBodies are resolved by ephemeris rather than by catalog lookup.
var solarSystemBodies = map[string]bool{
	"sun": true, "moon": true,
	"mercury": true, "venus": true, "mars": true, "jupiter": true,
	"saturn": true, "uranus": true, "neptune": true,
}

// Target identifies an object to scan.
type Target struct {
	Name string // normalized: trimmed, lower case
	Body bool   // solar-system body
}

// ParseTarget classifies a requested object name.
func ParseTarget(name string) Target {
	n := strings.ToLower(strings.TrimSpace(name))
	return Target{Name: n, Body: solarSystemBodies[n]}
}

// Sampler turns a target and a time grid into observations.
type Sampler struct {
	coords    CoordinateService
	observer  transform.ObserverPosition
	reference time.Time // instant at which moving bodies are resolved
}

// NewSampler creates a sampler for one observer. Solar-system bodies are
// resolved once, at reference.
func NewSampler(coords CoordinateService, observer transform.ObserverPosition, reference time.Time) *Sampler {
	return &Sampler{coords: coords, observer: observer, reference: reference}
}

// Sample returns one observation per instant in times, in the same order.
// Resolution failures wrap ErrUnknownObject; transform failures wrap
// ErrTransform. Both come as *ObjectError.
func (s *Sampler) Sample(ctx context.Context, target Target, times []time.Time) ([]Observation, error) {
	var (
		pos transform.Equatorial
		err error
	)
	if target.Body {
		pos, err = s.coords.ResolveBody(ctx, target.Name, s.reference)
	} else {
		pos, err = s.coords.ResolveCatalogObject(ctx, target.Name)
	}
	if err != nil {
		return nil, &ObjectError{Object: target.Name, Kind: ErrUnknownObject, Err: err}
	}

	angles, err := s.coords.ToHorizontal(ctx, pos, times, s.observer)
	if err != nil {
		return nil, &ObjectError{Object: target.Name, Kind: ErrTransform, Err: err}
	}
	if len(angles) == 0 || len(angles) != len(times) {
		return nil, &ObjectError{
			Object: target.Name,
			Kind:   ErrTransform,
			Err:    fmt.Errorf("got %d positions for %d instants", len(angles), len(times)),
		}
	}

	obs := make([]Observation, len(times))
	for i, la := range angles {
		if math.IsNaN(la.AltitudeDeg) || math.IsNaN(la.AzimuthDeg) {
			return nil, &ObjectError{
				Object: target.Name,
				Kind:   ErrTransform,
				Err:    fmt.Errorf("undefined position at %s", times[i].UTC().Format(time.RFC3339)),
			}
		}
		obs[i] = Observation{
			Object:      target.Name,
			Time:        times[i],
			AltitudeDeg: la.AltitudeDeg,
			AzimuthDeg:  la.AzimuthDeg,
		}
	}
	return obs, nil
}
