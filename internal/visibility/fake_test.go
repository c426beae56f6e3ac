package visibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var testAnchor = time.Date(2020, 10, 12, 4, 0, 0, 0, time.UTC)

// altitudeFunc gives a synthetic altitude for an instant.
type altitudeFunc func(t time.Time) float64

// hoursFromAnchor returns t - testAnchor in hours.
func hoursFromAnchor(t time.Time) float64 {
	return t.Sub(testAnchor).Hours()
}

// fakeCoords serves synthetic altitude tracks. The returned position
// encodes the object's index in RADeg so ToHorizontal can find its track.
type fakeCoords struct {
	mu        sync.Mutex
	names     []string
	tracks    map[string]altitudeFunc
	azimuth   float64
	broken    map[string]bool // ToHorizontal fails
	calls     int
	bodyTimes []time.Time
}

func newFakeCoords(tracks map[string]altitudeFunc) *fakeCoords {
	f := &fakeCoords{tracks: tracks, azimuth: 135, broken: map[string]bool{}}
	for name := range tracks {
		f.names = append(f.names, name)
	}
	return f
}

func (f *fakeCoords) resolve(name string) (transform.Equatorial, error) {
	for i, n := range f.names {
		if n == name {
			return transform.Equatorial{RADeg: float64(i)}, nil
		}
	}
	return transform.Equatorial{}, fmt.Errorf("%w: %q", catalog.ErrNotFound, name)
}

func (f *fakeCoords) ResolveBody(_ context.Context, name string, instant time.Time) (transform.Equatorial, error) {
	f.mu.Lock()
	f.bodyTimes = append(f.bodyTimes, instant)
	f.mu.Unlock()
	return f.resolve(name)
}

func (f *fakeCoords) ResolveCatalogObject(_ context.Context, name string) (transform.Equatorial, error) {
	return f.resolve(name)
}

func (f *fakeCoords) ToHorizontal(_ context.Context, pos transform.Equatorial, times []time.Time, _ transform.ObserverPosition) ([]transform.LookAngles, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	name := f.names[int(pos.RADeg)]
	if f.broken[name] {
		return nil, errors.New("no ephemeris coverage")
	}
	track := f.tracks[name]
	out := make([]transform.LookAngles, len(times))
	for i, t := range times {
		out[i] = transform.LookAngles{AltitudeDeg: track(t), AzimuthDeg: f.azimuth}
	}
	return out, nil
}

// fakeMetadata returns a fixed description, or fails for listed ids.
type fakeMetadata struct {
	fail map[string]bool
}

func (m fakeMetadata) Lookup(_ context.Context, id string) (catalog.Metadata, error) {
	if m.fail[id] {
		return catalog.Metadata{}, errors.New("simbad unreachable")
	}
	return catalog.Metadata{
		Type:       catalog.TypeGalaxy,
		Filters:    []string{"UHC"},
		Difficulty: catalog.DifficultyEasy,
		FinderLink: "https://example.org/" + id,
	}, nil
}

type fakeElevation struct {
	value float64
	err   error
}

func (e fakeElevation) Elevation(context.Context, float64, float64) (float64, error) {
	return e.value, e.err
}

// sunTrack is a symmetric day with the Sun lowest (-40°) at the anchor:
// sunset near anchor-6h, dusk near anchor-4.2h, dawn at anchor+4h.
func sunTrack(t time.Time) float64 {
	return -40 * math.Cos(2*math.Pi*hoursFromAnchor(t)/24)
}

func constant(alt float64) altitudeFunc {
	return func(time.Time) float64 { return alt }
}

// rising climbs 10° per hour, crossing 20° one hour before the anchor.
func rising(t time.Time) float64 {
	return 10 * (hoursFromAnchor(t) + 3)
}

// peak culminates at 50° one hour after the anchor.
func peak(t time.Time) float64 {
	h := hoursFromAnchor(t) - 1
	return 50 - 5*h*h
}

func testObserver() Observer {
	return Observer{LatitudeDeg: 41, LongitudeDeg: -73, Date: "2020-10-11", UTCOffsetHours: -4}
}
