package ephemeris

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/star/skytonight/internal/transform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// raDiff returns the smallest absolute difference between two right ascensions.
func raDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

func TestSunPosition(t *testing.T) {
	tests := []struct {
		name    string
		time    time.Time
		wantRA  float64
		wantDec float64
		wantAU  float64
	}{
		// Astronomical Almanac: RA 18h45m09s, Dec -23°02'.
		{"J2000.0 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 281.29, -23.03, 0.9833},
		{"March equinox 2020", time.Date(2020, 3, 20, 3, 50, 0, 0, time.UTC), 0.0, 0.0, 0.9960},
		{"June solstice 2020", time.Date(2020, 6, 20, 21, 44, 0, 0, time.UTC), 90.0, 23.44, 1.0163},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := SunPosition(tt.time)
			if raDiff(pos.RADeg, tt.wantRA) > 0.05 {
				t.Errorf("RA = %.4f°, want %.4f°", pos.RADeg, tt.wantRA)
			}
			if math.Abs(pos.DecDeg-tt.wantDec) > 0.05 {
				t.Errorf("Dec = %.4f°, want %.4f°", pos.DecDeg, tt.wantDec)
			}
			au := pos.DistanceM / transform.AstronomicalUnitM
			if math.Abs(au-tt.wantAU) > 0.001 {
				t.Errorf("distance = %.5f AU, want %.5f AU", au, tt.wantAU)
			}
		})
	}
}

// TestMoonPosition compares against Meeus, Astronomical Algorithms, Example 47.a
// (1992 April 12, 0h TD).
func TestMoonPosition(t *testing.T) {
	pos := MoonPosition(time.Date(1992, 4, 12, 0, 0, 0, 0, time.UTC))

	const (
		wantRA   = 134.688470
		wantDec  = 13.768368
		wantDist = 368409.7e3 // meters
	)

	if d := raDiff(pos.RADeg, wantRA); d > 0.5 {
		t.Errorf("RA = %.4f°, want %.4f° (diff %.3f°)", pos.RADeg, wantRA, d)
	}
	if d := math.Abs(pos.DecDeg - wantDec); d > 0.5 {
		t.Errorf("Dec = %.4f°, want %.4f° (diff %.3f°)", pos.DecDeg, wantDec, d)
	}
	if d := math.Abs(pos.DistanceM - wantDist); d > 2000e3 {
		t.Errorf("distance = %.0f km, want %.0f km", pos.DistanceM/1000, wantDist/1000)
	}
	t.Logf("Moon: RA=%.4f° Dec=%.4f° dist=%.0f km", pos.RADeg, pos.DecDeg, pos.DistanceM/1000)
}

// TestPlanetPosition checks against published apparent positions. The
// tolerance absorbs precession from J2000, nutation and aberration.
func TestPlanetPosition(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		time    time.Time
		wantRA  float64
		wantDec float64
	}{
		// Meeus Example 33.a: RA 21h04m41.454s, Dec -18°53'16.84".
		{"Venus Meeus 33.a", "venus", time.Date(1992, 12, 20, 0, 0, 0, 0, time.UTC), 316.172725, -18.888011},
		// Mars at opposition, October 2020: RA ~1h22m, Dec ~+5.4°.
		{"Mars opposition 2020", "mars", time.Date(2020, 10, 13, 23, 0, 0, 0, time.UTC), 20.5, 5.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := PlanetPosition(tt.body, tt.time)
			if err != nil {
				t.Fatalf("PlanetPosition: %v", err)
			}
			if d := raDiff(pos.RADeg, tt.wantRA); d > 0.5 {
				t.Errorf("RA = %.4f°, want %.4f° (diff %.3f°)", pos.RADeg, tt.wantRA, d)
			}
			if d := math.Abs(pos.DecDeg - tt.wantDec); d > 0.5 {
				t.Errorf("Dec = %.4f°, want %.4f° (diff %.3f°)", pos.DecDeg, tt.wantDec, d)
			}
		})
	}
}

func TestPlanetDistances(t *testing.T) {
	// Geocentric distance bounds in AU.
	bounds := map[string][2]float64{
		"mercury": {0.5, 1.5},
		"venus":   {0.25, 1.75},
		"mars":    {0.35, 2.7},
		"jupiter": {3.9, 6.5},
		"saturn":  {8.0, 11.1},
		"uranus":  {17.2, 21.2},
		"neptune": {28.7, 31.4},
	}

	times := []time.Time{
		time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, 10, 12, 4, 0, 0, 0, time.UTC),
		time.Date(2035, 7, 4, 0, 0, 0, 0, time.UTC),
	}

	for body, b := range bounds {
		for _, ts := range times {
			pos, err := PlanetPosition(body, ts)
			if err != nil {
				t.Fatalf("%s: %v", body, err)
			}
			if err := pos.Validate(); err != nil {
				t.Errorf("%s at %s: invalid position: %v", body, ts.Format(time.DateOnly), err)
			}
			au := pos.DistanceM / transform.AstronomicalUnitM
			if au < b[0] || au > b[1] {
				t.Errorf("%s at %s: distance %.3f AU outside [%.2f, %.2f]", body, ts.Format(time.DateOnly), au, b[0], b[1])
			}
		}
	}
}

func TestPlanetPositionUnknown(t *testing.T) {
	_, err := PlanetPosition("pluto", time.Now())
	if !errors.Is(err, ErrUnknownBody) {
		t.Fatalf("expected ErrUnknownBody, got %v", err)
	}
}

func TestSolveKepler(t *testing.T) {
	for _, e := range []float64{0, 0.0167, 0.2056, 0.9} {
		for _, M := range []float64{0, 0.5, 2.0, math.Pi, 5.5} {
			E := solveKepler(M, e)
			if r := E - e*math.Sin(E) - M; math.Abs(r) > 1e-10 {
				t.Errorf("e=%.4f M=%.2f: residual %.2e", e, M, r)
			}
		}
	}
}

type fakeCatalog map[string]transform.Equatorial

func (f fakeCatalog) Position(_ context.Context, name string) (transform.Equatorial, error) {
	pos, ok := f[name]
	if !ok {
		return transform.Equatorial{}, errors.New("not found")
	}
	return pos, nil
}

func TestServiceResolveBody(t *testing.T) {
	svc := NewService(nil, testLogger())
	instant := time.Date(2020, 10, 12, 4, 0, 0, 0, time.UTC)

	for _, body := range Bodies {
		t.Run(body, func(t *testing.T) {
			pos, err := svc.ResolveBody(context.Background(), body, instant)
			if err != nil {
				t.Fatalf("ResolveBody(%q): %v", body, err)
			}
			if err := pos.Validate(); err != nil {
				t.Errorf("invalid position: %v", err)
			}
			if pos.DistanceM <= 0 {
				t.Errorf("expected finite distance, got %v", pos.DistanceM)
			}
		})
	}

	if _, err := svc.ResolveBody(context.Background(), "Vulcan", instant); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("expected ErrUnknownBody for vulcan, got %v", err)
	}
	if _, err := svc.ResolveBody(context.Background(), " Saturn ", instant); err != nil {
		t.Errorf("names should be case and space insensitive: %v", err)
	}
}

func TestServiceResolveCatalogObject(t *testing.T) {
	m31 := transform.NewEquatorialHMS(0, 42, 44.3, 41.269)
	svc := NewService(fakeCatalog{"m31": m31}, testLogger())

	pos, err := svc.ResolveCatalogObject(context.Background(), "m31")
	if err != nil {
		t.Fatalf("ResolveCatalogObject: %v", err)
	}
	if pos != m31 {
		t.Errorf("got %+v, want %+v", pos, m31)
	}

	if _, err := svc.ResolveCatalogObject(context.Background(), "m999"); err == nil {
		t.Error("expected error for unknown catalog object")
	}
	if _, err := NewService(nil, testLogger()).ResolveCatalogObject(context.Background(), "m31"); err == nil {
		t.Error("expected error without catalog")
	}
}

func TestServiceToHorizontal(t *testing.T) {
	svc := NewService(nil, testLogger())
	obs := transform.NewObserverPosition(41.0, -73.0, 85)

	start := time.Date(2020, 10, 12, 0, 0, 0, 0, time.UTC)
	times := make([]time.Time, 24)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}

	sun := SunPosition(start)
	angles, err := svc.ToHorizontal(context.Background(), sun, times, obs)
	if err != nil {
		t.Fatalf("ToHorizontal: %v", err)
	}
	if len(angles) != len(times) {
		t.Fatalf("got %d angles for %d times", len(angles), len(times))
	}

	// 04:00 UTC is midnight EDT: the Sun is well below the horizon.
	if angles[4].AltitudeDeg > -30 {
		t.Errorf("Sun at local midnight: alt=%.2f°, expected < -30°", angles[4].AltitudeDeg)
	}
	// 17:00 UTC is 13:00 EDT, near transit: Sun in the south, ~42° up in October.
	if angles[17].AltitudeDeg < 35 || angles[17].AzimuthDeg < 150 || angles[17].AzimuthDeg > 220 {
		t.Errorf("Sun near noon: alt=%.2f° az=%.2f°", angles[17].AltitudeDeg, angles[17].AzimuthDeg)
	}

	if _, err := svc.ToHorizontal(context.Background(), sun, nil, obs); err == nil {
		t.Error("expected error for empty time sequence")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ToHorizontal(ctx, sun, times, obs); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func BenchmarkToHorizontal500(b *testing.B) {
	svc := NewService(nil, testLogger())
	obs := transform.NewObserverPosition(41.0, -73.0, 85)
	start := time.Date(2020, 10, 11, 22, 0, 0, 0, time.UTC)
	times := make([]time.Time, 500)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 86400 * time.Second / 1000)
	}
	pos := transform.NewEquatorialHMS(0, 42, 44.3, 41.269)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.ToHorizontal(context.Background(), pos, times, obs); err != nil {
			b.Fatal(err)
		}
	}
}
