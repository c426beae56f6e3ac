// Package ephemeris provides low-precision geocentric positions for the Sun,
// the Moon and the major planets, and an in-process coordinate service that
// turns those (and fixed catalog positions) into observer look angles.
//
// Accuracy is a few hundredths of a degree for the Sun, a few tenths for the
// Moon and planets: plenty for hour-level visibility windows.
package ephemeris

import (
	"math"
	"time"

	"github.com/star/skytonight/internal/transform"
)

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// SunPosition returns the apparent geocentric equatorial position of the Sun.
//
// Low-precision formulae from the Astronomical Almanac (section C), valid to
// about 0.01° between 1950 and 2050.
func SunPosition(t time.Time) transform.Equatorial {
	n := transform.DaysSinceJ2000(t)

	L := transform.NormalizeDegrees(280.460 + 0.9856474*n) // mean longitude
	g := transform.NormalizeDegrees(357.528+0.9856003*n) * deg2rad

	lambda := (L + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * deg2rad
	eps := (23.439 - 0.0000004*n) * deg2rad
	r := 1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)

	ra, dec, _ := transform.EclipticToEquatorial(math.Cos(lambda), math.Sin(lambda), 0, eps)
	return transform.Equatorial{
		RADeg:     ra,
		DecDeg:    dec,
		DistanceM: r * transform.AstronomicalUnitM,
	}
}
