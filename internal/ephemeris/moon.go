package ephemeris

import (
	"math"
	"time"

	"github.com/star/skytonight/internal/transform"
)

// earthEquatorialRadiusM is the radius used to convert the Moon's horizontal
// parallax into a distance.
const earthEquatorialRadiusM = 6378140.0

// lunarTerm is one periodic term: amplitude * f(phase + rate*T), degrees.
type lunarTerm struct {
	amp, phase, rate float64
}

var (
	moonLongitudeTerms = []lunarTerm{
		{6.29, 135.0, 477198.87},
		{-1.27, 259.3, -413335.36},
		{0.66, 235.7, 890534.22},
		{0.21, 269.9, 954397.74},
		{-0.19, 357.5, 35999.05},
		{-0.11, 186.5, 966404.03},
	}
	moonLatitudeTerms = []lunarTerm{
		{5.13, 93.3, 483202.02},
		{0.28, 228.2, 960400.89},
		{-0.28, 318.3, 6003.15},
		{-0.17, 217.6, -407332.21},
	}
	moonParallaxTerms = []lunarTerm{
		{0.0518, 135.0, 477198.87},
		{0.0095, 259.3, -413335.36},
		{0.0078, 235.7, 890534.22},
		{0.0028, 269.9, 954397.74},
	}
)

func sumTerms(terms []lunarTerm, T float64, f func(float64) float64) float64 {
	var s float64
	for _, term := range terms {
		s += term.amp * f((term.phase+term.rate*T)*deg2rad)
	}
	return s
}

// MoonPosition returns the geocentric equatorial position of the Moon with a
// finite distance, so topocentric parallax (up to ~1°) is applied when the
// position is rotated into the observer's frame.
//
// Low-precision series from the Astronomical Almanac: ~0.3° in longitude,
// ~0.2° in latitude.
func MoonPosition(t time.Time) transform.Equatorial {
	T := transform.CenturiesSinceJ2000(t)

	lambda := (218.32 + 481267.881*T + sumTerms(moonLongitudeTerms, T, math.Sin)) * deg2rad
	beta := sumTerms(moonLatitudeTerms, T, math.Sin) * deg2rad
	parallax := (0.9508 + sumTerms(moonParallaxTerms, T, math.Cos)) * deg2rad

	dist := earthEquatorialRadiusM / math.Sin(parallax)

	x := math.Cos(beta) * math.Cos(lambda)
	y := math.Cos(beta) * math.Sin(lambda)
	z := math.Sin(beta)

	ra, dec, _ := transform.EclipticToEquatorial(x, y, z, transform.MeanObliquity(t))
	return transform.Equatorial{RADeg: ra, DecDeg: dec, DistanceM: dist}
}
