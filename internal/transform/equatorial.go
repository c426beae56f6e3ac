// Package transform provides the coordinate frame transformations used to turn
// equatorial sky positions into observer-relative altitude and azimuth.
//
// Pipeline: equatorial (RA/Dec, optional distance) → Earth-fixed (ECEF) via a
// rotation about the Z-axis by GMST → topocentric SEZ → look angles.
//
// Method: GMST-only rotation, ignoring precession, nutation and polar motion.
// Catalog coordinates are J2000; the error this introduces (a few tenths of a
// degree over decades) is acceptable for hour-level visibility planning.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3–4.
package transform

import (
	"fmt"
	"math"
	"time"
)

// SiderealDistanceM is the distance assigned to objects with no measurable
// parallax (stars, clusters, nebulae, galaxies). Large enough that Earth's
// radius subtends well under an arcsecond.
const SiderealDistanceM = 1.0e15

// AstronomicalUnitM is one astronomical unit in meters.
const AstronomicalUnitM = 1.495978707e11

// Equatorial is a geocentric position in the equatorial frame.
type Equatorial struct {
	RADeg     float64 // right ascension, degrees [0, 360)
	DecDeg    float64 // declination, degrees [-90, 90]
	DistanceM float64 // geocentric distance; 0 means sidereal
}

// PositionECEF represents a position in the Earth-fixed frame.
type PositionECEF struct {
	X, Y, Z float64 // meters
}

// NewEquatorialHMS builds an Equatorial from sexagesimal right ascension
// (hours, minutes, seconds) and declination in degrees.
func NewEquatorialHMS(raH, raM, raS, decDeg float64) Equatorial {
	return Equatorial{
		RADeg:  (raH + raM/60.0 + raS/3600.0) * 15.0,
		DecDeg: decDeg,
	}
}

// distance returns the effective geocentric distance in meters.
func (e Equatorial) distance() float64 {
	if e.DistanceM <= 0 {
		return SiderealDistanceM
	}
	return e.DistanceM
}

// Validate checks that the position is finite and within range.
func (e Equatorial) Validate() error {
	for _, v := range []float64{e.RADeg, e.DecDeg, e.DistanceM} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite coordinate (ra=%v dec=%v dist=%v)", e.RADeg, e.DecDeg, e.DistanceM)
		}
	}
	if e.RADeg < 0 || e.RADeg >= 360 {
		return fmt.Errorf("right ascension %.4f out of range [0, 360)", e.RADeg)
	}
	if e.DecDeg < -90 || e.DecDeg > 90 {
		return fmt.Errorf("declination %.4f out of range [-90, 90]", e.DecDeg)
	}
	if e.DistanceM < 0 {
		return fmt.Errorf("negative distance %.1f", e.DistanceM)
	}
	return nil
}

// EquatorialToECEF rotates a geocentric equatorial position into the
// Earth-fixed frame using a precomputed GMST angle (radians).
//
// Position transform: r_ECEF = R3(θ) * r_EQ
//
// where R3(θ) is a rotation about the Z-axis by angle θ (GMST).
func EquatorialToECEF(pos Equatorial, gmst float64) PositionECEF {
	ra := pos.RADeg * math.Pi / 180.0
	dec := pos.DecDeg * math.Pi / 180.0
	r := pos.distance()

	x := r * math.Cos(dec) * math.Cos(ra)
	y := r * math.Cos(dec) * math.Sin(ra)
	z := r * math.Sin(dec)

	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	return PositionECEF{
		X: x*cosG + y*sinG,
		Y: -x*sinG + y*cosG,
		Z: z,
	}
}

// HorizontalAt computes the look angles from obs to pos at time t.
func HorizontalAt(obs ObserverPosition, pos Equatorial, t time.Time) LookAngles {
	ecef := EquatorialToECEF(pos, GMST(t))
	return ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z)
}

// ToHorizontal computes look angles for every instant in times. The returned
// slice is parallel to times.
func ToHorizontal(obs ObserverPosition, pos Equatorial, times []time.Time) ([]LookAngles, error) {
	if err := pos.Validate(); err != nil {
		return nil, err
	}
	out := make([]LookAngles, len(times))
	for i, t := range times {
		la := HorizontalAt(obs, pos, t)
		if math.IsNaN(la.AltitudeDeg) || math.IsNaN(la.AzimuthDeg) {
			return nil, fmt.Errorf("look angles undefined at %s", t.UTC().Format(time.RFC3339))
		}
		out[i] = la
	}
	return out, nil
}

// EclipticToEquatorial rotates geocentric ecliptic rectangular coordinates into
// the equatorial frame (rotation about the X-axis by the obliquity eps) and
// returns the spherical form. Units of x, y, z are preserved as the distance.
func EclipticToEquatorial(x, y, z, eps float64) (raDeg, decDeg, dist float64) {
	xe := x
	ye := y*math.Cos(eps) - z*math.Sin(eps)
	ze := y*math.Sin(eps) + z*math.Cos(eps)

	dist = math.Sqrt(xe*xe + ye*ye + ze*ze)
	raDeg = NormalizeDegrees(math.Atan2(ye, xe) * 180.0 / math.Pi)
	decDeg = math.Atan2(ze, math.Sqrt(xe*xe+ye*ye)) * 180.0 / math.Pi
	return raDeg, decDeg, dist
}
