package ephemeris

import (
	"fmt"
	"math"
	"time"

	"github.com/star/skytonight/internal/transform"
)

// orbitalElements are J2000 mean Keplerian elements and their rates per
// Julian century (Standish, "Keplerian Elements for Approximate Positions of
// the Major Planets", valid 1800–2050).
type orbitalElements struct {
	a, e, i, l, peri, node                   float64 // AU, -, deg, deg, deg, deg
	aDot, eDot, iDot, lDot, periDot, nodeDot float64
}

// obliquityJ2000 is the obliquity of the ecliptic at J2000.0, radians. The
// elements below are referred to the J2000 ecliptic.
const obliquityJ2000 = 23.43928 * deg2rad

var (
	earthElements = orbitalElements{
		1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0.0,
		0.00000562, -0.00004392, -0.01294668, 35999.37244981, 0.32327364, 0.0,
	}

	planetElements = map[string]orbitalElements{
		"mercury": {
			0.38709927, 0.20563593, 7.00497902, 252.25032350, 77.45779628, 48.33076593,
			0.00000037, 0.00001906, -0.00594749, 149472.67411175, 0.16047689, -0.12534081,
		},
		"venus": {
			0.72333566, 0.00677672, 3.39467605, 181.97909950, 131.60246718, 76.67984255,
			0.00000390, -0.00004107, -0.00078890, 58517.81538729, 0.00268329, -0.27769418,
		},
		"mars": {
			1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891,
			0.00001847, 0.00007882, -0.00813131, 19140.30268499, 0.44441088, -0.29257343,
		},
		"jupiter": {
			5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909,
			-0.00011607, -0.00013253, -0.00183714, 3034.74612775, 0.21252668, 0.20469106,
		},
		"saturn": {
			9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448,
			-0.00125060, -0.00050991, 0.00193609, 1222.49362201, -0.41897216, -0.28867794,
		},
		"uranus": {
			19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503,
			-0.00196176, -0.00004397, -0.00242939, 428.48202785, 0.40805281, 0.04240589,
		},
		"neptune": {
			30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574,
			0.00026291, 0.00005105, 0.00035372, 218.45945325, -0.32241464, -0.00508664,
		},
	}
)

// heliocentric returns the heliocentric ecliptic (J2000) rectangular position
// in AU at T Julian centuries past J2000.
func (el orbitalElements) heliocentric(T float64) (x, y, z float64) {
	a := el.a + el.aDot*T
	e := el.e + el.eDot*T
	inc := (el.i + el.iDot*T) * deg2rad
	L := el.l + el.lDot*T
	peri := el.peri + el.periDot*T
	node := el.node + el.nodeDot*T

	omega := (peri - node) * deg2rad // argument of perihelion
	M := transform.NormalizeDegrees(L-peri) * deg2rad
	E := solveKepler(M, e)

	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	cw, sw := math.Cos(omega), math.Sin(omega)
	cn, sn := math.Cos(node*deg2rad), math.Sin(node*deg2rad)
	ci, si := math.Cos(inc), math.Sin(inc)

	x = (cw*cn-sw*sn*ci)*xp + (-sw*cn-cw*sn*ci)*yp
	y = (cw*sn+sw*cn*ci)*xp + (-sw*sn+cw*cn*ci)*yp
	z = (sw*si)*xp + (cw*si)*yp
	return x, y, z
}

// solveKepler solves M = E - e·sin(E) for the eccentric anomaly by Newton
// iteration. All angles in radians.
func solveKepler(M, e float64) float64 {
	E := M
	if e > 0.8 {
		E = math.Pi
	}
	for i := 0; i < 30; i++ {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-12 {
			break
		}
	}
	return E
}

// PlanetPosition returns the geometric geocentric equatorial (J2000) position
// of a major planet. Light time and aberration are ignored.
func PlanetPosition(name string, t time.Time) (transform.Equatorial, error) {
	el, ok := planetElements[name]
	if !ok {
		return transform.Equatorial{}, fmt.Errorf("%w: %q", ErrUnknownBody, name)
	}

	T := transform.CenturiesSinceJ2000(t)
	px, py, pz := el.heliocentric(T)
	ex, ey, ez := earthElements.heliocentric(T)

	ra, dec, dist := transform.EclipticToEquatorial(px-ex, py-ey, pz-ez, obliquityJ2000)
	return transform.Equatorial{
		RADeg:     ra,
		DecDeg:    dec,
		DistanceM: dist * transform.AstronomicalUnitM,
	}, nil
}
