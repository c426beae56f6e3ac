package visibility

import (
	"math"
	"time"
)

// Altitude bands, degrees. A sample inside a band while the Sun is falling
// (rising) marks the evening (morning) event.
const (
	horizonBandLow   = 0.0
	horizonBandHigh  = 1.0
	twilightBandLow  = -20.0
	twilightBandHigh = -18.0
)

// LocateTwilight walks Sun samples in time order and records sunset and
// sunrise (horizon band) and dusk and dawn (astronomical twilight band).
// The first in-band sample in each direction wins. Times are returned in
// zone. HalfDarkHours is the rounded number of hours from dusk to anchor,
// or 0 when no dusk was found before the anchor.
func LocateTwilight(sun []Observation, anchor time.Time, zone *time.Location) TwilightTimes {
	var tw TwilightTimes
	if len(sun) < 2 {
		return tw
	}

	at := func(t time.Time) *time.Time {
		l := t.In(zone)
		return &l
	}

	prev := sun[0].AltitudeDeg
	for _, s := range sun[1:] {
		alt := s.AltitudeDeg
		falling := alt < prev
		rising := alt > prev

		if alt >= horizonBandLow && alt <= horizonBandHigh {
			if falling && tw.Sunset == nil {
				tw.Sunset = at(s.Time)
			}
			if rising && tw.Sunrise == nil {
				tw.Sunrise = at(s.Time)
			}
		}
		if alt >= twilightBandLow && alt <= twilightBandHigh {
			if falling && tw.Dusk == nil {
				tw.Dusk = at(s.Time)
			}
			if rising && tw.Dawn == nil {
				tw.Dawn = at(s.Time)
			}
		}
		prev = alt
	}

	// Dusk after midnight (high-latitude summer) leaves no usable half-night.
	if tw.Dusk != nil {
		tw.HalfDarkHours = max(0, int(math.Round(anchor.Sub(*tw.Dusk).Hours())))
	}
	return tw
}
