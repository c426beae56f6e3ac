package visibility

import (
	"fmt"
	"math"
	"time"

	"github.com/star/skytonight/internal/transform"
)

const dateLayout = "2006-01-02"

// SamplingWindow is a symmetric time grid around an anchor instant.
type SamplingWindow struct {
	Anchor    time.Time `json:"anchor"`
	SpanHours float64   `json:"span_hours"` // on each side of the anchor
	Samples   int       `json:"samples"`

	narrowed bool
}

// Times returns Samples instants evenly spaced over
// [Anchor - SpanHours, Anchor + SpanHours], both ends included.
func (w SamplingWindow) Times() []time.Time {
	if w.Samples < 2 {
		return []time.Time{w.Anchor}
	}
	span := time.Duration(w.SpanHours * float64(time.Hour))
	start := w.Anchor.Add(-span)
	step := float64(2*span) / float64(w.Samples-1)

	times := make([]time.Time, w.Samples)
	for i := range times {
		times[i] = start.Add(time.Duration(math.Round(float64(i) * step)))
	}
	return times
}

// Narrow resizes the window to halfDarkHours on each side of the anchor,
// keeping the sample count. A non-positive value leaves the span unchanged.
// It reports whether the span changed. Only the first call is accepted.
func (w *SamplingWindow) Narrow(halfDarkHours int) (bool, error) {
	if w.narrowed {
		return false, ErrAlreadyNarrowed
	}
	w.narrowed = true
	if halfDarkHours <= 0 {
		return false, nil
	}
	w.SpanHours = float64(halfDarkHours)
	return true, nil
}

// Validate checks the observer fields that can be checked without I/O.
func (o Observer) Validate() error {
	switch {
	case math.IsNaN(o.LatitudeDeg) || o.LatitudeDeg < -90 || o.LatitudeDeg > 90:
		return configErrorf("latitude %v out of range [-90, 90]", o.LatitudeDeg)
	case math.IsNaN(o.LongitudeDeg) || o.LongitudeDeg < -180 || o.LongitudeDeg > 180:
		return configErrorf("longitude %v out of range [-180, 180]", o.LongitudeDeg)
	case math.IsNaN(o.UTCOffsetHours) || o.UTCOffsetHours < -14 || o.UTCOffsetHours > 14:
		return configErrorf("utc offset %v out of range [-14, 14]", o.UTCOffsetHours)
	}
	return nil
}

// Zone returns the observer's fixed-offset civil time zone.
func (o Observer) Zone() *time.Location {
	secs := int(math.Round(o.UTCOffsetHours * 3600))
	return time.FixedZone(formatOffset(secs), secs)
}

// Today returns the observer's civil date at now.
func (o Observer) Today(now time.Time) string {
	return now.In(o.Zone()).Format(dateLayout)
}

// Position returns the observer's geodetic position for the transform layer.
func (o Observer) Position() transform.ObserverPosition {
	return transform.NewObserverPosition(o.LatitudeDeg, o.LongitudeDeg, o.ElevationM)
}

func formatOffset(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

// Anchor returns the session's reference instant in UTC: local midnight at
// the end of the observer's civil date when advanceDate is set (the night
// that starts on the given evening), otherwise local midnight at its start.
func Anchor(o Observer, advanceDate bool) (time.Time, error) {
	if err := o.Validate(); err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(dateLayout, o.Date)
	if err != nil {
		return time.Time{}, configErrorf("date %q: %v", o.Date, err)
	}

	day := d.Day()
	if advanceDate {
		day++
	}
	return time.Date(d.Year(), d.Month(), day, 0, 0, 0, 0, o.Zone()).UTC(), nil
}

// Direction classifies an azimuth into a compass quadrant.
func Direction(azimuthDeg float64) string {
	az := transform.NormalizeDegrees(azimuthDeg)
	switch {
	case az < 90:
		return "N"
	case az < 180:
		return "E"
	case az < 270:
		return "S"
	case az < 360:
		return "W"
	default:
		return "N"
	}
}

// sortKey orders observations chronologically by UTC hour:
// year*1000000 + month*10000 + day*100 + hour.
func sortKey(t time.Time) int {
	u := t.UTC()
	return u.Year()*1000000 + int(u.Month())*10000 + u.Day()*100 + u.Hour()
}

// localHour converts a UTC instant to the observer's civil hour and date.
func localHour(t time.Time, zone *time.Location) LocalHour {
	l := t.In(zone)
	return LocalHour{Date: l.Format(dateLayout), Hour: l.Hour(), At: t.UTC()}
}
