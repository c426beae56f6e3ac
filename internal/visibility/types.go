package visibility

import (
	"context"
	"time"

	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/transform"
)

// CoordinateService resolves target positions and converts them into
// observer look angles.
type CoordinateService interface {
	ResolveBody(ctx context.Context, name string, instant time.Time) (transform.Equatorial, error)
	ResolveCatalogObject(ctx context.Context, name string) (transform.Equatorial, error)
	ToHorizontal(ctx context.Context, pos transform.Equatorial, times []time.Time, obs transform.ObserverPosition) ([]transform.LookAngles, error)
}

// MetadataService describes catalog objects.
type MetadataService interface {
	Lookup(ctx context.Context, id string) (catalog.Metadata, error)
}

// ElevationService returns the ground elevation at a location in meters.
type ElevationService interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// Observer is the location and civil date of a viewing session.
type Observer struct {
	LatitudeDeg    float64 `json:"latitude_deg"`
	LongitudeDeg   float64 `json:"longitude_deg"`
	ElevationM     float64 `json:"elevation_m"`
	Date           string  `json:"date"`             // YYYY-MM-DD, the evening of the session
	UTCOffsetHours float64 `json:"utc_offset_hours"` // fractional offsets allowed
}

// Observation is one sampled position of an object.
type Observation struct {
	Object      string    `json:"object"`
	Time        time.Time `json:"time"`
	AltitudeDeg float64   `json:"altitude_deg"`
	AzimuthDeg  float64   `json:"azimuth_deg"`
}

// TwilightTimes are the Sun events found in the coarse window, in the
// observer's local time. A nil event was not found.
type TwilightTimes struct {
	Sunset        *time.Time `json:"sunset,omitempty"`
	Dusk          *time.Time `json:"dusk,omitempty"`
	Dawn          *time.Time `json:"dawn,omitempty"`
	Sunrise       *time.Time `json:"sunrise,omitempty"`
	HalfDarkHours int        `json:"half_dark_hours"`
}

// LocalHour is a local civil hour on a local date.
type LocalHour struct {
	Date string    `json:"date"` // YYYY-MM-DD
	Hour int       `json:"hour"`
	At   time.Time `json:"at"` // the sample instant, UTC
}

// Record summarizes one visible object: when it first and last qualified,
// and how high it got.
type Record struct {
	Object            string             `json:"object"`
	Type              catalog.ObjectType `json:"type"`
	Metadata          catalog.Metadata   `json:"metadata"`
	Rise              *LocalHour         `json:"rise"`
	Set               *LocalHour         `json:"set"`
	CulminationAltDeg float64            `json:"culmination_alt_deg"`
	Culmination       *LocalHour         `json:"culmination"`
	SortKey           int                `json:"sort_key"`
	Observations      int                `json:"observations"`
}

// Row is one hourly observation, ready for report rendering.
type Row struct {
	Object      string    `json:"object"`
	Type        string    `json:"type"`
	LocalDate   string    `json:"local_date"`
	LocalHour   int       `json:"local_hour"`
	AltitudeDeg float64   `json:"altitude_deg"`
	AzimuthDeg  float64   `json:"azimuth_deg"`
	Direction   string    `json:"direction"`
	FilterHint  string    `json:"filter_hint"`
	FinderLink  string    `json:"finder_link,omitempty"`
	SortKey     int       `json:"sort_key"`
	Time        time.Time `json:"time"`
}

// Skipped names an object that could not be scanned and why.
type Skipped struct {
	Object string `json:"object"`
	Reason string `json:"reason"`
}

// Report is the outcome of one run.
type Report struct {
	RunID       string         `json:"run_id"`
	Observer    Observer       `json:"observer"`
	Anchor      time.Time      `json:"anchor"`
	Window      SamplingWindow `json:"window"`
	Twilight    TwilightTimes  `json:"twilight"`
	Rows        []Row          `json:"rows"`
	Summaries   []Record       `json:"summaries"`
	Skipped     []Skipped      `json:"skipped,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}
