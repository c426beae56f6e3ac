package visibility

import (
	"context"
	"log/slog"
	"time"

	"github.com/star/skytonight/internal/catalog"
)

const (
	// DefaultAltitudeFloorDeg is the lowest altitude worth observing at.
	DefaultAltitudeFloorDeg = 20.0

	// hourWindow is how far into a UTC hour a sample may fall and still
	// represent that hour.
	hourWindow = 5 * time.Minute
)

// ObjectScan is the self-contained result of scanning one object. It is
// built without shared state and merged into an Aggregator afterwards.
type ObjectScan struct {
	Object string
	Rows   []Row
	Record *Record // nil when the object never qualified
	Err    error
}

// Scanner filters one object's samples down to hourly observations above
// the altitude floor.
type Scanner struct {
	sampler  *Sampler
	metadata MetadataService
	floor    float64
	zone     *time.Location
	logger   *slog.Logger
}

// NewScanner creates a scanner. metadata may be nil.
func NewScanner(sampler *Sampler, metadata MetadataService, floorDeg float64, zone *time.Location, logger *slog.Logger) *Scanner {
	return &Scanner{
		sampler:  sampler,
		metadata: metadata,
		floor:    floorDeg,
		zone:     zone,
		logger:   logger,
	}
}

// Scan samples target over times and reduces the samples to at most one
// observation per hour. Errors are returned in ObjectScan.Err.
func (s *Scanner) Scan(ctx context.Context, target Target, times []time.Time) ObjectScan {
	res := ObjectScan{Object: target.Name}

	samples, err := s.sampler.Sample(ctx, target, times)
	if err != nil {
		res.Err = err
		return res
	}

	var (
		rec      *Record
		md       catalog.Metadata
		lastHour time.Time
		haveLast bool
	)

	for _, o := range samples {
		// Only the first sample in the opening minutes of an hour speaks for
		// that hour, whatever its altitude.
		utc := o.Time.UTC()
		hour := utc.Truncate(time.Hour)
		if utc.Sub(hour) >= hourWindow {
			continue
		}
		if haveLast && hour.Equal(lastHour) {
			continue
		}
		lastHour, haveLast = hour, true
		if o.AltitudeDeg < s.floor {
			continue
		}

		lh := localHour(o.Time, s.zone)

		if rec == nil {
			md = s.lookupMetadata(ctx, target)
			rise := lh
			rec = &Record{
				Object:   target.Name,
				Type:     md.Type,
				Metadata: md,
				Rise:     &rise,
				SortKey:  sortKey(o.Time),
			}
		}

		set := lh
		rec.Set = &set
		if rec.Culmination == nil || o.AltitudeDeg > rec.CulminationAltDeg {
			culm := lh
			rec.Culmination = &culm
			rec.CulminationAltDeg = o.AltitudeDeg
		}
		rec.Observations++

		res.Rows = append(res.Rows, Row{
			Object:      target.Name,
			Type:        string(md.Type),
			LocalDate:   lh.Date,
			LocalHour:   lh.Hour,
			AltitudeDeg: o.AltitudeDeg,
			AzimuthDeg:  o.AzimuthDeg,
			Direction:   Direction(o.AzimuthDeg),
			FilterHint:  md.FilterHint(),
			FinderLink:  md.FinderLink,
			SortKey:     sortKey(o.Time),
			Time:        utc,
		})
	}

	res.Record = rec
	return res
}

// lookupMetadata fetches metadata for a visible object. A failed lookup
// degrades to empty metadata rather than dropping the object.
func (s *Scanner) lookupMetadata(ctx context.Context, target Target) catalog.Metadata {
	if s.metadata == nil {
		return catalog.Metadata{Type: catalog.TypeUnknown, Difficulty: catalog.DifficultyUnknown}
	}
	md, err := s.metadata.Lookup(ctx, target.Name)
	if err != nil {
		s.logger.Warn("metadata lookup failed", "object", target.Name, "error", err)
		return catalog.Metadata{Type: catalog.TypeUnknown, Difficulty: catalog.DifficultyUnknown}
	}
	return md
}
