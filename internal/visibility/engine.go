package visibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/star/skytonight/internal/metrics"
)

// Config holds the tunable parameters of a run.
type Config struct {
	// AdvanceDate anchors the session on the midnight that ends the given
	// civil date (the night starting that evening) instead of the one that
	// starts it.
	AdvanceDate      bool
	AltitudeFloorDeg float64
	CoarseSpanHours  float64 // twilight search, each side of the anchor
	CoarseSamples    int
	NarrowSpanHours  float64 // default scan span when no dusk is found
	NarrowSamples    int
	Workers          int // 0 means runtime.NumCPU()
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() Config {
	return Config{
		AdvanceDate:      true,
		AltitudeFloorDeg: DefaultAltitudeFloorDeg,
		CoarseSpanHours:  12,
		CoarseSamples:    1000,
		NarrowSpanHours:  6,
		NarrowSamples:    500,
	}
}

// Validate checks window and floor settings.
func (c Config) Validate() error {
	switch {
	case c.AltitudeFloorDeg < -90 || c.AltitudeFloorDeg > 90:
		return configErrorf("altitude floor %v out of range [-90, 90]", c.AltitudeFloorDeg)
	case c.CoarseSpanHours <= 0 || c.NarrowSpanHours <= 0:
		return configErrorf("window spans must be positive (coarse=%v narrow=%v)", c.CoarseSpanHours, c.NarrowSpanHours)
	case c.CoarseSamples < 2 || c.NarrowSamples < 2:
		return configErrorf("sample counts must be at least 2 (coarse=%d narrow=%d)", c.CoarseSamples, c.NarrowSamples)
	}
	return nil
}

// Request describes one run.
type Request struct {
	Observer Observer
	Targets  []string
	// FixedElevation keeps Observer.ElevationM instead of asking the
	// elevation service.
	FixedElevation bool
}

// Engine runs the visibility pipeline: frame, twilight, window narrowing,
// per-object scans and aggregation.
type Engine struct {
	cfg       Config
	coords    CoordinateService
	metadata  MetadataService
	elevation ElevationService
	pool      *WorkerPool
	logger    *slog.Logger
}

// NewEngine creates an engine. metadata may be nil; elevation may be nil, in
// which case the request's observer elevation is used as given.
func NewEngine(cfg Config, coords CoordinateService, metadata MetadataService, elevation ElevationService, logger *slog.Logger) *Engine {
	logger = logger.With("component", "visibility")
	return &Engine{
		cfg:       cfg,
		coords:    coords,
		metadata:  metadata,
		elevation: elevation,
		pool:      NewWorkerPool(cfg.Workers, logger),
		logger:    logger,
	}
}

// Run executes one complete run. Per-object failures are reported in
// Report.Skipped; configuration, elevation and Sun sampling failures abort
// the run.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	runID := uuid.NewString()
	log := e.logger.With("run_id", runID)
	start := time.Now()

	report, err := e.run(ctx, runID, log, req)

	outcome := "success"
	switch {
	case errors.Is(err, ErrConfiguration):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
	}
	metrics.RecordRun(time.Since(start), outcome)

	if err != nil {
		log.Error("run failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	log.Info("run complete",
		"targets", len(req.Targets),
		"visible", len(report.Summaries),
		"rows", len(report.Rows),
		"skipped", len(report.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context, runID string, log *slog.Logger, req Request) (*Report, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}

	obs := req.Observer
	anchor, err := Anchor(obs, e.cfg.AdvanceDate)
	if err != nil {
		return nil, err
	}
	zone := obs.Zone()

	if e.elevation != nil && !req.FixedElevation {
		elev, err := e.elevation.Elevation(ctx, obs.LatitudeDeg, obs.LongitudeDeg)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrElevationUnavailable, err)
		}
		obs.ElevationM = elev
	}

	log.Debug("frame built",
		"date", obs.Date,
		"anchor", anchor.Format(time.RFC3339),
		"zone", zone.String(),
		"elevation_m", obs.ElevationM,
	)

	sampler := NewSampler(e.coords, obs.Position(), anchor)

	// Twilight over the coarse window.
	coarse := SamplingWindow{Anchor: anchor, SpanHours: e.cfg.CoarseSpanHours, Samples: e.cfg.CoarseSamples}
	sun, err := sampler.Sample(ctx, ParseTarget("sun"), coarse.Times())
	if err != nil {
		return nil, fmt.Errorf("sampling sun: %w", err)
	}
	twilight := LocateTwilight(sun, anchor, zone)
	if twilight.Dusk == nil {
		metrics.RecordTwilightDegraded()
		log.Warn("no dusk crossing found, keeping default window", "span_hours", e.cfg.NarrowSpanHours)
	}

	// Narrow window sized to the dark period.
	window := SamplingWindow{Anchor: anchor, SpanHours: e.cfg.NarrowSpanHours, Samples: e.cfg.NarrowSamples}
	if _, err := window.Narrow(twilight.HalfDarkHours); err != nil {
		return nil, err
	}
	log.Debug("window narrowed", "half_dark_hours", twilight.HalfDarkHours, "span_hours", window.SpanHours)

	// Per-object scans, merged in request order.
	targets := dedupeTargets(req.Targets)
	scanner := NewScanner(sampler, e.metadata, e.cfg.AltitudeFloorDeg, zone, log)
	scans := e.pool.ScanAll(ctx, scanner, targets, window.Times())
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}

	agg := NewAggregator()
	var skipped []Skipped
	for _, scan := range scans {
		if scan.Err != nil {
			metrics.RecordObject(errorOutcome(scan.Err))
			log.Warn("object skipped", "object", scan.Object, "error", scan.Err)
			skipped = append(skipped, Skipped{Object: scan.Object, Reason: scan.Err.Error()})
			continue
		}
		if scan.Record == nil {
			metrics.RecordObject("not_visible")
		} else {
			metrics.RecordObject("visible")
		}
		if err := agg.Merge(scan); err != nil {
			return nil, err
		}
	}

	result, err := agg.Finalize()
	if err != nil {
		return nil, err
	}
	metrics.AddObservations(len(result.Rows))

	summaries := make([]Record, 0, len(result.Order))
	for _, name := range result.Order {
		summaries = append(summaries, result.Records[name])
	}

	return &Report{
		RunID:       runID,
		Observer:    obs,
		Anchor:      anchor,
		Window:      window,
		Twilight:    twilight,
		Rows:        result.Rows,
		Summaries:   summaries,
		Skipped:     skipped,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// dedupeTargets normalizes names and drops blanks and repeats, keeping the
// first occurrence.
func dedupeTargets(names []string) []Target {
	seen := make(map[string]bool, len(names))
	targets := make([]Target, 0, len(names))
	for _, n := range names {
		t := ParseTarget(n)
		if t.Name == "" || seen[t.Name] {
			continue
		}
		seen[t.Name] = true
		targets = append(targets, t)
	}
	return targets
}

func errorOutcome(err error) string {
	switch {
	case errors.Is(err, ErrUnknownObject):
		return "unknown_object"
	case errors.Is(err, ErrTransform):
		return "transform_error"
	default:
		return "error"
	}
}
