// Package config loads skytonight settings from defaults, an optional YAML
// file and SKYTONIGHT_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/star/skytonight/internal/visibility"
)

// Config is the complete application configuration.
type Config struct {
	Observer ObserverConfig `koanf:"observer"`
	Targets  []string       `koanf:"targets" validate:"dive,required"`
	Session  SessionConfig  `koanf:"session"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Lookup   LookupConfig   `koanf:"lookup"`
	Cache    CacheConfig    `koanf:"cache"`
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ObserverConfig is the default observing site.
type ObserverConfig struct {
	Latitude        float64 `koanf:"latitude" validate:"gte=-90,lte=90"`
	Longitude       float64 `koanf:"longitude" validate:"gte=-180,lte=180"`
	ElevationM      float64 `koanf:"elevation_m" validate:"gte=-500,lte=9000"`
	LookupElevation bool    `koanf:"lookup_elevation"` // query the elevation service instead of ElevationM
	Date            string  `koanf:"date" validate:"omitempty,datetime=2006-01-02"`
	UTCOffset       float64 `koanf:"utc_offset" validate:"gte=-14,lte=14"`
}

// SessionConfig tunes the sampling windows.
type SessionConfig struct {
	AdvanceDate      bool    `koanf:"advance_date"`
	AltitudeFloorDeg float64 `koanf:"altitude_floor_deg" validate:"gte=-90,lte=90"`
	CoarseSpanHours  float64 `koanf:"coarse_span_hours" validate:"gt=0,lte=24"`
	CoarseSamples    int     `koanf:"coarse_samples" validate:"gte=2"`
	NarrowSpanHours  float64 `koanf:"narrow_span_hours" validate:"gt=0,lte=24"`
	NarrowSamples    int     `koanf:"narrow_samples" validate:"gte=2"`
	Workers          int     `koanf:"workers" validate:"gte=0"`
}

// CatalogConfig points at an optional catalog merged over the embedded one.
type CatalogConfig struct {
	ExtraPath string `koanf:"extra_path"`
}

// LookupConfig configures the remote name resolver, the elevation service
// and the persistent cache both share.
type LookupConfig struct {
	ResolverEnabled bool          `koanf:"resolver_enabled"`
	SesameURL       string        `koanf:"sesame_url" validate:"omitempty,url"`
	ElevationURL    string        `koanf:"elevation_url" validate:"omitempty,url"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	Retries         int           `koanf:"retries" validate:"gte=0,lte=5"`
	TripAfter       uint32        `koanf:"trip_after" validate:"gte=1"`
	Cooldown        time.Duration `koanf:"cooldown" validate:"gt=0"`
	CachePath       string        `koanf:"cache_path"` // empty keeps the cache in memory
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// CacheConfig sizes the in-memory report cache used by the HTTP API.
type CacheConfig struct {
	TTL           time.Duration `koanf:"ttl" validate:"gte=0"`
	MaxEntries    int           `koanf:"max_entries" validate:"gte=1"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"` // requests per window per IP, 0 disables
	RateWindow      time.Duration `koanf:"rate_window" validate:"gt=0"`
	MaxTargets      int           `koanf:"max_targets" validate:"gte=1"`
	TrustProxy      bool          `koanf:"trust_proxy"` // key rate limits on X-Forwarded-For
}

// AuthConfig guards the API with a bearer token.
type AuthConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token" validate:"required_if=Enabled true"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	eng := visibility.DefaultConfig()
	return &Config{
		Observer: ObserverConfig{
			Latitude:  41.0,
			Longitude: -73.0,
			UTCOffset: -4,
		},
		Targets: []string{"moon", "jupiter", "saturn", "m31", "m13", "m57", "m45", "m42"},
		Session: SessionConfig{
			AdvanceDate:      eng.AdvanceDate,
			AltitudeFloorDeg: eng.AltitudeFloorDeg,
			CoarseSpanHours:  eng.CoarseSpanHours,
			CoarseSamples:    eng.CoarseSamples,
			NarrowSpanHours:  eng.NarrowSpanHours,
			NarrowSamples:    eng.NarrowSamples,
		},
		Lookup: LookupConfig{
			SesameURL:    "https://cds.unistra.fr/cgi-bin/nph-sesame/-oI/A?",
			ElevationURL: "https://api.open-elevation.com/api/v1/lookup",
			Timeout:      10 * time.Second,
			Retries:      1,
			TripAfter:    5,
			Cooldown:     30 * time.Second,
			CacheTTL:     30 * 24 * time.Hour,
		},
		Cache: CacheConfig{
			TTL:           15 * time.Minute,
			MaxEntries:    256,
			SweepInterval: time.Minute,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       60,
			RateWindow:      time.Minute,
			MaxTargets:      200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var validate = validator.New()

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// Engine returns the visibility engine settings.
func (c *Config) Engine() visibility.Config {
	return visibility.Config{
		AdvanceDate:      c.Session.AdvanceDate,
		AltitudeFloorDeg: c.Session.AltitudeFloorDeg,
		CoarseSpanHours:  c.Session.CoarseSpanHours,
		CoarseSamples:    c.Session.CoarseSamples,
		NarrowSpanHours:  c.Session.NarrowSpanHours,
		NarrowSamples:    c.Session.NarrowSamples,
		Workers:          c.Session.Workers,
	}
}

// ObserverAt returns the configured observer. An empty date resolves to the
// observer's current civil date at now.
func (c *Config) ObserverAt(now time.Time) visibility.Observer {
	o := c.Observer
	obs := visibility.Observer{
		LatitudeDeg:    o.Latitude,
		LongitudeDeg:   o.Longitude,
		ElevationM:     o.ElevationM,
		Date:           o.Date,
		UTCOffsetHours: o.UTCOffset,
	}
	if obs.Date == "" {
		obs.Date = obs.Today(now)
	}
	return obs
}
