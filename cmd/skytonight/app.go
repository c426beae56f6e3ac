package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/config"
	"github.com/star/skytonight/internal/elevation"
	"github.com/star/skytonight/internal/ephemeris"
	"github.com/star/skytonight/internal/httputil"
	"github.com/star/skytonight/internal/kvstore"
	"github.com/star/skytonight/internal/visibility"
)

// app holds the services shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kv      *kvstore.Store
	store   *catalog.Store
	objects *catalog.Service
	engine  *visibility.Engine
}

// newApp opens the lookup cache, loads the catalog and builds the engine.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	kv, err := kvstore.Open(kvstore.Config{Path: cfg.Lookup.CachePath}, logger)
	if err != nil {
		return nil, fmt.Errorf("opening lookup cache: %w", err)
	}

	store := catalog.NewStore()
	if err := store.Load(cfg.Catalog.ExtraPath, logger); err != nil {
		kv.Close()
		return nil, err
	}

	var resolver *catalog.Resolver
	if cfg.Lookup.ResolverEnabled {
		client := httputil.NewClient(lookupClientConfig(cfg.Lookup, "sesame"), logger)
		resolver = catalog.NewResolver(cfg.Lookup.SesameURL, client, kv, cfg.Lookup.CacheTTL, logger)
	}
	objects := catalog.NewService(store, resolver, logger)

	var elev visibility.ElevationService = elevation.Static(cfg.Observer.ElevationM)
	if cfg.Observer.LookupElevation {
		client := httputil.NewClient(lookupClientConfig(cfg.Lookup, "elevation"), logger)
		elev = elevation.NewClient(cfg.Lookup.ElevationURL, client, kv, logger)
	}

	coords := ephemeris.NewService(objects, logger)
	engine := visibility.NewEngine(cfg.Engine(), coords, objects, elev, logger)

	logger.Info("services ready",
		"resolver_enabled", cfg.Lookup.ResolverEnabled,
		"lookup_elevation", cfg.Observer.LookupElevation,
		"lookup_cache", cacheLocation(cfg.Lookup.CachePath),
	)

	return &app{
		cfg:     cfg,
		logger:  logger,
		kv:      kv,
		store:   store,
		objects: objects,
		engine:  engine,
	}, nil
}

func lookupClientConfig(l config.LookupConfig, name string) httputil.ClientConfig {
	return httputil.ClientConfig{
		Name:      name,
		Timeout:   l.Timeout,
		Retries:   l.Retries,
		TripAfter: l.TripAfter,
		Cooldown:  l.Cooldown,
	}
}

func cacheLocation(path string) string {
	if path == "" {
		return "memory"
	}
	return path
}

// catalogVersion identifies the loaded catalog by its load time.
func (a *app) catalogVersion() time.Time {
	if c := a.store.Get(); c != nil {
		return c.LoadedAt
	}
	return time.Time{}
}

// catalogReady reports whether a catalog is loaded.
func (a *app) catalogReady() (bool, string) {
	if a.store.Get() == nil {
		return false, "catalog not loaded"
	}
	return true, ""
}

func (a *app) Close() error {
	return a.kv.Close()
}
