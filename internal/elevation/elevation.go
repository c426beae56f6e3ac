// Package elevation resolves an observer's ground elevation from coordinates.
package elevation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/goccy/go-json"
)

const defaultLookupURL = "https://api.open-elevation.com/api/v1/lookup"

// ErrNoResult is returned when the service answers without a usable value.
var ErrNoResult = errors.New("elevation service returned no result")

// Getter performs an HTTP GET. Implemented by httputil.Client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// KV persists looked-up elevations. Implemented by kvstore.Store.
type KV interface {
	Get(key string, v any) (bool, error)
	Put(key string, v any, ttl time.Duration) error
}

// Static always answers with a fixed elevation. Used when the observer's
// elevation is configured explicitly.
type Static float64

// Elevation returns the configured value.
func (s Static) Elevation(context.Context, float64, float64) (float64, error) {
	return float64(s), nil
}

// Client queries an Open-Elevation compatible API.
type Client struct {
	baseURL string
	http    Getter
	kv      KV
	logger  *slog.Logger
}

// NewClient creates an elevation client. kv may be nil to disable caching.
func NewClient(baseURL string, getter Getter, kv KV, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultLookupURL
	}
	return &Client{
		baseURL: baseURL,
		http:    getter,
		kv:      kv,
		logger:  logger.With("component", "elevation"),
	}
}

type lookupResponse struct {
	Results []struct {
		Latitude  float64  `json:"latitude"`
		Longitude float64  `json:"longitude"`
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

type cachedElevation struct {
	Meters float64 `json:"meters"`
}

// cacheKey rounds to 4 decimals (~11 m), well inside terrain resolution.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("elev:%.4f,%.4f", lat, lon)
}

// Elevation returns the ground elevation in meters at (lat, lon).
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	key := cacheKey(lat, lon)
	if c.kv != nil {
		var cached cachedElevation
		ok, err := c.kv.Get(key, &cached)
		if err != nil {
			c.logger.Warn("elevation cache read failed", "error", err)
		} else if ok {
			return cached.Meters, nil
		}
	}

	url := fmt.Sprintf("%s?locations=%.6f,%.6f", c.baseURL, lat, lon)
	body, err := c.http.Get(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("elevation lookup: %w", err)
	}

	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decoding elevation response: %w", err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Elevation == nil {
		return 0, ErrNoResult
	}
	meters := *resp.Results[0].Elevation
	if math.IsNaN(meters) || meters < -500 || meters > 9000 {
		return 0, fmt.Errorf("implausible elevation %.1f m: %w", meters, ErrNoResult)
	}

	if c.kv != nil {
		// Terrain does not change: no TTL.
		if err := c.kv.Put(key, cachedElevation{Meters: meters}, 0); err != nil {
			c.logger.Warn("elevation cache write failed", "error", err)
		}
	}

	c.logger.Info("elevation resolved", "lat", lat, "lon", lon, "meters", meters)
	return meters, nil
}
