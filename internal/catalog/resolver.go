package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultSesameURL = "https://cds.unistra.fr/cgi-bin/nph-sesame/-oI/A?"

// Getter performs an HTTP GET. Implemented by httputil.Client.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// KV persists resolved positions. Implemented by kvstore.Store.
type KV interface {
	Get(key string, v any) (bool, error)
	Put(key string, v any, ttl time.Duration) error
}

// Resolver looks up designations outside the local catalog with the CDS
// Sesame name resolver (SIMBAD, NED, VizieR).
type Resolver struct {
	baseURL string
	client  Getter
	kv      KV
	ttl     time.Duration
	logger  *slog.Logger
}

// NewResolver creates a Sesame resolver. kv may be nil to disable caching.
func NewResolver(baseURL string, client Getter, kv KV, ttl time.Duration, logger *slog.Logger) *Resolver {
	if baseURL == "" {
		baseURL = defaultSesameURL
	}
	return &Resolver{
		baseURL: baseURL,
		client:  client,
		kv:      kv,
		ttl:     ttl,
		logger:  logger.With("component", "resolver"),
	}
}

// negativeEntry marks a name Sesame could not resolve.
type negativeEntry struct {
	NotFound bool `json:"not_found"`
}

// Resolve returns the position of name. Results, including misses, are
// cached in the KV store.
func (r *Resolver) Resolve(ctx context.Context, name string) (Object, error) {
	key := "sesame:" + NormalizeID(name)

	if r.kv != nil {
		var cached Object
		if ok, err := r.kv.Get(key, &cached); err != nil {
			r.logger.Warn("resolver cache read failed", "name", name, "error", err)
		} else if ok {
			if cached.ID == "" {
				return Object{}, fmt.Errorf("%w: %q (cached)", ErrNotFound, name)
			}
			return cached, nil
		}
	}

	body, err := r.client.Get(ctx, r.baseURL+url.PathEscape(name))
	if err != nil {
		return Object{}, fmt.Errorf("sesame lookup %q: %w", name, err)
	}

	obj, err := parseSesame(body, name)
	if err != nil {
		r.store(key, negativeEntry{NotFound: true})
		return Object{}, err
	}

	r.logger.Info("resolved remote object", "name", name, "ra_deg", obj.RADeg, "dec_deg", obj.DecDeg, "type", obj.Type)
	r.store(key, obj)
	return obj, nil
}

func (r *Resolver) store(key string, v any) {
	if r.kv == nil {
		return
	}
	if err := r.kv.Put(key, v, r.ttl); err != nil {
		r.logger.Warn("resolver cache write failed", "key", key, "error", err)
	}
}

// simbadTypes maps SIMBAD short object-type codes (Sesame %C.0 line).
var simbadTypes = map[string]ObjectType{
	"G":   TypeGalaxy,
	"GiG": TypeGalaxy,
	"GiC": TypeGalaxy,
	"SBG": TypeGalaxy,
	"Sy2": TypeGalaxy,
	"GlC": TypeGlobularCluster,
	"OpC": TypeOpenCluster,
	"Cl*": TypeOpenCluster,
	"HII": TypeEmissionNebula,
	"EmO": TypeEmissionNebula,
	"RNe": TypeReflectionNebula,
	"PN":  TypePlanetaryNebula,
	"SNR": TypeSupernovaRemnant,
	"**":  TypeDoubleStar,
	"*":   TypeStar,
	"As*": TypeAsterism,
	"ISM": TypeEmissionNebula,
	"Cld": TypeEmissionNebula,
}

// parseSesame extracts the J2000 position (%J), object type (%C.0) and V
// magnitude (%M.V) from Sesame -oI output.
func parseSesame(body []byte, name string) (Object, error) {
	obj := Object{ID: strings.TrimSpace(name), Type: TypeUnknown}
	var found bool

	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "%J ") && !found:
			f := strings.Fields(strings.TrimPrefix(line, "%J "))
			if len(f) < 2 {
				continue
			}
			ra, err1 := strconv.ParseFloat(f[0], 64)
			dec, err2 := strconv.ParseFloat(f[1], 64)
			if err1 != nil || err2 != nil {
				continue
			}
			obj.RADeg, obj.DecDeg = ra, dec
			found = true
		case strings.HasPrefix(line, "%C.0 "):
			if t, ok := simbadTypes[strings.TrimSpace(strings.TrimPrefix(line, "%C.0 "))]; ok {
				obj.Type = t
			}
		case strings.HasPrefix(line, "%M.V "):
			f := strings.Fields(strings.TrimPrefix(line, "%M.V "))
			if len(f) > 0 {
				if m, err := strconv.ParseFloat(f[0], 64); err == nil {
					obj.Magnitude = &m
				}
			}
		case strings.HasPrefix(line, "%I NAME ") && obj.Name == "":
			obj.Name = strings.TrimPrefix(line, "%I NAME ")
		}
	}
	if err := sc.Err(); err != nil {
		return Object{}, fmt.Errorf("reading sesame response: %w", err)
	}
	if !found {
		return Object{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := obj.Position().Validate(); err != nil {
		return Object{}, fmt.Errorf("sesame position for %q: %w", name, err)
	}
	return obj, nil
}
