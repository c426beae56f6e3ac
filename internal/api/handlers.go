package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/star/skytonight/internal/cache"
	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/visibility"
)

// parseTonight builds a run request from query parameters. lat and lon are
// required; date defaults to today at the given offset.
func (s *Server) parseTonight(r *http.Request) (visibility.Request, error) {
	q := r.URL.Query()
	var req visibility.Request

	lat, err := parseFloat(q, "lat", true)
	if err != nil {
		return req, err
	}
	lon, err := parseFloat(q, "lon", true)
	if err != nil {
		return req, err
	}
	offset, err := parseFloat(q, "offset", false)
	if err != nil {
		return req, err
	}
	req.Observer = visibility.Observer{
		LatitudeDeg:    lat,
		LongitudeDeg:   lon,
		UTCOffsetHours: offset,
		Date:           strings.TrimSpace(q.Get("date")),
	}
	if req.Observer.Date == "" {
		req.Observer.Date = req.Observer.Today(s.now())
	}

	switch {
	case q.Has("elevation"):
		elev, err := parseFloat(q, "elevation", true)
		if err != nil {
			return req, err
		}
		req.Observer.ElevationM = elev
		req.FixedElevation = true
	case !s.deps.LookupElevation:
		req.FixedElevation = true
	}

	if raw := q.Get("targets"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				req.Targets = append(req.Targets, t)
			}
		}
	} else {
		req.Targets = s.deps.DefaultTargets
	}
	switch {
	case len(req.Targets) == 0:
		return req, errors.New("no targets given")
	case len(req.Targets) > s.cfg.MaxTargets:
		return req, fmt.Errorf("too many targets: %d > %d", len(req.Targets), s.cfg.MaxTargets)
	}
	return req, nil
}

func parseFloat(q map[string][]string, name string, required bool) (float64, error) {
	vals := q[name]
	if len(vals) == 0 || vals[0] == "" {
		if required {
			return 0, fmt.Errorf("missing %s parameter", name)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(vals[0], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", name, vals[0])
	}
	return v, nil
}

// runStatus maps a run error onto an HTTP status.
func runStatus(err error) int {
	switch {
	case errors.Is(err, visibility.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, visibility.ErrElevationUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleTonight(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseTonight(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := s.deps.Cache
	useCache := c != nil && c.Enabled()
	var key string
	if useCache {
		key = cache.Key(req)
		if report, ok := c.Get(key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, report)
			return
		}
	}

	report, err := s.deps.Engine.Run(r.Context(), req)
	if err != nil {
		status := runStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("run failed", "error", err, "request_id", r.Header.Get("X-Request-ID"))
			writeError(w, status, "internal error")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	if useCache {
		c.Put(key, report)
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, report)
}

type catalogResponse struct {
	Source  string           `json:"source"`
	Count   int              `json:"count"`
	Objects []catalog.Object `json:"objects"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.deps.Objects.Catalog()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
		return
	}

	typ := catalog.ObjectType(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))))
	objects := make([]catalog.Object, 0, len(cat.Objects))
	for _, o := range cat.Objects {
		if typ == "" || o.Type == typ {
			objects = append(objects, o)
		}
	}
	writeJSON(w, http.StatusOK, catalogResponse{Source: cat.Source, Count: len(objects), Objects: objects})
}

type objectResponse struct {
	catalog.Object
	Metadata catalog.Metadata `json:"metadata"`
}

func (s *Server) handleCatalogObject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	obj, err := s.deps.Objects.Find(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("object %q not found", id))
		return
	}
	if err != nil {
		s.logger.Warn("object lookup failed", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "object lookup failed")
		return
	}

	md, err := s.deps.Objects.Lookup(r.Context(), obj.ID)
	if err != nil {
		md = catalog.DeriveMetadata(obj)
	}
	writeJSON(w, http.StatusOK, objectResponse{Object: obj, Metadata: md})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cache == nil {
		writeError(w, http.StatusNotFound, "report cache disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Cache.Stats())
}
