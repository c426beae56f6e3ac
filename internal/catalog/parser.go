package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML layout.
type catalogFile struct {
	Objects []rawObject `yaml:"objects"`
}

type rawObject struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	RA            string   `yaml:"ra"`  // h:m:s or decimal hours
	Dec           string   `yaml:"dec"` // ±d:m:s or decimal degrees
	Type          string   `yaml:"type"`
	Constellation string   `yaml:"constellation"`
	Magnitude     *float64 `yaml:"magnitude"`
}

// Parse reads a YAML catalog from r. Malformed entries are skipped with a
// warning log; a document that cannot be decoded at all is an error.
func Parse(r io.Reader, source string, logger *slog.Logger) (*Catalog, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", source, err)
	}

	objects := make([]Object, 0, len(file.Objects))
	seen := make(map[string]bool, len(file.Objects))
	for i, raw := range file.Objects {
		obj, err := raw.toObject()
		if err != nil {
			logger.Warn("skipping malformed catalog entry", "source", source, "index", i, "id", raw.ID, "error", err)
			continue
		}
		key := NormalizeID(obj.ID)
		if seen[key] {
			logger.Warn("skipping duplicate catalog entry", "source", source, "id", obj.ID)
			continue
		}
		seen[key] = true
		objects = append(objects, obj)
	}

	if len(objects) == 0 {
		return nil, fmt.Errorf("catalog %s contains no valid objects", source)
	}
	return newCatalog(source, objects), nil
}

func (r rawObject) toObject() (Object, error) {
	if strings.TrimSpace(r.ID) == "" {
		return Object{}, fmt.Errorf("missing id")
	}

	raHours, err := parseSexagesimal(r.RA)
	if err != nil {
		return Object{}, fmt.Errorf("ra: %w", err)
	}
	if raHours < 0 || raHours >= 24 {
		return Object{}, fmt.Errorf("ra %q out of range [0h, 24h)", r.RA)
	}

	dec, err := parseSexagesimal(r.Dec)
	if err != nil {
		return Object{}, fmt.Errorf("dec: %w", err)
	}
	if dec < -90 || dec > 90 {
		return Object{}, fmt.Errorf("dec %q out of range [-90, 90]", r.Dec)
	}

	typ := ObjectType(strings.ToLower(strings.TrimSpace(r.Type)))
	if typ == "" {
		typ = TypeUnknown
	}

	return Object{
		ID:            strings.TrimSpace(r.ID),
		Name:          strings.TrimSpace(r.Name),
		RADeg:         raHours * 15.0,
		DecDeg:        dec,
		Type:          typ,
		Constellation: r.Constellation,
		Magnitude:     r.Magnitude,
	}, nil
}

// parseSexagesimal parses "±a:b:c", "±a b c" or a plain decimal into a
// decimal value in the unit of the leading field.
func parseSexagesimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		s = s[1:]
	}

	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == ' ' })
	if len(fields) == 0 || len(fields) > 3 {
		return 0, fmt.Errorf("invalid sexagesimal %q", s)
	}

	var v float64
	scale := 1.0
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid component %q: %w", f, err)
		}
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) || (i > 0 && x >= 60) {
			return 0, fmt.Errorf("component %q out of range", f)
		}
		v += x / scale
		scale *= 60
	}
	return sign * v, nil
}
