package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/star/skytonight/internal/transform"
)

// ErrNotFound is returned when a designation is neither in the catalog nor
// resolvable remotely.
var ErrNotFound = errors.New("object not found")

// ObjectType classifies a deep-sky object.
type ObjectType string

const (
	TypeGalaxy           ObjectType = "galaxy"
	TypeGlobularCluster  ObjectType = "globular_cluster"
	TypeOpenCluster      ObjectType = "open_cluster"
	TypeEmissionNebula   ObjectType = "emission_nebula"
	TypeReflectionNebula ObjectType = "reflection_nebula"
	TypePlanetaryNebula  ObjectType = "planetary_nebula"
	TypeSupernovaRemnant ObjectType = "supernova_remnant"
	TypeStarCloud        ObjectType = "star_cloud"
	TypeDoubleStar       ObjectType = "double_star"
	TypeAsterism         ObjectType = "asterism"
	TypeStar             ObjectType = "star"
	TypePlanet           ObjectType = "planet"
	TypeMoon             ObjectType = "moon"
	TypeUnknown          ObjectType = "unknown"
)

// Object is a single catalog entry with a fixed J2000 position.
type Object struct {
	ID            string     `json:"id"`
	Name          string     `json:"name,omitempty"`
	RADeg         float64    `json:"ra_deg"`
	DecDeg        float64    `json:"dec_deg"`
	Type          ObjectType `json:"type"`
	Constellation string     `json:"constellation,omitempty"`
	Magnitude     *float64   `json:"magnitude,omitempty"`
}

// Position returns the object's sidereal equatorial position.
func (o Object) Position() transform.Equatorial {
	return transform.Equatorial{RADeg: o.RADeg, DecDeg: o.DecDeg}
}

// Metadata is the descriptive information attached to a visible object.
type Metadata struct {
	Type       ObjectType `json:"type"`
	Filters    []string   `json:"filters,omitempty"`
	Difficulty string     `json:"difficulty"`
	FinderLink string     `json:"finder_link,omitempty"`
}

// FilterHint returns the suggested filters as a single display string.
func (m Metadata) FilterHint() string {
	if len(m.Filters) == 0 {
		return "none"
	}
	return strings.Join(m.Filters, "/")
}

// Catalog is an immutable, indexed set of objects.
type Catalog struct {
	Source   string
	LoadedAt time.Time
	Objects  []Object
	index    map[string]int // normalized id or name → position in Objects
}

// NormalizeID canonicalizes a designation for lookup: lower case, no
// whitespace, "messier" shortened to "m". "M 31", "Messier 31" and "m31" all
// map to "m31".
func NormalizeID(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if rest, ok := strings.CutPrefix(s, "messier"); ok {
		s = "m" + rest
	}
	return s
}

// newCatalog builds the lookup index. Later objects win on key collisions.
func newCatalog(source string, objects []Object) *Catalog {
	c := &Catalog{
		Source:   source,
		LoadedAt: time.Now(),
		Objects:  objects,
		index:    make(map[string]int, 2*len(objects)),
	}
	for i, o := range objects {
		if o.Name != "" {
			c.index[NormalizeID(o.Name)] = i
		}
	}
	for i, o := range objects {
		c.index[NormalizeID(o.ID)] = i
	}
	return c
}

// Lookup finds an object by designation or common name.
func (c *Catalog) Lookup(name string) (Object, bool) {
	if c == nil {
		return Object{}, false
	}
	i, ok := c.index[NormalizeID(name)]
	if !ok {
		return Object{}, false
	}
	return c.Objects[i], true
}

// Merge returns a new catalog containing c's objects followed by extra.
// Objects in extra replace same-id objects in c.
func (c *Catalog) Merge(extra *Catalog) *Catalog {
	if extra == nil || len(extra.Objects) == 0 {
		return c
	}
	replaced := make(map[string]bool, len(extra.Objects))
	for _, o := range extra.Objects {
		replaced[NormalizeID(o.ID)] = true
	}

	objects := make([]Object, 0, len(c.Objects)+len(extra.Objects))
	for _, o := range c.Objects {
		if !replaced[NormalizeID(o.ID)] {
			objects = append(objects, o)
		}
	}
	objects = append(objects, extra.Objects...)
	return newCatalog(c.Source+"+"+extra.Source, objects)
}
