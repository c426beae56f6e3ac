package catalog

import "net/url"

const simbadIdentURL = "https://simbad.cds.unistra.fr/simbad/sim-id?Ident="

// filtersByType are the suggested visual/imaging filters per object type.
// Types without an entry need no filter.
var filtersByType = map[ObjectType][]string{
	TypeEmissionNebula:   {"UHC", "H-alpha"},
	TypePlanetaryNebula:  {"OIII", "UHC"},
	TypeSupernovaRemnant: {"OIII", "H-alpha"},
	TypeGalaxy:           {"broadband"},
	TypeReflectionNebula: {"broadband"},
	TypeMoon:             {"ND"},
	TypeStar:             {"solar"},
}

// Difficulty grades by visual magnitude.
const (
	DifficultyEasy        = "easy"
	DifficultyModerate    = "moderate"
	DifficultyChallenging = "challenging"
	DifficultyUnknown     = "unknown"
)

func difficulty(mag *float64) string {
	switch {
	case mag == nil:
		return DifficultyUnknown
	case *mag <= 6.0:
		return DifficultyEasy
	case *mag <= 9.0:
		return DifficultyModerate
	default:
		return DifficultyChallenging
	}
}

// DeriveMetadata builds the descriptive metadata for a catalog object.
func DeriveMetadata(o Object) Metadata {
	return Metadata{
		Type:       o.Type,
		Filters:    filtersByType[o.Type],
		Difficulty: difficulty(o.Magnitude),
		FinderLink: simbadIdentURL + url.QueryEscape(o.ID),
	}
}

// bodyTypes classifies the solar-system bodies, which have no catalog entry.
var bodyTypes = map[string]ObjectType{
	"sun":     TypeStar,
	"moon":    TypeMoon,
	"mercury": TypePlanet,
	"venus":   TypePlanet,
	"mars":    TypePlanet,
	"jupiter": TypePlanet,
	"saturn":  TypePlanet,
	"uranus":  TypePlanet,
	"neptune": TypePlanet,
}

// bodyMetadata returns metadata for a solar-system body.
func bodyMetadata(name string) (Metadata, bool) {
	typ, ok := bodyTypes[name]
	if !ok {
		return Metadata{}, false
	}
	d := DifficultyEasy
	if name == "uranus" || name == "neptune" {
		d = DifficultyModerate
	}
	return Metadata{Type: typ, Filters: filtersByType[typ], Difficulty: d}, true
}
