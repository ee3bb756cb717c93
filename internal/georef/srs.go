package georef

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
)

// ErrEmptySpatialRef is returned when a raster carries no spatial reference.
var ErrEmptySpatialRef = errors.New("empty spatial reference")

// Kind is the class of a coordinate reference system.
type Kind int

const (
	KindUnknown Kind = iota
	Geographic
	Projected
	Geocentric
)

func (k Kind) String() string {
	switch k {
	case Geographic:
		return "geographic"
	case Projected:
		return "projected"
	case Geocentric:
		return "geocentric"
	default:
		return "unknown"
	}
}

// SpatialRef is a parsed coordinate reference system.
type SpatialRef struct {
	def string
	sr  *proj.SR
}

// ParseSpatialRef parses a WKT, PROJ.4 or "EPSG:<code>" definition.
func ParseSpatialRef(def string) (SpatialRef, error) {
	def = strings.TrimSpace(def)
	if def == "" {
		return SpatialRef{}, ErrEmptySpatialRef
	}

	resolved := def
	if code, ok := parseEPSGRef(def); ok {
		proj4, known := EPSGDefinition(code)
		if !known {
			return SpatialRef{}, fmt.Errorf("unknown EPSG code %d", code)
		}
		resolved = proj4
	}

	sr, err := proj.Parse(resolved)
	if err != nil {
		return SpatialRef{}, fmt.Errorf("parse spatial reference %q: %w", abbreviate(def), err)
	}

	return SpatialRef{def: resolved, sr: sr}, nil
}

// Name is the projection name, "longlat" for geographic systems.
func (s SpatialRef) Name() string {
	if s.sr == nil {
		return ""
	}
	return s.sr.Name
}

// Kind classifies the reference system.
func (s SpatialRef) Kind() Kind {
	switch strings.ToLower(s.Name()) {
	case "":
		return KindUnknown
	case "longlat", "latlong", "lonlat", "latlon":
		return Geographic
	case "geocent":
		return Geocentric
	default:
		return Projected
	}
}

// IsGeographic reports whether coordinates are longitude and latitude.
func (s SpatialRef) IsGeographic() bool {
	return s.Kind() == Geographic
}

// IsProjected reports whether coordinates are projected plane coordinates.
func (s SpatialRef) IsProjected() bool {
	return s.Kind() == Projected
}

// Definition returns the definition the reference was parsed from, with
// EPSG references already expanded.
func (s SpatialRef) Definition() string {
	return s.def
}

func (s SpatialRef) String() string {
	return fmt.Sprintf("%s (%s)", s.Name(), s.Kind())
}

func parseEPSGRef(def string) (int, bool) {
	upper := strings.ToUpper(def)
	if !strings.HasPrefix(upper, "EPSG:") {
		return 0, false
	}

	code, err := strconv.Atoi(strings.TrimSpace(def[len("EPSG:"):]))
	if err != nil {
		return 0, false
	}

	return code, true
}

func abbreviate(s string) string {
	if len(s) > 48 {
		return s[:45] + "..."
	}
	return s
}
