package submerge

import (
	"fmt"
	"strings"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
)

// Strategy selects how the base image and the elevation model are matched.
type Strategy int

const (
	// Geographic matches both inputs through their geographic coordinates.
	Geographic Strategy = iota
	// Projected matches both inputs through projected coordinates.
	Projected
	// SIFT matches image features with SIFT descriptors.
	SIFT
	// SURF matches image features with SURF descriptors.
	SURF
)

var strategyNames = map[Strategy]string{
	Geographic: "geographic",
	Projected:  "projected",
	SIFT:       "sift",
	SURF:       "surf",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy reads one of "geographic", "projected", "sift" or "surf".
func ParseStrategy(s string) (Strategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for strategy, name := range strategyNames {
		if name == s {
			return strategy, nil
		}
	}
	return 0, fmt.Errorf("unknown alignment strategy %q", s)
}

// requires is the coordinate system class both inputs must be in.
// Feature based strategies have no such requirement.
func (s Strategy) requires() (georef.Kind, bool) {
	switch s {
	case Geographic:
		return georef.Geographic, true
	case Projected:
		return georef.Projected, true
	}
	return georef.KindUnknown, false
}

// check parses the spatial references of both layers and makes sure they
// satisfy the strategy. Only the geographic strategy can run.
func (s Strategy) check(base, dem *layer.Layer) error {
	kind, constrained := s.requires()

	for _, l := range []*layer.Layer{base, dem} {
		sr, err := georef.ParseSpatialRef(l.SRS)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCRSParse, l.ID, err)
		}

		if constrained && sr.Kind() != kind {
			return fmt.Errorf("%w: %s strategy needs %s inputs, %s is %s", ErrUnsupportedCoordinateSystem, s, kind, l.ID, sr.Kind())
		}
	}

	if s != Geographic {
		return fmt.Errorf("%w: %s", ErrNotImplemented, s)
	}

	return nil
}
