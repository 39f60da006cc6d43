// Package navigability decides which viewpoints an agent can step to from
// where it stands, given which way the camera is facing.
package navigability

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/geom"
)

// ErrInvalidState is returned when the current viewpoint is not in the graph.
var ErrInvalidState = errors.New("current viewpoint not in graph")

// Query is the pose the action set is computed for.
type Query struct {
	Current string  // current viewpoint id
	Heading float64 // radians, any range
	HFOV    float64 // horizontal field of view, radians
}

// Locations returns the viewpoints reachable from q.Current, as arena
// indices. Index 0 is always the current viewpoint (the "stay" action); the
// rest follow graph order. Elevation plays no part.
func Locations(g *connectivity.Graph, q Query) ([]int, error) {
	cur, ok := g.Index(q.Current)
	if !ok {
		return nil, fmt.Errorf("%w: %s in scan %s", ErrInvalidState, q.Current, g.ScanID())
	}
	return LocationsAt(g, cur, q.Heading, q.HFOV), nil
}

// LocationsAt is Locations by arena index. cur must be a valid index.
func LocationsAt(g *connectivity.Graph, cur int, heading, hfov float64) []int {
	heading = geom.NormalizeHeading(heading)
	from := g.At(cur).Position

	out := []int{cur}
	for i := 0; i < g.Len(); i++ {
		if i == cur {
			continue
		}
		if !g.UnobstructedAt(cur, i) {
			continue
		}
		vp := g.At(i)
		if !vp.Included {
			continue
		}
		if geom.WithinHalfFOV(heading, geom.Bearing(from, vp.Position), hfov) {
			out = append(out, i)
		}
	}
	return out
}

// Viewpoints resolves indices returned by Locations or LocationsAt.
func Viewpoints(g *connectivity.Graph, idx []int) []connectivity.Viewpoint {
	out := make([]connectivity.Viewpoint, len(idx))
	for k, i := range idx {
		out[k] = g.At(i)
	}
	return out
}
