package sim

import (
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/render"
)

// Lifecycle is the simulator's position in Uninitialized → Initialized →
// EpisodeActive → Closed.
type Lifecycle int

const (
	Uninitialized Lifecycle = iota
	Initialized
	EpisodeActive
	Closed
)

func (l Lifecycle) String() string {
	switch l {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case EpisodeActive:
		return "episode_active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// SimState is a snapshot of the agent. Each GetState call returns a fresh
// value that later actions never modify.
type SimState struct {
	ScanID    string  `json:"scan_id"`
	Step      int     `json:"step"`
	Heading   float64 `json:"heading"`   // radians in [0, 2π)
	Elevation float64 `json:"elevation"` // radians

	Location connectivity.Viewpoint `json:"location"`

	// NavigableLocations lists the valid action targets. Index 0 is the
	// current viewpoint.
	NavigableLocations []connectivity.Viewpoint `json:"navigable_locations"`

	RGB *render.Frame `json:"rgb,omitempty"`
}

// NavigableIDs returns the viewpoint ids of the action set, in order.
func (s *SimState) NavigableIDs() []string {
	ids := make([]string, len(s.NavigableLocations))
	for i, vp := range s.NavigableLocations {
		ids[i] = vp.ID
	}
	return ids
}
