package camera

import "github.com/teslashibe/go-mattersim/pkg/geom"

// State is the agent's camera pose.
type State struct {
	Heading   float64 `json:"heading"`   // radians in [0, 2π), clockwise from +y
	Elevation float64 `json:"elevation"` // radians, within the configured limits
}

// NewState normalizes the heading and clamps the elevation.
func NewState(cfg Config, heading, elevation float64) State {
	return State{
		Heading:   geom.NormalizeHeading(heading),
		Elevation: cfg.ClampElevation(elevation),
	}
}

// Rotate applies heading and elevation deltas.
func (s State) Rotate(cfg Config, dHeading, dElevation float64) State {
	return NewState(cfg, s.Heading+dHeading, s.Elevation+dElevation)
}
