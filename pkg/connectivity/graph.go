// Package connectivity holds the per-scan navigation graph: viewpoints, their
// positions, which ones are usable, and which pairs have a clear line between
// them.
//
// A Graph is built once and never mutated, so any number of simulators may
// read it concurrently without locking.
package connectivity

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrUnknownViewpoint is returned when a viewpoint id is not in the graph.
	ErrUnknownViewpoint = errors.New("unknown viewpoint")

	// ErrIOFailure is returned when a graph cannot be read or is malformed.
	ErrIOFailure = errors.New("connectivity io failure")
)

// poseLen is the length of a row-major 4x4 camera pose.
const poseLen = 16

// Record is one viewpoint entry as stored in a scan's connectivity file.
type Record struct {
	ImageID      string    `json:"image_id"`
	Included     bool      `json:"included"`
	Pose         []float64 `json:"pose"`         // row-major 4x4, translation at 3, 7, 11
	Unobstructed []bool    `json:"unobstructed"` // aligned with record order
}

// Position extracts the translation column of the pose.
func (r Record) Position() r3.Vec {
	return r3.Vec{X: r.Pose[3], Y: r.Pose[7], Z: r.Pose[11]}
}

// Viewpoint is a single node of the graph.
type Viewpoint struct {
	ID       string `json:"viewpoint_id"`
	Index    int    `json:"index"`
	Position r3.Vec `json:"position"`
	Included bool   `json:"included"`
}

// Graph is the immutable connectivity graph of one scan.
// Viewpoints live in an arena; everything else refers to them by index.
type Graph struct {
	scanID       string
	viewpoints   []Viewpoint
	index        map[string]int
	unobstructed []bool // n*n, row = from, column = to
}

// NewGraph validates the records of a scan and builds its graph.
// Record order is preserved and becomes the graph iteration order.
func NewGraph(scanID string, records []Record) (*Graph, error) {
	n := len(records)
	g := &Graph{
		scanID:       scanID,
		viewpoints:   make([]Viewpoint, n),
		index:        make(map[string]int, n),
		unobstructed: make([]bool, n*n),
	}

	for i, rec := range records {
		if rec.ImageID == "" {
			return nil, fmt.Errorf("%w: scan %s record %d has no image_id", ErrIOFailure, scanID, i)
		}
		if _, dup := g.index[rec.ImageID]; dup {
			return nil, fmt.Errorf("%w: scan %s has duplicate viewpoint %s", ErrIOFailure, scanID, rec.ImageID)
		}
		if len(rec.Pose) != poseLen {
			return nil, fmt.Errorf("%w: scan %s viewpoint %s pose has %d values, want %d",
				ErrIOFailure, scanID, rec.ImageID, len(rec.Pose), poseLen)
		}
		if len(rec.Unobstructed) != n {
			return nil, fmt.Errorf("%w: scan %s viewpoint %s has %d unobstructed flags, want %d",
				ErrIOFailure, scanID, rec.ImageID, len(rec.Unobstructed), n)
		}

		g.index[rec.ImageID] = i
		g.viewpoints[i] = Viewpoint{
			ID:       rec.ImageID,
			Index:    i,
			Position: rec.Position(),
			Included: rec.Included,
		}
		copy(g.unobstructed[i*n:(i+1)*n], rec.Unobstructed)
		// A viewpoint always sees itself, whatever the file says.
		g.unobstructed[i*n+i] = true
	}

	return g, nil
}

// ScanID returns the scan this graph belongs to.
func (g *Graph) ScanID() string {
	return g.scanID
}

// Len returns the number of viewpoints.
func (g *Graph) Len() int {
	return len(g.viewpoints)
}

// At returns the viewpoint stored at index i.
func (g *Graph) At(i int) Viewpoint {
	return g.viewpoints[i]
}

// Viewpoints returns a copy of all viewpoints in graph order.
func (g *Graph) Viewpoints() []Viewpoint {
	out := make([]Viewpoint, len(g.viewpoints))
	copy(out, g.viewpoints)
	return out
}

// Index returns the arena index of a viewpoint id.
func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Lookup returns the viewpoint with the given id.
func (g *Graph) Lookup(id string) (Viewpoint, error) {
	i, ok := g.index[id]
	if !ok {
		return Viewpoint{}, fmt.Errorf("%w: %s in scan %s", ErrUnknownViewpoint, id, g.scanID)
	}
	return g.viewpoints[i], nil
}

// PositionOf returns the position of a viewpoint.
func (g *Graph) PositionOf(id string) (r3.Vec, error) {
	vp, err := g.Lookup(id)
	if err != nil {
		return r3.Vec{}, err
	}
	return vp.Position, nil
}

// IsUnobstructed reports whether the straight line from a to b is clear.
// Unknown ids are treated as obstructed.
func (g *Graph) IsUnobstructed(a, b string) bool {
	i, ok := g.index[a]
	if !ok {
		return false
	}
	j, ok := g.index[b]
	if !ok {
		return false
	}
	return g.UnobstructedAt(i, j)
}

// UnobstructedAt is IsUnobstructed by arena index.
func (g *Graph) UnobstructedAt(i, j int) bool {
	return g.unobstructed[i*len(g.viewpoints)+j]
}

// IsIncluded reports whether a viewpoint is part of the usable set.
// Unknown ids are not included.
func (g *Graph) IsIncluded(id string) bool {
	i, ok := g.index[id]
	return ok && g.viewpoints[i].Included
}

// IncludedIndices returns the arena indices of all included viewpoints,
// in graph order.
func (g *Graph) IncludedIndices() []int {
	var out []int
	for i, vp := range g.viewpoints {
		if vp.Included {
			out = append(out, i)
		}
	}
	return out
}

// Records converts the graph back to its file representation.
// mattersim-import uses it to export stored graphs as connectivity files.
func (g *Graph) Records() []Record {
	n := len(g.viewpoints)
	out := make([]Record, n)
	for i, vp := range g.viewpoints {
		pose := make([]float64, poseLen)
		pose[0], pose[5], pose[10], pose[15] = 1, 1, 1, 1
		pose[3], pose[7], pose[11] = vp.Position.X, vp.Position.Y, vp.Position.Z

		flags := make([]bool, n)
		copy(flags, g.unobstructed[i*n:(i+1)*n])

		out[i] = Record{
			ImageID:      vp.ID,
			Included:     vp.Included,
			Pose:         pose,
			Unobstructed: flags,
		}
	}
	return out
}
