// Package connectivitytest builds small in-memory graphs for tests.
package connectivitytest

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/teslashibe/go-mattersim/pkg/connectivity"
)

// Builder accumulates viewpoints and obstruction flags.
// By default every pair is unobstructed and every viewpoint included.
type Builder struct {
	scanID  string
	records []connectivity.Record
	blocked map[[2]string]bool
}

// New starts a graph for a scan.
func New(scanID string) *Builder {
	return &Builder{
		scanID:  scanID,
		blocked: make(map[[2]string]bool),
	}
}

// Add appends an included viewpoint at (x, y, z).
func (b *Builder) Add(id string, x, y, z float64) *Builder {
	b.records = append(b.records, connectivity.Record{
		ImageID:  id,
		Included: true,
		Pose:     []float64{1, 0, 0, x, 0, 1, 0, y, 0, 0, 1, z, 0, 0, 0, 1},
	})
	return b
}

// Exclude marks a previously added viewpoint as excluded.
func (b *Builder) Exclude(id string) *Builder {
	for i := range b.records {
		if b.records[i].ImageID == id {
			b.records[i].Included = false
		}
	}
	return b
}

// Block marks the pair as obstructed in both directions.
func (b *Builder) Block(from, to string) *Builder {
	b.blocked[[2]string{from, to}] = true
	b.blocked[[2]string{to, from}] = true
	return b
}

// Records returns the file representation of the graph.
func (b *Builder) Records() []connectivity.Record {
	out := make([]connectivity.Record, len(b.records))
	for i, rec := range b.records {
		flags := make([]bool, len(b.records))
		for j, other := range b.records {
			flags[j] = !b.blocked[[2]string{rec.ImageID, other.ImageID}]
		}
		rec.Unobstructed = flags
		out[i] = rec
	}
	return out
}

// Graph builds the graph or panics; fixtures are expected to be valid.
func (b *Builder) Graph() *connectivity.Graph {
	g, err := connectivity.NewGraph(b.scanID, b.Records())
	if err != nil {
		panic(fmt.Sprintf("connectivitytest: %v", err))
	}
	return g
}

// Source serves a fixed set of graphs and counts loads.
type Source struct {
	Graphs map[string]*connectivity.Graph
	Err    error
	// Gate, when set, holds every load until it is closed.
	Gate   chan struct{}
	loads  atomic.Int64
}

// NewSource creates a source serving the given graphs.
func NewSource(graphs ...*connectivity.Graph) *Source {
	s := &Source{Graphs: make(map[string]*connectivity.Graph)}
	for _, g := range graphs {
		s.Graphs[g.ScanID()] = g
	}
	return s
}

// LoadGraph implements connectivity.Source.
func (s *Source) LoadGraph(ctx context.Context, scanID string) (*connectivity.Graph, error) {
	s.loads.Add(1)
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	g, ok := s.Graphs[scanID]
	if !ok {
		return nil, fmt.Errorf("%w: no scan %s", connectivity.ErrIOFailure, scanID)
	}
	return g, nil
}

// Loads returns how many times LoadGraph was called.
func (s *Source) Loads() int64 {
	return s.loads.Load()
}
