package sim

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/render"
)

// GraphProvider hands out shared, read-only graphs. *connectivity.Cache
// implements it.
type GraphProvider interface {
	Graph(ctx context.Context, scanID string) (*connectivity.Graph, error)
}

// Options configures a Simulator.
// Use functional options (WithXxx) to set these values.
type Options struct {
	// ConnectivityDir is where <scan>_connectivity.json files live. Used
	// only when Graphs is nil.
	ConnectivityDir string

	// Graphs overrides the process-wide cache for ConnectivityDir.
	Graphs GraphProvider

	// Renderer produces frames while rendering is enabled.
	Renderer render.Renderer

	Logger *slog.Logger
}

// Option is a functional option for configuring a Simulator.
type Option func(*Options)

// WithConnectivityDir sets the directory graphs are loaded from.
func WithConnectivityDir(dir string) Option {
	return func(o *Options) {
		o.ConnectivityDir = dir
	}
}

// WithGraphs sets the graph provider.
func WithGraphs(p GraphProvider) Option {
	return func(o *Options) {
		o.Graphs = p
	}
}

// WithRenderer sets the frame renderer.
func WithRenderer(r render.Renderer) Option {
	return func(o *Options) {
		o.Renderer = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// DefaultOptions reads graphs from ./connectivity and renders blank frames.
func DefaultOptions() *Options {
	return &Options{
		ConnectivityDir: "connectivity",
		Renderer:        render.Blank{},
		Logger:          log.Component("sim"),
	}
}

// Apply applies functional options.
func (o *Options) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

func (o *Options) graphs() GraphProvider {
	if o.Graphs != nil {
		return o.Graphs
	}
	return connectivity.SharedCache(o.ConnectivityDir)
}
