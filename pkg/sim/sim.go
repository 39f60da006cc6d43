// Package sim runs navigation episodes: it places an agent at a viewpoint of
// a scan, reports what the agent sees and where it can go, and applies its
// actions.
//
// A Simulator is not safe for concurrent use; callers serialize access.
// Graphs are shared read-only between simulators.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/geom"
	"github.com/teslashibe/go-mattersim/pkg/navigability"
	"github.com/teslashibe/go-mattersim/pkg/render"
)

// seedStream is the second PCG word; only the seed varies between runs.
const seedStream = 0x6d61747465727369

// episode is the mutable part of an active run.
type episode struct {
	graph   *connectivity.Graph
	current int // arena index into graph
	step    int
	pose    camera.State
}

// Simulator is a single agent moving through scans.
type Simulator struct {
	opts   *Options
	graphs GraphProvider
	logger *slog.Logger

	camera *camera.Manager
	cfg    camera.Config // frozen by Init

	seed int64
	rng  *rand.Rand

	lifecycle Lifecycle
	ep        *episode
}

// New creates an uninitialized simulator.
func New(opts ...Option) *Simulator {
	o := DefaultOptions()
	o.Apply(opts...)
	if o.Renderer == nil {
		o.Renderer = render.Blank{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return &Simulator{
		opts:   o,
		logger: o.Logger,
		camera: camera.NewManager(),
	}
}

// Lifecycle returns the current lifecycle state.
func (s *Simulator) Lifecycle() Lifecycle {
	return s.lifecycle
}

// CameraConfig returns the camera configuration. It is fixed once Init
// succeeds.
func (s *Simulator) CameraConfig() camera.Config {
	if s.lifecycle == Uninitialized {
		return s.camera.GetConfig()
	}
	return s.cfg
}

// Seed returns the spawn seed.
func (s *Simulator) Seed() int64 {
	return s.seed
}

func (s *Simulator) configurable(op string) error {
	if s.lifecycle != Uninitialized {
		return fmt.Errorf("%w: %s after init (state %s)", ErrInvalidState, op, s.lifecycle)
	}
	return nil
}

func (s *Simulator) setCamera(op string, set func() error) error {
	if err := s.configurable(op); err != nil {
		return err
	}
	if err := set(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, op, err)
	}
	return nil
}

// SetCameraResolution sets the frame size in pixels.
func (s *Simulator) SetCameraResolution(width, height int) error {
	return s.setCamera("set resolution", func() error {
		return s.camera.SetResolution(width, height)
	})
}

// SetCameraFOV sets the vertical field of view in degrees, in (0, 180).
// The horizontal field of view follows from the aspect ratio.
func (s *Simulator) SetCameraFOV(degrees float64) error {
	return s.setCamera("set fov", func() error {
		return s.camera.SetFOVDegrees(degrees)
	})
}

// SetElevationLimits sets the elevation range in radians. min must not
// exceed max and both must lie in [-π/2, π/2].
func (s *Simulator) SetElevationLimits(min, max float64) error {
	return s.setCamera("set elevation limits", func() error {
		return s.camera.SetElevationLimits(min, max)
	})
}

// SetRenderingEnabled chooses between renderer frames and blank frames.
func (s *Simulator) SetRenderingEnabled(enabled bool) error {
	return s.setCamera("set rendering", func() error {
		return s.camera.SetRenderingEnabled(enabled)
	})
}

// SetCameraConfig replaces the whole camera configuration, e.g. from a preset.
func (s *Simulator) SetCameraConfig(cfg camera.Config) error {
	return s.setCamera("set camera config", func() error {
		return s.camera.SetConfig(cfg)
	})
}

// SetSeed sets the seed used to pick spawn viewpoints.
func (s *Simulator) SetSeed(seed int64) error {
	if err := s.configurable("set seed"); err != nil {
		return err
	}
	s.seed = seed
	return nil
}

// Init freezes the configuration. Episodes can start afterwards.
func (s *Simulator) Init() error {
	if err := s.configurable("init"); err != nil {
		return err
	}

	cfg, err := s.camera.Freeze()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	s.cfg = cfg
	s.graphs = s.opts.graphs()
	s.rng = rand.New(rand.NewPCG(uint64(s.seed), seedStream))
	s.lifecycle = Initialized

	s.logger.Info("simulator initialized",
		"width", cfg.Width,
		"height", cfg.Height,
		"vfov_deg", geom.Degrees(cfg.VFOV),
		"hfov_deg", geom.Degrees(cfg.HFOV()),
		"rendering", cfg.RenderingEnabled,
		"seed", s.seed)
	return nil
}

// NewEpisode starts an episode in a scan. An empty viewpointID spawns at an
// included viewpoint chosen from the seed. The heading is normalized and the
// elevation clamped. If loading fails the previous episode, if any, is kept.
func (s *Simulator) NewEpisode(ctx context.Context, scanID, viewpointID string, heading, elevation float64) error {
	if s.lifecycle != Initialized && s.lifecycle != EpisodeActive {
		return fmt.Errorf("%w: new episode in state %s", ErrInvalidState, s.lifecycle)
	}
	if err := checkAngles("heading", heading, "elevation", elevation); err != nil {
		return err
	}

	g, err := s.graphs.Graph(ctx, scanID)
	if err != nil {
		return fmt.Errorf("load scan %s: %w", scanID, err)
	}

	cur, err := s.spawn(g, viewpointID)
	if err != nil {
		return err
	}

	s.ep = &episode{
		graph:   g,
		current: cur,
		pose:    camera.NewState(s.cfg, heading, elevation),
	}
	s.lifecycle = EpisodeActive

	s.logger.Info("episode started",
		"scan", scanID,
		"viewpoint", g.At(cur).ID,
		"heading_deg", geom.Degrees(s.ep.pose.Heading),
		"elevation_deg", geom.Degrees(s.ep.pose.Elevation))
	return nil
}

func (s *Simulator) spawn(g *connectivity.Graph, viewpointID string) (int, error) {
	if viewpointID == "" {
		included := g.IncludedIndices()
		if len(included) == 0 {
			return 0, fmt.Errorf("%w: scan %s has no included viewpoints", ErrInvalidViewpoint, g.ScanID())
		}
		return included[s.rng.IntN(len(included))], nil
	}

	idx, ok := g.Index(viewpointID)
	if !ok {
		return 0, fmt.Errorf("%w: %s not in scan %s", ErrInvalidViewpoint, viewpointID, g.ScanID())
	}
	if !g.At(idx).Included {
		return 0, fmt.Errorf("%w: %s is excluded", ErrInvalidViewpoint, viewpointID)
	}
	return idx, nil
}

// checkAngles rejects NaN and infinite values, given as name/value pairs.
func checkAngles(a string, av float64, b string, bv float64) error {
	for _, v := range []struct {
		name string
		val  float64
	}{{a, av}, {b, bv}} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidArgument, v.name, v.val)
		}
	}
	return nil
}

// active returns the running episode after checking it against its graph.
// An inconsistent episode is aborted.
func (s *Simulator) active(op string) (*episode, error) {
	if s.lifecycle != EpisodeActive {
		return nil, fmt.Errorf("%w: %s in state %s", ErrInvalidState, op, s.lifecycle)
	}
	ep := s.ep
	if ep.current < 0 || ep.current >= ep.graph.Len() || !ep.graph.At(ep.current).Included {
		s.abort(ep)
		return nil, fmt.Errorf("%w: current viewpoint %d of scan %s",
			connectivity.ErrUnknownViewpoint, ep.current, ep.graph.ScanID())
	}
	return ep, nil
}

func (s *Simulator) abort(ep *episode) {
	s.logger.Error("episode aborted: graph inconsistency",
		"scan", ep.graph.ScanID(),
		"index", ep.current,
		"step", ep.step)
	s.ep = nil
	s.lifecycle = Initialized
}

func (s *Simulator) navigable(ep *episode) ([]int, error) {
	nav, err := navigability.Locations(ep.graph, navigability.Query{
		Current: ep.graph.At(ep.current).ID,
		Heading: ep.pose.Heading,
		HFOV:    s.cfg.HFOV(),
	})
	if err != nil {
		s.abort(ep)
		return nil, fmt.Errorf("%w: %v", connectivity.ErrUnknownViewpoint, err)
	}
	return nav, nil
}

// GetState returns a snapshot of the episode, including the rendered frame.
// It does not change the simulator.
func (s *Simulator) GetState(ctx context.Context) (*SimState, error) {
	ep, err := s.active("get state")
	if err != nil {
		return nil, err
	}

	nav, err := s.navigable(ep)
	if err != nil {
		return nil, err
	}

	g := ep.graph
	state := &SimState{
		ScanID:             g.ScanID(),
		Step:               ep.step,
		Heading:            ep.pose.Heading,
		Elevation:          ep.pose.Elevation,
		Location:           g.At(ep.current),
		NavigableLocations: navigability.Viewpoints(g, nav),
	}

	frame, err := s.render(ctx, ep)
	if err != nil {
		return nil, err
	}
	state.RGB = frame
	return state, nil
}

func (s *Simulator) render(ctx context.Context, ep *episode) (*render.Frame, error) {
	req := render.Request{
		ScanID:      ep.graph.ScanID(),
		ViewpointID: ep.graph.At(ep.current).ID,
		Heading:     ep.pose.Heading,
		Elevation:   ep.pose.Elevation,
		VFOV:        s.cfg.VFOV,
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
	}

	var r render.Renderer = render.Blank{}
	if s.cfg.RenderingEnabled {
		r = s.opts.Renderer
	}

	frame, err := r.Render(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("render %s/%s: %w", req.ScanID, req.ViewpointID, err)
	}
	if err := frame.Check(req); err != nil {
		return nil, err
	}
	return frame, nil
}

// MakeAction moves to the index-th navigable location and turns the camera.
// The action set is the one GetState reports for the current pose. Heading
// is normalized, elevation clamped, and the step counter advances by one for
// every accepted action, including staying put.
func (s *Simulator) MakeAction(index int, dHeading, dElevation float64) error {
	ep, err := s.active("make action")
	if err != nil {
		return err
	}
	if err := checkAngles("heading change", dHeading, "elevation change", dElevation); err != nil {
		return err
	}

	nav, err := s.navigable(ep)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(nav) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(nav))
	}

	from := ep.current
	ep.pose = ep.pose.Rotate(s.cfg, dHeading, dElevation)
	ep.current = nav[index]
	ep.step++

	s.logger.Debug("action",
		"step", ep.step,
		"from", ep.graph.At(from).ID,
		"to", ep.graph.At(ep.current).ID,
		"heading_deg", geom.Degrees(ep.pose.Heading),
		"elevation_deg", geom.Degrees(ep.pose.Elevation))
	return nil
}

// Close ends the simulator. No method is valid afterwards.
func (s *Simulator) Close() error {
	if s.lifecycle == Closed {
		return fmt.Errorf("%w: already closed", ErrInvalidState)
	}
	s.ep = nil
	s.lifecycle = Closed
	s.logger.Info("simulator closed")
	return nil
}
