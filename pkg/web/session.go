package web

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/hub"
	"github.com/teslashibe/go-mattersim/pkg/protocol"
	"github.com/teslashibe/go-mattersim/pkg/sim"
)

var (
	errNoSession    = errors.New("web: no such session")
	errTooMany      = errors.New("web: session limit reached")
	errBadRequest   = errors.New("web: bad request")
	errSessionEnded = errors.New("web: session closed")
)

// Session is one simulator plus the watchers of its stream.
// mu serializes every call into the simulator.
type Session struct {
	ID      string
	Created time.Time

	mu     sync.Mutex
	sim    *sim.Simulator
	closed bool

	hub    *hub.Hub
	cancel context.CancelFunc
}

// SessionInfo is the JSON view of a session.
type SessionInfo struct {
	ID        string                 `json:"id"`
	Created   time.Time              `json:"created"`
	Lifecycle string                 `json:"lifecycle"`
	Seed      int64                  `json:"seed"`
	Camera    map[string]interface{} `json:"camera"`
	Watchers  int                    `json:"watchers"`
}

// CreateSessionRequest is the body of POST /api/sessions. Camera accepts the
// keys of camera.Manager.UpdateConfig, including "preset".
type CreateSessionRequest struct {
	Camera map[string]interface{} `json:"camera,omitempty"`
	Seed   *int64                 `json:"seed,omitempty"`
}

// createSession builds, configures and initializes a simulator.
func (s *Server) createSession(req CreateSessionRequest) (*Session, error) {
	mgr := camera.NewManager()
	if err := mgr.SetConfig(s.cfg.Camera); err != nil {
		return nil, fmt.Errorf("%w: default camera: %v", errBadRequest, err)
	}
	if len(req.Camera) > 0 {
		if err := mgr.UpdateConfig(req.Camera); err != nil {
			return nil, fmt.Errorf("%w: camera: %v", errBadRequest, err)
		}
	}

	simulator := sim.New(
		sim.WithConnectivityDir(s.cfg.ConnectivityDir),
		sim.WithGraphs(s.cfg.Graphs),
		sim.WithRenderer(s.cfg.Renderer),
	)
	if err := simulator.SetCameraConfig(mgr.GetConfig()); err != nil {
		return nil, err
	}
	if req.Seed != nil {
		if err := simulator.SetSeed(*req.Seed); err != nil {
			return nil, err
		}
	}
	if err := simulator.Init(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ctx, cancel := context.WithCancel(s.ctx)
	sess := &Session{
		ID:      id,
		Created: time.Now(),
		sim:     simulator,
		hub:     hub.New(id),
		cancel:  cancel,
	}

	s.sessionsMu.Lock()
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.sessionsMu.Unlock()
		cancel()
		return nil, errTooMany
	}
	s.sessions[id] = sess
	count := len(s.sessions)
	s.sessionsMu.Unlock()

	go sess.hub.Run(ctx)

	s.logger.Info("session created", "session", id, "sessions", count)
	return sess, nil
}

func (s *Server) session(id string) (*Session, error) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoSession, id)
	}
	return sess, nil
}

func (s *Server) deleteSession(id string) error {
	s.sessionsMu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.sessionsMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", errNoSession, id)
	}
	sess.close()
	s.logger.Info("session closed", "session", id, "sessions", count)
	return nil
}

func (s *Server) listSessions() []SessionInfo {
	s.sessionsMu.RLock()
	list := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.sessionsMu.RUnlock()

	infos := make([]SessionInfo, 0, len(list))
	for _, sess := range list {
		infos = append(infos, sess.info())
	}
	return infos
}

// close stops the simulator and disconnects watchers.
func (sess *Session) close() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return
	}
	sess.closed = true
	sess.sim.Close()
	sess.cancel()
}

func (sess *Session) info() SessionInfo {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	cam := sess.sim.CameraConfig()
	mgr := camera.NewManager()
	mgr.SetConfig(cam)

	return SessionInfo{
		ID:        sess.ID,
		Created:   sess.Created,
		Lifecycle: sess.sim.Lifecycle().String(),
		Seed:      sess.sim.Seed(),
		Camera:    mgr.GetConfigJSON(),
		Watchers:  sess.hub.ClientCount(),
	}
}

// do runs fn with exclusive access to the simulator, then snapshots it.
func (sess *Session) do(ctx context.Context, fn func(*sim.Simulator) error) (*sim.SimState, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil, errSessionEnded
	}
	if fn != nil {
		if err := fn(sess.sim); err != nil {
			return nil, err
		}
	}
	return sess.sim.GetState(ctx)
}

// publish pushes a state, and its frame if anyone is watching, to the stream.
func (s *Server) publish(sess *Session, st *sim.SimState) {
	msg, err := protocol.NewStateMessage(stateData(st))
	if err != nil {
		s.logger.Warn("encode state", "session", sess.ID, "error", err)
		return
	}
	if err := sess.hub.BroadcastProtocol(msg); err != nil {
		s.logger.Warn("broadcast state", "session", sess.ID, "error", err)
		return
	}

	if st.RGB == nil || s.cfg.EncodeFrame == nil || sess.hub.ClientCount() == 0 {
		return
	}
	jpeg, err := s.cfg.EncodeFrame(st.RGB, s.cfg.JPEGQuality)
	if err != nil {
		s.logger.Warn("encode frame", "session", sess.ID, "error", err)
		return
	}
	sess.hub.BroadcastBinary(jpeg)
}

// stateData converts a snapshot to its wire form.
func stateData(st *sim.SimState) protocol.StateData {
	nav := make([]protocol.ViewpointData, len(st.NavigableLocations))
	for i, vp := range st.NavigableLocations {
		nav[i] = viewpointData(vp)
	}
	return protocol.StateData{
		ScanID:    st.ScanID,
		Step:      st.Step,
		Heading:   st.Heading,
		Elevation: st.Elevation,
		Location:  viewpointData(st.Location),
		Navigable: nav,
	}
}

func viewpointData(vp connectivity.Viewpoint) protocol.ViewpointData {
	return protocol.ViewpointData{
		ID: vp.ID,
		X:  vp.Position.X,
		Y:  vp.Position.Y,
		Z:  vp.Position.Z,
	}
}

// encodeFrame returns the frame bytes and their format.
func (s *Server) encodeFrame(st *sim.SimState) ([]byte, string, error) {
	if st.RGB == nil {
		return nil, "", fmt.Errorf("no frame")
	}
	if s.cfg.EncodeFrame == nil {
		return st.RGB.Pix, "bgr", nil
	}
	data, err := s.cfg.EncodeFrame(st.RGB, s.cfg.JPEGQuality)
	if err != nil {
		return nil, "", err
	}
	return data, "jpeg", nil
}
