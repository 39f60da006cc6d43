// Package web serves simulator sessions over HTTP and WebSocket.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/render"
	"github.com/teslashibe/go-mattersim/pkg/sim"
)

// FrameEncoder compresses a frame for the wire. Quality is 1-100.
type FrameEncoder func(f *render.Frame, quality int) ([]byte, error)

// Config configures the server.
type Config struct {
	Port string

	// ConnectivityDir is used when Graphs is nil.
	ConnectivityDir string
	Graphs          sim.GraphProvider

	Renderer render.Renderer

	// ListScans backs GET /api/scans. Nil disables the route.
	ListScans func(ctx context.Context) ([]string, error)

	// EncodeFrame turns frames into JPEG. Nil serves raw BGR.
	EncodeFrame FrameEncoder
	JPEGQuality int

	// MaxSessions caps concurrent sessions, 0 for no limit.
	MaxSessions int

	// Camera is the starting configuration for new sessions.
	Camera camera.Config

	// RequestLog enables the fiber access log.
	RequestLog bool
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Port:            "8080",
		ConnectivityDir: "connectivity",
		Renderer:        render.Blank{},
		JPEGQuality:     85,
		MaxSessions:     64,
		Camera:          camera.DefaultConfig(),
	}
}

// Server hosts simulator sessions
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	// Cancelled on Shutdown; parent of every session
	ctx    context.Context
	cancel context.CancelFunc

	sessions   map[string]*Session
	sessionsMu sync.RWMutex
}

// NewServer creates a new server
func NewServer(cfg Config) *Server {
	if cfg.Renderer == nil {
		cfg.Renderer = render.Blank{}
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = 85
	}
	if cfg.Camera == (camera.Config{}) {
		cfg.Camera = camera.DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		logger:   log.Component("web"),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}

	app := fiber.New(fiber.Config{
		AppName:               "MatterSim",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	if cfg.RequestLog {
		app.Use(logger.New())
	}

	// API routes
	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/presets", s.handlePresets)
	if cfg.ListScans != nil {
		api.Get("/scans", s.handleScans)
	}

	sessions := api.Group("/sessions")
	sessions.Get("/", s.handleListSessions)
	sessions.Post("/", s.handleCreateSession)
	sessions.Get("/:id", s.handleGetSession)
	sessions.Delete("/:id", s.handleDeleteSession)
	sessions.Post("/:id/episodes", s.handleNewEpisode)
	sessions.Post("/:id/actions", s.handleAction)
	sessions.Get("/:id/state", s.handleState)
	sessions.Get("/:id/frame", s.handleFrame)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/sessions/:id/stream", websocket.New(s.handleStreamWS))
	app.Get("/ws/sessions/:id/control", controlHandler(s))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port. It blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", "port", s.cfg.Port)
	return s.app.Listen(":" + s.cfg.Port)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("server stopped", "error", err)
		}
	}()
}

// Shutdown closes every session and stops the server
func (s *Server) Shutdown() error {
	s.sessionsMu.Lock()
	for id, sess := range s.sessions {
		sess.close()
		delete(s.sessions, id)
	}
	s.sessionsMu.Unlock()

	s.cancel()
	if err := s.app.Shutdown(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
