// mattersim-server: hosts simulator sessions over HTTP and WebSocket
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-mattersim/internal/config"
	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/connectivity/store"
	"github.com/teslashibe/go-mattersim/pkg/render"
	"github.com/teslashibe/go-mattersim/pkg/render/skybox"
	"github.com/teslashibe/go-mattersim/pkg/web"
)

var (
	port            = flag.String("port", config.Port(), "HTTP server port")
	connectivityDir = flag.String("connectivity", config.ConnectivityDir(), "Directory of <scan>_connectivity.json files")
	datasetDir      = flag.String("dataset", config.DatasetDir(), "Skybox dataset root; rendering is blank if missing")
	graphDB         = flag.String("graph-db", config.GraphDB(), "SQLite graph store, used instead of the JSON files when set")
	profile         = flag.String("profile", "", "JSON camera profile for new sessions")
	maxSessions     = flag.Int("max-sessions", -1, "Maximum concurrent sessions, 0 for no limit (default $MATTERSIM_MAX_SESSIONS or 64)")
	jpegQuality     = flag.Int("jpeg-quality", 85, "JPEG quality of streamed frames")
	logLevel        = flag.String("log-level", config.LogLevel(), "Log level (debug, info, warn, error)")
	accessLog       = flag.Bool("access-log", false, "Log every HTTP request")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)
	logger := log.Component("main")

	cfg, closeFn, err := buildConfig()
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	srv := web.NewServer(cfg)
	srv.StartAsync()

	logger.Info("mattersim server started",
		"port", cfg.Port,
		"api", fmt.Sprintf("http://localhost:%s/api/sessions", cfg.Port),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	if err := srv.Shutdown(); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// buildConfig wires graphs, renderer and camera defaults from the flags.
func buildConfig() (web.Config, func(), error) {
	logger := log.Component("main")
	cfg := web.DefaultConfig()
	closeFn := func() {}
	cfg.Port = *port
	cfg.ConnectivityDir = *connectivityDir
	cfg.MaxSessions = *maxSessions
	if cfg.MaxSessions < 0 {
		n, err := config.MaxSessions()
		if err != nil {
			return cfg, closeFn, err
		}
		cfg.MaxSessions = n
	}
	cfg.JPEGQuality = *jpegQuality
	cfg.RequestLog = *accessLog

	if *graphDB != "" {
		db, err := store.Open(*graphDB)
		if err != nil {
			return cfg, closeFn, err
		}
		closeFn = func() { db.Close() }
		cfg.Graphs = connectivity.NewCache(db)
		cfg.ListScans = db.ScanIDs
		logger.Info("graphs from sqlite", "path", *graphDB)
	} else {
		src := connectivity.NewDirSource(*connectivityDir)
		cfg.Graphs = connectivity.NewCache(src)
		cfg.ListScans = func(ctx context.Context) ([]string, error) {
			return src.ScanIDs()
		}
		logger.Info("graphs from json", "dir", *connectivityDir)
	}

	if r, err := skybox.New(*datasetDir); err != nil {
		log.Warn("skybox dataset unavailable, frames will be blank", "dir", *datasetDir, "error", err)
		cfg.Renderer = render.Blank{}
	} else {
		cfg.Renderer = r
		cfg.EncodeFrame = skybox.EncodeJPEG
	}

	if *profile != "" {
		p, err := config.LoadSimConfig(*profile)
		if err != nil {
			return cfg, closeFn, err
		}
		cam, err := p.Apply(camera.DefaultConfig())
		if err != nil {
			return cfg, closeFn, err
		}
		cfg.Camera = cam
	}

	return cfg, closeFn, nil
}
