// mattersim-walk: runs the fixed reference walk through a scan and prints
// each state as a JSON line, optionally saving every frame as JPEG
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teslashibe/go-mattersim/internal/config"
	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/geom"
	"github.com/teslashibe/go-mattersim/pkg/render/skybox"
	"github.com/teslashibe/go-mattersim/pkg/sim"
)

// Heading and elevation changes per step, in degrees. The walk takes
// navigable location step % len(navigable) each time.
var (
	headingChange   = []float64{-20, -360, 371, 89, 90, -90, -180, -180, -180, 0}
	elevationChange = []float64{0, -36, -30, -10, 0, 90, 5, -10, -40, 0}
)

var (
	connectivityDir = flag.String("connectivity", config.ConnectivityDir(), "Directory of <scan>_connectivity.json files")
	datasetDir      = flag.String("dataset", config.DatasetDir(), "Skybox dataset root")
	scanID          = flag.String("scan", "", "Scan id (required)")
	viewpointID     = flag.String("viewpoint", "", "Start viewpoint; empty for a seeded random start")
	steps           = flag.Int("steps", len(headingChange), "Number of actions")
	seed            = flag.Int64("seed", 1, "Seed for the random start")
	profile         = flag.String("profile", "", "JSON camera profile (defaults to the 200x100 test camera)")
	outDir          = flag.String("out", "", "Write step_<n>.jpg frames here (enables rendering)")
	quality         = flag.Int("quality", 90, "JPEG quality")
	logLevel        = flag.String("log-level", "warn", "Log level; states go to stdout, logs share it")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	if err := checkFlags(*scanID, *steps); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "usage: mattersim-walk -scan <id> [-viewpoint <id>] [-steps n] [-out dir]")
		os.Exit(2)
	}
	if err := run(context.Background()); err != nil {
		log.Error("walk failed", "error", err)
		os.Exit(1)
	}
}

func checkFlags(scan string, steps int) error {
	if scan == "" {
		return fmt.Errorf("-scan is required")
	}
	if steps < 0 {
		return fmt.Errorf("-steps must be at least 0, got %d", steps)
	}
	return nil
}

func run(ctx context.Context) error {
	cam := camera.TestConfig()
	s0 := *seed
	if *profile != "" {
		p, err := config.LoadSimConfig(*profile)
		if err != nil {
			return err
		}
		if cam, err = p.Apply(cam); err != nil {
			return err
		}
		s0 = p.GetSeed(s0)
	}

	opts := []sim.Option{sim.WithConnectivityDir(*connectivityDir)}
	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			return err
		}
		r, err := skybox.New(*datasetDir)
		if err != nil {
			return err
		}
		opts = append(opts, sim.WithRenderer(r))
		cam.RenderingEnabled = true
	}

	s := sim.New(opts...)
	defer s.Close()

	if err := s.SetCameraConfig(cam); err != nil {
		return err
	}
	if err := s.SetSeed(s0); err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	if err := s.NewEpisode(ctx, *scanID, *viewpointID, geom.Radians(10), geom.Radians(10)); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for step := 0; ; step++ {
		st, err := s.GetState(ctx)
		if err != nil {
			return err
		}
		if err := enc.Encode(st); err != nil {
			return err
		}
		if *outDir != "" && st.RGB != nil {
			if err := saveFrame(st); err != nil {
				return err
			}
		}
		if step >= *steps {
			return nil
		}

		i := step % len(headingChange)
		ix := step % len(st.NavigableLocations)
		if err := s.MakeAction(ix, geom.Radians(headingChange[i]), geom.Radians(elevationChange[i])); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
}

func saveFrame(st *sim.SimState) error {
	data, err := skybox.EncodeJPEG(st.RGB, *quality)
	if err != nil {
		return err
	}
	path := filepath.Join(*outDir, fmt.Sprintf("step_%03d.jpg", st.Step))
	return os.WriteFile(path, data, 0o644)
}
