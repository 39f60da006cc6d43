// Package camera provides the simulator's camera configuration and pose.
// Configuration is fixed before a simulator starts; the pose changes with
// every action.
package camera

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-mattersim/pkg/geom"
)

// Config holds the camera parameters that must be set before Init.
type Config struct {
	// === Resolution ===
	Width  int `json:"width"`  // Frame width in pixels
	Height int `json:"height"` // Frame height in pixels

	// VFOV is the vertical field of view in radians.
	// The horizontal field of view follows from the aspect ratio, see HFOV.
	VFOV float64 `json:"vfov"`

	// === Elevation limits (radians, 0 = level, positive = up) ===
	ElevationMin float64 `json:"elevation_min"`
	ElevationMax float64 `json:"elevation_max"`

	// RenderingEnabled switches frames from the renderer to blank frames
	// of the same size.
	RenderingEnabled bool `json:"rendering_enabled"`
}

// Limits for sane configurations.
const (
	MaxWidth     = 4096
	MaxHeight    = 4096
	MaxVFOVDeg   = 180.0
	MaxElevation = math.Pi / 2
	MinElevation = -math.Pi / 2

	defaultVFOVDeg = 60.0
)

// DefaultConfig returns a VGA camera that can look straight up and down.
func DefaultConfig() Config {
	return Config{
		Width:            640,
		Height:           480,
		VFOV:             geom.Radians(defaultVFOVDeg),
		ElevationMin:     MinElevation,
		ElevationMax:     MaxElevation,
		RenderingEnabled: true,
	}
}

// HFOV returns the horizontal field of view in radians.
// It scales the vertical fov linearly by the aspect ratio, so 45° at 200x100
// gives 90°.
func (c Config) HFOV() float64 {
	if c.Height == 0 {
		return 0
	}
	return c.VFOV * float64(c.Width) / float64(c.Height)
}

// ClampElevation restricts an elevation to the configured limits.
func (c Config) ClampElevation(e float64) float64 {
	return geom.Clamp(e, c.ElevationMin, c.ElevationMax)
}

// CheckFOVDegrees validates a vertical field of view given in degrees.
func CheckFOVDegrees(deg float64) error {
	if math.IsNaN(deg) || deg <= 0 || deg >= MaxVFOVDeg {
		return fmt.Errorf("fov must be between 0 and %v degrees (exclusive), got %v", MaxVFOVDeg, deg)
	}
	return nil
}

// CheckElevationLimits validates an elevation range in radians.
func CheckElevationLimits(min, max float64) error {
	if math.IsNaN(min) || math.IsNaN(max) {
		return fmt.Errorf("elevation limits must be numbers")
	}
	if min > max {
		return fmt.Errorf("elevation min %v is above max %v", min, max)
	}
	if min < MinElevation || max > MaxElevation {
		return fmt.Errorf("elevation limits must lie within [-π/2, π/2], got [%v, %v]", min, max)
	}
	return nil
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	// Resolution
	if c.Width < 1 || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between 1 and %d", MaxWidth))
	}
	if c.Height < 1 || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between 1 and %d", MaxHeight))
	}

	// Field of view
	if err := CheckFOVDegrees(geom.Degrees(c.VFOV)); err != nil {
		errors = append(errors, err.Error())
	}

	// Elevation
	if err := CheckElevationLimits(c.ElevationMin, c.ElevationMax); err != nil {
		errors = append(errors, err.Error())
	}

	return errors
}
