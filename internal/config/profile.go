package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teslashibe/go-mattersim/pkg/camera"
	"github.com/teslashibe/go-mattersim/pkg/geom"
)

// SimProfile is a simulator setup stored as JSON. Fields left out keep the
// value of the base configuration. Angles are in degrees.
type SimProfile struct {
	Preset           *string  `json:"preset,omitempty"`
	Width            *int     `json:"width,omitempty"`
	Height           *int     `json:"height,omitempty"`
	FOV              *float64 `json:"fov,omitempty"` // vertical
	ElevationMin     *float64 `json:"elevation_min,omitempty"`
	ElevationMax     *float64 `json:"elevation_max,omitempty"`
	RenderingEnabled *bool    `json:"rendering_enabled,omitempty"`
	Seed             *int64   `json:"seed,omitempty"`
}

// LoadSimConfig loads a SimProfile from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSimConfig(path string) (*SimProfile, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	p := &SimProfile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return p, nil
}

// Validate checks the fields that are set.
func (p *SimProfile) Validate() error {
	if p.Preset != nil && camera.GetPreset(*p.Preset) == nil {
		return fmt.Errorf("unknown preset %q", *p.Preset)
	}
	if p.FOV != nil {
		if err := camera.CheckFOVDegrees(*p.FOV); err != nil {
			return err
		}
	}
	if p.Width != nil && (*p.Width < 1 || *p.Width > camera.MaxWidth) {
		return fmt.Errorf("width must be between 1 and %d, got %d", camera.MaxWidth, *p.Width)
	}
	if p.Height != nil && (*p.Height < 1 || *p.Height > camera.MaxHeight) {
		return fmt.Errorf("height must be between 1 and %d, got %d", camera.MaxHeight, *p.Height)
	}
	return nil
}

// Apply overlays the profile onto base and validates the result.
func (p *SimProfile) Apply(base camera.Config) (camera.Config, error) {
	cfg := base
	if p.Preset != nil {
		cfg = *camera.GetPreset(*p.Preset)
	}
	if p.Width != nil {
		cfg.Width = *p.Width
	}
	if p.Height != nil {
		cfg.Height = *p.Height
	}
	if p.FOV != nil {
		cfg.VFOV = geom.Radians(*p.FOV)
	}
	if p.ElevationMin != nil {
		cfg.ElevationMin = geom.Radians(*p.ElevationMin)
	}
	if p.ElevationMax != nil {
		cfg.ElevationMax = geom.Radians(*p.ElevationMax)
	}
	if p.RenderingEnabled != nil {
		cfg.RenderingEnabled = *p.RenderingEnabled
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return camera.Config{}, fmt.Errorf("invalid camera config: %v", errs)
	}
	return cfg, nil
}

// GetSeed returns the seed, or def if unset.
func (p *SimProfile) GetSeed(def int64) int64 {
	if p.Seed == nil {
		return def
	}
	return *p.Seed
}
