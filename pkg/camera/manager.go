package camera

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/teslashibe/go-mattersim/pkg/geom"
)

// ErrFrozen is returned when the configuration is changed after Freeze.
var ErrFrozen = errors.New("camera config is frozen")

// Manager holds the camera configuration until the simulator starts, then
// freezes it.
type Manager struct {
	config Config
	frozen bool
	mu     sync.RWMutex
}

// NewManager creates a new camera manager with default config.
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Freeze validates the configuration and makes it read-only.
func (m *Manager) Freeze() (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if errs := m.config.Validate(); len(errs) > 0 {
		return Config{}, fmt.Errorf("validation failed: %v", errs)
	}
	m.frozen = true
	return m.config, nil
}

// SetConfig replaces the whole configuration.
func (m *Manager) SetConfig(cfg Config) error {
	// Validate
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	return m.update(func(c *Config) error {
		*c = cfg
		return nil
	})
}

// SetResolution sets the frame size in pixels.
func (m *Manager) SetResolution(width, height int) error {
	if width < 1 || width > MaxWidth || height < 1 || height > MaxHeight {
		return fmt.Errorf("resolution %dx%d out of range", width, height)
	}
	return m.update(func(c *Config) error {
		c.Width, c.Height = width, height
		return nil
	})
}

// SetFOVDegrees sets the vertical field of view, given in degrees.
func (m *Manager) SetFOVDegrees(deg float64) error {
	if err := CheckFOVDegrees(deg); err != nil {
		return err
	}
	return m.update(func(c *Config) error {
		c.VFOV = geom.Radians(deg)
		return nil
	})
}

// SetElevationLimits sets the elevation range, in radians.
func (m *Manager) SetElevationLimits(min, max float64) error {
	if err := CheckElevationLimits(min, max); err != nil {
		return err
	}
	return m.update(func(c *Config) error {
		c.ElevationMin, c.ElevationMax = min, max
		return nil
	})
}

// SetRenderingEnabled switches between real and blank frames.
func (m *Manager) SetRenderingEnabled(enabled bool) error {
	return m.update(func(c *Config) error {
		c.RenderingEnabled = enabled
		return nil
	})
}

func (m *Manager) update(apply func(*Config) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return ErrFrozen
	}
	return apply(&m.config)
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values; "fov" is in degrees and the
// elevation limits in radians.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	// Check for preset first
	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		cfg = *preset
	}

	// Apply individual parameters
	for key, value := range params {
		switch key {
		case "width":
			if v, ok := toInt(value); ok {
				cfg.Width = v
			}
		case "height":
			if v, ok := toInt(value); ok {
				cfg.Height = v
			}
		case "fov":
			if v, ok := toFloat(value); ok {
				cfg.VFOV = geom.Radians(v)
			}
		case "elevation_min":
			if v, ok := toFloat(value); ok {
				cfg.ElevationMin = v
			}
		case "elevation_max":
			if v, ok := toFloat(value); ok {
				cfg.ElevationMax = v
			}
		case "rendering_enabled":
			if v, ok := value.(bool); ok {
				cfg.RenderingEnabled = v
			}
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	result["hfov"] = cfg.HFOV()
	return result
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
