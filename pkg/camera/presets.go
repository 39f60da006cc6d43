package camera

import "github.com/teslashibe/go-mattersim/pkg/geom"

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetTiny    = "tiny"
	PresetTest    = "test"
	PresetVGA     = "vga"
	PresetWide    = "wide"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetTiny:    TinyConfig(),
		PresetTest:    TestConfig(),
		PresetVGA:     VGAConfig(),
		PresetWide:    WideConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetTiny,
		PresetTest,
		PresetVGA,
		PresetWide,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// TinyConfig returns a 20x20 camera with a 90° square field of view.
// Used when only the action set matters.
func TinyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 20
	cfg.Height = 20
	cfg.VFOV = geom.Radians(90)
	cfg.RenderingEnabled = false
	return cfg
}

// TestConfig returns 200x100 with 45° vfov (90° hfov) and elevation
// limited to [-40°, 50°].
func TestConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 200
	cfg.Height = 100
	cfg.VFOV = geom.Radians(45)
	cfg.ElevationMin = geom.Radians(-40)
	cfg.ElevationMax = geom.Radians(50)
	cfg.RenderingEnabled = false
	return cfg
}

// VGAConfig returns 640x480 with 60° vfov.
func VGAConfig() Config {
	return DefaultConfig()
}

// WideConfig returns 1280x720 with 45° vfov (80° hfov).
func WideConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.VFOV = geom.Radians(45)
	return cfg
}
