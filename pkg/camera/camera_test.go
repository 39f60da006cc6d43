package camera

import (
	"errors"
	"math"
	"testing"

	"github.com/teslashibe/go-mattersim/pkg/geom"
)

const floatTolerance = 1e-9

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Errorf("DefaultConfig invalid: %v", errs)
	}
}

func TestPresets_AllValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Fatalf("preset %s missing", name)
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %s invalid: %v", name, errs)
		}
	}
	if GetPreset("nope") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestHFOV_ScalesWithAspect(t *testing.T) {
	// 45° vfov at 200x100 gives 90° hfov
	cfg := TestConfig()
	if !floatEquals(cfg.HFOV(), geom.Radians(90)) {
		t.Errorf("HFOV: got %v°, want 90°", geom.Degrees(cfg.HFOV()))
	}

	sq := TinyConfig()
	if !floatEquals(sq.HFOV(), geom.Radians(90)) {
		t.Errorf("square HFOV: got %v°, want 90°", geom.Degrees(sq.HFOV()))
	}

	var zero Config
	if zero.HFOV() != 0 {
		t.Error("zero height should give zero HFOV")
	}
}

func TestValidate_Errors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width = 0
	cfg.VFOV = 0
	cfg.ElevationMin = 1
	cfg.ElevationMax = -1

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate: got %d errors (%v), want 3", len(errs), errs)
	}
}

func TestCheckElevationLimits(t *testing.T) {
	if err := CheckElevationLimits(geom.Radians(-40), geom.Radians(50)); err != nil {
		t.Errorf("valid limits rejected: %v", err)
	}
	if err := CheckElevationLimits(0.5, 0.1); err == nil {
		t.Error("min > max accepted")
	}
	if err := CheckElevationLimits(-2, 0); err == nil {
		t.Error("min below -π/2 accepted")
	}
	if err := CheckElevationLimits(0, math.NaN()); err == nil {
		t.Error("NaN accepted")
	}
	if err := CheckElevationLimits(0.2, 0.2); err != nil {
		t.Errorf("equal limits rejected: %v", err)
	}
}

func TestManager_SettersAndFreeze(t *testing.T) {
	m := NewManager()

	if err := m.SetResolution(200, 100); err != nil {
		t.Fatal(err)
	}
	if err := m.SetFOVDegrees(45); err != nil {
		t.Fatal(err)
	}
	if err := m.SetElevationLimits(geom.Radians(-40), geom.Radians(50)); err != nil {
		t.Fatal(err)
	}
	if err := m.SetRenderingEnabled(false); err != nil {
		t.Fatal(err)
	}

	cfg, err := m.Freeze()
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 || cfg.RenderingEnabled {
		t.Errorf("frozen config: %+v", cfg)
	}
	if !floatEquals(cfg.VFOV, geom.Radians(45)) {
		t.Errorf("VFOV: got %v", cfg.VFOV)
	}
	if err := m.SetResolution(10, 10); !errors.Is(err, ErrFrozen) {
		t.Errorf("SetResolution after freeze: got %v, want ErrFrozen", err)
	}
	if err := m.SetFOVDegrees(60); !errors.Is(err, ErrFrozen) {
		t.Errorf("SetFOVDegrees after freeze: got %v, want ErrFrozen", err)
	}
}

func TestManager_RejectsBadValues(t *testing.T) {
	m := NewManager()

	if err := m.SetFOVDegrees(0); err == nil {
		t.Error("zero fov accepted")
	}
	if err := m.SetFOVDegrees(180); err == nil {
		t.Error("180° fov accepted")
	}
	if err := m.SetResolution(0, 10); err == nil {
		t.Error("zero width accepted")
	}
	if err := m.SetElevationLimits(1, -1); err == nil {
		t.Error("inverted limits accepted")
	}

	// Config unchanged
	if m.GetConfig() != DefaultConfig() {
		t.Errorf("config changed by rejected setters: %+v", m.GetConfig())
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager()

	err := m.UpdateConfig(map[string]interface{}{
		"preset": PresetTest,
		"width":  float64(400),
		"fov":    float64(30),
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 400 || cfg.Height != 100 {
		t.Errorf("resolution: got %dx%d, want 400x100", cfg.Width, cfg.Height)
	}
	if !floatEquals(cfg.VFOV, geom.Radians(30)) {
		t.Errorf("VFOV: got %v", cfg.VFOV)
	}
	if !floatEquals(cfg.ElevationMax, geom.Radians(50)) {
		t.Errorf("preset elevation lost: %v", cfg.ElevationMax)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "nope"}); err == nil {
		t.Error("unknown preset accepted")
	}

	if _, ok := m.GetConfigJSON()["hfov"]; !ok {
		t.Error("GetConfigJSON missing hfov")
	}
}

func TestState_NewAndRotate(t *testing.T) {
	cfg := TestConfig()

	s := NewState(cfg, geom.Radians(10), geom.Radians(10))
	s = s.Rotate(cfg, geom.Radians(-20), 0)
	if !floatEquals(s.Heading, geom.Radians(350)) {
		t.Errorf("heading: got %v°, want 350°", geom.Degrees(s.Heading))
	}

	// +360° is a no-op
	before := s.Heading
	s = s.Rotate(cfg, geom.Radians(360), 0)
	if !floatEquals(s.Heading, before) {
		t.Errorf("full turn changed heading: %v -> %v", before, s.Heading)
	}

	// Elevation clamps at both ends
	s = s.Rotate(cfg, 0, geom.Radians(200))
	if !floatEquals(s.Elevation, cfg.ElevationMax) {
		t.Errorf("elevation: got %v, want max", s.Elevation)
	}
	s = s.Rotate(cfg, 0, geom.Radians(-500))
	if !floatEquals(s.Elevation, cfg.ElevationMin) {
		t.Errorf("elevation: got %v, want min", s.Elevation)
	}
}
