package config

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Name != DefaultName {
		t.Errorf("expected name %s, got %s", DefaultName, cfg.Name)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
name: sample
dt: 0.1
parts:
  - name: motor
    motor: {rpm: 60, update_once: true}
  - name: a
    gear: {teeth: 10}
  - name: w
    worm: {handedness: left, invert_output: true}
connections:
  - {from: motor, to: [a]}
  - {from: a, to: [w]}
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if cfg.Duration != DefaultDuration {
		t.Errorf("expected default duration, got %f", cfg.Duration)
	}
	if len(cfg.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(cfg.Parts))
	}
	if cfg.Parts[0].Motor == nil || !cfg.Parts[0].Motor.UpdateOnce {
		t.Error("motor config not parsed")
	}
	if cfg.Parts[2].Worm == nil || !cfg.Parts[2].Worm.InvertOutput {
		t.Error("worm config not parsed")
	}
	if cfg.Steps() != 50 {
		t.Errorf("expected 50 steps, got %d", cfg.Steps())
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "net.yaml")
	cfg := GetPreset("worm-drive")

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Name != cfg.Name || len(loaded.Parts) != len(cfg.Parts) {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{"duplicate", &Config{Dt: 0.1, Duration: 1, Parts: []PartConfig{{Name: "a"}, {Name: "a"}}}, ErrDuplicatePart},
		{"no teeth", &Config{Dt: 0.1, Duration: 1, Parts: []PartConfig{gear("a", 0)}}, ErrInvalidPart},
		{"gear and worm", &Config{Dt: 0.1, Duration: 1, Parts: []PartConfig{
			{Name: "a", Gear: &GearConfig{Teeth: 4}, Worm: &WormConfig{}},
		}}, ErrInvalidPart},
		{"bad handedness", &Config{Dt: 0.1, Duration: 1, Parts: []PartConfig{
			{Name: "w", Worm: &WormConfig{Handedness: "sideways"}},
		}}, ErrInvalidPart},
		{"unknown target", &Config{Dt: 0.1, Duration: 1, Parts: []PartConfig{{Name: "a"}},
			Connections: []Connection{{From: "a", To: []string{"ghost"}}}}, ErrUnknownPart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestValidate_Timing(t *testing.T) {
	cfg := &Config{Dt: 0, Duration: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive dt and duration")
	}
}

func TestBuild(t *testing.T) {
	net, err := GetPreset("reduction").Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	net.Activate()
	b := net.Lookup("b")
	if b == nil {
		t.Fatal("part b missing")
	}
	if got := b.RPM(); got != -30 {
		t.Errorf("expected -30 rpm, got %f", got)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("reduction")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	cfg.Parts[0].Motor.RPM = 1

	if Presets["reduction"].Parts[0].Motor.RPM != 60 {
		t.Error("GetPreset should return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsAreValid(t *testing.T) {
	names := ListPresets()
	if len(names) == 0 {
		t.Fatal("expected presets")
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}
