package config

import "sort"

func gear(name string, teeth int) PartConfig {
	return PartConfig{Name: name, Gear: &GearConfig{Teeth: teeth}}
}

func motor(name string, rpm float64, live bool) PartConfig {
	return PartConfig{Name: name, Motor: &MotorConfig{RPM: rpm, Live: live}}
}

var Presets = map[string]*Config{
	"reduction": {
		Name: "reduction", Dt: DefaultDt, Duration: 5.0,
		Parts: []PartConfig{motor("motor", 60, false), gear("a", 10), gear("b", 20)},
		Connections: []Connection{
			{From: "motor", To: []string{"a"}},
			{From: "a", To: []string{"b"}},
		},
	},
	"shaft-train": {
		Name: "shaft-train", Dt: DefaultDt, Duration: 5.0,
		Parts: []PartConfig{
			motor("motor", 60, false), gear("g1", 10), {Name: "layshaft"}, gear("g2", 20), gear("g3", 40),
		},
		Connections: []Connection{
			{From: "motor", To: []string{"g1"}},
			{From: "g1", To: []string{"layshaft"}},
			{From: "layshaft", To: []string{"g2"}},
			{From: "g2", To: []string{"g3"}},
		},
	},
	"worm-drive": {
		Name: "worm-drive", Dt: DefaultDt, Duration: 10.0,
		Parts: []PartConfig{
			motor("motor", 120, false),
			gear("pinion", 12),
			{Name: "worm", Worm: &WormConfig{Handedness: "left"}},
			gear("wheel", 30),
		},
		Connections: []Connection{
			{From: "motor", To: []string{"pinion"}},
			{From: "pinion", To: []string{"worm"}},
			{From: "worm", To: []string{"wheel"}},
		},
	},
	"live-train": {
		Name: "live-train", Dt: DefaultDt, Duration: 5.0,
		Parts: []PartConfig{
			motor("motor", 45, true), gear("drive", 16), gear("idler", 32), gear("output", 8),
		},
		Connections: []Connection{
			{From: "motor", To: []string{"drive"}},
			{From: "drive", To: []string{"idler", "output"}},
		},
	},
	"cycle": {
		Name: "cycle", Dt: DefaultDt, Duration: 2.0,
		Parts: []PartConfig{motor("motor", 60, true), gear("a", 10), gear("b", 20)},
		Connections: []Connection{
			{From: "motor", To: []string{"a"}},
			{From: "a", To: []string{"b"}},
			{From: "b", To: []string{"motor"}},
		},
	},
	"dual-driver": {
		Name: "dual-driver", Dt: DefaultDt, Duration: 2.0,
		Parts: []PartConfig{motor("left", 60, false), motor("right", 30, false), gear("shared", 10)},
		Connections: []Connection{
			{From: "left", To: []string{"shared"}},
			{From: "right", To: []string{"shared"}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
