package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/powerchain/internal/powerchain"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 1.0 / 60
	DefaultDuration = 5.0
	DefaultName     = "network"
)

var (
	ErrDuplicatePart = errors.New("config: duplicate part name")
	ErrUnknownPart   = errors.New("config: unknown part")
	ErrInvalidPart   = errors.New("config: invalid part")
)

type Config struct {
	Name        string       `yaml:"name"`
	Dt          float64      `yaml:"dt"`
	Duration    float64      `yaml:"duration"`
	Parts       []PartConfig `yaml:"parts"`
	Connections []Connection `yaml:"connections"`
}

// PartConfig describes one part. A part with neither gear nor worm is a shaft.
type PartConfig struct {
	Name  string       `yaml:"name"`
	Gear  *GearConfig  `yaml:"gear,omitempty"`
	Worm  *WormConfig  `yaml:"worm,omitempty"`
	Motor *MotorConfig `yaml:"motor,omitempty"`
}

type GearConfig struct {
	Teeth int `yaml:"teeth"`
}

type WormConfig struct {
	Handedness   string `yaml:"handedness"`
	InvertOutput bool   `yaml:"invert_output"`
}

type MotorConfig struct {
	RPM        float64 `yaml:"rpm"`
	Live       bool    `yaml:"live"`
	UpdateOnce bool    `yaml:"update_once"`
}

type Connection struct {
	From string   `yaml:"from"`
	To   []string `yaml:"to"`
}

// ValidationError is one problem found by Validate.
type ValidationError struct {
	Part    string
	Message string
	Wrapped error
}

func (e *ValidationError) Error() string {
	if e.Part == "" {
		return e.Message
	}
	return fmt.Sprintf("part %q: %s", e.Part, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Wrapped
}

func DefaultConfig() *Config {
	return &Config{
		Name:     DefaultName,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Parts = make([]PartConfig, len(c.Parts))
	for i, p := range c.Parts {
		cp := PartConfig{Name: p.Name}
		if p.Gear != nil {
			g := *p.Gear
			cp.Gear = &g
		}
		if p.Worm != nil {
			w := *p.Worm
			cp.Worm = &w
		}
		if p.Motor != nil {
			m := *p.Motor
			cp.Motor = &m
		}
		out.Parts[i] = cp
	}
	out.Connections = make([]Connection, len(c.Connections))
	for i, conn := range c.Connections {
		out.Connections[i] = Connection{From: conn.From, To: append([]string(nil), conn.To...)}
	}
	return &out
}

// Validate checks names, geometry and connection endpoints. The returned
// error joins every ValidationError found.
func (c *Config) Validate() error {
	var errs []error
	if c.Dt <= 0 {
		errs = append(errs, &ValidationError{Message: fmt.Sprintf("dt must be positive, got %f", c.Dt)})
	}
	if c.Duration <= 0 {
		errs = append(errs, &ValidationError{Message: fmt.Sprintf("duration must be positive, got %f", c.Duration)})
	}

	seen := make(map[string]bool, len(c.Parts))
	for _, p := range c.Parts {
		switch {
		case p.Name == "":
			errs = append(errs, &ValidationError{Message: "part without a name", Wrapped: ErrInvalidPart})
			continue
		case seen[p.Name]:
			errs = append(errs, &ValidationError{Part: p.Name, Message: "declared twice", Wrapped: ErrDuplicatePart})
			continue
		}
		seen[p.Name] = true

		if p.Gear != nil && p.Worm != nil {
			errs = append(errs, &ValidationError{Part: p.Name, Message: "both gear and worm geometry", Wrapped: ErrInvalidPart})
		}
		if p.Gear != nil && p.Gear.Teeth <= 0 {
			errs = append(errs, &ValidationError{Part: p.Name, Message: fmt.Sprintf("teeth must be positive, got %d", p.Gear.Teeth), Wrapped: ErrInvalidPart})
		}
		if p.Worm != nil {
			if _, err := powerchain.ParseHandedness(p.Worm.Handedness); err != nil {
				errs = append(errs, &ValidationError{Part: p.Name, Message: err.Error(), Wrapped: ErrInvalidPart})
			}
		}
	}

	for _, conn := range c.Connections {
		if !seen[conn.From] {
			errs = append(errs, &ValidationError{Part: conn.From, Message: "connection from undeclared part", Wrapped: ErrUnknownPart})
		}
		for _, to := range conn.To {
			if !seen[to] {
				errs = append(errs, &ValidationError{Part: to, Message: "connection to undeclared part", Wrapped: ErrUnknownPart})
			}
		}
	}

	return errors.Join(errs...)
}

// Build validates the config and assembles a network. Parts are not yet
// activated; the first Tick (or an explicit Activate) does that.
func (c *Config) Build(opts ...powerchain.NetworkOption) (*powerchain.Network, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	net := powerchain.New(opts...)
	for _, p := range c.Parts {
		geom, partOpts := p.options()
		if _, err := net.Add(p.Name, geom, partOpts...); err != nil {
			return nil, err
		}
	}
	for _, conn := range c.Connections {
		src := net.Lookup(conn.From)
		for _, to := range conn.To {
			src.Connect(net.Lookup(to))
		}
	}
	return net, nil
}

// Steps is the number of ticks covered by Duration.
func (c *Config) Steps() int {
	if c.Dt <= 0 {
		return 0
	}
	return int(c.Duration/c.Dt + 1e-9)
}

func (p PartConfig) options() (any, []powerchain.Option) {
	var geom any
	var opts []powerchain.Option

	switch {
	case p.Worm != nil:
		hand, _ := powerchain.ParseHandedness(p.Worm.Handedness)
		geom = powerchain.Worm{Hand: hand}
		opts = append(opts, powerchain.WithInvertedOutput(p.Worm.InvertOutput))
	case p.Gear != nil:
		geom = powerchain.Spur{Teeth: p.Gear.Teeth}
	}

	if p.Motor != nil {
		opts = append(opts, powerchain.AsMotor(p.Motor.RPM), powerchain.WithLiveUpdate(p.Motor.Live))
		if p.Motor.UpdateOnce {
			opts = append(opts, powerchain.WithUpdateOnce())
		}
	}
	return geom, opts
}
