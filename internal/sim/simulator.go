package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/powerchain/internal/powerchain"
)

type Simulator struct {
	net        *powerchain.Network
	controller Controller
	parts      []string
	metrics    []Metric
	observers  []Observer
}

// New creates a simulator over net. A nil controller means None. The parts
// present when the run starts are the ones recorded.
func New(net *powerchain.Network, controller Controller) *Simulator {
	if controller == nil {
		controller = NewNone()
	}
	return &Simulator{
		net:        net,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Network() *powerchain.Network { return s.net }

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	s.net.Activate()
	s.parts = s.partNames()

	steps := cfg.Steps()
	result := &Result{
		Parts:   s.parts,
		Samples: make([]Sample, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	t := 0.0
	result.Samples = append(result.Samples, s.sample())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		s.controller.Apply(s.net, i, t)
		s.net.Tick(cfg.Dt)
		t += cfg.Dt
		result.StepsTaken++

		sample := s.sample()
		for _, v := range sample.RPM {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return result, SimError{Time: t, Step: i, Message: "invalid speed (NaN/Inf)"}
			}
		}

		for _, m := range s.metrics {
			m.Observe(s.net, t)
		}
		for _, obs := range s.observers {
			obs.OnTick(s.net, i, t)
		}

		result.Samples = append(result.Samples, sample)
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	for _, n := range s.net.Nodes() {
		if !n.Enabled() {
			result.Disabled = append(result.Disabled, n.Name())
		}
	}
	result.Stats = s.net.Stats()

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if s.net == nil {
		return fmt.Errorf("network must not be nil")
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}

func (s *Simulator) partNames() []string {
	nodes := s.net.Nodes()
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name()
	}
	return names
}

// sample reads the recorded parts by name; removed parts read as stopped
// and disabled.
func (s *Simulator) sample() Sample {
	out := Sample{
		RPM:     make([]float64, len(s.parts)),
		Angle:   make([]float64, len(s.parts)),
		Enabled: make([]bool, len(s.parts)),
	}
	for i, name := range s.parts {
		n := s.net.Lookup(name)
		if n == nil {
			continue
		}
		out.RPM[i] = n.RPM()
		out.Angle[i] = n.Angle()
		out.Enabled[i] = n.Enabled()
	}
	return out
}

// RunWithCallback ticks until Duration elapses or callback returns false.
// Nothing is recorded.
func (s *Simulator) RunWithCallback(ctx context.Context, cfg Config, callback func(net *powerchain.Network, t float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	s.net.Activate()
	t := 0.0
	for step := 0; t < cfg.Duration; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(s.net, t) {
			return nil
		}

		s.controller.Apply(s.net, step, t)
		s.net.Tick(cfg.Dt)
		t += cfg.Dt
	}

	return nil
}
