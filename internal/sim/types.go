package sim

import (
	"fmt"

	"github.com/san-kum/powerchain/internal/powerchain"
)

// Sample is the state of every recorded part after one tick, indexed like
// Result.Parts.
type Sample struct {
	RPM     []float64
	Angle   []float64
	Enabled []bool
}

func (s Sample) Clone() Sample {
	return Sample{
		RPM:     append([]float64(nil), s.RPM...),
		Angle:   append([]float64(nil), s.Angle...),
		Enabled: append([]bool(nil), s.Enabled...),
	}
}

// Controller is the external wiring controller. It runs before every tick
// and may connect, disconnect or retune parts.
type Controller interface {
	Apply(net *powerchain.Network, step int, t float64)
}

type Metric interface {
	Name() string
	Observe(net *powerchain.Network, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnTick(net *powerchain.Network, step int, t float64)
}

type Config struct {
	Dt       float64
	Duration float64
}

func DefaultConfig() Config {
	return Config{
		Dt:       1.0 / 60,
		Duration: 5.0,
	}
}

// Steps is the number of ticks covered by Duration.
func (c Config) Steps() int {
	return int(c.Duration/c.Dt + 1e-9)
}

type Result struct {
	Parts      []string
	Times      []float64
	Samples    []Sample
	Metrics    map[string]float64
	Disabled   []string
	Stats      powerchain.Stats
	StepsTaken int
}

// Series returns the RPM history of one part, or nil if it was not recorded.
func (r *Result) Series(part string) []float64 {
	idx := -1
	for i, p := range r.Parts {
		if p == part {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.RPM[idx]
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
