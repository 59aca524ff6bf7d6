package metrics

import (
	"math"

	"github.com/san-kum/powerchain/internal/powerchain"
)

// PeakRPM tracks the largest absolute speed seen on one part, or on any part
// when no name is given.
type PeakRPM struct {
	name string
	part string
	peak float64
}

func NewPeakRPM(part string) *PeakRPM {
	name := "peak_rpm"
	if part != "" {
		name += "_" + part
	}
	return &PeakRPM{name: name, part: part}
}

func (p *PeakRPM) Name() string { return p.name }

func (p *PeakRPM) Observe(net *powerchain.Network, t float64) {
	if p.part != "" {
		if n := net.Lookup(p.part); n != nil {
			p.peak = math.Max(p.peak, math.Abs(n.RPM()))
		}
		return
	}
	for _, n := range net.Nodes() {
		p.peak = math.Max(p.peak, math.Abs(n.RPM()))
	}
}

func (p *PeakRPM) Value() float64 { return p.peak }

func (p *PeakRPM) Reset() { p.peak = 0 }

// Revolutions integrates the signed speed of a part into turns.
type Revolutions struct {
	name  string
	part  string
	lastT float64
	turns float64
}

func NewRevolutions(part string) *Revolutions {
	return &Revolutions{name: "revolutions_" + part, part: part}
}

func (r *Revolutions) Name() string { return r.name }

func (r *Revolutions) Observe(net *powerchain.Network, t float64) {
	dt := t - r.lastT
	r.lastT = t
	n := net.Lookup(r.part)
	if n == nil || !n.Enabled() {
		return
	}
	r.turns += n.RPM() / 60 * dt
}

func (r *Revolutions) Value() float64 { return r.turns }

func (r *Revolutions) Reset() {
	r.lastT = 0
	r.turns = 0
}
