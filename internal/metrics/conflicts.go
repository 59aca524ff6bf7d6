package metrics

import "github.com/san-kum/powerchain/internal/powerchain"

// DisabledParts reports how many parts were disabled at the last observation.
type DisabledParts struct {
	count int
}

func NewDisabledParts() *DisabledParts { return &DisabledParts{} }

func (d *DisabledParts) Name() string { return "disabled_parts" }

func (d *DisabledParts) Observe(net *powerchain.Network, t float64) {
	d.count = 0
	for _, n := range net.Nodes() {
		if !n.Enabled() {
			d.count++
		}
	}
}

func (d *DisabledParts) Value() float64 { return float64(d.count) }

func (d *DisabledParts) Reset() { d.count = 0 }
