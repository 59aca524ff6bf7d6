package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/powerchain/internal/powerchain"
)

// Collector exports network state as prometheus metrics. Feed it ticks with
// OnTick and conflicts with OnConflict (or Hooks).
type Collector struct {
	ticks     prometheus.Counter
	passes    prometheus.Counter
	conflicts *prometheus.CounterVec
	rpm       *prometheus.GaugeVec
	enabled   *prometheus.GaugeVec
}

func NewCollector() *Collector {
	return &Collector{
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "powerchain_ticks_total",
			Help: "Total number of network ticks",
		}),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "powerchain_passes_total",
			Help: "Total number of propagation passes started by motors",
		}),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerchain_conflicts_total",
				Help: "Parts disabled by a structural conflict",
			},
			[]string{"part"},
		),
		rpm: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "powerchain_part_rpm",
				Help: "Last computed speed of a part in RPM",
			},
			[]string{"part"},
		),
		enabled: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "powerchain_part_enabled",
				Help: "1 if the part is enabled, 0 if disabled",
			},
			[]string{"part"},
		),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.ticks, c.passes, c.conflicts, c.rpm, c.enabled} {
		if err := reg.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// OnTick implements sim.Observer.
func (c *Collector) OnTick(net *powerchain.Network, step int, t float64) {
	c.ticks.Inc()
	c.Snapshot(net)
}

// Snapshot refreshes the per-part gauges without counting a tick.
func (c *Collector) Snapshot(net *powerchain.Network) {
	c.rpm.Reset()
	c.enabled.Reset()
	for _, n := range net.Nodes() {
		c.rpm.WithLabelValues(n.Name()).Set(n.RPM())
		v := 0.0
		if n.Enabled() {
			v = 1
		}
		c.enabled.WithLabelValues(n.Name()).Set(v)
	}
}

func (c *Collector) OnConflict(n *powerchain.Node, err *powerchain.ConflictError) {
	c.conflicts.WithLabelValues(err.Part).Inc()
}

func (c *Collector) OnPass(motor *powerchain.Node, generation uint64) {
	c.passes.Inc()
}

// Hooks returns network hooks that feed this collector.
func (c *Collector) Hooks() powerchain.Hooks {
	return powerchain.Hooks{
		OnConflict: c.OnConflict,
		OnPass:     c.OnPass,
	}
}
