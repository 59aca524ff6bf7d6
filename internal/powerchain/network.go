package powerchain

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrDuplicateName is returned by Network.Add when a live part already uses
// the requested name.
var ErrDuplicateName = errors.New("powerchain: duplicate part name")

// Hooks observe a network. Every field is optional. Hooks run inside a pass
// and may rewire the network.
type Hooks struct {
	OnConflict func(n *Node, err *ConflictError)
	OnPass     func(motor *Node, generation uint64)
}

// Stats are lifetime counters of a network.
type Stats struct {
	Ticks     uint64
	Passes    uint64
	Visits    uint64
	Conflicts uint64
	Pruned    uint64
}

// Network owns the part registry and the generation counter.
type Network struct {
	parts map[string]*Node
	order []*Node

	pending    []*Node
	generation uint64
	anon       int

	logger *slog.Logger
	hooks  Hooks
	stats  Stats
}

type NetworkOption func(*Network)

func WithLogger(l *slog.Logger) NetworkOption {
	return func(net *Network) {
		if l != nil {
			net.logger = l
		}
	}
}

func WithHooks(h Hooks) NetworkOption {
	return func(net *Network) { net.hooks = h }
}

func New(opts ...NetworkOption) *Network {
	net := &Network{
		parts:  make(map[string]*Node),
		order:  make([]*Node, 0),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(net)
	}
	return net
}

// SetHooks replaces the hooks.
func (net *Network) SetHooks(h Hooks) { net.hooks = h }

// Add creates a part. geom may be nil (a shaft), a GearGeometry or a
// WormGeometry. An empty name is replaced by a generated one.
func (net *Network) Add(name string, geom any, opts ...Option) (*Node, error) {
	if name == "" {
		net.anon++
		name = fmt.Sprintf("part-%d", net.anon)
	}
	if _, ok := net.parts[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	n := &Node{
		name:    name,
		net:     net,
		geom:    geom,
		enabled: true,
	}
	for _, opt := range opts {
		opt(n)
	}

	net.parts[name] = n
	net.order = append(net.order, n)
	net.pending = append(net.pending, n)
	return n, nil
}

// MustAdd is Add that panics on a duplicate name.
func (net *Network) MustAdd(name string, geom any, opts ...Option) *Node {
	n, err := net.Add(name, geom, opts...)
	if err != nil {
		panic(err)
	}
	return n
}

// Lookup returns the live part called name, or nil.
func (net *Network) Lookup(name string) *Node {
	return net.parts[name]
}

// Remove destroys the part called name. Unknown names are ignored.
func (net *Network) Remove(name string) {
	if n := net.parts[name]; n != nil {
		n.Destroy()
	}
}

// Nodes returns the live parts in insertion order.
func (net *Network) Nodes() []*Node {
	out := make([]*Node, len(net.order))
	copy(out, net.order)
	return out
}

// Motors returns the live motor parts in insertion order.
func (net *Network) Motors() []*Node {
	var out []*Node
	for _, n := range net.order {
		if n.motor {
			out = append(out, n)
		}
	}
	return out
}

func (net *Network) Len() int     { return len(net.order) }
func (net *Network) Stats() Stats { return net.stats }

// Generation is the last token handed out.
func (net *Network) Generation() uint64 { return net.generation }

// DisconnectFromAllDrivers removes target from every part that drives it.
func (net *Network) DisconnectFromAllDrivers(target *Node) {
	if target == nil {
		return
	}
	for _, n := range net.order {
		if len(n.outputs) == 0 {
			continue
		}
		kept := make([]*Node, 0, len(n.outputs))
		for _, o := range n.outputs {
			if o != target {
				kept = append(kept, o)
			}
		}
		n.outputs = kept
	}
}

// Drivers returns the parts with an edge to target.
func (net *Network) Drivers(target *Node) []*Node {
	var out []*Node
	for _, n := range net.order {
		for _, o := range n.outputs {
			if o == target {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// Activate resolves the kind of every part added since the last call and
// fires one pass from each new motor. All of them share one generation.
func (net *Network) Activate() {
	if len(net.pending) == 0 {
		return
	}
	batch := net.pending
	net.pending = nil

	for _, n := range batch {
		n.resolve()
	}
	gen := net.nextGeneration()
	for _, n := range batch {
		if n.motor && n.enabled && !n.destroyed {
			net.fire(n, gen, 0)
		}
	}
}

// Tick advances the network by dt seconds. Motors that are live, were live
// on the previous tick, or have a pending one-shot update fire a pass; the
// parts not in live mode then rotate locally from their last speed.
func (net *Network) Tick(dt float64) {
	net.Activate()
	net.stats.Ticks++

	parts := net.Nodes()
	gen := net.nextGeneration()
	for _, n := range parts {
		if !n.motor || !n.enabled || n.destroyed {
			continue
		}
		if !n.updateOnce && !n.liveUpdate && !n.wasLive {
			continue
		}
		n.updateOnce = false
		n.wasLive = n.liveUpdate
		net.fire(n, gen, dt)
	}

	for _, n := range parts {
		if n.enabled && !n.destroyed && !n.live {
			n.rotate(dt)
		}
	}
}

// Propagate runs a single pass from motor with a fresh generation,
// independent of the tick schedule.
func (net *Network) Propagate(motor *Node) {
	if motor == nil || !motor.motor || motor.net != net || !motor.enabled {
		return
	}
	net.Activate()
	net.fire(motor, net.nextGeneration(), 0)
}

func (net *Network) fire(n *Node, gen uint64, dt float64) {
	net.stats.Passes++
	if net.hooks.OnPass != nil {
		net.hooks.OnPass(n, gen)
	}
	n.originate(pass{generation: gen, live: n.liveUpdate, dt: dt})
}

func (net *Network) nextGeneration() uint64 {
	net.generation++
	return net.generation
}

func (net *Network) conflict(n *Node, p pass) {
	n.enabled = false
	net.stats.Conflicts++
	net.logger.Warn("power chain conflict, disabling part",
		"part", n.name,
		"kind", n.kind.String(),
		"generation", p.generation,
	)
	if net.hooks.OnConflict != nil {
		net.hooks.OnConflict(n, &ConflictError{Part: n.name, Kind: n.kind, Generation: p.generation})
	}
}

func (net *Network) unregister(n *Node) {
	if net.parts[n.name] == n {
		delete(net.parts, n.name)
	}
	net.order = removeNode(net.order, n)
	net.pending = removeNode(net.pending, n)
}

func removeNode(list []*Node, n *Node) []*Node {
	out := make([]*Node, 0, len(list))
	for _, o := range list {
		if o != n {
			out = append(out, o)
		}
	}
	return out
}
