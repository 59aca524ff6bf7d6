package powerchain

import "math"

// RPMScale converts revolutions per minute to the internal unit
// (degrees per second): 360 / 60.
const RPMScale = 6.0

// Node is one mechanical part. Nodes are created through Network.Add and
// belong to exactly one network.
type Node struct {
	name string
	net  *Network
	geom any

	kind       Kind
	teeth      int
	handedness Handedness
	resolved   bool

	InvertWormOutput bool

	motor       bool
	sourceSpeed float64 // rpm
	updateOnce  bool
	liveUpdate  bool
	wasLive     bool

	live        bool
	actualSpeed float64 // degrees/second
	angle       float64 // degrees
	generation  uint64
	received    uint64

	outputs   []*Node
	enabled   bool
	destroyed bool
}

// Option configures a node at creation.
type Option func(*Node)

// AsMotor marks the node as a driving source with the given speed in RPM.
// The motor fires once at activation.
func AsMotor(rpm float64) Option {
	return func(n *Node) {
		n.motor = true
		n.sourceSpeed = rpm
	}
}

// WithLiveUpdate makes a motor re-propagate every tick and rotate its train
// during the pass.
func WithLiveUpdate(live bool) Option {
	return func(n *Node) { n.liveUpdate = live }
}

// WithUpdateOnce schedules one pass on the next tick.
func WithUpdateOnce() Option {
	return func(n *Node) { n.updateOnce = true }
}

// WithInvertedOutput flips the direction of a worm's output.
func WithInvertedOutput(invert bool) Option {
	return func(n *Node) { n.InvertWormOutput = invert }
}

func (n *Node) Name() string { return n.name }

// Kind reports the resolved kind. Before activation it reports what the
// geometry would resolve to.
func (n *Node) Kind() Kind {
	if !n.resolved {
		k, _, _ := resolveKind(n.geom)
		return k
	}
	return n.kind
}

func (n *Node) Teeth() int             { return n.teeth }
func (n *Node) Handedness() Handedness { return n.handedness }
func (n *Node) IsMotor() bool          { return n.motor }
func (n *Node) Enabled() bool          { return n.enabled }
func (n *Node) Destroyed() bool        { return n.destroyed }
func (n *Node) Live() bool             { return n.live }
func (n *Node) LiveUpdate() bool       { return n.liveUpdate }
func (n *Node) Generation() uint64     { return n.generation }

// ActualSpeed is the last computed speed in degrees per second.
func (n *Node) ActualSpeed() float64 { return n.actualSpeed }

// RPM is the last computed speed in revolutions per minute.
func (n *Node) RPM() float64 { return n.actualSpeed / RPMScale }

// Angle is the visible rotation about the drive axis, in [0, 360).
func (n *Node) Angle() float64 { return n.angle }

// Speed returns the configured source speed in RPM, or 0 for non-motors.
func (n *Node) Speed() float64 {
	if !n.motor {
		return 0
	}
	return n.sourceSpeed
}

// SetSpeed changes a motor's source speed. It has no effect on non-motors.
func (n *Node) SetSpeed(rpm float64) {
	if !n.motor {
		return
	}
	n.sourceSpeed = rpm
}

// SetLiveUpdate switches a motor between continuous and one-shot passes.
func (n *Node) SetLiveUpdate(live bool) {
	if !n.motor {
		return
	}
	n.liveUpdate = live
}

// RequestUpdate schedules a single pass from this motor on the next tick.
func (n *Node) RequestUpdate() {
	if !n.motor {
		return
	}
	n.updateOnce = true
}

// Enable re-admits a node disabled by a conflict. Its generation stamp is
// cleared so it can take part in the next pass.
func (n *Node) Enable() {
	if n.destroyed {
		return
	}
	n.enabled = true
	n.generation = 0
	n.received = 0
}

// Destroy removes the node from its network. Drivers still pointing at it
// prune the reference on their next pass.
func (n *Node) Destroy() {
	if n.destroyed {
		return
	}
	n.destroyed = true
	n.enabled = false
	n.outputs = nil
	if n.net != nil {
		n.net.unregister(n)
	}
}

// Outputs returns a copy of the downstream edges.
func (n *Node) Outputs() []*Node {
	out := make([]*Node, len(n.outputs))
	copy(out, n.outputs)
	return out
}

// Connect appends target to the driven parts. Duplicates are kept.
func (n *Node) Connect(target *Node) {
	if target == nil {
		return
	}
	n.outputs = append(n.outputs, target)
}

// Disconnect removes the first edge to target, if any.
func (n *Node) Disconnect(target *Node) {
	if target == nil {
		return
	}
	for i, o := range n.outputs {
		if o == target {
			n.removeAt(i)
			return
		}
	}
}

// DisconnectAll clears every downstream edge.
func (n *Node) DisconnectAll() {
	n.outputs = nil
}

// DisconnectIndex removes edge i. Out-of-range indices are ignored.
func (n *Node) DisconnectIndex(i int) {
	if i < 0 || i >= len(n.outputs) {
		return
	}
	n.removeAt(i)
}

// ConnectByName connects to the registered part called name, if it exists.
func (n *Node) ConnectByName(name string) {
	if n.net == nil {
		return
	}
	n.Connect(n.net.Lookup(name))
}

// DisconnectByName disconnects from the registered part called name.
func (n *Node) DisconnectByName(name string) {
	if n.net == nil {
		return
	}
	n.Disconnect(n.net.Lookup(name))
}

func (n *Node) removeAt(i int) {
	out := make([]*Node, 0, len(n.outputs)-1)
	out = append(out, n.outputs[:i]...)
	n.outputs = append(out, n.outputs[i+1:]...)
}

// rotate advances the visible angle by -speed*dt, wrapped to [0, 360).
func (n *Node) rotate(dt float64) {
	if dt == 0 || n.actualSpeed == 0 {
		return
	}
	a := math.Mod(n.angle-n.actualSpeed*dt, 360)
	if a < 0 {
		a += 360
	}
	n.angle = a
}
