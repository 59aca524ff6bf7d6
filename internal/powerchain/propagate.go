package powerchain

// pass is the state shared by every hop of one propagation.
type pass struct {
	generation uint64
	live       bool
	dt         float64
}

// ownRatio is the factor this part applies when converting an incoming
// speed: 1 for a shaft, tooth count for a gear, ±1 for a worm.
func (n *Node) ownRatio() int {
	switch n.kind {
	case KindGear:
		return n.teeth
	case KindWormGear:
		r := 1
		if n.handedness == LeftHanded {
			r = -1
		}
		if n.InvertWormOutput {
			r = -r
		}
		return r
	default:
		return 1
	}
}

// startRatio is the token a motor hands to itself when it originates a pass.
func (n *Node) startRatio() int {
	if n.kind == KindShaft {
		return 0
	}
	return n.ownRatio()
}

func (n *Node) resolve() {
	if n.resolved {
		return
	}
	n.kind, n.teeth, n.handedness = resolveKind(n.geom)
	n.resolved = true
}

// originate starts a pass at a motor. The motor overwrites its stamp
// unconditionally.
func (n *Node) originate(p pass) {
	n.live = n.liveUpdate
	n.step(n.startRatio(), n.sourceSpeed*RPMScale, p)
}

// receive is one incoming drive edge.
func (n *Node) receive(ratio int, speed float64, p pass) {
	if !n.enabled {
		return
	}
	if n.motor {
		// A motor may be re-entered once per generation; a second arrival
		// means motors are feeding each other.
		if n.received == p.generation {
			n.net.conflict(n, p)
			return
		}
		n.received = p.generation
	} else {
		if n.generation == p.generation {
			n.net.conflict(n, p)
			return
		}
		n.live = p.live
	}
	n.step(ratio, speed, p)
}

func (n *Node) step(ratio int, speed float64, p pass) {
	n.resolve()
	n.generation = p.generation
	n.net.stats.Visits++

	own := n.ownRatio()
	next := ratio
	if n.kind == KindShaft {
		n.actualSpeed = speed
	} else {
		if ratio == 0 {
			ratio = -own
		}
		n.actualSpeed = float64(ratio) / float64(own) * -speed
		next = own
	}

	// Walk a snapshot; hooks fired further down may rewire this node.
	targets := n.outputs
	dead := 0
	for _, t := range targets {
		if t == nil || t.destroyed {
			dead++
			continue
		}
		t.receive(next, n.actualSpeed, p)
	}
	if dead > 0 {
		n.prune()
	}

	if p.live {
		n.rotate(p.dt)
	}
}

// prune rebuilds outputs from its current contents without destroyed parts.
func (n *Node) prune() {
	kept := make([]*Node, 0, len(n.outputs))
	for _, t := range n.outputs {
		if t == nil || t.destroyed {
			n.net.stats.Pruned++
			continue
		}
		kept = append(kept, t)
	}
	n.outputs = kept
}
