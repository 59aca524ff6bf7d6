package powerchain

import (
	"fmt"
	"strings"
)

// Kind is the mechanical behaviour of a part. It is resolved once from the
// attached geometry and never changes afterwards.
type Kind int

const (
	KindShaft Kind = iota
	KindGear
	KindWormGear
)

func (k Kind) String() string {
	switch k {
	case KindShaft:
		return "shaft"
	case KindGear:
		return "gear"
	case KindWormGear:
		return "worm"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Handedness is the thread direction of a worm.
type Handedness int

const (
	RightHanded Handedness = iota
	LeftHanded
)

func (h Handedness) String() string {
	if h == LeftHanded {
		return "left"
	}
	return "right"
}

// ParseHandedness accepts "left"/"l" and "right"/"r" in any case.
func ParseHandedness(s string) (Handedness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return LeftHanded, nil
	case "right", "r", "":
		return RightHanded, nil
	default:
		return RightHanded, fmt.Errorf("unknown handedness: %s", s)
	}
}

// GearGeometry is implemented by attached spur gear meshes.
type GearGeometry interface {
	TeethCount() int
}

// WormGeometry is implemented by attached worm meshes. It takes precedence
// over GearGeometry when a provider implements both.
type WormGeometry interface {
	Handedness() Handedness
}

// Spur is a minimal spur gear geometry.
type Spur struct {
	Teeth int
}

func (s Spur) TeethCount() int { return s.Teeth }

// Worm is a minimal worm geometry.
type Worm struct {
	Hand Handedness
}

func (w Worm) Handedness() Handedness { return w.Hand }

// resolveKind reads the geometry once. Anything that is neither a worm nor
// a gear with at least one tooth behaves as a shaft.
func resolveKind(geom any) (Kind, int, Handedness) {
	if w, ok := geom.(WormGeometry); ok {
		return KindWormGear, 1, w.Handedness()
	}
	if g, ok := geom.(GearGeometry); ok && g.TeethCount() > 0 {
		return KindGear, g.TeethCount(), RightHanded
	}
	return KindShaft, 1, RightHanded
}
