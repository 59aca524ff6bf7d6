package sim

import "github.com/san-kum/powerchain/internal/powerchain"

// None leaves the wiring alone.
type None struct{}

func NewNone() *None { return &None{} }

func (*None) Apply(*powerchain.Network, int, float64) {}
