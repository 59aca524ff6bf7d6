// Package powerchain propagates angular speed through a network of
// mechanically coupled parts.
//
// A [Network] owns a registry of [Node] values. Each node is one part:
//
//   - [KindShaft]: 1:1 pass-through, no geometry
//   - [KindGear]: spur gear, ratio taken from its tooth count
//   - [KindWormGear]: single-start worm, modelled as a sign inversion
//
// Any node may additionally be a motor. Motors originate propagation passes
// that walk the "drives" edges ([Node.Connect]) and stamp a speed onto every
// reachable part. Two signals reaching the same non-motor part within one
// drive stage is a structural conflict: the part is disabled and the pass
// stops there, which also bounds recursion on cyclic wiring.
//
// # Example
//
//	net := powerchain.New()
//	m := net.Add("motor", nil, powerchain.AsMotor(60))
//	a := net.Add("a", powerchain.Spur{Teeth: 10})
//	b := net.Add("b", powerchain.Spur{Teeth: 20})
//	m.Connect(a)
//	a.Connect(b)
//	net.Tick(1.0 / 60)
//	fmt.Println(b.RPM()) // -30
//
// # Thread Safety
//
// A Network is NOT safe for concurrent use. Callers sharing one across
// goroutines (the HTTP server, for instance) must serialise access.
package powerchain
