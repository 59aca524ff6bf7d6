package powerchain_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/powerchain/internal/powerchain"
)

const tick = 1.0 / 60

var _ = Describe("Propagation", func() {
	var net *powerchain.Network

	BeforeEach(func() {
		net = powerchain.New()
	})

	Describe("gear ratios", func() {
		It("reduces speed by the tooth ratio and reverses meshed gears", func() {
			m := net.MustAdd("motor", nil, powerchain.AsMotor(60))
			a := net.MustAdd("a", powerchain.Spur{Teeth: 10})
			b := net.MustAdd("b", powerchain.Spur{Teeth: 20})
			m.Connect(a)
			a.Connect(b)

			net.Activate()

			Expect(m.RPM()).To(BeNumerically("~", 60, 1e-9))
			Expect(a.RPM()).To(BeNumerically("~", 60, 1e-9))
			Expect(b.RPM()).To(BeNumerically("~", -30, 1e-9))
			Expect(b.ActualSpeed()).To(BeNumerically("~", -180, 1e-9))
		})

		It("runs a gear motor against its configured direction", func() {
			m := net.MustAdd("motor", powerchain.Spur{Teeth: 10}, powerchain.AsMotor(60))
			b := net.MustAdd("b", powerchain.Spur{Teeth: 20})
			m.Connect(b)

			net.Activate()

			Expect(m.RPM()).To(BeNumerically("~", -60, 1e-9))
			Expect(b.RPM()).To(BeNumerically("~", 30, 1e-9))
		})

		It("leaves the ratio unchanged when a shaft sits between two gears", func() {
			direct := powerchain.New()
			dm := direct.MustAdd("motor", nil, powerchain.AsMotor(60))
			d1 := direct.MustAdd("g1", powerchain.Spur{Teeth: 10})
			d2 := direct.MustAdd("g2", powerchain.Spur{Teeth: 20})
			dm.Connect(d1)
			d1.Connect(d2)
			direct.Activate()

			m := net.MustAdd("motor", nil, powerchain.AsMotor(60))
			g1 := net.MustAdd("g1", powerchain.Spur{Teeth: 10})
			s := net.MustAdd("shaft", nil)
			g2 := net.MustAdd("g2", powerchain.Spur{Teeth: 20})
			m.Connect(g1)
			g1.Connect(s)
			s.Connect(g2)
			net.Activate()

			Expect(s.RPM()).To(BeNumerically("~", g1.RPM(), 1e-9))
			Expect(g2.RPM()).To(BeNumerically("~", d2.RPM(), 1e-9))
		})
	})

	Describe("worm gears", func() {
		wormRPM := func(hand powerchain.Handedness, invert bool) float64 {
			n := powerchain.New()
			m := n.MustAdd("motor", nil, powerchain.AsMotor(60))
			g := n.MustAdd("g", powerchain.Spur{Teeth: 10})
			w := n.MustAdd("w", powerchain.Worm{Hand: hand}, powerchain.WithInvertedOutput(invert))
			m.Connect(g)
			g.Connect(w)
			n.Activate()
			return w.RPM()
		}

		It("flips direction when the output is inverted", func() {
			plain := wormRPM(powerchain.LeftHanded, false)
			inverted := wormRPM(powerchain.LeftHanded, true)

			Expect(plain).NotTo(BeZero())
			Expect(inverted).To(BeNumerically("~", -plain, 1e-9))
		})

		It("treats handedness as a sign", func() {
			Expect(wormRPM(powerchain.RightHanded, false)).
				To(BeNumerically("~", -wormRPM(powerchain.LeftHanded, false), 1e-9))
			Expect(wormRPM(powerchain.RightHanded, false)).
				To(BeNumerically("~", wormRPM(powerchain.LeftHanded, true), 1e-9))
		})
	})

	Describe("conflicts", func() {
		It("terminates on a cycle through a motor and disables a part in it", func() {
			a := net.MustAdd("a", nil, powerchain.AsMotor(60), powerchain.WithLiveUpdate(true))
			b := net.MustAdd("b", powerchain.Spur{Teeth: 10})
			c := net.MustAdd("c", powerchain.Spur{Teeth: 20})
			a.Connect(b)
			b.Connect(c)
			c.Connect(a)

			for i := 0; i < 10; i++ {
				net.Tick(tick)
			}

			Expect(b.Enabled()).To(BeFalse())
			Expect(c.Enabled()).To(BeTrue())
			Expect(net.Stats().Conflicts).To(Equal(uint64(1)))
		})

		It("terminates when two motors drive each other", func() {
			m1 := net.MustAdd("m1", nil, powerchain.AsMotor(60))
			m2 := net.MustAdd("m2", nil, powerchain.AsMotor(30))
			m1.Connect(m2)
			m2.Connect(m1)

			net.Tick(tick)

			disabled := 0
			for _, n := range net.Nodes() {
				if !n.Enabled() {
					disabled++
				}
			}
			Expect(disabled).To(BeNumerically(">=", 1))
		})

		It("disables a part fed by two motors and keeps the first speed", func() {
			m1 := net.MustAdd("m1", nil, powerchain.AsMotor(60))
			m2 := net.MustAdd("m2", nil, powerchain.AsMotor(30))
			t := net.MustAdd("t", powerchain.Spur{Teeth: 10})
			m1.Connect(t)
			m2.Connect(t)

			net.Activate()

			Expect(t.Enabled()).To(BeFalse())
			Expect(t.RPM()).To(BeNumerically("~", 60, 1e-9))

			m2.RequestUpdate()
			net.Tick(tick)
			Expect(t.RPM()).To(BeNumerically("~", 60, 1e-9))
		})

		It("keeps a disabled part out of the train until it is re-enabled", func() {
			m1 := net.MustAdd("m1", nil, powerchain.AsMotor(60))
			m2 := net.MustAdd("m2", nil, powerchain.AsMotor(30))
			t := net.MustAdd("t", powerchain.Spur{Teeth: 10})
			m1.Connect(t)
			m2.Connect(t)
			net.Activate()
			Expect(t.Enabled()).To(BeFalse())

			m2.DisconnectAll()
			m1.RequestUpdate()
			net.Tick(tick)
			Expect(t.Enabled()).To(BeFalse())

			t.Enable()
			m1.SetSpeed(120)
			m1.RequestUpdate()
			net.Tick(tick)
			Expect(t.Enabled()).To(BeTrue())
			Expect(t.RPM()).To(BeNumerically("~", 120, 1e-9))
		})

		It("reports the conflicting part through the hook", func() {
			var got []*powerchain.ConflictError
			net.SetHooks(powerchain.Hooks{
				OnConflict: func(n *powerchain.Node, err *powerchain.ConflictError) {
					got = append(got, err)
				},
			})
			m1 := net.MustAdd("m1", nil, powerchain.AsMotor(60))
			m2 := net.MustAdd("m2", nil, powerchain.AsMotor(60))
			t := net.MustAdd("t", nil)
			m1.Connect(t)
			m2.Connect(t)

			net.Activate()

			Expect(got).To(HaveLen(1))
			Expect(got[0].Part).To(Equal("t"))
			Expect(errors.Is(got[0], powerchain.ErrConflict)).To(BeTrue())
		})

		It("tolerates rewiring from inside a pass", func() {
			m1 := net.MustAdd("m1", nil, powerchain.AsMotor(60))
			m2 := net.MustAdd("m2", nil, powerchain.AsMotor(60))
			dead := net.MustAdd("dead", nil)
			t := net.MustAdd("t", nil)
			spare := net.MustAdd("spare", nil)
			m1.Connect(t)
			m2.Connect(dead)
			m2.Connect(t)
			dead.Destroy()

			net.SetHooks(powerchain.Hooks{
				OnConflict: func(n *powerchain.Node, err *powerchain.ConflictError) {
					net.DisconnectFromAllDrivers(n)
					m2.Connect(spare)
				},
			})
			net.Activate()

			Expect(m1.Outputs()).To(BeEmpty())
			Expect(m2.Outputs()).To(Equal([]*powerchain.Node{spare}))
		})
	})

	Describe("pruning", func() {
		It("drops destroyed parts from the driver on the next pass", func() {
			m := net.MustAdd("motor", nil, powerchain.AsMotor(60))
			a := net.MustAdd("a", powerchain.Spur{Teeth: 10})
			b := net.MustAdd("b", powerchain.Spur{Teeth: 10})
			m.Connect(a)
			m.Connect(b)
			net.Activate()

			a.Destroy()
			Expect(m.Outputs()).To(HaveLen(2))
			Expect(net.Lookup("a")).To(BeNil())

			m.RequestUpdate()
			Expect(func() { net.Tick(tick) }).NotTo(Panic())
			Expect(m.Outputs()).To(Equal([]*powerchain.Node{b}))
			Expect(net.Stats().Pruned).To(Equal(uint64(1)))
		})
	})

	Describe("tick schedule", func() {
		It("rotates deferred parts locally every tick", func() {
			m := net.MustAdd("motor", nil, powerchain.AsMotor(60))
			g := net.MustAdd("g", powerchain.Spur{Teeth: 10})
			m.Connect(g)

			net.Tick(0.5)
			Expect(g.Angle()).To(BeNumerically("~", 180, 1e-9))
			net.Tick(0.25)
			Expect(g.Angle()).To(BeNumerically("~", 90, 1e-9))
			Expect(net.Stats().Passes).To(Equal(uint64(1)))
		})

		It("rotates live trains during the pass and hands back to local rotation", func() {
			m := net.MustAdd("motor", nil, powerchain.AsMotor(60), powerchain.WithLiveUpdate(true))
			g := net.MustAdd("g", powerchain.Spur{Teeth: 10})
			m.Connect(g)

			net.Tick(0.1)
			Expect(g.Live()).To(BeTrue())
			Expect(g.Angle()).To(BeNumerically("~", 324, 1e-9))

			m.SetLiveUpdate(false)
			net.Tick(0.1)
			Expect(g.Live()).To(BeFalse())
			Expect(g.Angle()).To(BeNumerically("~", 288, 1e-9))

			passes := net.Stats().Passes
			net.Tick(0.1)
			Expect(net.Stats().Passes).To(Equal(passes))
			Expect(g.Angle()).To(BeNumerically("~", 252, 1e-9))
		})

		It("fires a one-shot update exactly once", func() {
			m := net.MustAdd("motor", nil, powerchain.AsMotor(60), powerchain.WithUpdateOnce())
			net.Tick(tick)
			net.Tick(tick)
			net.Tick(tick)

			// activation plus the one-shot
			Expect(net.Stats().Passes).To(Equal(uint64(2)))
			Expect(m.RPM()).To(BeNumerically("~", 60, 1e-9))
		})

		It("hands out increasing generations", func() {
			net.MustAdd("motor", nil, powerchain.AsMotor(60), powerchain.WithLiveUpdate(true))
			var last uint64
			for i := 0; i < 5; i++ {
				net.Tick(tick)
				Expect(net.Generation()).To(BeNumerically(">", last))
				last = net.Generation()
			}
		})
	})
})
