package simulator_test

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/integrators"
	"github.com/san-kum/reach/internal/simulator"
)

var _ = Describe("Local", func() {
	var (
		ctx  context.Context
		link *arm.OneLink
		sim  *simulator.Local
	)

	BeforeEach(func() {
		ctx = context.Background()
		link = arm.NewOneLink()
		var err error
		sim, err = simulator.NewLocal(link, integrators.NewRK4(), simulator.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("connection lifecycle", func() {
		It("rejects calls before Connect", func() {
			_, err := sim.GetFeedback(ctx)
			Expect(err).To(MatchError(simulator.ErrNotConnected))
			Expect(sim.SendForces(ctx, dynamo.Control{0})).To(MatchError(simulator.ErrNotConnected))
			Expect(sim.SetXYZ("target", r3.Vector{})).To(MatchError(simulator.ErrNotConnected))
			Expect(sim.Disconnect()).To(MatchError(simulator.ErrNotConnected))
		})

		It("connects once and disconnects once", func() {
			Expect(sim.Connect(ctx)).To(Succeed())
			Expect(sim.Connect(ctx)).To(MatchError(simulator.ErrAlreadyConnected))
			Expect(sim.Disconnect()).To(Succeed())
			Expect(sim.Disconnect()).To(MatchError(simulator.ErrNotConnected))

			stats := sim.Stats()
			Expect(stats.Connects).To(Equal(1))
			Expect(stats.Disconnects).To(Equal(1))
		})

		It("honours a canceled context", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			Expect(sim.Connect(cctx)).To(MatchError(context.Canceled))
		})
	})

	Describe("stepping", func() {
		BeforeEach(func() {
			Expect(sim.Connect(ctx)).To(Succeed())
		})

		It("reports the initial joint state", func() {
			fb, err := sim.GetFeedback(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fb.Q).To(Equal(dynamo.State{0}))
			Expect(fb.DQ).To(Equal(dynamo.State{0}))
			Expect(fb.Time).To(BeZero())
		})

		It("advances one tick per force command", func() {
			for i := 0; i < 10; i++ {
				Expect(sim.SendForces(ctx, dynamo.Control{1})).To(Succeed())
			}
			fb, err := sim.GetFeedback(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fb.Time).To(BeNumerically("~", 10*sim.Dt(), 1e-12))
			Expect(fb.DQ[0]).To(BeNumerically(">", 0))
			Expect(sim.Stats().Ticks).To(Equal(10))
		})

		It("holds still under gravity compensation", func() {
			g, err := link.G(dynamo.State{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(sim.SendForces(ctx, dynamo.Control(g))).To(Succeed())
			fb, _ := sim.GetFeedback(ctx)
			Expect(math.Abs(fb.Q[0])).To(BeNumerically("<", 1e-12))
		})

		It("rejects force vectors of the wrong length", func() {
			err := sim.SendForces(ctx, dynamo.Control{1, 2})
			Expect(err).To(MatchError(simulator.ErrDimensionMismatch))
		})

		It("returns copies of the joint state", func() {
			fb, _ := sim.GetFeedback(ctx)
			fb.Q[0] = 42
			again, _ := sim.GetFeedback(ctx)
			Expect(again.Q[0]).To(BeZero())
		})

		It("restarts from the initial state on reconnect", func() {
			Expect(sim.SendForces(ctx, dynamo.Control{5})).To(Succeed())
			Expect(sim.Disconnect()).To(Succeed())
			Expect(sim.Connect(ctx)).To(Succeed())
			fb, _ := sim.GetFeedback(ctx)
			Expect(fb.Time).To(BeZero())
			Expect(fb.DQ[0]).To(BeZero())
		})
	})

	Describe("force clipping", func() {
		It("limits the applied force", func() {
			cfg := simulator.DefaultConfig()
			cfg.MaxForce = 0.5
			clipped, err := simulator.NewLocal(link, integrators.NewRK4(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(clipped.Connect(ctx)).To(Succeed())
			Expect(sim.Connect(ctx)).To(Succeed())

			Expect(clipped.SendForces(ctx, dynamo.Control{100})).To(Succeed())
			Expect(sim.SendForces(ctx, dynamo.Control{0.5})).To(Succeed())

			a, _ := clipped.GetFeedback(ctx)
			b, _ := sim.GetFeedback(ctx)
			Expect(a.DQ[0]).To(BeNumerically("~", b.DQ[0], 1e-12))
		})
	})

	Describe("markers", func() {
		BeforeEach(func() {
			Expect(sim.Connect(ctx)).To(Succeed())
		})

		It("stores the marker position", func() {
			xyz := r3.Vector{X: 0.27, Y: 0, Z: 0.35}
			Expect(sim.SetXYZ("target", xyz)).To(Succeed())
			got, ok := sim.Marker("target")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(xyz))
			Expect(sim.Markers()).To(ConsistOf("target"))
		})

		It("rejects unknown markers", func() {
			Expect(sim.SetXYZ("obstacle", r3.Vector{})).To(MatchError(simulator.ErrUnknownMarker))
		})
	})

	It("validates its configuration", func() {
		_, err := simulator.NewLocal(link, integrators.NewRK4(), simulator.Config{Dt: 0})
		Expect(err).To(HaveOccurred())

		_, err = simulator.NewLocal(link, integrators.NewRK4(), simulator.Config{Dt: 0.01, InitialQ: dynamo.State{0, 0}})
		Expect(err).To(HaveOccurred())
	})
})
