package reach_test

import (
	"context"
	"errors"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/reach/internal/arm"
	"github.com/san-kum/reach/internal/control"
	"github.com/san-kum/reach/internal/dynamo"
	"github.com/san-kum/reach/internal/integrators"
	"github.com/san-kum/reach/internal/reach"
	"github.com/san-kum/reach/internal/simulator"
)

type countMetric struct{ n int }

func (c *countMetric) Name() string            { return "count" }
func (c *countMetric) Observe(s dynamo.Sample) { c.n++ }
func (c *countMetric) Value() float64          { return float64(c.n) }
func (c *countMetric) Reset()                  { c.n = 0 }

var _ = Describe("Driver", func() {
	var (
		ctx  context.Context
		sim  *fakeSim
		kin  *fakeKin
		ctrl *fakeCtrl
		cfg  reach.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		sim = &fakeSim{}
		kin = &fakeKin{sim: sim}
		ctrl = &fakeCtrl{}
		cfg = reach.DefaultConfig()
	})

	newDriver := func() *reach.Driver {
		return reach.NewDriver(sim, kin, ctrl, cfg, nil)
	}

	Describe("Start", func() {
		It("normalizes and publishes the first target", func() {
			st, err := newDriver().Start(reach.DefaultTargets())
			Expect(err).NotTo(HaveOccurred())
			Expect(st.TargetIndex).To(Equal(0))
			Expect(st.Target.Distance(cfg.Offset)).To(BeNumerically("~", 0.37, 1e-12))
			Expect(sim.marker).To(Equal(st.Target))
			Expect(sim.markerSets).To(Equal(1))
		})

		It("rejects an empty target list", func() {
			_, err := newDriver().Start(nil)
			Expect(err).To(MatchError(reach.ErrNoTargets))
		})

		It("reports a degenerate first target", func() {
			_, err := newDriver().Start([]r3.Vector{cfg.Offset})
			Expect(err).To(MatchError(reach.ErrDegenerateTarget))
			Expect(reach.Kind(err)).To(Equal(reach.ErrDegenerateTarget))
		})

		It("rejects an invalid config", func() {
			cfg.Dwell = 0
			_, err := newDriver().Start(reach.DefaultTargets())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("arrival", func() {
		It("advances after exactly dwell iterations within the threshold", func() {
			d := newDriver()
			st, err := d.Start(reach.DefaultTargets())
			Expect(err).NotTo(HaveOccurred())
			first := st.Target

			for i := 0; i < 199; i++ {
				Expect(d.Step(ctx, st)).To(Succeed())
			}
			Expect(st.TargetIndex).To(Equal(0))
			Expect(st.AtTargetCount).To(Equal(199))

			Expect(d.Step(ctx, st)).To(Succeed())
			Expect(st.TargetIndex).To(Equal(1))
			Expect(st.AtTargetCount).To(Equal(0))
			Expect(st.Target).NotTo(Equal(first))
			Expect(st.Arrivals).To(Equal([]int{199}))
			Expect(sim.markerSets).To(Equal(2))
		})

		It("does not count iterations outside the threshold", func() {
			kin.far = func(int) bool { return true }
			d := newDriver()
			st, err := d.Start(reach.DefaultTargets())
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 500; i++ {
				Expect(d.Step(ctx, st)).To(Succeed())
			}
			Expect(st.TargetIndex).To(Equal(0))
			Expect(st.AtTargetCount).To(Equal(0))
			Expect(st.Distances[0]).To(BeNumerically("~", 1, 1e-12))
		})

		Context("when the end-effector briefly leaves the target", func() {
			// 150 iterations on target, one off, then on again.
			leave := func(n int) bool { return n == 151 }

			It("keeps counting by default", func() {
				kin.far = leave
				d := newDriver()
				st, err := d.Start(reach.DefaultTargets())
				Expect(err).NotTo(HaveOccurred())
				for i := 0; i < 201; i++ {
					Expect(d.Step(ctx, st)).To(Succeed())
				}
				Expect(st.TargetIndex).To(Equal(1))
			})

			It("starts over in strict mode", func() {
				kin.far = leave
				cfg.StrictDwell = true
				d := newDriver()
				st, err := d.Start(reach.DefaultTargets())
				Expect(err).NotTo(HaveOccurred())
				for i := 0; i < 201; i++ {
					Expect(d.Step(ctx, st)).To(Succeed())
				}
				Expect(st.TargetIndex).To(Equal(0))
				Expect(st.AtTargetCount).To(Equal(50))

				for i := 0; i < 150; i++ {
					Expect(d.Step(ctx, st)).To(Succeed())
				}
				Expect(st.TargetIndex).To(Equal(1))
			})
		})
	})

	Describe("Run", func() {
		It("visits every target and stops", func() {
			m := &countMetric{}
			var seen []int
			d := newDriver()
			d.AddMetric(m)
			d.AddObserver(dynamo.ObserverFunc(func(s dynamo.Sample) {
				seen = append(seen, s.TargetIndex)
			}))

			st, err := d.Run(ctx, reach.DefaultTargets())
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Done).To(BeTrue())
			Expect(st.TargetIndex).To(Equal(2))
			Expect(st.Arrivals).To(Equal([]int{199, 399}))

			// the final arrival iteration is not recorded
			Expect(st.Len()).To(Equal(399))
			Expect(st.TargetTrack).To(HaveLen(399))
			Expect(st.Distances).To(HaveLen(399))
			Expect(m.n).To(Equal(399))
			Expect(seen[0]).To(Equal(0))
			Expect(seen[len(seen)-1]).To(Equal(1))

			Expect(sim.connects).To(Equal(1))
			Expect(sim.disconnects).To(Equal(1))
		})

		It("sends forces as float32 values", func() {
			_, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(err).NotTo(HaveOccurred())
			Expect(sim.forces).NotTo(BeEmpty())
			Expect(sim.forces[0]).To(Equal(dynamo.Control{float64(float32(0.5))}))
		})

		It("releases the simulator once when a step fails", func() {
			ctrl.err = errBoom
			st, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(err).To(MatchError(reach.ErrControllerFailed))
			Expect(err).To(MatchError(errBoom))

			var le *reach.LoopError
			Expect(errors.As(err, &le)).To(BeTrue())
			Expect(le.Iteration).To(Equal(0))
			Expect(le.TargetIndex).To(Equal(0))
			Expect(st).NotTo(BeNil())
			Expect(sim.disconnects).To(Equal(1))
		})

		It("wraps feedback failures as unreachable", func() {
			sim.feedbackErr = errBoom
			_, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(reach.Kind(err)).To(Equal(reach.ErrSimulatorUnreachable))
			Expect(sim.disconnects).To(Equal(1))
		})

		It("reports a non-finite simulator state as divergence", func() {
			sim.forceErr = &dynamo.StepError{Step: 3, Wrapped: dynamo.ErrInvalidState}
			_, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(reach.Kind(err)).To(Equal(reach.ErrSimulationDiverged))
			Expect(err).To(MatchError(dynamo.ErrInvalidState))
			Expect(err).NotTo(MatchError(reach.ErrSimulatorUnreachable))
			Expect(sim.disconnects).To(Equal(1))
		})

		It("wraps other force failures as unreachable", func() {
			sim.forceErr = simulator.ErrNotConnected
			_, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(reach.Kind(err)).To(Equal(reach.ErrSimulatorUnreachable))
			Expect(err).To(MatchError(simulator.ErrNotConnected))
		})

		It("wraps kinematics failures", func() {
			kin.err = arm.ErrUnknownFrame
			_, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(err).To(MatchError(reach.ErrKinematicsFailed))
			Expect(err).To(MatchError(arm.ErrUnknownFrame))
			Expect(sim.disconnects).To(Equal(1))
		})

		It("releases the simulator once when interrupted", func() {
			cctx, cancel := context.WithCancel(ctx)
			defer cancel()
			d := newDriver()
			d.AddObserver(dynamo.ObserverFunc(func(s dynamo.Sample) {
				if s.Iteration == 49 {
					cancel()
				}
			}))

			st, err := d.Run(cctx, reach.DefaultTargets())
			Expect(err).To(MatchError(context.Canceled))
			Expect(st.Len()).To(Equal(50))
			Expect(st.Done).To(BeFalse())
			Expect(sim.disconnects).To(Equal(1))
		})

		It("does not disconnect when connect fails", func() {
			sim.connectErr = errBoom
			_, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(err).To(MatchError(reach.ErrSimulatorUnreachable))
			Expect(sim.disconnects).To(Equal(0))
		})

		It("stops at the step budget", func() {
			kin.far = func(int) bool { return true }
			cfg.MaxSteps = 300
			st, err := newDriver().Run(ctx, reach.DefaultTargets())
			Expect(err).To(MatchError(reach.ErrStepBudget))
			Expect(st.Len()).To(Equal(300))
			Expect(sim.disconnects).To(Equal(1))
		})

		It("rejects an empty target list before connecting", func() {
			_, err := newDriver().Run(ctx, nil)
			Expect(err).To(MatchError(reach.ErrNoTargets))
			Expect(sim.connects).To(Equal(0))
		})
	})

	Describe("against the simulated arm", func() {
		It("reaches both default targets with the operational space controller", func() {
			link := arm.NewOneLink()
			local, err := simulator.NewLocal(link, integrators.NewRK4(), simulator.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())

			cfg.MaxSteps = 20000
			d := reach.NewDriver(local, link, control.NewOSC(link, 600, 0), cfg, nil)
			st, err := d.Run(ctx, reach.DefaultTargets())
			Expect(err).NotTo(HaveOccurred())
			Expect(st.TargetIndex).To(Equal(2))
			Expect(st.Arrivals).To(HaveLen(2))

			for _, tgt := range st.TargetTrack {
				Expect(tgt.Distance(cfg.Offset)).To(BeNumerically("~", 0.37, 1e-9))
			}
			Expect(st.TargetTrack[0].X).To(BeNumerically(">", 0))
			Expect(st.TargetTrack[st.Len()-1].X).To(BeNumerically("<", 0))

			stats := local.Stats()
			Expect(stats.Connects).To(Equal(1))
			Expect(stats.Disconnects).To(Equal(1))
			Expect(stats.Ticks).To(Equal(st.Count + 1))
		})

		It("stops with a divergence error when the integration blows up", func() {
			link := arm.NewOneLink()
			simCfg := simulator.DefaultConfig()
			simCfg.Dt = 0.5
			local, err := simulator.NewLocal(link, integrators.NewEuler(), simCfg)
			Expect(err).NotTo(HaveOccurred())

			cfg.MaxSteps = 1000
			d := reach.NewDriver(local, link, control.NewOSC(link, 600, 0), cfg, nil)
			st, err := d.Run(ctx, reach.DefaultTargets())
			Expect(reach.Kind(err)).To(Equal(reach.ErrSimulationDiverged))
			Expect(st.Count).To(BeNumerically("<", 1000))
			Expect(local.Stats().Disconnects).To(Equal(1))
		})
	})
})
