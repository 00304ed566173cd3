package dynamo

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/crosstrack/internal/control"
	"github.com/san-kum/crosstrack/internal/vmath"
)

func mustLoop(cfg Config) *Loop {
	l, err := NewLoop(cfg)
	Expect(err).NotTo(HaveOccurred())
	return l
}

func runStatic(l *Loop, target vmath.Vec2, dt float64, steps int) Snapshot {
	var snap Snapshot
	for i := 0; i < steps; i++ {
		var err error
		snap, err = l.Tick(target, dt)
		Expect(err).NotTo(HaveOccurred())
	}
	return snap
}

var _ = Describe("Loop", func() {
	var cfg Config

	BeforeEach(func() {
		cfg = DefaultConfig()
	})

	Describe("construction", func() {
		It("rejects a negative offset", func() {
			cfg.Offset = -5
			_, err := NewLoop(cfg)
			Expect(err).To(MatchError(ErrInvalidOffset))
		})

		It("rejects negative gains", func() {
			cfg.Y.D = -0.1
			_, err := NewLoop(cfg)
			Expect(err).To(MatchError(ErrNegativeGain))
		})

		It("rejects a non-positive error gain", func() {
			cfg.ErrorGain = -200
			_, err := NewLoop(cfg)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("rejects an inverted scale range", func() {
			cfg.Scale = ScaleConfig{Enabled: true, Min: 10, Max: 1}
			_, err := NewLoop(cfg)
			Expect(err).To(MatchError(ErrInvalidConfig))
		})

		It("starts at rest at the configured position", func() {
			l := mustLoop(cfg)
			snap := l.Snapshot()
			Expect(snap.Position).To(Equal(vmath.V2(540, 360)))
			Expect(snap.Velocity).To(Equal(vmath.Zero))
			Expect(snap.Tick).To(BeZero())
		})
	})

	Describe("a single tick with the target 100 units below", func() {
		var snap Snapshot

		BeforeEach(func() {
			l := mustLoop(cfg)
			var err error
			snap, err = l.Tick(vmath.V2(540, 460), 1)
			Expect(err).NotTo(HaveOccurred())
		})

		It("produces a downward error and no horizontal error", func() {
			Expect(snap.ErrorY).To(BeNumerically(">", 0))
			Expect(snap.ErrorX).To(BeZero())
		})

		It("applies the full PID formula on the first tick", func() {
			Expect(snap.OutputX).To(BeZero())
			Expect(snap.OutputY).To(BeNumerically("~", (0.25+0.1+0.1)*snap.ErrorY, 1e-12))
		})

		It("integrates output into velocity and velocity into position", func() {
			Expect(snap.Velocity.X).To(BeZero())
			Expect(snap.Velocity.Y).To(BeNumerically("~", snap.OutputY, 1e-12))
			Expect(snap.Position.X).To(Equal(540.0))
			Expect(snap.Position.Y).To(BeNumerically("~", 360+snap.Velocity.Y, 1e-12))
		})

		It("exposes controller internals", func() {
			Expect(snap.Y.Integral).To(BeNumerically("~", snap.ErrorY, 1e-12))
			Expect(snap.Y.LastError).To(Equal(snap.ErrorY))
			Expect(snap.X.Integral).To(BeZero())
			Expect(snap.Scale).To(Equal(1.0))
		})
	})

	It("stays put when the target sits on the array", func() {
		l := mustLoop(cfg)
		snap := runStatic(l, cfg.Start, 1.0/60, 120)
		Expect(snap.ErrorX).To(BeZero())
		Expect(snap.ErrorY).To(BeZero())
		Expect(snap.Position).To(Equal(cfg.Start))
	})

	Describe("time step guard", func() {
		It("clamps a zero dt instead of producing NaN", func() {
			l := mustLoop(cfg)
			snap, err := l.Tick(vmath.V2(600, 400), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Dt).To(Equal(control.MinDt))
			Expect(snap.IsValid()).To(BeTrue())
			Expect(math.IsNaN(snap.X.Derivative)).To(BeFalse())

			snap, err = l.Tick(vmath.V2(600, 400), 1.0/60)
			Expect(err).NotTo(HaveOccurred())
			Expect(math.IsNaN(snap.OutputX) || math.IsInf(snap.OutputX, 0)).To(BeFalse())
			Expect(math.IsNaN(snap.Y.Integral)).To(BeFalse())
		})

		It("clamps a negative dt", func() {
			l := mustLoop(cfg)
			snap, err := l.Tick(vmath.V2(500, 300), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Dt).To(Equal(cfg.MinDt))
			Expect(snap.IsValid()).To(BeTrue())
		})

		It("rejects NaN and infinite dt without touching state", func() {
			l := mustLoop(cfg)
			runStatic(l, vmath.V2(540, 460), 0.1, 3)
			before := l.Snapshot()

			for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				_, err := l.Tick(vmath.V2(540, 460), dt)
				Expect(err).To(MatchError(ErrInvalidDt))
				Expect(l.Snapshot()).To(Equal(before))
			}
		})
	})

	It("rejects a NaN target without touching state", func() {
		l := mustLoop(cfg)
		runStatic(l, vmath.V2(600, 400), 0.1, 3)
		before := l.Snapshot()

		_, err := l.Tick(vmath.V2(math.NaN(), 1), 0.1)
		Expect(err).To(MatchError(ErrInvalidTarget))
		Expect(l.Snapshot()).To(Equal(before))
	})

	Describe("closed-loop behaviour", func() {
		It("converges onto a static target with PD gains", func() {
			cfg.X = control.Gains{P: 1, I: 0, D: 1}
			cfg.Y = cfg.X
			l := mustLoop(cfg)
			target := vmath.V2(620, 300)

			snap := runStatic(l, target, 1.0/60, 60*30)
			Expect(snap.Distance()).To(BeNumerically("<", 0.5))
			Expect(snap.Velocity.Len()).To(BeNumerically("<", 0.5))
		})

		It("stays near the target with noise enabled", func() {
			cfg.X = control.Gains{P: 1, I: 0, D: 1}
			cfg.Y = cfg.X
			cfg.Noise = true
			l := mustLoop(cfg)
			target := vmath.V2(560, 380)

			snap := runStatic(l, target, 1.0/60, 60*30)
			Expect(snap.IsValid()).To(BeTrue())
			Expect(snap.Distance()).To(BeNumerically("<", 5))
		})

		It("is reproducible for the same noise seed", func() {
			cfg.Noise = true
			a := runStatic(mustLoop(cfg), vmath.V2(560, 380), 1.0/60, 200)
			b := runStatic(mustLoop(cfg), vmath.V2(560, 380), 1.0/60, 200)
			Expect(a).To(Equal(b))
		})
	})

	Describe("operator tuning", func() {
		It("keeps integral and last error across a gain change", func() {
			l := mustLoop(cfg)
			runStatic(l, vmath.V2(600, 420), 0.05, 10)
			before := l.Snapshot()

			Expect(l.SetGains(AxisBoth, control.Gains{P: 0.5, I: 0.2, D: 0.05})).To(Succeed())
			after := l.Snapshot()

			Expect(after.X.Integral).To(Equal(before.X.Integral))
			Expect(after.Y.LastError).To(Equal(before.Y.LastError))
			Expect(after.X.Gains).To(Equal(control.Gains{P: 0.5, I: 0.2, D: 0.05}))
		})

		It("nudges one axis or both", func() {
			l := mustLoop(cfg)
			Expect(l.Nudge(AxisX, "kp", control.GainStep)).To(Succeed())
			Expect(l.Gains(AxisX).P).To(BeNumerically("~", 0.26, 1e-12))
			Expect(l.Gains(AxisY).P).To(BeNumerically("~", 0.25, 1e-12))

			Expect(l.Nudge(AxisBoth, "kd", -1)).To(Succeed())
			Expect(l.Gains(AxisX).D).To(BeZero())
			Expect(l.Gains(AxisY).D).To(BeZero())

			Expect(l.Nudge(AxisBoth, "kz", 1)).To(MatchError(control.ErrUnknownParam))
		})

		It("rejects negative gains on SetGains", func() {
			l := mustLoop(cfg)
			Expect(l.SetGains(AxisY, control.Gains{P: -1})).To(MatchError(ErrNegativeGain))
		})
	})

	It("resets position, velocity and accumulators but keeps gains", func() {
		l := mustLoop(cfg)
		Expect(l.SetGains(AxisBoth, control.Gains{P: 1, D: 1})).To(Succeed())
		runStatic(l, vmath.V2(700, 500), 0.05, 20)

		l.Reset()
		snap := l.Snapshot()
		Expect(snap.Position).To(Equal(cfg.Start))
		Expect(snap.Velocity).To(Equal(vmath.Zero))
		Expect(snap.Tick).To(BeZero())
		Expect(snap.X.Integral).To(BeZero())
		Expect(snap.Y.LastError).To(BeZero())
		Expect(l.Gains(AxisX)).To(Equal(control.Gains{P: 1, D: 1}))
	})

	It("derives sensor positions from the current position", func() {
		l := mustLoop(cfg)
		runStatic(l, vmath.V2(700, 500), 0.05, 5)
		pos := l.Position()
		s := l.Sensors()
		for _, p := range s {
			Expect(p.Sub(pos).Len()).To(BeNumerically("~", cfg.Offset, 1e-9))
		}
	})
})

var _ = DescribeTable("ScaleFactor",
	func(mean float64, sc ScaleConfig, want float64) {
		Expect(ScaleFactor(mean, sc)).To(BeNumerically("~", want, 1e-9))
	},
	Entry("disabled", 0.001, ScaleConfig{Enabled: false, Min: 1, Max: 1e4}, 1.0),
	Entry("strong signal clamps to min", 0.5, ScaleConfig{Enabled: true, Min: 1, Max: 1e4}, 1.0),
	Entry("weak signal", 0.001, ScaleConfig{Enabled: true, Min: 1, Max: 1e4}, 10.08),
	Entry("vanishing signal clamps to max", 1e-7, ScaleConfig{Enabled: true, Min: 1, Max: 1e4}, 1e4),
	Entry("zero mean", 0.0, ScaleConfig{Enabled: true, Min: 1, Max: 1e4}, 1.0),
)
