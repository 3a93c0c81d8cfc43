package reach_test

import (
	"math"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/reach/internal/reach"
)

var _ = Describe("Normalize", func() {
	offset := r3.Vector{Z: 0.1}

	DescribeTable("places the target on the reach sphere along the same direction",
		func(raw r3.Vector) {
			got, err := reach.Normalize(raw, offset, 0.37)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Distance(offset)).To(BeNumerically("~", 0.37, 1e-12))

			want := raw.Sub(offset).Normalize()
			dir := got.Sub(offset).Normalize()
			Expect(dir.Dot(want)).To(BeNumerically("~", 1, 1e-12))
		},
		Entry("first default target", r3.Vector{X: 0.3, Z: 0.375}),
		Entry("second default target", r3.Vector{X: -0.3, Z: 0.375}),
		Entry("already on the sphere", r3.Vector{Z: 0.47}),
		Entry("far away", r3.Vector{X: 10, Y: -4, Z: 3}),
		Entry("very close to the offset", r3.Vector{X: 1e-6, Z: 0.1}),
		Entry("below the offset", r3.Vector{X: 0.1, Z: -0.5}),
	)

	It("maps the default targets to symmetric points", func() {
		ts := reach.DefaultTargets()
		a, err := reach.Normalize(ts[0], offset, 0.37)
		Expect(err).NotTo(HaveOccurred())
		b, err := reach.Normalize(ts[1], offset, 0.37)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.X).To(BeNumerically("~", -b.X, 1e-12))
		Expect(a.Z).To(BeNumerically("~", b.Z, 1e-12))
		Expect(a.X).To(BeNumerically("~", 0.37*0.3/math.Hypot(0.3, 0.275), 1e-12))
	})

	It("rejects a target equal to the offset", func() {
		_, err := reach.Normalize(offset, offset, 0.37)
		Expect(err).To(MatchError(reach.ErrDegenerateTarget))
	})
})
