package reach

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// DefaultTargets returns the two targets either side of the arm's base.
func DefaultTargets() []r3.Vector {
	return []r3.Vector{
		{X: 0.3, Y: 0, Z: 0.375},
		{X: -0.3, Y: 0, Z: 0.375},
	}
}

// Normalize moves raw onto the sphere of the given radius around offset,
// keeping its direction from offset. This puts every target on the path
// the end-effector can actually reach.
func Normalize(raw, offset r3.Vector, radius float64) (r3.Vector, error) {
	d := raw.Sub(offset)
	n := d.Norm()
	if n == 0 {
		return r3.Vector{}, fmt.Errorf("%w: %v", ErrDegenerateTarget, raw)
	}
	return d.Mul(radius / n).Add(offset), nil
}

func fmtVec(v r3.Vector) string {
	return fmt.Sprintf("[%.4f %.4f %.4f]", v.X, v.Y, v.Z)
}
