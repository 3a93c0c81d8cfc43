package metrics

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/reach/internal/dynamo"
)

// Oscillation reports the dominant frequency, in Hz, of the first joint's
// velocity over the run. A well damped reach has little energy away from
// DC, so the value is 0 when no bin stands out.
type Oscillation struct {
	dq         []float64
	start, end float64
}

func NewOscillation() *Oscillation { return &Oscillation{} }

func (o *Oscillation) Name() string { return "dominant_hz" }

func (o *Oscillation) Observe(s dynamo.Sample) {
	if len(s.DQ) == 0 {
		return
	}
	if len(o.dq) == 0 {
		o.start = s.Time
	}
	o.end = s.Time
	o.dq = append(o.dq, s.DQ[0])
}

func (o *Oscillation) Value() float64 {
	n := len(o.dq)
	if n < 8 || o.end <= o.start {
		return 0
	}
	dt := (o.end - o.start) / float64(n-1)

	// hann window
	windowed := make([]float64, n)
	for i, v := range o.dq {
		windowed[i] = v * 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	spectrum := fft.FFTReal(windowed)

	best, bestMag, total := 0, 0.0, 0.0
	for k := 1; k < n/2; k++ {
		mag := cmplx.Abs(spectrum[k])
		total += mag
		if mag > bestMag {
			best, bestMag = k, mag
		}
	}
	if best == 0 || total == 0 {
		return 0
	}
	return float64(best) / (float64(n) * dt)
}

func (o *Oscillation) Reset() {
	o.dq = nil
	o.start, o.end = 0, 0
}
