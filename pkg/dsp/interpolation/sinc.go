package interpolation

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
)

const (
	// SincPhases is the number of fractional positions in a SincTable
	SincPhases = 256
	// MaxTaps is the widest supported kernel
	MaxTaps = 64
)

// SincTable holds a Blackman-windowed sinc kernel sampled at SincPhases
// fractional positions. It is built once and read concurrently by voices.
type SincTable struct {
	taps   int
	coeffs []float32 // (SincPhases+1) rows of taps
}

// NewSincTable builds a table for an even kernel width between 4 and MaxTaps.
func NewSincTable(taps int) *SincTable {
	if taps < 4 {
		taps = 4
	}
	if taps > MaxTaps {
		taps = MaxTaps
	}
	taps &^= 1

	// One continuous window spanning the kernel, sampled finely enough that
	// every tap of every phase lands on a grid point.
	win := window.Generate(window.TypeBlackman, taps*SincPhases+1)

	t := &SincTable{
		taps:   taps,
		coeffs: make([]float32, (SincPhases+1)*taps),
	}
	half := taps/2 - 1
	for p := 0; p <= SincPhases; p++ {
		frac := float64(p) / SincPhases
		row := t.coeffs[p*taps : (p+1)*taps]
		sum := 0.0
		for j := 0; j < taps; j++ {
			x := float64(j-half) - frac
			v := sinc(x) * win[(j+1)*SincPhases-p]
			row[j] = float32(v)
			sum += v
		}
		// unity gain at DC for every phase
		for j := range row {
			row[j] = float32(float64(row[j]) / sum)
		}
	}
	return t
}

// Taps returns the kernel width.
func (t *SincTable) Taps() int {
	return t.taps
}

// Apply convolves a window of Taps() samples, starting Taps()/2-1 samples
// before the integer position, with the kernel for frac. Adjacent phase
// rows are blended linearly.
func (t *SincTable) Apply(w []float32, frac float32) float32 {
	pf := frac * SincPhases
	p := int(pf)
	if p >= SincPhases {
		p = SincPhases - 1
	}
	a := pf - float32(p)
	r0 := t.coeffs[p*t.taps : (p+1)*t.taps]
	r1 := t.coeffs[(p+1)*t.taps : (p+2)*t.taps]

	var acc0, acc1 float32
	for j := 0; j < t.taps; j++ {
		acc0 += w[j] * r0[j]
		acc1 += w[j] * r1[j]
	}
	return acc0 + (acc1-acc0)*a
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
