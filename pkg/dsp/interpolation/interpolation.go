// Package interpolation reads fractional positions from sample data.
package interpolation

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/interp"
)

// Mode selects the interpolation kernel.
type Mode int

const (
	// ModeAuto picks a kernel from the playback speed ratio
	ModeAuto Mode = iota
	ModeLinear
	ModeHermite
	ModeSinc8
	ModeSinc64
)

// Mode names, indexed by Mode.
var ModeNames = []string{"Auto", "Linear", "Hermite", "Sinc 8", "Sinc 64"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(ModeNames) {
		return ModeNames[m]
	}
	return "Unknown"
}

// Taps returns the kernel width for a concrete mode.
func (m Mode) Taps() int {
	switch m {
	case ModeHermite:
		return 4
	case ModeSinc8:
		return 8
	case ModeSinc64:
		return 64
	default:
		return 2
	}
}

// Select resolves ModeAuto against the playback speed ratio. Far from unity
// speed the cheaper kernels are used; near unity the sinc kernel with
// sincTaps taps. When degraded is set, Auto never goes above Hermite.
func Select(mode Mode, speed float64, sincTaps int, degraded bool) Mode {
	if mode != ModeAuto {
		return mode
	}
	dev := math.Abs(speed - 1)
	switch {
	case dev > 4:
		return ModeLinear
	case dev > 0.5 || degraded:
		return ModeHermite
	case sincTaps >= 64:
		return ModeSinc64
	default:
		return ModeSinc8
	}
}

// Linear performs linear interpolation between two samples.
// frac is the fractional position between y0 and y1 (0.0 to 1.0).
func Linear(y0, y1, frac float32) float32 {
	return y0 + (y1-y0)*frac
}

// Hermite performs 4-point, 3rd-order Hermite interpolation.
// frac is the fractional position between y1 and y2 (0.0 to 1.0).
func Hermite(y0, y1, y2, y3, frac float32) float32 {
	return float32(interp.Hermite4(float64(frac), float64(y0), float64(y1), float64(y2), float64(y3)))
}

// Source is a read-only view of one channel of sample data with its loop.
type Source struct {
	Data      []float32
	LoopStart int
	LoopEnd   int
	Crossfade int
	Loop      bool
}

func (s *Source) looping() bool {
	return s.Loop && s.LoopEnd > s.LoopStart && s.LoopEnd <= len(s.Data)
}

// At returns the sample at integer index i. Inside an enabled loop, indices
// at or past LoopEnd wrap to LoopStart. Past the end without looping the
// last sample is held; negative indices read as silence.
func (s *Source) At(i int) float32 {
	n := len(s.Data)
	if i < 0 || n == 0 {
		return 0
	}
	if s.looping() && i >= s.LoopEnd {
		i = s.LoopStart + (i-s.LoopStart)%(s.LoopEnd-s.LoopStart)
	}
	if i >= n {
		return s.Data[n-1]
	}
	return s.Data[i]
}

// Read returns the interpolated value at pos using a concrete mode (not
// ModeAuto). h caches the kernel window as the playhead advances and may
// be nil. Inside the loop crossfade window the output blends towards the
// audio just before LoopStart so the wrap is seamless.
func Read(src *Source, pos float64, mode Mode, table *SincTable, h *History) float32 {
	out := read(src, pos, mode, table, h)
	if !src.looping() || src.Crossfade <= 0 {
		return out
	}
	xf := src.Crossfade
	if xf > src.LoopStart {
		xf = src.LoopStart
	}
	if xf > src.LoopEnd-src.LoopStart {
		xf = src.LoopEnd - src.LoopStart
	}
	fadeStart := float64(src.LoopEnd - xf)
	if xf == 0 || pos < fadeStart || pos >= float64(src.LoopEnd) {
		return out
	}
	w := float32((pos - fadeStart) / float64(xf))
	pre := read(src, pos-float64(src.LoopEnd-src.LoopStart), mode, table, nil)
	return out*(1-w) + pre*w
}

func read(src *Source, pos float64, mode Mode, table *SincTable, h *History) float32 {
	idx := int(math.Floor(pos))
	frac := float32(pos - float64(idx))

	switch mode {
	case ModeHermite:
		var tmp [4]float32
		w := gather(src, idx-1, 4, h, tmp[:])
		return Hermite(w[0], w[1], w[2], w[3], frac)
	case ModeSinc8, ModeSinc64:
		if table == nil {
			break
		}
		var tmp [MaxTaps]float32
		taps := table.Taps()
		w := gather(src, idx-(taps/2-1), taps, h, tmp[:taps])
		return table.Apply(w, frac)
	}
	return Linear(src.At(idx), src.At(idx+1), frac)
}

func gather(src *Source, first, taps int, h *History, tmp []float32) []float32 {
	if h != nil {
		return h.Window(src, first, taps)
	}
	for j := range tmp {
		tmp[j] = src.At(first + j)
	}
	return tmp
}
