// Package mix provides audio mixing and crossfading operations.
package mix

import (
	"math"
)

// DryWet performs a dry/wet mix between two signals.
// amount parameter: 0.0 = 100% dry, 1.0 = 100% wet
func DryWet(dry, wet, amount float32) float32 {
	return dry*(1.0-amount) + wet*amount
}

// DryWetBuffer mixes wet into dry in place.
func DryWetBuffer(dry, wet []float32, amount float32) {
	n := min(len(dry), len(wet))
	for i := 0; i < n; i++ {
		dry[i] = dry[i]*(1-amount) + wet[i]*amount
	}
}

// EqualPower returns the gains of an equal-power crossfade at position 0..1.
func EqualPower(position float64) (a, b float64) {
	position = math.Max(0, math.Min(1, position))
	angle := position * math.Pi / 2
	return math.Cos(angle), math.Sin(angle)
}

// Accumulate adds src scaled by gain into dst - no allocations
func Accumulate(dst, src []float32, gain float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += src[i] * gain
	}
}

// Clear zeroes every channel of a multi-channel buffer.
func Clear(buffers [][]float32) {
	for _, b := range buffers {
		clear(b)
	}
}
