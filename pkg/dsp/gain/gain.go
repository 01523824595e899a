// Package gain provides amplitude and gain-related DSP operations.
package gain

import (
	"math"
)

// MinDB is treated as silence.
const MinDB = -96.0

// LinearToDb converts a linear amplitude value to decibels.
// Returns MinDB for values <= 0.
func LinearToDb(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return math.Max(MinDB, 20.0*math.Log10(linear))
}

// DbToLinear converts a decibel value to linear amplitude.
// Values <= MinDB return 0.
func DbToLinear(db float64) float64 {
	if db <= MinDB {
		return 0
	}
	return math.Pow(10.0, db/20.0)
}

// Ramp multiplies buffer by a gain moving linearly from start to end,
// so per-block gain changes do not click.
func Ramp(buffer []float32, start, end float32) {
	if len(buffer) == 0 {
		return
	}
	if start == end {
		for i := range buffer {
			buffer[i] *= start
		}
		return
	}
	step := (end - start) / float32(len(buffer))
	g := start
	for i := range buffer {
		g += step
		buffer[i] *= g
	}
}

// SoftClip applies soft clipping above threshold.
func SoftClip(input, threshold float32) float32 {
	if input <= threshold && input >= -threshold {
		return input
	}
	return threshold * fastTanh32(input/threshold)
}

// SoftClipBuffer applies soft clipping to an entire buffer.
func SoftClipBuffer(buffer []float32, threshold float32) {
	for i := range buffer {
		buffer[i] = SoftClip(buffer[i], threshold)
	}
}

// Sanitize replaces NaN and infinite samples with silence and returns how many were replaced.
func Sanitize(buffer []float32) int {
	n := 0
	for i, s := range buffer {
		if s != s || s > math.MaxFloat32 || s < -math.MaxFloat32 {
			buffer[i] = 0
			n++
		}
	}
	return n
}

// fastTanh32 approximates tanh for soft clipping.
func fastTanh32(x float32) float32 {
	if x < -3 {
		return -1
	}
	if x > 3 {
		return 1
	}
	x2 := x * x
	return x * (27 + x2) / (27 + 9*x2)
}
