// Package pan provides stereo panning operations.
package pan

import (
	"math"
)

// Law represents different panning laws
type Law int

const (
	// SquareRoot uses sqrt gains: equal power with cheap math
	SquareRoot Law = iota
	// ConstantPower uses sine/cosine panning
	ConstantPower
	// Linear uses linear panning (constant power not maintained)
	Linear
)

// Gains returns left and right gains for pan in -1 (hard left) .. 1 (hard right).
func Gains(pan float64, law Law) (left, right float32) {
	pan = math.Max(-1, math.Min(1, pan))
	p := (pan + 1) * 0.5 // 0..1
	switch law {
	case ConstantPower:
		angle := p * math.Pi / 2
		return float32(math.Cos(angle)), float32(math.Sin(angle))
	case Linear:
		return float32(1 - p), float32(p)
	default:
		return float32(math.Sqrt(1 - p)), float32(math.Sqrt(p))
	}
}
