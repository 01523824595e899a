package analysis

import (
	"math"
	"sync/atomic"
)

// silenceEnergy is the mean square below which a channel counts as silent.
const silenceEnergy = 1e-12

// CorrelationMeter tracks the phase correlation of a stereo signal, from +1
// (identical channels) through 0 (unrelated) to -1 (one channel inverted).
// Process runs on the audio thread; the getters may be called from any
// goroutine.
type CorrelationMeter struct {
	coef float64

	sumLR, sumLL, sumRR float64
	low                 float64

	pubCorr atomic.Uint64
	pubLow  atomic.Uint64
}

// NewCorrelationMeter creates a meter that integrates over windowMs.
func NewCorrelationMeter(sampleRate, windowMs float64) *CorrelationMeter {
	c := &CorrelationMeter{
		coef: math.Exp(-1 / math.Max(1, windowMs*sampleRate/1000)),
	}
	c.Reset()
	return c
}

// Process updates the meter with one block of each channel. The shorter
// slice sets the block length.
func (c *CorrelationMeter) Process(left, right []float32) {
	n := min(len(left), len(right))
	if n == 0 {
		return
	}
	a, b := c.coef, 1-c.coef
	lr, ll, rr := c.sumLR, c.sumLL, c.sumRR
	for i := range n {
		l, r := float64(left[i]), float64(right[i])
		lr = a*lr + b*l*r
		ll = a*ll + b*l*l
		rr = a*rr + b*r*r
	}
	c.sumLR, c.sumLL, c.sumRR = lr, ll, rr

	corr := 0.0
	if ll > silenceEnergy && rr > silenceEnergy {
		corr = max(-1, min(1, lr/math.Sqrt(ll*rr)))
		c.low = min(c.low, corr)
	}
	c.pubCorr.Store(math.Float64bits(corr))
	c.pubLow.Store(math.Float64bits(c.low))
}

// Correlation returns the current correlation in [-1, 1]. Silence on either
// channel reads as 0.
func (c *CorrelationMeter) Correlation() float64 {
	return math.Float64frombits(c.pubCorr.Load())
}

// Low returns the most negative correlation seen since the last Reset.
func (c *CorrelationMeter) Low() float64 {
	return math.Float64frombits(c.pubLow.Load())
}

// Status classifies the current correlation.
func (c *CorrelationMeter) Status() PhaseStatus {
	return PhaseStatusOf(c.Correlation())
}

// Reset clears the meter. Not safe while Process runs.
func (c *CorrelationMeter) Reset() {
	c.sumLR, c.sumLL, c.sumRR = 0, 0, 0
	c.low = 1
	c.pubCorr.Store(0)
	c.pubLow.Store(math.Float64bits(1))
}

// PhaseStatus is a coarse reading of a correlation value.
type PhaseStatus int

const (
	PhaseInPhase PhaseStatus = iota
	PhaseMostlyInPhase
	PhasePartiallyCorrelated
	PhaseMostlyOutOfPhase
	PhaseOutOfPhase
)

// PhaseStatusOf classifies a correlation value.
func PhaseStatusOf(corr float64) PhaseStatus {
	switch {
	case corr > 0.9:
		return PhaseInPhase
	case corr > 0.5:
		return PhaseMostlyInPhase
	case corr > -0.5:
		return PhasePartiallyCorrelated
	case corr > -0.9:
		return PhaseMostlyOutOfPhase
	default:
		return PhaseOutOfPhase
	}
}

func (s PhaseStatus) String() string {
	switch s {
	case PhaseInPhase:
		return "in phase"
	case PhaseMostlyInPhase:
		return "mostly in phase"
	case PhasePartiallyCorrelated:
		return "partially correlated"
	case PhaseMostlyOutOfPhase:
		return "mostly out of phase"
	case PhaseOutOfPhase:
		return "out of phase"
	default:
		return "unknown"
	}
}
