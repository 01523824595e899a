package param

import (
	"math"
)

// SmoothingType defines different parameter smoothing algorithms.
type SmoothingType int

const (
	// LinearSmoothing reaches the target in a fixed number of samples
	LinearSmoothing SmoothingType = iota
	// ExponentialSmoothing is a one-pole approach to the target
	ExponentialSmoothing
)

// Smoother de-zippers a control value on the audio thread.
type Smoother struct {
	smoothingType SmoothingType
	current       float64
	target        float64
	rate          float64
	threshold     float64
	isSmoothing   bool
	step          float64
}

// NewSmoother creates a new parameter smoother.
// rate: ramp length in samples for linear, pole (0.9-0.9999) for exponential
func NewSmoother(smoothingType SmoothingType, rate float64) *Smoother {
	return &Smoother{
		smoothingType: smoothingType,
		rate:          rate,
		threshold:     1e-5,
	}
}

// SetTarget sets the target value for smoothing.
func (s *Smoother) SetTarget(target float64) {
	if math.Abs(target-s.target) < s.threshold {
		return
	}
	s.target = target
	s.isSmoothing = true
	if s.smoothingType == LinearSmoothing && s.rate > 0 {
		s.step = (target - s.current) / s.rate
	}
}

// Next returns the next smoothed value.
func (s *Smoother) Next() float64 {
	if !s.isSmoothing {
		return s.current
	}

	switch s.smoothingType {
	case ExponentialSmoothing:
		s.current += (s.target - s.current) * (1.0 - s.rate)
		if math.Abs(s.current-s.target) < s.threshold {
			s.current = s.target
			s.isSmoothing = false
		}
	case LinearSmoothing:
		s.current += s.step
		if s.step == 0 || (s.step > 0 && s.current >= s.target) || (s.step < 0 && s.current <= s.target) {
			s.current = s.target
			s.isSmoothing = false
		}
	}
	return s.current
}

// IsSmoothing returns true if the smoother is currently smoothing.
func (s *Smoother) IsSmoothing() bool {
	return s.isSmoothing
}

// Reset jumps to value with no ramp.
func (s *Smoother) Reset(value float64) {
	s.current = value
	s.target = value
	s.isSmoothing = false
}

// SetRate updates the smoothing rate.
func (s *Smoother) SetRate(rate float64) {
	s.rate = rate
}

// SetTimeMs sets the ramp length from milliseconds at the given sample rate.
func (s *Smoother) SetTimeMs(ms, sampleRate float64) {
	samples := ms * sampleRate / 1000
	switch s.smoothingType {
	case LinearSmoothing:
		s.rate = math.Max(1, samples)
	case ExponentialSmoothing:
		s.rate = math.Exp(-1 / math.Max(1, samples))
	}
}
