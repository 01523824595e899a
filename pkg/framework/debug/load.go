package debug

import (
	"math"
	"sync/atomic"
	"time"
)

// LoadMeter tracks how much of the real-time budget each block uses. It is
// written by the audio thread and read from anywhere.
type LoadMeter struct {
	sampleRate float64
	smoothing  float64
	load       atomic.Uint64 // float64 bits, smoothed
	peak       atomic.Uint64 // float64 bits
	overloads  atomic.Uint64
}

// NewLoadMeter creates a meter for the given sample rate.
func NewLoadMeter(sampleRate float64) *LoadMeter {
	return &LoadMeter{sampleRate: sampleRate, smoothing: 0.9}
}

// Record stores the load of one block that started at start and rendered
// frames samples. Load is elapsed time over the block's real-time duration.
func (m *LoadMeter) Record(start time.Time, frames int) float64 {
	if frames <= 0 || m.sampleRate <= 0 {
		return m.Load()
	}
	budget := float64(frames) / m.sampleRate
	instant := time.Since(start).Seconds() / budget
	return m.Observe(instant)
}

// Observe folds one instantaneous load value into the meter.
func (m *LoadMeter) Observe(instant float64) float64 {
	prev := math.Float64frombits(m.load.Load())
	smoothed := prev*m.smoothing + instant*(1-m.smoothing)
	m.load.Store(math.Float64bits(smoothed))
	if instant > math.Float64frombits(m.peak.Load()) {
		m.peak.Store(math.Float64bits(instant))
	}
	if instant >= 1 {
		m.overloads.Add(1)
	}
	return smoothed
}

// Load returns the smoothed load (1.0 = the whole block budget).
func (m *LoadMeter) Load() float64 { return math.Float64frombits(m.load.Load()) }

// Peak returns the highest instantaneous load since Reset.
func (m *LoadMeter) Peak() float64 { return math.Float64frombits(m.peak.Load()) }

// Overloads returns how many blocks exceeded their budget.
func (m *LoadMeter) Overloads() uint64 { return m.overloads.Load() }

// Reset clears all readings.
func (m *LoadMeter) Reset() {
	m.load.Store(0)
	m.peak.Store(0)
	m.overloads.Store(0)
}
