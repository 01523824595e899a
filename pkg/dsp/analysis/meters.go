package analysis

import (
	"math"
	"sync/atomic"
)

// MinDB is the floor reported for silence.
const MinDB = -120.0

// LevelMeter measures peak and RMS levels. Process is called from the audio
// thread only; the getters may be called from any goroutine.
type LevelMeter struct {
	sampleRate float64
	holdTime   float64 // seconds
	decayRate  float64 // dB/second
	rmsCoef    float64

	// producer state
	peak      float64
	hold      float64
	holdCount int
	meanSq    float64

	// published readings (float64 bits)
	pubPeak atomic.Uint64
	pubHold atomic.Uint64
	pubRMS  atomic.Uint64
	clips   atomic.Uint64
}

// NewLevelMeter creates a meter with 1.5 s hold, 20 dB/s decay and a 300 ms RMS window.
func NewLevelMeter(sampleRate float64) *LevelMeter {
	m := &LevelMeter{
		sampleRate: sampleRate,
		holdTime:   1.5,
		decayRate:  20,
	}
	m.SetRMSWindow(300)
	return m
}

// SetHoldTime sets the peak hold time in seconds
func (m *LevelMeter) SetHoldTime(seconds float64) {
	m.holdTime = seconds
}

// SetDecayRate sets the peak decay rate in dB/second
func (m *LevelMeter) SetDecayRate(dbPerSecond float64) {
	m.decayRate = dbPerSecond
}

// SetRMSWindow sets the RMS integration time in milliseconds.
func (m *LevelMeter) SetRMSWindow(ms float64) {
	m.rmsCoef = math.Exp(-1 / math.Max(1, ms*m.sampleRate/1000))
}

// Process updates the meter with a block of samples.
func (m *LevelMeter) Process(samples []float32) {
	if len(samples) == 0 {
		return
	}
	blockPeak := 0.0
	ms := m.meanSq
	for _, s := range samples {
		x := float64(s)
		a := math.Abs(x)
		if a > blockPeak {
			blockPeak = a
		}
		if a >= 1 {
			m.clips.Add(1)
		}
		ms = m.rmsCoef*ms + (1-m.rmsCoef)*x*x
	}
	m.meanSq = ms

	decayPerSample := m.decayRate / m.sampleRate / 20 * math.Ln10
	m.peak *= math.Exp(-decayPerSample * float64(len(samples)))
	if blockPeak > m.peak {
		m.peak = blockPeak
	}

	if blockPeak > m.hold {
		m.hold = blockPeak
		m.holdCount = int(m.holdTime * m.sampleRate)
	} else {
		m.holdCount -= len(samples)
		if m.holdCount <= 0 {
			m.hold = m.peak
			m.holdCount = 0
		}
	}

	m.pubPeak.Store(math.Float64bits(m.peak))
	m.pubHold.Store(math.Float64bits(m.hold))
	m.pubRMS.Store(math.Float64bits(math.Sqrt(ms)))
}

// Peak returns the decaying peak level (linear)
func (m *LevelMeter) Peak() float64 {
	return math.Float64frombits(m.pubPeak.Load())
}

// PeakDB returns the peak level in dB
func (m *LevelMeter) PeakDB() float64 {
	return ToDB(m.Peak())
}

// Hold returns the held peak level (linear)
func (m *LevelMeter) Hold() float64 {
	return math.Float64frombits(m.pubHold.Load())
}

// RMS returns the RMS level (linear)
func (m *LevelMeter) RMS() float64 {
	return math.Float64frombits(m.pubRMS.Load())
}

// RMSDB returns the RMS level in dB
func (m *LevelMeter) RMSDB() float64 {
	return ToDB(m.RMS())
}

// Clips returns the number of samples at or above full scale.
func (m *LevelMeter) Clips() uint64 {
	return m.clips.Load()
}

// Reset clears the meter. Not safe while Process runs.
func (m *LevelMeter) Reset() {
	m.peak = 0
	m.hold = 0
	m.holdCount = 0
	m.meanSq = 0
	m.pubPeak.Store(0)
	m.pubHold.Store(0)
	m.pubRMS.Store(0)
	m.clips.Store(0)
}

// ToDB converts a linear magnitude to decibels, floored at MinDB.
func ToDB(linear float64) float64 {
	if linear <= 0 {
		return MinDB
	}
	return math.Max(MinDB, 20*math.Log10(linear))
}
