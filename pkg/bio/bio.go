// Package bio holds the latest biometric reading shared between the sensor
// thread and the audio thread, and turns it into modulation amounts.
package bio

import (
	"math"
	"sync/atomic"
)

// Target selects which bridge destinations follow the bio signal.
type Target int

const (
	TargetFilter Target = iota
	TargetReverb
	TargetLFO
	TargetAll
)

// TargetNames are display names indexed by Target.
var TargetNames = []string{"Filter", "Reverb", "LFO", "All"}

// Data is one biometric reading.
type Data struct {
	HeartRate   float64 // BPM, 40-220
	HRV         float64 // ms, 0-200
	Coherence   float64 // 0-1
	Stress      float64 // 0-1
	BreathPhase float64 // 0 exhale, 1 inhale
	BreathRate  float64 // breaths per minute
	EEGDelta    float64
	EEGTheta    float64
	EEGAlpha    float64
	EEGBeta     float64
	EEGGamma    float64
	GSR         float64
	Temperature float64 // deviation from baseline
	Valid       bool
	Timestamp   float64 // host seconds
}

// Neutral is the reading assumed before any sensor reports.
func Neutral() Data {
	return Data{
		HeartRate: 72,
		HRV:       50,
		Coherence: 0.5,
		Stress:    0.5,
	}
}

// Normalized source values in 0..1 used by the modulation matrix.
func (d Data) NormHeartRate() float64 { return clamp01((d.HeartRate - 40) / 180) }
func (d Data) NormHRV() float64       { return clamp01(d.HRV / 200) }
func (d Data) NormCoherence() float64 { return clamp01(d.Coherence) }
func (d Data) NormStress() float64    { return clamp01(d.Stress) }
func (d Data) NormBreath() float64    { return clamp01(d.BreathPhase) }

type atomicFloat struct {
	bits atomic.Uint64
}

func (a *atomicFloat) load() float64   { return math.Float64frombits(a.bits.Load()) }
func (a *atomicFloat) store(v float64) { a.bits.Store(math.Float64bits(v)) }

// State is written by a sensor goroutine and read by the audio thread.
// Each field is individually atomic; a snapshot may mix two consecutive
// readings, which is harmless for slow biometric signals.
type State struct {
	heartRate, hrv, coherence, stress atomicFloat
	breathPhase, breathRate           atomicFloat
	delta, theta, alpha, beta, gamma  atomicFloat
	gsr, temperature, timestamp       atomicFloat
	valid                             atomic.Bool
	updates                           atomic.Uint64
}

// NewState returns a state holding the neutral reading.
func NewState() *State {
	s := &State{}
	s.Store(Neutral())
	return s
}

// Set stores d if it is marked valid; invalid readings are ignored.
func (s *State) Set(d Data) bool {
	if !d.Valid {
		return false
	}
	s.Store(d)
	return true
}

// Store writes every field of d.
func (s *State) Store(d Data) {
	s.heartRate.store(clamp(d.HeartRate, 20, 250))
	s.hrv.store(clamp(d.HRV, 0, 500))
	s.coherence.store(clamp01(d.Coherence))
	s.stress.store(clamp01(d.Stress))
	s.breathPhase.store(clamp01(d.BreathPhase))
	s.breathRate.store(d.BreathRate)
	s.delta.store(d.EEGDelta)
	s.theta.store(d.EEGTheta)
	s.alpha.store(d.EEGAlpha)
	s.beta.store(d.EEGBeta)
	s.gamma.store(d.EEGGamma)
	s.gsr.store(d.GSR)
	s.temperature.store(d.Temperature)
	s.timestamp.store(d.Timestamp)
	s.valid.Store(d.Valid)
	s.updates.Add(1)
}

// Snapshot reads the current values. It does not allocate.
func (s *State) Snapshot() Data {
	return Data{
		HeartRate:   s.heartRate.load(),
		HRV:         s.hrv.load(),
		Coherence:   s.coherence.load(),
		Stress:      s.stress.load(),
		BreathPhase: s.breathPhase.load(),
		BreathRate:  s.breathRate.load(),
		EEGDelta:    s.delta.load(),
		EEGTheta:    s.theta.load(),
		EEGAlpha:    s.alpha.load(),
		EEGBeta:     s.beta.load(),
		EEGGamma:    s.gamma.load(),
		GSR:         s.gsr.load(),
		Temperature: s.temperature.load(),
		Valid:       s.valid.Load(),
		Timestamp:   s.timestamp.load(),
	}
}

// Updates counts stored readings.
func (s *State) Updates() uint64 {
	return s.updates.Load()
}

// Modulation is the bridge-level bio output.
type Modulation struct {
	Filter    float64 // cutoff offset, -1..1
	Reverb    float64 // reverb mix offset, 0..1
	LFO       float64 // LFO rate multiplier, 0.5..1.5
	Tempo     float64 // tempo factor
	Intensity float64 // 0..1
}

// FilterHz is the cutoff offset applied by the bridge at full scale.
const FilterHz = 4000.0

// ReverbScale is the reverb mix added at full coherence and intensity.
const ReverbScale = 0.3

// Modulate maps a reading to modulation amounts. intensity is 0..1; only
// the destinations selected by target are non-neutral.
func Modulate(d Data, intensity float64, target Target) Modulation {
	i := clamp01(intensity)
	c := clamp01(d.Coherence)
	m := Modulation{LFO: 1, Tempo: 1, Intensity: i}
	if target == TargetFilter || target == TargetAll {
		m.Filter = (c - 0.5) * 2 * i
	}
	if target == TargetReverb || target == TargetAll {
		m.Reverb = c * i
	}
	if target == TargetLFO || target == TargetAll {
		m.LFO = 1 + (c-0.5)*i
	}
	return m
}

// PitchOffset is the semitone offset a bio-enabled voice applies.
func PitchOffset(d Data) float64 {
	return (clamp01(d.Coherence) - 0.5) * 0.1
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
