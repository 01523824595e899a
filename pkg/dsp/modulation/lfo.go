// Package modulation provides per-voice modulation sources: LFOs and a step sequencer.
package modulation

import (
	"math"
)

// Shape represents the LFO waveform shape
type Shape int

const (
	ShapeSine Shape = iota
	ShapeTriangle
	ShapeSaw
	ShapeSquare
	// ShapeSampleHold holds a new random value each cycle
	ShapeSampleHold
	// ShapeSmoothRandom glides between random values each cycle
	ShapeSmoothRandom
)

// ShapeNames lists the shapes in enum order.
var ShapeNames = []string{"Sine", "Triangle", "Saw", "Square", "S&H", "Smooth Random"}

func (s Shape) String() string {
	if s >= 0 && int(s) < len(ShapeNames) {
		return ShapeNames[s]
	}
	return "Unknown"
}

// Division is a tempo-synced note length expressed in cycles per beat.
type Division struct {
	Name    string
	PerBeat float64
}

// Divisions are the selectable tempo-sync lengths, longest first.
var Divisions = []Division{
	{"4 Bars", 1.0 / 16},
	{"2 Bars", 1.0 / 8},
	{"1 Bar", 1.0 / 4},
	{"1/2", 1.0 / 2},
	{"1/2 T", 3.0 / 4},
	{"1/4 D", 2.0 / 3},
	{"1/4", 1},
	{"1/4 T", 3.0 / 2},
	{"1/8 D", 4.0 / 3},
	{"1/8", 2},
	{"1/8 T", 3},
	{"1/16 D", 8.0 / 3},
	{"1/16", 4},
	{"1/16 T", 6},
}

// DivisionNames returns the division labels for a choice parameter.
func DivisionNames() []string {
	names := make([]string, len(Divisions))
	for i, d := range Divisions {
		names[i] = d.Name
	}
	return names
}

// DefaultDivision is the index of 1/4.
const DefaultDivision = 6

// SyncedRate returns the LFO rate in Hz for a division index at bpm.
func SyncedRate(bpm float64, division int) float64 {
	if division < 0 || division >= len(Divisions) {
		division = DefaultDivision
	}
	return bpm / 60 * Divisions[division].PerBeat
}

// LFOParams configures an LFO.
type LFOParams struct {
	Rate      float64 // Hz when not synced
	Depth     float64 // 0-1
	Shape     Shape
	TempoSync bool
	Division  int
	KeySync   bool
	FadeIn    float64 // ms
	Unipolar  bool
	Phase     float64 // start phase 0-1 used by key sync
}

// DefaultLFOParams returns a 1 Hz full-depth sine.
func DefaultLFOParams() LFOParams {
	return LFOParams{Rate: 1, Depth: 1, Division: DefaultDivision, KeySync: true}
}

// LFO implements a Low Frequency Oscillator for modulation
type LFO struct {
	sampleRate float64
	params     LFOParams
	tempo      float64

	phase    float64
	phaseInc float64
	fade     float64
	fadeInc  float64

	rng        Rand
	held       float64
	prevRandom float64

	value float64
}

// NewLFO creates a new LFO
func NewLFO(sampleRate float64, seed uint32) *LFO {
	l := &LFO{}
	l.Init(sampleRate, seed)
	return l
}

// Init prepares an LFO value in place.
func (l *LFO) Init(sampleRate float64, seed uint32) {
	l.sampleRate = sampleRate
	l.tempo = 120
	l.rng.Seed(seed)
	l.fade = 1
	l.SetParams(DefaultLFOParams())
	l.held = l.rng.Bipolar()
	l.prevRandom = l.held
}

// SetParams updates the configuration without resetting the phase.
func (l *LFO) SetParams(p LFOParams) {
	p.Depth = math.Max(0, math.Min(1, p.Depth))
	p.Phase = p.Phase - math.Floor(p.Phase)
	l.params = p
	l.updatePhaseIncrement()
}

// Params returns the current settings.
func (l *LFO) Params() LFOParams {
	return l.params
}

// SetTempo sets the host tempo used by tempo sync.
func (l *LFO) SetTempo(bpm float64) {
	if bpm <= 0 || bpm == l.tempo {
		return
	}
	l.tempo = bpm
	l.updatePhaseIncrement()
}

// SetRate overrides the free-running rate, e.g. from modulation.
func (l *LFO) SetRate(hz float64) {
	l.params.Rate = hz
	l.updatePhaseIncrement()
}

// Rate returns the effective rate in Hz.
func (l *LFO) Rate() float64 {
	if l.params.TempoSync {
		return SyncedRate(l.tempo, l.params.Division)
	}
	return l.params.Rate
}

func (l *LFO) updatePhaseIncrement() {
	if l.sampleRate <= 0 {
		l.phaseInc = 0
		return
	}
	l.phaseInc = math.Max(0, l.Rate()) / l.sampleRate
}

// NoteOn restarts the fade-in and, when key-synced, the phase.
func (l *LFO) NoteOn() {
	if l.params.KeySync {
		l.phase = l.params.Phase
	}
	if l.params.FadeIn > 0 {
		l.fade = 0
		l.fadeInc = 1 / (l.params.FadeIn * l.sampleRate / 1000)
	} else {
		l.fade = 1
	}
}

// Next advances one sample and returns the scaled output.
func (l *LFO) Next() float32 {
	return l.Advance(1)
}

// Advance moves the LFO forward n samples and returns the scaled output.
// Used at control rate so the phase stays sample exact.
func (l *LFO) Advance(n int) float32 {
	l.phase += l.phaseInc * float64(n)
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
		l.prevRandom = l.held
		l.held = l.rng.Bipolar()
	}
	if l.fade < 1 {
		l.fade = math.Min(1, l.fade+l.fadeInc*float64(n))
	}

	v := l.shape() * l.fade
	if l.params.Unipolar {
		v = (v + 1) * 0.5
	}
	l.value = v * l.params.Depth
	return float32(l.value)
}

func (l *LFO) shape() float64 {
	p := l.phase
	switch l.params.Shape {
	case ShapeTriangle:
		return 1 - 4*math.Abs(p-0.5)
	case ShapeSaw:
		return 2*p - 1
	case ShapeSquare:
		if p < 0.5 {
			return 1
		}
		return -1
	case ShapeSampleHold:
		return l.held
	case ShapeSmoothRandom:
		t := 0.5 - 0.5*math.Cos(math.Pi*p)
		return l.prevRandom + (l.held-l.prevRandom)*t
	default:
		return math.Sin(2 * math.Pi * p)
	}
}

// Value returns the last output without advancing.
func (l *LFO) Value() float32 {
	return float32(l.value)
}

// Phase returns the current phase (0-1).
func (l *LFO) Phase() float64 {
	return l.phase
}

// SetPhase sets the current phase (0-1).
func (l *LFO) SetPhase(phase float64) {
	l.phase = phase - math.Floor(phase)
}

// Reset returns the phase to its start and clears the output.
func (l *LFO) Reset() {
	l.phase = l.params.Phase
	l.fade = 1
	l.value = 0
}
