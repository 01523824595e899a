package sampler

import "math"

// MaxModSlots is the size of the modulation matrix.
const MaxModSlots = 8

// ModSource is a modulation input.
type ModSource int

const (
	SourceNone ModSource = iota
	SourceEnv1
	SourceEnv2
	SourceEnv3
	SourceEnv4
	SourceLFO1
	SourceLFO2
	SourceLFO3
	SourceLFO4
	SourceVelocity
	SourceKeyTrack
	SourceModWheel
	SourcePitchBend
	SourceAftertouch
	SourcePolyAftertouch
	SourceRandom
	SourceBioHeartRate
	SourceBioHRV
	SourceBioCoherence
	SourceBioStress
	SourceBioBreath
	SourceStepSeq
	SourceMacro1
	SourceMacro2
	SourceMacro3
	SourceMacro4
	SourceMacro5
	SourceMacro6
	SourceMacro7
	SourceMacro8

	NumSources
)

// SourceNames are display names indexed by ModSource.
var SourceNames = []string{
	"None", "Env 1", "Env 2", "Env 3", "Env 4", "LFO 1", "LFO 2", "LFO 3", "LFO 4",
	"Velocity", "Key Track", "Mod Wheel", "Pitch Bend", "Aftertouch", "Poly AT", "Random",
	"Heart Rate", "HRV", "Coherence", "Stress", "Breath", "Step Seq",
	"Macro 1", "Macro 2", "Macro 3", "Macro 4", "Macro 5", "Macro 6", "Macro 7", "Macro 8",
}

func (s ModSource) String() string {
	if s >= 0 && int(s) < len(SourceNames) {
		return SourceNames[s]
	}
	return "Unknown"
}

// bipolarSource marks sources whose natural range is -1..1.
var bipolarSource = [NumSources]bool{
	SourceLFO1: true, SourceLFO2: true, SourceLFO3: true, SourceLFO4: true,
	SourceKeyTrack: true, SourcePitchBend: true, SourceRandom: true, SourceStepSeq: true,
}

// ModDest is a modulation target.
type ModDest int

const (
	DestNone ModDest = iota
	DestPitch
	DestFineTune
	DestVolume
	DestPan
	DestFilter1Cutoff
	DestFilter1Res
	DestFilter2Cutoff
	DestFilter2Res
	DestSampleStart
	DestLoopPosition
	DestGrainSize
	DestGrainDensity
	DestGrainPosition
	DestLFO1Rate
	DestLFO2Rate
	DestEnv1Attack
	DestEnv1Release

	NumDests
)

// DestNames are display names indexed by ModDest.
var DestNames = []string{
	"None", "Pitch", "Fine Tune", "Volume", "Pan", "Filter 1 Cutoff", "Filter 1 Res",
	"Filter 2 Cutoff", "Filter 2 Res", "Sample Start", "Loop Position",
	"Grain Size", "Grain Density", "Grain Position", "LFO 1 Rate", "LFO 2 Rate",
	"Env 1 Attack", "Env 1 Release",
}

func (d ModDest) String() string {
	if d >= 0 && int(d) < len(DestNames) {
		return DestNames[d]
	}
	return "Unknown"
}

// ModSlot routes one source to one destination.
type ModSlot struct {
	Source  ModSource
	Dest    ModDest
	Amount  float64 // -1..1
	Bipolar bool
}

// Inert reports whether the slot has no effect.
func (s ModSlot) Inert() bool {
	return s.Source <= SourceNone || s.Source >= NumSources ||
		s.Dest <= DestNone || s.Dest >= NumDests || s.Amount == 0
}

// Sources holds the current value of every source for one voice.
type Sources [NumSources]float64

// Targets holds the summed modulation of every destination for one voice.
type Targets [NumDests]float64

// Matrix is the engine's slot table, refreshed from the parameters once
// per block and evaluated per voice at control rate.
type Matrix struct {
	slots  [MaxModSlots]ModSlot
	active [MaxModSlots]int
	n      int
}

// SetSlots replaces the slot table.
func (m *Matrix) SetSlots(slots [MaxModSlots]ModSlot) {
	m.slots = slots
	m.n = 0
	for i, s := range slots {
		if !s.Inert() {
			m.active[m.n] = i
			m.n++
		}
	}
}

// Slot returns slot i.
func (m *Matrix) Slot(i int) ModSlot {
	if i < 0 || i >= MaxModSlots {
		return ModSlot{}
	}
	return m.slots[i]
}

// Active returns the number of non-inert slots.
func (m *Matrix) Active() int {
	return m.n
}

// Evaluate sums every active slot into out. A unipolar slot maps bipolar
// sources onto 0..1 first.
func (m *Matrix) Evaluate(src *Sources, out *Targets) {
	*out = Targets{}
	for _, i := range m.active[:m.n] {
		s := m.slots[i]
		v := src[s.Source]
		if !s.Bipolar && bipolarSource[s.Source] {
			v = (v + 1) * 0.5
		}
		out[s.Dest] += v * s.Amount
	}
}

// Destination scaling.
const (
	pitchRange  = 12  // semitones per unit
	fineRange   = 1   // semitones per unit (100 cents)
	cutoffRange = 5   // octaves per unit
	timeRange   = 2   // octaves of time per unit
	grainSizeMs = 250 // ms per unit
	grainDens   = 50  // grains/s per unit
)

// pitchOffset returns the semitone offset from the pitch destinations.
func (t *Targets) pitchOffset() float64 {
	return t[DestPitch]*pitchRange + t[DestFineTune]*fineRange
}

// cutoffScale returns the cutoff multiplier for a cutoff destination.
func (t *Targets) cutoffScale(d ModDest) float64 {
	if t[d] == 0 {
		return 1
	}
	return math.Exp2(t[d] * cutoffRange)
}

// timeScale returns the multiplier for a time or rate destination.
func (t *Targets) timeScale(d ModDest) float64 {
	if t[d] == 0 {
		return 1
	}
	return math.Exp2(t[d] * timeRange)
}

// volumeScale returns the amplitude multiplier, never negative.
func (t *Targets) volumeScale() float64 {
	return math.Max(0, 1+t[DestVolume])
}
