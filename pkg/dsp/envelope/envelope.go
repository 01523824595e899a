// Package envelope provides envelope generators for audio synthesis
package envelope

import "math"

// Stage represents the current envelope stage
type Stage int

const (
	StageDelay Stage = iota
	StageAttack
	StageHold
	StageDecay
	StageSustain
	StageRelease
	// StageOff is the idle state; a voice whose amplitude envelope is Off can be recycled
	StageOff
)

var stageNames = [...]string{"Delay", "Attack", "Hold", "Decay", "Sustain", "Release", "Off"}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "Unknown"
}

// Params configures a DAHDSR envelope. Times are in milliseconds, levels 0-1,
// curves -1..1 (0 linear, positive exponential-like, negative logarithmic-like).
type Params struct {
	Delay   float64
	Attack  float64
	Hold    float64
	Decay   float64
	Sustain float64
	Release float64

	AttackCurve  float64
	DecayCurve   float64
	ReleaseCurve float64

	VelToAttack float64
	VelToLevel  float64
}

// DefaultParams returns the default amplitude envelope.
func DefaultParams() Params {
	return Params{
		Attack:     5,
		Decay:      100,
		Sustain:    0.7,
		Release:    200,
		VelToLevel: 1,
	}
}

// Curve shapes a normalized time t in [0,1].
func Curve(t, c float64) float64 {
	switch {
	case c > 0:
		return math.Pow(t, 1+3*c)
	case c < 0:
		return 1 - math.Pow(1-t, 1-3*c)
	default:
		return t
	}
}

// DAHDSR is a delay/attack/hold/decay/sustain/release envelope stepped once
// per sample. Stage lengths are fixed in samples at Trigger so the timeline
// is exact: the value is 1.0 on the last attack sample and equals sustain on
// the last decay sample.
type DAHDSR struct {
	sampleRate float64
	params     Params

	stage    Stage
	pos      int // samples elapsed in the current stage
	length   int // length of the current stage in samples
	level    float64
	relStart float64
	velGain  float64
	attack   int
}

// New creates an envelope in the Off stage.
func New(sampleRate float64) *DAHDSR {
	e := &DAHDSR{}
	e.Init(sampleRate)
	return e
}

// Init prepares an envelope value in place.
func (e *DAHDSR) Init(sampleRate float64) {
	e.sampleRate = sampleRate
	e.params = DefaultParams()
	e.stage = StageOff
	e.velGain = 1
}

// SetSampleRate updates the sample rate; takes effect on the next stage.
func (e *DAHDSR) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
}

// SetParams replaces the envelope settings. Running stages keep their length.
func (e *DAHDSR) SetParams(p Params) {
	p.Sustain = math.Max(0, math.Min(1, p.Sustain))
	p.VelToAttack = math.Max(0, math.Min(1, p.VelToAttack))
	p.VelToLevel = math.Max(0, math.Min(1, p.VelToLevel))
	e.params = p
}

// Params returns the current settings.
func (e *DAHDSR) Params() Params {
	return e.params
}

func (e *DAHDSR) samples(ms float64) int {
	return int(math.Round(math.Max(0, ms) * e.sampleRate / 1000))
}

// Trigger starts the envelope from zero for a note of the given velocity (0-1).
func (e *DAHDSR) Trigger(velocity float64) {
	p := &e.params
	e.velGain = p.VelToLevel*velocity + (1 - p.VelToLevel)
	e.attack = e.samples(p.Attack * (1 - p.VelToAttack*velocity))
	if e.attack < 1 {
		e.attack = 1
	}
	e.level = 0
	e.enter(StageDelay, e.samples(p.Delay))
}

// Release moves to the release stage, ramping from the current level.
// Releasing during the delay stage ends the envelope immediately.
func (e *DAHDSR) Release() {
	switch e.stage {
	case StageOff, StageRelease:
		return
	case StageDelay:
		e.level = 0
		e.stage = StageOff
		return
	}
	e.relStart = e.level
	e.enter(StageRelease, e.samples(e.params.Release))
}

// FastRelease ramps from the current level to zero over n samples.
func (e *DAHDSR) FastRelease(n int) {
	if e.stage == StageOff {
		return
	}
	if n < 1 {
		n = 1
	}
	e.relStart = e.level
	e.stage = StageRelease
	e.pos = 0
	e.length = n
}

// Reset silences the envelope.
func (e *DAHDSR) Reset() {
	e.stage = StageOff
	e.level = 0
	e.pos = 0
	e.length = 0
	e.relStart = 0
}

func (e *DAHDSR) enter(s Stage, length int) {
	e.stage = s
	e.pos = 0
	e.length = length
	// zero-length stages are skipped within the same sample
	for e.length == 0 {
		switch e.stage {
		case StageDelay:
			e.stage, e.length = StageAttack, e.attack
		case StageHold:
			e.stage, e.length = StageDecay, e.samples(e.params.Decay)
		case StageDecay:
			e.level = e.params.Sustain
			e.stage = StageSustain
			return
		case StageRelease:
			e.level = 0
			e.stage = StageOff
			return
		default:
			return
		}
	}
}

// Next advances one sample and returns the velocity-scaled output.
func (e *DAHDSR) Next() float32 {
	p := &e.params
	switch e.stage {
	case StageDelay:
		e.pos++
		e.level = 0
		if e.pos >= e.length {
			e.enter(StageAttack, e.attack)
		}
	case StageAttack:
		e.pos++
		if e.pos >= e.length {
			e.level = 1
			e.enter(StageHold, e.samples(p.Hold))
		} else {
			e.level = Curve(float64(e.pos)/float64(e.length), p.AttackCurve)
		}
	case StageHold:
		e.pos++
		e.level = 1
		if e.pos >= e.length {
			e.enter(StageDecay, e.samples(p.Decay))
		}
	case StageDecay:
		e.pos++
		if e.pos >= e.length {
			e.level = p.Sustain
			e.stage = StageSustain
		} else {
			e.level = 1 - Curve(float64(e.pos)/float64(e.length), p.DecayCurve)*(1-p.Sustain)
		}
	case StageSustain:
		e.level = p.Sustain
	case StageRelease:
		e.pos++
		if e.pos >= e.length {
			e.level = 0
			e.stage = StageOff
		} else {
			e.level = e.relStart * (1 - Curve(float64(e.pos)/float64(e.length), p.ReleaseCurve))
		}
	case StageOff:
		e.level = 0
	}
	return float32(e.level * e.velGain)
}

// Process fills buffer with successive envelope values.
func (e *DAHDSR) Process(buffer []float32) {
	for i := range buffer {
		buffer[i] = e.Next()
	}
}

// Stage returns the current stage.
func (e *DAHDSR) Stage() Stage {
	return e.stage
}

// Level returns the unscaled envelope level.
func (e *DAHDSR) Level() float64 {
	return e.level
}

// Output returns the velocity-scaled level without advancing.
func (e *DAHDSR) Output() float32 {
	return float32(e.level * e.velGain)
}

// IsActive returns true until the envelope reaches Off.
func (e *DAHDSR) IsActive() bool {
	return e.stage != StageOff
}

// IsReleasing reports whether the envelope is in its release stage.
func (e *DAHDSR) IsReleasing() bool {
	return e.stage == StageRelease
}
