// Package granular implements the per-voice grain cloud and time-stretch
// engine. All state lives in fixed arrays; nothing allocates after Init.
package granular

import (
	"math"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/modulation"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/pan"
)

// MaxGrains is the size of each engine's grain pool.
const MaxGrains = 32

// Mode selects how the voice uses the grain engine.
type Mode int

const (
	// ModeOff plays the sample directly.
	ModeOff Mode = iota
	// ModeCloud scatters grains around Position.
	ModeCloud
	// ModeStretch moves a scan head at 1/Stretch speed and plays grains at PitchShift.
	ModeStretch
)

// ModeNames are display names indexed by Mode.
var ModeNames = []string{"Off", "Cloud", "Stretch"}

// Params configures the grain engine.
type Params struct {
	Mode         Mode
	Size         float64 // ms, 10-500
	Density      float64 // grains per second, 1-100
	Position     float64 // 0-1 within the sample
	PositionRand float64 // 0-1
	PitchRand    float64 // semitones
	PanSpread    float64 // 0-1
	Window       Window
	Stretch      float64 // 0.25-4, 2 plays at half speed
	PitchShift   float64 // semitones, stretch mode
	TempoSync    bool
	Division     int
}

// DefaultParams matches an Init patch.
func DefaultParams() Params {
	return Params{
		Size:     50,
		Density:  10,
		Stretch:  1,
		Division: 12,
	}
}

// Grain is one windowed fragment in flight.
type Grain struct {
	active bool
	pos    float64 // source frame
	speed  float64
	winPos float64
	winInc float64
	gainL  float32
	gainR  float32
}

// Engine owns a fixed grain pool.
type Engine struct {
	grains     [MaxGrains]Grain
	params     Params
	sampleRate float64
	tempo      float64
	accum      float64
	scan       float64
	rng        modulation.Rand
	active     int
	dropped    uint64
}

// Init prepares the engine in place.
func (e *Engine) Init(sampleRate float64, seed uint32) {
	e.sampleRate = sampleRate
	e.tempo = 120
	e.params = DefaultParams()
	e.rng.Seed(seed)
	e.Reset()
}

// SetSampleRate changes the output rate.
func (e *Engine) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
}

// SetParams applies p, clamped to valid ranges. Safe at control rate.
func (e *Engine) SetParams(p Params) {
	p.Size = clamp(p.Size, 10, 500)
	p.Density = clamp(p.Density, 1, 100)
	p.Position = clamp(p.Position, 0, 1)
	p.PositionRand = clamp(p.PositionRand, 0, 1)
	p.PitchRand = clamp(p.PitchRand, 0, 24)
	p.PanSpread = clamp(p.PanSpread, 0, 1)
	p.Stretch = clamp(p.Stretch, 0.25, 4)
	p.PitchShift = clamp(p.PitchShift, -24, 24)
	if p.Window < 0 || int(p.Window) >= len(WindowNames) {
		p.Window = WindowHann
	}
	e.params = p
}

// Params returns the active parameters.
func (e *Engine) Params() Params {
	return e.params
}

// SetTempo sets the host tempo used by synced density.
func (e *Engine) SetTempo(bpm float64) {
	if bpm > 0 {
		e.tempo = bpm
	}
}

// Start arms the engine for a new note. The scan head starts at startFrame
// and the first grain spawns on the next frame.
func (e *Engine) Start(startFrame float64) {
	e.Reset()
	e.scan = startFrame
	e.accum = 1
}

// Reset silences every grain.
func (e *Engine) Reset() {
	for i := range e.grains {
		e.grains[i] = Grain{}
	}
	e.accum = 0
	e.scan = 0
	e.active = 0
}

// ActiveGrains returns the number of sounding grains.
func (e *Engine) ActiveGrains() int {
	return e.active
}

// Dropped returns how many spawns were skipped because the pool was full.
func (e *Engine) Dropped() uint64 {
	return e.dropped
}

// ScanPosition returns the stretch scan head in source frames.
func (e *Engine) ScanPosition() float64 {
	return e.scan
}

func (e *Engine) density() float64 {
	if e.params.TempoSync {
		return clamp(modulation.SyncedRate(e.tempo, e.params.Division), 0.1, 100)
	}
	return e.params.Density
}

// Next renders one stereo frame. channels holds the source sample (one or
// two channels); speed is the voice playback ratio in source frames per
// output frame.
func (e *Engine) Next(channels [][]float32, speed float64) (float32, float32) {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return 0, 0
	}
	n := len(channels[0])

	e.accum += e.density() / e.sampleRate
	if e.accum >= 1 {
		e.accum--
		e.spawn(n, speed)
	}

	left := channels[0]
	right := left
	if len(channels) > 1 && len(channels[1]) == n {
		right = channels[1]
	}

	var outL, outR float32
	active := 0
	for i := range e.grains {
		g := &e.grains[i]
		if !g.active {
			continue
		}
		w := WindowAt(e.params.Window, g.winPos)
		outL += readLinear(left, g.pos) * w * g.gainL
		outR += readLinear(right, g.pos) * w * g.gainR

		g.pos += g.speed
		g.winPos += g.winInc
		if g.winPos >= 1 || g.pos >= float64(n) || g.pos < 0 {
			g.active = false
			continue
		}
		active++
	}
	e.active = active

	if e.params.Mode == ModeStretch {
		e.scan += speed / e.params.Stretch
		if e.scan >= float64(n) {
			e.scan -= float64(n)
		}
	}
	return outL, outR
}

func (e *Engine) spawn(n int, speed float64) {
	slot := -1
	for i := range e.grains {
		if !e.grains[i].active {
			slot = i
			break
		}
	}
	if slot < 0 {
		e.dropped++
		return
	}

	p := &e.params
	base := p.Position
	pitch := p.PitchRand * e.rng.Bipolar()
	if p.Mode == ModeStretch {
		base = e.scan / float64(n)
		pitch += p.PitchShift
	}
	base = clamp(base+p.PositionRand*e.rng.Bipolar(), 0, 1)

	l, r := pan.Gains(p.PanSpread*e.rng.Bipolar(), pan.SquareRoot)
	sizeFrames := math.Max(1, p.Size*0.001*e.sampleRate)

	e.grains[slot] = Grain{
		active: true,
		pos:    base * float64(n-1),
		speed:  speed * math.Exp2(pitch/12),
		winInc: 1 / sizeFrames,
		gainL:  l,
		gainR:  r,
	}
	e.active++
}

func readLinear(data []float32, pos float64) float32 {
	i := int(pos)
	if i < 0 || i >= len(data) {
		return 0
	}
	j := i + 1
	if j >= len(data) {
		j = i
	}
	frac := float32(pos - float64(i))
	return data[i] + frac*(data[j]-data[i])
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
