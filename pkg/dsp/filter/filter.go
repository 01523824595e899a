package filter

import "math"

// Type selects the filter topology.
type Type int

const (
	TypeOff Type = iota
	TypeLP12
	TypeLP24
	TypeLP36
	TypeHP12
	TypeHP24
	TypeBandPass
	TypeNotch
	TypeComb
	TypeFormant
	TypePhaser
	TypeMoogLadder
	TypeStateVariable
)

// TypeNames lists the topologies in enum order.
var TypeNames = []string{
	"Off", "LP 12", "LP 24", "LP 36", "HP 12", "HP 24", "Band Pass", "Notch",
	"Comb", "Formant", "Phaser", "Moog Ladder", "State Variable",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(TypeNames) {
		return TypeNames[t]
	}
	return "Unknown"
}

// Channels is the number of independent filter states per Filter.
const Channels = 2

// Settings describes one filter slot.
type Settings struct {
	Type      Type
	Cutoff    float64 // Hz
	Resonance float64 // 0-1
	Drive     float64 // 0-1
	Morph     float64 // 0-1, State Variable only (LP -> BP -> HP -> Notch)
}

// Filter is one stereo filter slot. Coefficients are recomputed by Update at
// control rate; Process runs per sample. All state is inline so a Filter can
// live inside a pre-allocated voice.
type Filter struct {
	sampleRate float64
	set        Settings

	// coefficients
	main     svfCoeffs
	flat     svfCoeffs
	ladderF  float64
	ladderK  float64
	combD    float64
	combFb   float64
	formantC [3]svfCoeffs
	phaserC  [phaserStages]svfCoeffs
	phaserFb float64
	driveIn  float64
	driveOut float64

	// state
	svf     [Channels][3]svf
	ladder  [Channels]ladder
	comb    [Channels]comb
	formant [Channels]formant
	phaser  [Channels]phaser
}

// Init prepares a filter value in place.
func (f *Filter) Init(sampleRate float64) {
	f.sampleRate = sampleRate
	f.Update(Settings{Type: TypeOff, Cutoff: 20000})
}

// SetSampleRate changes the rate and recomputes coefficients.
func (f *Filter) SetSampleRate(sampleRate float64) {
	f.sampleRate = sampleRate
	f.Update(f.set)
}

// Settings returns the current configuration.
func (f *Filter) Settings() Settings {
	return f.set
}

// Update recomputes coefficients. Changing the type clears the state.
func (f *Filter) Update(s Settings) {
	if s.Type != f.set.Type {
		f.Reset()
	}
	s.Cutoff = ClampCutoff(s.Cutoff)
	s.Resonance = clampResonance(s.Resonance)
	s.Drive = math.Max(0, math.Min(1, s.Drive))
	s.Morph = math.Max(0, math.Min(1, s.Morph))
	f.set = s
	if f.sampleRate <= 0 {
		return
	}

	if s.Drive > 0 {
		f.driveIn = 1 + s.Drive*4
		f.driveOut = 1 / math.Tanh(f.driveIn)
	} else {
		f.driveIn = 0
	}

	switch s.Type {
	case TypeOff:
	case TypeMoogLadder:
		f.ladderF, f.ladderK = ladderCoeffs(s.Cutoff, f.sampleRate, s.Resonance)
	case TypeComb:
		f.combD, f.combFb = combCoeffs(s.Cutoff, f.sampleRate, s.Resonance)
	case TypeFormant:
		f.formantC = formantCoeffs(s.Cutoff, f.sampleRate, s.Resonance)
	case TypePhaser:
		f.phaserC = phaserCoeffs(s.Cutoff, f.sampleRate)
		f.phaserFb = s.Resonance * 0.9
	default:
		f.main = makeSVFCoeffs(s.Cutoff, f.sampleRate, dampingFromResonance(s.Resonance))
		f.flat = makeSVFCoeffs(s.Cutoff, f.sampleRate, butterworthK)
	}
}

// Process filters one sample of channel ch.
func (f *Filter) Process(in float32, ch int) float32 {
	x := float64(in)
	if f.set.Type == TypeOff {
		return in
	}
	if f.driveIn > 0 {
		x = math.Tanh(x*f.driveIn) * f.driveOut
	}

	st := &f.svf[ch]
	var y float64
	switch f.set.Type {
	case TypeLP12:
		y = st[0].tick(x, &f.main).Lowpass
	case TypeLP24:
		y = st[0].tick(x, &f.flat).Lowpass
		y = st[1].tick(y, &f.main).Lowpass
	case TypeLP36:
		y = st[0].tick(x, &f.flat).Lowpass
		y = st[1].tick(y, &f.flat).Lowpass
		y = st[2].tick(y, &f.main).Lowpass
	case TypeHP12:
		y = st[0].tick(x, &f.main).Highpass
	case TypeHP24:
		y = st[0].tick(x, &f.flat).Highpass
		y = st[1].tick(y, &f.main).Highpass
	case TypeBandPass:
		y = f.main.k * st[0].tick(x, &f.main).Bandpass
	case TypeNotch:
		y = st[0].tick(x, &f.main).Notch
	case TypeStateVariable:
		y = morph(st[0].tick(x, &f.main), f.set.Morph)
	case TypeMoogLadder:
		y = f.ladder[ch].tick(x, f.ladderF, f.ladderK)
	case TypeComb:
		y = f.comb[ch].tick(x, f.combD, f.combFb)
	case TypeFormant:
		y = f.formant[ch].tick(x, &f.formantC)
	case TypePhaser:
		y = f.phaser[ch].tick(x, f.phaserFb, &f.phaserC)
	}
	return float32(y)
}

// ProcessBuffer filters a buffer in place - no allocations
func (f *Filter) ProcessBuffer(buffer []float32, ch int) {
	for i := range buffer {
		buffer[i] = f.Process(buffer[i], ch)
	}
}

// morph crossfades LP -> BP -> HP -> Notch as m goes 0 -> 1.
func morph(o SVFOutputs, m float64) float64 {
	pos := m * 3
	switch {
	case pos < 1:
		return o.Lowpass + (o.Bandpass-o.Lowpass)*pos
	case pos < 2:
		return o.Bandpass + (o.Highpass-o.Bandpass)*(pos-1)
	default:
		return o.Highpass + (o.Notch-o.Highpass)*(pos-2)
	}
}

// Reset zeros every integrator and delay line.
func (f *Filter) Reset() {
	for ch := 0; ch < Channels; ch++ {
		for i := range f.svf[ch] {
			f.svf[ch][i].reset()
		}
		f.ladder[ch].reset()
		f.comb[ch].reset()
		f.formant[ch].reset()
		f.phaser[ch].reset()
	}
}
