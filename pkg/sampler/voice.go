package sampler

import (
	"math"

	"github.com/echoelmusic/ultrasampler/pkg/bio"
	"github.com/echoelmusic/ultrasampler/pkg/dsp"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/envelope"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/filter"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/gain"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/granular"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/interpolation"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/modulation"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/pan"
)

// Hard-wired routings.
const (
	lfo1PitchSt  = 0.5    // LFO 1 to pitch, semitones at full depth
	lfo2CutoffHz = 1000.0 // LFO 2 to filter 1 cutoff
)

// playhead reads one velocity layer.
type playhead struct {
	sample  *SampleData
	weight  float64
	pos     float64
	rate    float64 // source frames per output frame at unity pitch
	end     float64
	forward bool
	ended   bool
	mode    interpolation.Mode
	table   *interpolation.SincTable
	src     [2]interpolation.Source
	hist    [2]interpolation.History
}

// Voice is one pooled sampler voice. All state is inline so the pool is
// allocated once by the engine.
type Voice struct {
	eng   *Engine
	index int

	active    bool
	releasing bool
	fading    bool
	oneShot   bool
	granular  bool

	note      uint8
	velocity  uint8
	vel       float64
	zone      *Zone
	zoneIndex int

	heads    [2]playhead
	numHeads int

	speed     float64
	glide     float64 // semitones, decays to 0
	glideStep float64

	env     [4]envelope.DAHDSR
	lfo     [4]modulation.LFO
	seq     modulation.StepSequencer
	filters filter.Bank
	grains  granular.Engine
	rng     modulation.Rand
	random  float64

	bend       float64
	modWheel   float64
	aftertouch float64
	polyAT     float64

	src   Sources
	mods  Targets
	gainL float32
	gainR float32
	ctrl  int
}

func (v *Voice) init(e *Engine, index int, sampleRate float64) {
	v.eng = e
	v.index = index
	seed := e.seed + uint32(index)*7919
	v.rng.Seed(seed)
	for k := range v.env {
		v.env[k].Init(sampleRate)
		v.lfo[k].Init(sampleRate, seed+uint32(k)+1)
	}
	v.seq.Init(sampleRate)
	v.filters.Init(sampleRate)
	v.grains.Init(sampleRate, seed^0x9E3779B9)
	v.clear()
}

// IsActive reports whether the voice produces sound.
func (v *Voice) IsActive() bool { return v.active }

// IsReleasing reports whether the note has been released.
func (v *Voice) IsReleasing() bool { return v.releasing }

// IsFading reports whether the voice is being stolen.
func (v *Voice) IsFading() bool { return v.active && v.fading }

// Note returns the playing note.
func (v *Voice) Note() uint8 { return v.note }

// Level returns the amplitude envelope level.
func (v *Voice) Level() float64 { return v.env[0].Level() }

// ZoneIndex returns the zone the voice plays, or -1.
func (v *Voice) ZoneIndex() int {
	if !v.active {
		return -1
	}
	return v.zoneIndex
}

// Position returns the playhead of the main layer as a fraction of the sample.
func (v *Voice) Position() float64 {
	h := &v.heads[0]
	if !v.active || h.sample == nil {
		return 0
	}
	if v.granular {
		if v.eng.bp.grain.Mode == granular.ModeStretch {
			return v.grains.ScanPosition() / float64(h.sample.Frames())
		}
		return v.eng.bp.grain.Position
	}
	return h.pos / float64(h.sample.Frames())
}

// Start binds the voice to the zone matching note and velocity. With
// legato set a sounding voice glides to the new pitch without retriggering.
func (v *Voice) Start(note, velocity uint8, legato bool) bool {
	e := v.eng
	zi := e.zones.Find(int(note), velocity)
	if zi < 0 {
		return false
	}
	if legato && v.active && !v.releasing && !v.fading {
		from := float64(v.note) + v.glide
		v.note = note
		v.glide = 0
		v.startGlide(from, e.bp.glideMs)
		return true
	}

	z := e.zones.Zone(zi)
	v.clear()
	v.active = true
	v.note, v.velocity = note, velocity
	v.vel = float64(velocity) / 127
	v.zone, v.zoneIndex = z, zi
	v.random = v.rng.Bipolar()
	v.bend, v.modWheel, v.aftertouch = e.bend, e.modWheel, e.aftertouch

	sel := z.SelectLayer(velocity)
	v.bindLayer(0, &z.Layers[sel.A], sel.WeightA)
	if sel.B >= 0 && sel.WeightB > 0 {
		v.bindLayer(1, &z.Layers[sel.B], sel.WeightB)
	}
	v.begin(z.SampleStart, z.SampleEnd)

	if e.bp.glideMs > 0 && e.lastNote >= 0 {
		v.startGlide(float64(e.lastNote), e.bp.glideMs)
	}
	e.newestVoice = v.index
	return true
}

// startOneShot plays s once from the start, as used for release samples.
func (v *Voice) startOneShot(note uint8, vel float64, zi int, z *Zone, s *SampleData) {
	v.clear()
	v.active = true
	v.oneShot = true
	v.releasing = true
	v.note = note
	v.vel = vel
	v.zone, v.zoneIndex = z, zi
	v.bend, v.modWheel, v.aftertouch = v.eng.bend, v.eng.modWheel, v.eng.aftertouch
	v.bindLayer(0, &VelocityLayer{Sample: s, Gain: 1}, 1)
	v.begin(0, 1)
}

func (v *Voice) bindLayer(i int, l *VelocityLayer, weight float64) {
	h := &v.heads[i]
	h.sample = l.Sample
	h.weight = weight * l.Gain
	h.rate = l.Sample.SampleRate / v.eng.sampleRate
	h.forward = true
	for ch := range h.src {
		h.src[ch] = interpolation.Source{
			Data:      l.Sample.Channel(ch),
			LoopStart: l.Sample.LoopStart,
			LoopEnd:   l.Sample.LoopEnd,
			Crossfade: l.Sample.LoopCrossfade,
		}
	}
	v.numHeads = i + 1
}

// begin evaluates the start-time modulation and triggers every generator.
func (v *Voice) begin(start, end float64) {
	e := v.eng
	bp := &e.bp
	for k := range v.lfo {
		v.lfo[k].SetParams(bp.lfo[k])
		v.lfo[k].SetTempo(e.tempo)
		v.lfo[k].NoteOn()
	}
	v.configureSeq()
	v.seq.NoteOn()
	v.updateSources()
	e.matrix.Evaluate(&v.src, &v.mods)

	start = math.Max(0, math.Min(1, start+v.mods[DestSampleStart]))
	for i := 0; i < v.numHeads; i++ {
		h := &v.heads[i]
		n := float64(h.sample.Frames())
		h.pos = math.Min(start*n, n-1)
		h.end = math.Max(h.pos, end*n)
	}

	for k := range v.env {
		p := bp.env[k]
		if k == 0 {
			p.Attack *= v.mods.timeScale(DestEnv1Attack)
			if v.oneShot {
				p = envelope.Params{Attack: 1, Sustain: 1, Release: 50, VelToLevel: p.VelToLevel}
			}
		}
		v.env[k].SetParams(p)
		v.env[k].Trigger(v.vel)
	}

	v.granular = bp.grain.Mode != granular.ModeOff && !v.oneShot
	if v.granular {
		v.grains.SetParams(bp.grain)
		v.grains.SetTempo(e.tempo)
		v.grains.Start(v.heads[0].pos)
	}
	v.updateLoop()
	v.ctrl = 0
}

func (v *Voice) startGlide(from, ms float64) {
	v.glide = from - float64(v.note)
	if v.glide == 0 || ms <= 0 {
		v.glide, v.glideStep = 0, 0
		return
	}
	ticks := math.Max(1, ms*v.eng.sampleRate/1000/dsp.ControlRate)
	v.glideStep = v.glide / ticks
}

// Release enters the release stage of every envelope.
func (v *Voice) Release() {
	if !v.active || v.releasing {
		return
	}
	v.releasing = true
	p := v.eng.bp.env[0]
	p.Release *= v.mods.timeScale(DestEnv1Release)
	v.env[0].SetParams(p)
	for k := range v.env {
		v.env[k].Release()
	}
	v.updateLoop()
}

// Kill fades the voice out over fadeSamples.
func (v *Voice) Kill(fadeSamples int) {
	if !v.active {
		return
	}
	v.fading = true
	v.env[0].FastRelease(fadeSamples)
}

// Reset silences the voice and clears all state.
func (v *Voice) Reset() {
	v.clear()
}

// clear returns every sub-state to silence so a recycled voice starts
// exactly like a fresh one.
func (v *Voice) clear() {
	v.active, v.releasing, v.fading, v.oneShot, v.granular = false, false, false, false, false
	v.zone, v.zoneIndex = nil, -1
	v.numHeads = 0
	for i := range v.heads {
		h := &v.heads[i]
		for ch := range h.hist {
			h.hist[ch].Reset()
		}
		*h = playhead{hist: h.hist}
	}
	for k := range v.env {
		v.env[k].Reset()
		v.lfo[k].Reset()
	}
	v.seq.Reset()
	v.filters.Reset()
	v.grains.Reset()
	v.glide, v.glideStep = 0, 0
	v.bend, v.modWheel, v.aftertouch, v.polyAT = 0, 0, 0, 0
	v.src = Sources{}
	v.mods = Targets{}
	v.gainL, v.gainR = 0, 0
	v.speed = 1
	v.ctrl = 0
}

func (v *Voice) configureSeq() {
	bp := &v.eng.bp
	v.seq.Steps = bp.seqSteps
	v.seq.Length = bp.seqLength
	v.seq.Division = bp.seqDivision
	v.seq.Glide = bp.seqGlide
	v.seq.SetTempo(v.eng.tempo)
}

func (v *Voice) updateSources() {
	e := v.eng
	s := &v.src
	for k := range v.env {
		s[SourceEnv1+ModSource(k)] = v.env[k].Level()
		s[SourceLFO1+ModSource(k)] = float64(v.lfo[k].Value())
	}
	s[SourceVelocity] = v.vel
	s[SourceKeyTrack] = (float64(v.note) - 60) / 60
	s[SourceModWheel] = v.modWheel
	s[SourcePitchBend] = v.bend
	s[SourceAftertouch] = v.aftertouch
	s[SourcePolyAftertouch] = v.polyAT
	s[SourceRandom] = v.random
	s[SourceBioHeartRate] = e.bioData.NormHeartRate()
	s[SourceBioHRV] = e.bioData.NormHRV()
	s[SourceBioCoherence] = e.bioData.NormCoherence()
	s[SourceBioStress] = e.bioData.NormStress()
	s[SourceBioBreath] = e.bioData.NormBreath()
	s[SourceStepSeq] = float64(v.seq.Value())
	for i, m := range e.bp.macros {
		s[SourceMacro1+ModSource(i)] = m
	}
}

// control runs once every dsp.ControlRate frames: modulation sources,
// matrix, pitch, filter coefficients and gains.
func (v *Voice) control() {
	e := v.eng
	bp := &e.bp
	z := v.zone

	for k := range v.lfo {
		v.lfo[k].SetParams(bp.lfo[k])
		v.lfo[k].SetTempo(e.tempo)
	}
	if s := v.mods.timeScale(DestLFO1Rate); s != 1 {
		v.lfo[0].SetRate(bp.lfo[0].Rate * s)
	}
	if s := v.mods.timeScale(DestLFO2Rate); s != 1 {
		v.lfo[1].SetRate(bp.lfo[1].Rate * s)
	}
	for k := range v.lfo {
		v.lfo[k].Advance(dsp.ControlRate)
	}
	v.configureSeq()
	v.seq.Advance(dsp.ControlRate)

	if v.glide != 0 {
		next := v.glide - v.glideStep
		if next*v.glide <= 0 {
			next = 0
		}
		v.glide = next
	}

	v.updateSources()
	e.matrix.Evaluate(&v.src, &v.mods)

	// pitch
	semis := float64(int(v.note)-z.RootKey) + z.Pitch + z.FineTune/100 + bp.tune/100 +
		v.bend*bp.bendRange + v.glide +
		float64(v.lfo[0].Value())*lfo1PitchSt + v.mods.pitchOffset()
	if bp.bioReactive {
		semis += bio.PitchOffset(e.bioData)
	}
	v.speed = math.Exp2(semis / 12)

	// filters
	f1 := bp.filter[0]
	c := filter.Keytrack(f1.Cutoff, bp.keyTrack, int(v.note))
	c += float64(v.env[1].Output())*bp.envAmount + float64(v.lfo[1].Value())*lfo2CutoffHz + e.cutoffOffset
	f1.Cutoff = filter.ClampCutoff(c * v.mods.cutoffScale(DestFilter1Cutoff))
	f1.Resonance = clamp01(f1.Resonance + v.mods[DestFilter1Res])
	f2 := bp.filter[1]
	f2.Cutoff = filter.ClampCutoff(f2.Cutoff * v.mods.cutoffScale(DestFilter2Cutoff))
	f2.Resonance = clamp01(f2.Resonance + v.mods[DestFilter2Res])
	v.filters.Update(f1, f2, bp.routing)

	// grains
	if v.granular {
		gp := bp.grain
		gp.Size += v.mods[DestGrainSize] * grainSizeMs
		gp.Density += v.mods[DestGrainDensity] * grainDens
		gp.Position = clamp01(gp.Position + v.mods[DestGrainPosition])
		v.grains.SetParams(gp)
		v.grains.SetTempo(e.tempo)
	}

	// gain and pan
	l, r := pan.Gains(z.Pan+v.mods[DestPan]*0.5, pan.SquareRoot)
	g := float32(gain.DbToLinear(z.Volume) * v.mods.volumeScale())
	v.gainL, v.gainR = l*g, r*g

	for i := 0; i < v.numHeads; i++ {
		h := &v.heads[i]
		h.mode = interpolation.Select(bp.interp, v.speed*h.rate, e.sincTaps, e.degradedBlock)
		h.table = e.sincTable(h.mode)
	}
	v.updateLoop()
}

// looping reports whether the loop region is in effect for h.
func (v *Voice) looping(h *playhead) bool {
	if v.oneShot || v.zone == nil || !h.sample.LoopEnabled {
		return false
	}
	switch v.zone.LoopMode {
	case LoopOff:
		return false
	case LoopRelease:
		return !v.releasing
	}
	return true
}

// updateLoop refreshes the loop window of every playhead, applying the
// loop position modulation.
func (v *Voice) updateLoop() {
	for i := 0; i < v.numHeads; i++ {
		h := &v.heads[i]
		s := h.sample
		start, end := s.LoopStart, s.LoopEnd
		if m := v.mods[DestLoopPosition]; m != 0 && end > start {
			length := end - start
			start = max(0, min(start+int(m*float64(length)), s.Frames()-length))
			end = start + length
		}
		wraps := v.looping(h) && (v.zone.LoopMode == LoopForward || v.zone.LoopMode == LoopRelease)
		for ch := range h.src {
			src := &h.src[ch]
			if src.LoopStart == start && src.LoopEnd == end && src.Loop == wraps {
				continue
			}
			// The cached window may hold samples read through the old wrap.
			h.hist[ch].Reset()
			src.LoopStart, src.LoopEnd = start, end
			src.Loop = wraps
		}
	}
}

// render adds the voice into outL and outR.
func (v *Voice) render(outL, outR []float32) {
	for i := range outL {
		if v.ctrl == 0 {
			v.control()
			v.ctrl = dsp.ControlRate
		}
		v.ctrl--

		amp := v.env[0].Next()
		for k := 1; k < len(v.env); k++ {
			v.env[k].Next()
		}
		if !v.env[0].IsActive() {
			v.clear()
			return
		}

		var l, r float32
		if v.granular {
			h := &v.heads[0]
			l, r = v.grains.Next(h.sample.Channels, v.speed*h.rate)
		} else {
			l, r = v.read()
			v.advance()
		}
		l = v.filters.Process(l, 0)
		r = v.filters.Process(r, 1)
		outL[i] += l * amp * v.gainL
		outR[i] += r * amp * v.gainR
	}
}

func (v *Voice) read() (l, r float32) {
	for i := 0; i < v.numHeads; i++ {
		h := &v.heads[i]
		w := float32(h.weight)
		sl := interpolation.Read(&h.src[0], h.pos, h.mode, h.table, &h.hist[0])
		sr := sl
		if len(h.sample.Channels) > 1 {
			sr = interpolation.Read(&h.src[1], h.pos, h.mode, h.table, &h.hist[1])
		}
		l += sl * w
		r += sr * w
	}
	return l, r
}

func (v *Voice) advance() {
	for i := 0; i < v.numHeads; i++ {
		h := &v.heads[i]
		if h.ended {
			continue
		}
		step := v.speed * h.rate
		if !v.looping(h) {
			if h.forward {
				h.pos += step
			} else {
				h.pos -= step
			}
			if h.pos >= h.end || h.pos < 0 {
				h.pos = math.Max(0, math.Min(h.pos, h.end))
				h.ended = true
				if i == 0 {
					v.sampleEnded()
				}
			}
			continue
		}

		ls, le := float64(h.src[0].LoopStart), float64(h.src[0].LoopEnd)
		span := le - ls
		switch v.zone.LoopMode {
		case LoopBackward:
			if h.forward {
				h.pos += step
				if h.pos >= le {
					h.forward = false
					h.pos = le - math.Mod(h.pos-le, span)
				}
			} else {
				h.pos -= step
				if h.pos <= ls {
					h.pos = le - math.Mod(ls-h.pos, span)
				}
			}
		case LoopPingPong:
			if h.forward {
				h.pos += step
				if h.pos >= le {
					h.pos = math.Max(ls, le-(h.pos-le))
					h.forward = false
				}
			} else {
				h.pos -= step
				if h.pos <= ls {
					h.pos = math.Min(le, ls+(ls-h.pos))
					h.forward = true
				}
			}
		default:
			h.pos += step
			if h.pos >= le {
				h.pos = ls + math.Mod(h.pos-le, span)
			}
		}
	}
}

// sampleEnded fades the voice out once the main layer runs off the end of
// its region. The interpolator holds the last sample meanwhile.
func (v *Voice) sampleEnded() {
	v.releasing = true
	v.env[0].FastRelease(v.eng.fadeSamples)
	for k := 1; k < len(v.env); k++ {
		v.env[k].Release()
	}
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
