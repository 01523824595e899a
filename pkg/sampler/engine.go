// Package sampler implements the UltraSampler engine: a zone map of
// velocity-layered samples played by a fixed pool of voices with
// per-voice envelopes, LFOs, a dual filter, a grain engine and a
// modulation matrix that includes biometric sources.
package sampler

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/echoelmusic/ultrasampler/pkg/bio"
	"github.com/echoelmusic/ultrasampler/pkg/dsp"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/envelope"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/filter"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/gain"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/granular"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/interpolation"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/modulation"
	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	"github.com/echoelmusic/ultrasampler/pkg/framework/process"
	"github.com/echoelmusic/ultrasampler/pkg/framework/voice"
	"github.com/echoelmusic/ultrasampler/pkg/midi"
)

// MaxVoices is the largest voice pool.
const MaxVoices = 64

// Degradation thresholds on the smoothed block load.
const (
	degradeAbove  = 0.9
	recoverBelow  = 0.7
	stealFadeMs   = 2.0
	releaseOneMin = 1.0 / 127
)

// blockParams is the parameter snapshot taken once per block so voices
// never touch the registry.
type blockParams struct {
	env       [4]envelope.Params
	lfo       [4]modulation.LFOParams
	filter    [2]filter.Settings
	routing   filter.Routing
	keyTrack  float64
	envAmount float64
	grain     granular.Params
	interp    interpolation.Mode
	glideMs   float64
	bendRange float64
	tune      float64 // cents
	volume    float64 // dB

	bioReactive bool
	macros      [8]float64

	seqSteps    [modulation.MaxSteps]float64
	seqLength   int
	seqDivision int
	seqGlide    float64

	polyphony int
	steal     voice.StealingMode
	mode      voice.AllocationMode
}

// Stats are engine counters for diagnostics.
type Stats struct {
	ActiveVoices int
	Pending      int
	Stolen       uint64
	Deferred     uint64
	Dropped      uint64
	Grains       int
	GrainsLost   uint64
	Load         float64
	PeakLoad     float64
	Overloads    uint64
	Degraded     bool
}

// Engine is the sampler. Process and the performance methods (NoteOn,
// PitchBend, ...) belong to the audio thread; zones, parameters and bio
// data may be changed from any goroutine.
type Engine struct {
	params   *Params
	store    *Store
	bioState *bio.State
	log      *debug.Logger

	maxVoices int
	sincTaps  int
	seed      uint32

	sampleRate  float64
	maxBlock    int
	prepared    bool
	fadeSamples int

	voices []*Voice
	alloc  *voice.Allocator[*Voice]
	matrix Matrix
	bp     blockParams

	sinc8, sinc64 *interpolation.SincTable

	// per-block state
	zones        *Zones
	bioData      bio.Data
	tempo        float64
	cutoffOffset float64
	cutoffBits   atomic.Uint64
	lfoScaleBits atomic.Uint64

	bend       float64
	modWheel   float64
	aftertouch float64
	lastNote   int

	mixL, mixR []float32
	prevGain   float32

	load          *debug.LoadMeter
	degraded      atomic.Bool
	degradedBlock bool
	newestVoice   int
	monitor       *Monitor
	snap          Snapshot
}

// New creates an engine. Call Prepare before processing.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		maxVoices:   MaxVoices,
		sincTaps:    interpolation.MaxTaps,
		seed:        0x5EED,
		tempo:       120,
		lastNote:    -1,
		newestVoice: -1,
	}
	e.lfoScaleBits.Store(math.Float64bits(1))
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = NewStore()
	}
	if e.bioState == nil {
		e.bioState = bio.NewState()
	}
	if e.log == nil {
		e.log = debug.Discard()
	}
	p, err := NewParams(e.maxVoices)
	if err != nil {
		return nil, fmt.Errorf("sampler: build parameters: %w", err)
	}
	e.params = p
	e.zones = e.store.Snapshot()
	e.bioData = e.bioState.Snapshot()

	e.voices = make([]*Voice, e.maxVoices)
	for i := range e.voices {
		e.voices[i] = &Voice{}
	}
	e.alloc = voice.NewAllocator(e.voices)
	return e, nil
}

// Prepare allocates everything the audio thread needs for the given
// configuration. It must not run concurrently with Process.
func (e *Engine) Prepare(sampleRate float64, maxBlock int) error {
	if !dsp.ValidConfig(sampleRate, maxBlock) {
		return fmt.Errorf("sampler: invalid configuration %.0f Hz / %d frames", sampleRate, maxBlock)
	}
	e.sampleRate = sampleRate
	e.maxBlock = maxBlock
	if e.sinc8 == nil {
		e.sinc8 = interpolation.NewSincTable(8)
		e.sinc64 = interpolation.NewSincTable(interpolation.MaxTaps)
	}
	e.fadeSamples = max(1, int(stealFadeMs*sampleRate/1000))
	for i, v := range e.voices {
		v.init(e, i, sampleRate)
	}
	e.alloc.Reset()
	e.alloc.SetFadeSamples(e.fadeSamples)
	e.mixL = make([]float32, maxBlock)
	e.mixR = make([]float32, maxBlock)
	e.load = debug.NewLoadMeter(sampleRate)
	e.monitor = newMonitor(sampleRate, maxBlock)
	e.refresh()
	e.prevGain = float32(gain.DbToLinear(e.bp.volume))
	e.prepared = true
	e.log.Info("prepared: %.0f Hz, %d frames, %d voices, sinc %d", sampleRate, maxBlock, e.maxVoices, e.sincTaps)
	return nil
}

// Reset silences every voice and clears controller state.
func (e *Engine) Reset() {
	e.alloc.Reset()
	e.bend, e.modWheel, e.aftertouch = 0, 0, 0
	e.lastNote = -1
	e.newestVoice = -1
	if e.monitor != nil {
		e.monitor.reset()
	}
}

// refresh takes the per-block snapshot of parameters, zones and bio data.
func (e *Engine) refresh() {
	p := e.params
	bp := &e.bp
	for i := range bp.env {
		bp.env[i] = p.Envelope(i)
		bp.lfo[i] = p.LFO(i)
	}
	bp.filter[0], bp.filter[1] = p.Filter(0), p.Filter(1)
	bp.routing = filter.Routing(p.routing.Int())
	bp.keyTrack = p.keyTrack.Value()
	bp.envAmount = p.envAmount.Value()
	bp.grain = p.Granular()
	bp.interp = interpolation.Mode(p.interp.Int())
	bp.glideMs = p.glide.Value()
	bp.bendRange = p.bendRange.Value()
	bp.tune = p.tune.Value()
	bp.volume = p.volume.Value()
	bp.bioReactive = p.bioReactive.Bool()
	for i := range bp.macros {
		bp.macros[i] = p.Macro(i)
	}
	for i := range bp.seqSteps {
		bp.seqSteps[i] = p.seqSteps[i].Value()
	}
	bp.seqLength = p.seqLength.Int()
	bp.seqDivision = p.seqDiv.Int()
	bp.seqGlide = p.seqGlide.Value()
	bp.polyphony = p.polyphony.Int()
	bp.steal = voice.StealingMode(p.steal.Int())
	bp.mode = voice.AllocationMode(p.voiceMode.Int())

	var slots [MaxModSlots]ModSlot
	for i := range slots {
		slots[i] = p.Slot(i)
	}
	e.matrix.SetSlots(slots)

	e.alloc.SetPolyphony(bp.polyphony)
	e.alloc.SetStealingMode(bp.steal)
	e.alloc.SetMode(bp.mode)

	e.zones = e.store.Snapshot()
	e.bioData = e.bioState.Snapshot()
	e.cutoffOffset = math.Float64frombits(e.cutoffBits.Load())
	if scale := math.Float64frombits(e.lfoScaleBits.Load()); scale != 1 {
		for i := range bp.lfo {
			bp.lfo[i].Rate *= scale
		}
	}
	e.degradedBlock = e.degraded.Load()
}

// Process renders one block. Events are applied at their sample offsets.
func (e *Engine) Process(ctx *process.Context) {
	n := ctx.Samples()
	if !e.prepared || n == 0 {
		ctx.Clear()
		return
	}
	if n > e.maxBlock {
		n = e.maxBlock
	}
	start := time.Now()

	e.refresh()
	if ctx.Transport.Tempo > 0 {
		e.tempo = ctx.Transport.Tempo
	}

	mixL, mixR := e.mixL[:n], e.mixR[:n]
	clear(mixL)
	clear(mixR)

	pos := 0
	for i := range ctx.Events {
		ev := &ctx.Events[i]
		off := min(max(int(ev.Offset), pos), n)
		e.render(mixL[pos:off], mixR[pos:off])
		pos = off
		e.handleEvent(ev)
	}
	e.render(mixL[pos:], mixR[pos:])

	g := float32(gain.DbToLinear(e.bp.volume))
	gain.Ramp(mixL, e.prevGain, g)
	gain.Ramp(mixR, e.prevGain, g)
	e.prevGain = g
	gain.Sanitize(mixL)
	gain.Sanitize(mixR)

	e.writeOutput(ctx, n)
	e.publish(mixL, mixR)

	load := e.load.Record(start, n)
	switch {
	case load > degradeAbove && !e.degraded.Load():
		e.degraded.Store(true)
	case load < recoverBelow && e.degraded.Load():
		e.degraded.Store(false)
	}
}

func (e *Engine) render(outL, outR []float32) {
	if len(outL) == 0 {
		return
	}
	e.alloc.Update()
	for _, v := range e.voices {
		if v.active {
			v.render(outL, outR)
		}
	}
}

func (e *Engine) writeOutput(ctx *process.Context, n int) {
	switch len(ctx.Output) {
	case 0:
	case 1:
		out := ctx.Output[0][:n]
		for i := range out {
			out[i] = 0.5 * (e.mixL[i] + e.mixR[i])
		}
	default:
		copy(ctx.Output[0][:n], e.mixL[:n])
		copy(ctx.Output[1][:n], e.mixR[:n])
		for ch := 2; ch < len(ctx.Output); ch++ {
			clear(ctx.Output[ch][:n])
		}
	}
}

func (e *Engine) publish(l, r []float32) {
	s := &e.snap
	s.ActiveVoices = 0
	s.Grains = 0
	s.NumVoices = 0
	for _, v := range e.voices {
		if !v.active {
			continue
		}
		s.ActiveVoices++
		if v.granular {
			s.Grains += v.grains.ActiveGrains()
		}
		if s.NumVoices < MonitorVoices {
			s.Voices[s.NumVoices] = VoiceInfo{
				Note:      v.note,
				Zone:      v.zoneIndex,
				Level:     v.Level(),
				Position:  v.Position(),
				Releasing: v.releasing,
			}
			s.NumVoices++
		}
	}
	s.Load = e.load.Load()
	s.Degraded = e.degraded.Load()
	s.Stolen, _, s.Dropped = e.alloc.Stats()
	e.monitor.publish(l, r, s)
}

func (e *Engine) handleEvent(ev *midi.Event) {
	switch ev.Type() {
	case midi.EventTypeNoteOn:
		if ev.Velocity() == 0 {
			e.NoteOff(ev.Note())
			return
		}
		e.NoteOn(ev.Note(), ev.Velocity())
	case midi.EventTypeNoteOff:
		e.NoteOff(ev.Note())
	case midi.EventTypeControlChange:
		switch ev.Data1 {
		case midi.CCModWheel:
			e.ModWheel(float64(ev.Data2) / 127)
		case midi.CCSustain:
			e.SetSustain(ev.Data2 >= 64)
		case midi.CCAllNotesOff:
			e.AllNotesOff()
		case midi.CCAllSoundOff:
			e.Reset()
		}
	case midi.EventTypePitchBend:
		e.PitchBend(ev.Bend())
	case midi.EventTypeChannelPressure:
		e.Aftertouch(ev.Pressure())
	case midi.EventTypePolyPressure:
		e.PolyAftertouch(ev.Note(), ev.Pressure())
	}
}

// NoteOn starts a note. Notes outside every zone are ignored without
// stealing a voice.
func (e *Engine) NoteOn(note, velocity uint8) {
	note &= 0x7F
	if !e.prepared {
		return
	}
	if velocity == 0 {
		e.NoteOff(note)
		return
	}
	if e.zones.Find(int(note), velocity) < 0 {
		return
	}
	e.alloc.NoteOn(note, velocity)
	e.lastNote = int(note)
}

// NoteOff releases a note and triggers the zone's release sample.
func (e *Engine) NoteOff(note uint8) {
	note &= 0x7F
	if !e.prepared {
		return
	}
	vel := e.heldVelocity(note)
	e.alloc.NoteOff(note)
	if vel == 0 || e.alloc.Sustain() {
		return
	}
	zi := e.zones.Find(int(note), vel)
	z := e.zones.Zone(zi)
	if z == nil || z.ReleaseSample == nil {
		return
	}
	if i := e.alloc.Claim(); i >= 0 {
		e.voices[i].startOneShot(note, math.Max(float64(vel)/127, releaseOneMin), zi, z, z.ReleaseSample)
	}
}

// heldVelocity returns the velocity of a sounding, unreleased voice on note.
func (e *Engine) heldVelocity(note uint8) uint8 {
	for _, v := range e.voices {
		if v.active && !v.releasing && !v.fading && !v.oneShot && v.note == note {
			return v.velocity
		}
	}
	return 0
}

// AllNotesOff releases every voice.
func (e *Engine) AllNotesOff() {
	e.alloc.AllNotesOff()
}

// SetSustain sets the sustain pedal.
func (e *Engine) SetSustain(on bool) {
	e.alloc.SetSustain(on)
}

// PitchBend sets the bend (-1..1) on the engine and every voice.
func (e *Engine) PitchBend(v float64) {
	e.bend = math.Max(-1, math.Min(1, v))
	for _, vc := range e.voices {
		vc.bend = e.bend
	}
}

// ModWheel sets the mod wheel (0..1).
func (e *Engine) ModWheel(v float64) {
	e.modWheel = clamp01(v)
	for _, vc := range e.voices {
		vc.modWheel = e.modWheel
	}
}

// Aftertouch sets channel pressure (0..1).
func (e *Engine) Aftertouch(v float64) {
	e.aftertouch = clamp01(v)
	for _, vc := range e.voices {
		vc.aftertouch = e.aftertouch
	}
}

// PolyAftertouch sets the pressure of the voices playing note.
func (e *Engine) PolyAftertouch(note uint8, v float64) {
	for _, vc := range e.voices {
		if vc.active && vc.note == note {
			vc.polyAT = clamp01(v)
		}
	}
}

// Store returns the zone store.
func (e *Engine) Store() *Store {
	return e.store
}

// LoadSample publishes a zone at index covering every key with s as its
// only layer, rooted at the sample's root note.
func (e *Engine) LoadSample(index int, s *SampleData) error {
	root := s.RootNote
	if root < 0 || root > 127 {
		root = 60
	}
	z := NewZone(s.Name, 0, 127, root)
	if _, err := z.AddLayer(s, 0, 127); err != nil {
		return err
	}
	if s.LoopEnabled {
		z.LoopMode = LoopForward
	}
	if err := e.store.Set(index, z); err != nil {
		e.log.Warn("load sample %q into zone %d: %v", s.Name, index, err)
		return err
	}
	e.log.Info("zone %d: %q, %d frames at %.0f Hz, root %d", index, s.Name, s.Frames(), s.SampleRate, root)
	return nil
}

// Params returns the parameter table.
func (e *Engine) Params() *Params {
	return e.params
}

// SetModSlot stores modulation slot i; it takes effect on the next block.
func (e *Engine) SetModSlot(i int, slot ModSlot) error {
	return e.params.SetSlot(i, slot)
}

// Bio returns the shared bio state.
func (e *Engine) Bio() *bio.State {
	return e.bioState
}

// SetCutoffOffset adds hz to every voice's filter 1 cutoff from the next
// block on. The plugin bridge routes its bio filter modulation here.
func (e *Engine) SetCutoffOffset(hz float64) {
	e.cutoffBits.Store(math.Float64bits(hz))
}

// SetLFORateScale multiplies every free-running LFO rate from the next block
// on. The plugin bridge routes its bio LFO modulation here.
func (e *Engine) SetLFORateScale(scale float64) {
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}
	e.lfoScaleBits.Store(math.Float64bits(scale))
}

// Monitor returns the UI monitor, nil before Prepare.
func (e *Engine) Monitor() *Monitor {
	return e.monitor
}

// SampleRate returns the prepared sample rate.
func (e *Engine) SampleRate() float64 {
	return e.sampleRate
}

// ActiveVoiceCount returns the number of sounding voices, including those
// being stolen.
func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for _, v := range e.voices {
		if v.active {
			n++
		}
	}
	return n
}

// EnvelopeLevel returns the highest level of envelope i across voices.
func (e *Engine) EnvelopeLevel(i int) float64 {
	if i < 0 || i >= 4 {
		return 0
	}
	lvl := 0.0
	for _, v := range e.voices {
		if v.active {
			lvl = math.Max(lvl, v.env[i].Level())
		}
	}
	return lvl
}

// LFOValue returns the value of LFO i on the most recently started voice.
func (e *Engine) LFOValue(i int) float64 {
	if i < 0 || i >= 4 {
		return 0
	}
	if v := e.newest(); v != nil {
		return float64(v.lfo[i].Value())
	}
	return 0
}

// ZonePlaybackPosition returns the playhead (0-1) of the newest voice
// playing zone, or -1 when none is.
func (e *Engine) ZonePlaybackPosition(zone int) float64 {
	for i := len(e.voices) - 1; i >= 0; i-- {
		v := e.voices[i]
		if v.active && !v.oneShot && v.zoneIndex == zone {
			return v.Position()
		}
	}
	return -1
}

func (e *Engine) newest() *Voice {
	if e.newestVoice < 0 {
		return nil
	}
	if v := e.voices[e.newestVoice]; v.active {
		return v
	}
	return nil
}

// Stats returns engine counters.
func (e *Engine) Stats() Stats {
	s := Stats{
		ActiveVoices: e.alloc.ActiveCount(),
		Pending:      e.alloc.PendingCount(),
		Degraded:     e.degraded.Load(),
	}
	s.Stolen, s.Deferred, s.Dropped = e.alloc.Stats()
	for _, v := range e.voices {
		if v.active && v.granular {
			s.Grains += v.grains.ActiveGrains()
		}
		s.GrainsLost += v.grains.Dropped()
	}
	if e.load != nil {
		s.Load, s.PeakLoad, s.Overloads = e.load.Load(), e.load.Peak(), e.load.Overloads()
	}
	return s
}

func (e *Engine) sincTable(m interpolation.Mode) *interpolation.SincTable {
	switch m {
	case interpolation.ModeSinc8:
		return e.sinc8
	case interpolation.ModeSinc64:
		return e.sinc64
	}
	return nil
}
