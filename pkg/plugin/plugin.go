// Package plugin is the host-facing bridge around the sampler engine. An
// Instance owns an engine, the output effects and the bridge parameters, and
// is what the C ABI hands out as an opaque handle.
//
// Threading follows the host model: Process runs on the audio thread and never
// allocates or locks. Parameter and bio setters may run on any thread.
// Activate, Deactivate, Reset, SetState and LoadPreset belong to the host's
// main thread.
package plugin

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/echoelmusic/ultrasampler/pkg/bio"
	"github.com/echoelmusic/ultrasampler/pkg/dsp"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/analysis"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/gain"
	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	"github.com/echoelmusic/ultrasampler/pkg/framework/param"
	"github.com/echoelmusic/ultrasampler/pkg/framework/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/framework/process"
	"github.com/echoelmusic/ultrasampler/pkg/framework/state"
	"github.com/echoelmusic/ultrasampler/pkg/midi"
	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

var (
	// ErrInvalidConfig is returned by Activate for an unusable sample rate or
	// block size.
	ErrInvalidConfig = errors.New("plugin: invalid configuration")
	// ErrNotActive is returned by Process before Activate.
	ErrNotActive = errors.New("plugin: instance not active")
	// ErrUnknownEngine is returned by New for an engine without a descriptor.
	ErrUnknownEngine = errors.New("plugin: unknown engine")
)

const (
	eventCapacity = 1024
	smoothingMs   = 20.0
)

// MaxHostChannels is the most channels per bus a foreign caller can pass
// through HostBuffers.
const MaxHostChannels = 32

// HostBuffers is scratch for wrapping foreign channel pointers as slices
// without allocating. Only the thread calling Process may use it.
type HostBuffers struct {
	Input  [][]float32
	Output [][]float32
}

// Option configures an Instance.
type Option func(*Instance)

// WithEngine uses an existing engine instead of creating one. Its bio state
// becomes the instance's bio state.
func WithEngine(e *sampler.Engine) Option {
	return func(in *Instance) {
		in.engine = e
	}
}

// WithLogger sets the logger for non-realtime paths.
func WithLogger(l *debug.Logger) Option {
	return func(in *Instance) {
		in.log = l
	}
}

// Instance is one plugin instance.
type Instance struct {
	info     plugin.Info
	log      *debug.Logger
	engine   *sampler.Engine
	bio      *bio.State
	registry *param.Registry
	params   *bridgeParams

	stateMu sync.Mutex
	state   *state.Manager

	handle atomic.Uintptr
	active atomic.Bool

	sampleRate float64
	maxBlock   int
	fx         *fxChain
	queue      *midi.Queue
	ctx        process.Context
	bus        [2][]float32
	busOut     [][]float32
	dry        [2][]float32
	gainSmooth *param.Smoother
	mixSmooth  *param.Smoother
	meters     [2]*analysis.LevelMeter
	mod        atomicModulation
	host       HostBuffers
}

// New creates an instance of the plugin type registered for engine.
func New(engine plugin.EngineID, opts ...Option) (*Instance, error) {
	info, ok := plugin.Lookup(engine)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEngine, engine)
	}
	in := &Instance{
		info:   info,
		params: newBridgeParams(),
		host: HostBuffers{
			Input:  make([][]float32, 0, MaxHostChannels),
			Output: make([][]float32, 0, MaxHostChannels),
		},
	}
	for _, opt := range opts {
		opt(in)
	}
	if in.log == nil {
		in.log = debug.Discard()
	}
	if in.engine == nil {
		in.bio = bio.NewState()
		e, err := sampler.New(
			sampler.WithBio(in.bio),
			sampler.WithLogger(in.log.With("engine")),
		)
		if err != nil {
			return nil, err
		}
		in.engine = e
	} else {
		in.bio = in.engine.Bio()
	}

	in.registry = param.NewRegistry()
	if err := in.registry.Add(in.params.all()...); err != nil {
		return nil, fmt.Errorf("plugin: bridge parameters: %w", err)
	}
	if err := in.registry.Merge(in.engine.Params().Registry()); err != nil {
		return nil, fmt.Errorf("plugin: engine parameters: %w", err)
	}
	in.state = state.NewManager(in.registry)
	in.mod.store(bio.Modulate(in.bio.Snapshot(), in.params.bioAmount.Value()/100, in.bioTarget()))
	in.log.Info("created %s (%d parameters)", info.Name, in.registry.Count())
	return in, nil
}

// Info returns the plugin descriptor.
func (in *Instance) Info() plugin.Info {
	return in.info
}

// Engine returns the sampler engine behind the instance.
func (in *Instance) Engine() *sampler.Engine {
	return in.engine
}

// Handle returns the registry handle, or 0 when unregistered.
func (in *Instance) Handle() uintptr {
	return in.handle.Load()
}

// HostBuffers returns the instance's channel scratch.
func (in *Instance) HostBuffers() *HostBuffers {
	return &in.host
}

// Activate prepares the instance for processing. Everything the audio thread
// touches is allocated here.
func (in *Instance) Activate(sampleRate float64, maxBlock int) error {
	if !dsp.ValidConfig(sampleRate, maxBlock) {
		return fmt.Errorf("%w: %.0f Hz, %d frames", ErrInvalidConfig, sampleRate, maxBlock)
	}
	in.active.Store(false)
	if err := in.engine.Prepare(sampleRate, maxBlock); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fx, err := newFXChain(sampleRate)
	if err != nil {
		return fmt.Errorf("plugin: effects: %w", err)
	}
	in.fx = fx
	in.sampleRate = sampleRate
	in.maxBlock = maxBlock
	in.queue = midi.NewQueue(eventCapacity)
	for ch := range in.bus {
		in.bus[ch] = make([]float32, maxBlock)
		in.dry[ch] = make([]float32, maxBlock)
		in.meters[ch] = analysis.NewLevelMeter(sampleRate)
	}
	in.busOut = make([][]float32, 2)

	in.gainSmooth = param.NewSmoother(param.LinearSmoothing, 0)
	in.gainSmooth.SetTimeMs(smoothingMs, sampleRate)
	in.mixSmooth = param.NewSmoother(param.LinearSmoothing, 0)
	in.mixSmooth.SetTimeMs(smoothingMs, sampleRate)
	g, m := in.outputTargets()
	in.gainSmooth.Reset(g)
	in.mixSmooth.Reset(m)

	in.active.Store(true)
	in.log.Info("%s active: %.0f Hz, %d frames", in.info.Name, sampleRate, maxBlock)
	return nil
}

// Deactivate stops processing. Buffers are kept for the next Activate.
func (in *Instance) Deactivate() {
	in.active.Store(false)
}

// Active reports whether Process will render.
func (in *Instance) Active() bool {
	return in.active.Load()
}

// Reset silences voices and clears effect tails.
func (in *Instance) Reset() {
	in.engine.Reset()
	if in.fx != nil {
		in.fx.Reset()
	}
	for _, m := range in.meters {
		if m != nil {
			m.Reset()
		}
	}
	if in.gainSmooth != nil {
		g, m := in.outputTargets()
		in.gainSmooth.Reset(g)
		in.mixSmooth.Reset(m)
	}
}

// Process renders one host block. Blocks longer than the activated maximum
// are split; events are clamped into the block and applied in offset order.
// Output channels beyond two repeat the stereo pair; a mono output gets the
// average of both sides.
func (in *Instance) Process(input, output [][]float32, events []midi.Event, tr process.Transport) error {
	n := blockLength(input, output)
	if !in.active.Load() {
		clearChannels(output, n)
		return ErrNotActive
	}
	if n == 0 {
		return nil
	}
	if tr.SampleRate <= 0 {
		tr.SampleRate = in.sampleRate
	}
	for pos := 0; pos < n; pos += in.maxBlock {
		c := min(in.maxBlock, n-pos)
		in.queue.Clear()
		for _, ev := range events {
			off := min(max(int(ev.Offset), 0), n-1)
			if off < pos || off >= pos+c {
				continue
			}
			ev.Offset = int32(off - pos)
			in.queue.Push(ev)
		}
		in.renderChunk(input, output, pos, c, tr)
		tr.SamplePosition += int64(c)
		tr.PPQPosition += tr.BeatsPerSample() * float64(c)
	}
	return nil
}

func (in *Instance) renderChunk(input, output [][]float32, pos, n int, tr process.Transport) {
	p := in.params
	mod := bio.Modulate(in.bio.Snapshot(), p.bioAmount.Value()/100, in.bioTarget())
	in.mod.store(mod)
	in.engine.SetCutoffOffset(mod.Filter * bio.FilterHz)
	in.engine.SetLFORateScale(mod.LFO)

	in.fx.update(fxSettings{
		drive:        p.drive.Value(),
		delayMs:      p.delayTime.Value(),
		delayFB:      p.delayFB.Value() / 100,
		delayMix:     p.delayMix.Value() / 100,
		reverbWet:    p.reverbMix.Value()/100 + mod.Reverb*bio.ReverbScale,
		room:         p.roomSize.Value(),
		compThreshDB: p.compThresh.Value(),
		compRatio:    p.compRatio.Value(),
		chorusMix:    p.chorus.Value() / 100,
	})

	l, r := in.bus[0][:n], in.bus[1][:n]
	in.busOut[0], in.busOut[1] = l, r
	in.ctx.Input = nil
	in.ctx.Output = in.busOut
	in.ctx.Events = in.queue.Events()
	in.ctx.Transport = tr
	in.ctx.NumSamples = n
	in.engine.Process(&in.ctx)

	if in.info.Type == plugin.TypeEffect {
		addInput(l, r, input, pos)
	}

	dl, dr := in.dry[0][:n], in.dry[1][:n]
	copy(dl, l)
	copy(dr, r)
	if !p.bypass.Bool() {
		in.fx.ProcessStereo(l, r)
	}

	g, m := in.outputTargets()
	in.gainSmooth.SetTarget(g)
	in.mixSmooth.SetTarget(m)
	for i := range l {
		mix := float32(in.mixSmooth.Next())
		k := float32(in.gainSmooth.Next())
		l[i] = (dl[i] + (l[i]-dl[i])*mix) * k
		r[i] = (dr[i] + (r[i]-dr[i])*mix) * k
	}
	gain.Sanitize(l)
	gain.Sanitize(r)
	in.meters[0].Process(l)
	in.meters[1].Process(r)

	writeOutput(output, l, r, pos)
}

// outputTargets returns the gain and wet amount the smoothers head for.
// Bypass passes the dry bus at unity.
func (in *Instance) outputTargets() (linear, wet float64) {
	p := in.params
	if p.bypass.Bool() {
		return 1, 0
	}
	return gain.DbToLinear(p.gain.Value()), p.mix.Value() / 100
}

func (in *Instance) bioTarget() bio.Target {
	return bio.Target(in.params.bioTarget.Int())
}

// LoadSample loads s into zone index of the engine.
func (in *Instance) LoadSample(index int, s *sampler.SampleData) error {
	return in.engine.LoadSample(index, s)
}

// SetBioData stores a sensor reading. Invalid readings are ignored and
// reported as false.
func (in *Instance) SetBioData(d bio.Data) bool {
	ok := in.bio.Set(d)
	if ok && !in.active.Load() {
		in.mod.store(bio.Modulate(in.bio.Snapshot(), in.params.bioAmount.Value()/100, in.bioTarget()))
	}
	return ok
}

// BioModulation returns the modulation applied in the most recent block, or
// the current reading's modulation while inactive.
func (in *Instance) BioModulation() bio.Modulation {
	if !in.active.Load() {
		return bio.Modulate(in.bio.Snapshot(), in.params.bioAmount.Value()/100, in.bioTarget())
	}
	return in.mod.load()
}

// Latency is always zero; nothing in the chain looks ahead.
func (in *Instance) Latency() int {
	return 0
}

// TailTime is the reverb decay estimate in seconds.
func (in *Instance) TailTime() float64 {
	return in.params.roomSize.Value() * 3
}

// Analysis returns the output meters per side.
func (in *Instance) Analysis() (rms, peak [2]float32) {
	for ch, m := range in.meters {
		if m == nil {
			continue
		}
		rms[ch] = float32(m.RMS())
		peak[ch] = float32(m.Peak())
	}
	return rms, peak
}

// PresetCount returns the number of factory presets.
func (in *Instance) PresetCount() int {
	return int(sampler.NumPresets)
}

// PresetName returns the display name of preset i, or "".
func (in *Instance) PresetName(i int) string {
	if i < 0 || i >= int(sampler.NumPresets) {
		return ""
	}
	return sampler.Preset(i).String()
}

// LoadPreset applies factory preset i to the engine. Bridge parameters keep
// their values.
func (in *Instance) LoadPreset(i int) error {
	return in.engine.LoadPreset(sampler.Preset(i))
}

func blockLength(input, output [][]float32) int {
	if len(output) > 0 {
		return len(output[0])
	}
	if len(input) > 0 {
		return len(input[0])
	}
	return 0
}

func clearChannels(bufs [][]float32, n int) {
	for _, b := range bufs {
		clear(b[:min(n, len(b))])
	}
}

func addInput(l, r []float32, input [][]float32, pos int) {
	switch len(input) {
	case 0:
		return
	case 1:
		addFrom(l, input[0], pos)
		addFrom(r, input[0], pos)
	default:
		addFrom(l, input[0], pos)
		addFrom(r, input[1], pos)
	}
}

func addFrom(dst, src []float32, pos int) {
	if pos >= len(src) {
		return
	}
	src = src[pos:]
	for i := range dst[:min(len(dst), len(src))] {
		dst[i] += src[i]
	}
}

func writeOutput(output [][]float32, l, r []float32, pos int) {
	n := len(l)
	if len(output) == 1 {
		out := output[0][pos : pos+n]
		for i := range out {
			out[i] = 0.5 * (l[i] + r[i])
		}
		return
	}
	for ch, out := range output {
		src := l
		if ch%2 == 1 {
			src = r
		}
		copy(out[pos:pos+n], src)
	}
}

// atomicModulation publishes the last block's bio modulation to other threads.
type atomicModulation struct {
	filter, reverb, lfo, tempo, intensity atomic.Uint64
}

func (a *atomicModulation) store(m bio.Modulation) {
	a.filter.Store(math.Float64bits(m.Filter))
	a.reverb.Store(math.Float64bits(m.Reverb))
	a.lfo.Store(math.Float64bits(m.LFO))
	a.tempo.Store(math.Float64bits(m.Tempo))
	a.intensity.Store(math.Float64bits(m.Intensity))
}

func (a *atomicModulation) load() bio.Modulation {
	return bio.Modulation{
		Filter:    math.Float64frombits(a.filter.Load()),
		Reverb:    math.Float64frombits(a.reverb.Load()),
		LFO:       math.Float64frombits(a.lfo.Load()),
		Tempo:     math.Float64frombits(a.tempo.Load()),
		Intensity: math.Float64frombits(a.intensity.Load()),
	}
}
