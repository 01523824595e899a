package sampler

import (
	"fmt"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/envelope"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/filter"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/granular"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/interpolation"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/modulation"
	"github.com/echoelmusic/ultrasampler/pkg/framework/param"
	"github.com/echoelmusic/ultrasampler/pkg/framework/voice"
)

// Parameter IDs. IDs are stable: they are stored in state blobs and exposed
// through the C ABI.
const (
	ParamFilter1Type      uint32 = 30
	ParamFilter1Cutoff    uint32 = 31
	ParamFilter1Res       uint32 = 32
	ParamFilter1Drive     uint32 = 33
	ParamFilter1KeyTrack  uint32 = 34
	ParamFilter1EnvAmount uint32 = 35
	ParamFilter1Morph     uint32 = 36

	ParamGlide         uint32 = 90
	ParamPolyphony     uint32 = 91
	ParamStealMode     uint32 = 92
	ParamVoiceMode     uint32 = 93
	ParamInterpolation uint32 = 94
	ParamBendRange     uint32 = 95
	ParamMasterTune    uint32 = 96
	ParamMasterVolume  uint32 = 97
	ParamBioReactive   uint32 = 98

	ParamFilter2Type    uint32 = 100
	ParamFilter2Cutoff  uint32 = 101
	ParamFilter2Res     uint32 = 102
	ParamFilter2Drive   uint32 = 103
	ParamFilterRouting  uint32 = 104
	ParamFilter2Morph   uint32 = 105
	ParamGrainMode      uint32 = 130
	ParamGrainSize      uint32 = 131
	ParamGrainDensity   uint32 = 132
	ParamGrainPosition  uint32 = 133
	ParamGrainPosRand   uint32 = 134
	ParamGrainPitchRand uint32 = 135
	ParamGrainSpread    uint32 = 136
	ParamGrainWindow    uint32 = 137
	ParamGrainStretch   uint32 = 138
	ParamGrainShift     uint32 = 139
	ParamGrainSync      uint32 = 145
	ParamGrainDivision  uint32 = 146

	ParamSeqLength   uint32 = 190
	ParamSeqDivision uint32 = 191
	ParamSeqGlide    uint32 = 192
)

// Envelope parameter offsets from envBase.
const (
	envDelay = iota
	envAttack
	envHold
	envDecay
	envSustain
	envRelease
	envAttackCurve
	envDecayCurve
	envReleaseCurve
	envVelToLevel
)

// LFO parameter offsets from lfoBase.
const (
	lfoShape = iota
	lfoRate
	lfoDepth
	lfoPhase
	lfoFade
	lfoSync
	lfoDivision
	lfoKeySync
	lfoUnipolar
)

var (
	envBase      = [4]uint32{40, 50, 110, 120}
	envVelAttack = [4]uint32{140, 141, 142, 143}
	lfoBase      = [4]uint32{60, 150, 160, 170}
)

// MacroID returns the parameter ID of macro i (0-7).
func MacroID(i int) uint32 { return 180 + uint32(i) }

// StepID returns the parameter ID of sequencer step i (0-15).
func StepID(i int) uint32 { return 200 + uint32(i) }

// SlotID returns the parameter IDs of modulation slot i.
func SlotID(i int) (source, dest, amount, bipolar uint32) {
	base := 220 + uint32(i)*4
	return base, base + 1, base + 2, base + 3
}

// EnvelopeID returns the ID of field offset (0 delay .. 9 velocity to level)
// of envelope i.
func EnvelopeID(i, offset int) uint32 { return envBase[i] + uint32(offset) }

// LFOID returns the ID of field offset (0 shape .. 8 unipolar) of LFO i.
func LFOID(i, offset int) uint32 { return lfoBase[i] + uint32(offset) }

var envDefaults = [4]envelope.Params{
	{Attack: 5, Decay: 100, Sustain: 0.7, Release: 200, VelToLevel: 1},
	{Attack: 10, Decay: 300, Sustain: 0.3, Release: 500, DecayCurve: -0.3, VelToLevel: 0.5},
	{Attack: 50, Decay: 500, Sustain: 0.5, Release: 1000, VelToLevel: 0.3},
	{Attack: 100, Decay: 1000, Sustain: 0, Release: 2000, DecayCurve: 0.5, VelToLevel: 0.2},
}

var lfoDefaults = [4]modulation.LFOParams{
	{Shape: modulation.ShapeSine, Rate: 1, Depth: 0.5, KeySync: true, Division: modulation.DefaultDivision},
	{Shape: modulation.ShapeTriangle, Rate: 2, Depth: 0.3, Phase: 0.25, KeySync: true, Division: modulation.DefaultDivision},
	{Shape: modulation.ShapeSaw, Rate: 0.5, Depth: 0.2, Phase: 0.5, KeySync: true, Division: modulation.DefaultDivision},
	{Shape: modulation.ShapeSmoothRandom, Rate: 4, Depth: 0.1, FadeIn: 100, KeySync: true, Division: modulation.DefaultDivision},
}

type filterParams struct {
	typ, cutoff, res, drive, morph *param.Parameter
}

type envParams struct {
	p         [envVelToLevel + 1]*param.Parameter
	velAttack *param.Parameter
}

type lfoParams struct {
	p [lfoUnipolar + 1]*param.Parameter
}

type slotParams struct {
	source, dest, amount, bipolar *param.Parameter
}

// Params is the engine parameter table plus typed handles used by the
// audio thread. Every read is an atomic load.
type Params struct {
	reg *param.Registry

	glide, polyphony, steal, voiceMode, interp *param.Parameter
	bendRange, tune, volume, bioReactive       *param.Parameter

	filter    [2]filterParams
	keyTrack  *param.Parameter
	envAmount *param.Parameter
	routing   *param.Parameter
	env       [4]envParams
	lfo       [4]lfoParams
	grain     [12]*param.Parameter
	macro     [8]*param.Parameter
	seqLength *param.Parameter
	seqDiv    *param.Parameter
	seqGlide  *param.Parameter
	seqSteps  [modulation.MaxSteps]*param.Parameter
	slots     [MaxModSlots]slotParams
	maxVoices int
}

// NewParams builds and registers the full engine table.
func NewParams(maxVoices int) (*Params, error) {
	p := &Params{reg: param.NewRegistry(), maxVoices: maxVoices}
	var all []*param.Parameter
	keep := func(ps ...*param.Parameter) { all = append(all, ps...) }

	// global
	p.glide = param.TimeParameter(ParamGlide, "Glide", 0, 2000, 0).Group("Global").Build()
	p.polyphony = param.New(ParamPolyphony, "Polyphony").Range(1, float64(maxVoices)).
		Default(float64(min(32, maxVoices))).Integer().Group("Global").Build()
	p.steal = param.Choice(ParamStealMode, "Voice Stealing", voice.StealingNames...).Group("Global").Build()
	p.voiceMode = param.Choice(ParamVoiceMode, "Voice Mode", voice.ModeNames...).Group("Global").Build()
	p.interp = param.Choice(ParamInterpolation, "Interpolation", interpolation.ModeNames...).Group("Global").Build()
	p.bendRange = param.New(ParamBendRange, "Bend Range").Range(0, 24).Default(2).Integer().Unit("st").Group("Global").Build()
	p.tune = param.New(ParamMasterTune, "Master Tune").Range(-100, 100).Default(0).Unit("ct").Group("Global").Modulatable().Build()
	p.volume = param.GainParameter(ParamMasterVolume, "Master Volume", -60, 12, 0).Group("Global").Build()
	p.bioReactive = param.ToggleParameter(ParamBioReactive, "Bio Reactive", false).Group("Global").Build()
	keep(p.glide, p.polyphony, p.steal, p.voiceMode, p.interp, p.bendRange, p.tune, p.volume, p.bioReactive)

	// filters
	p.filter[0] = filterParams{
		typ:    param.Choice(ParamFilter1Type, "Filter 1 Type", filter.TypeNames...).Default(float64(filter.TypeLP24)).Group("Filter 1").Build(),
		cutoff: param.FrequencyParameter(ParamFilter1Cutoff, "Filter 1 Cutoff", 20, 20000, 8000).Group("Filter 1").Modulatable().Build(),
		res:    param.New(ParamFilter1Res, "Filter 1 Resonance").Range(0, 1).Default(0.3).Group("Filter 1").Modulatable().Build(),
		drive:  param.New(ParamFilter1Drive, "Filter 1 Drive").Range(0, 1).Default(0).Group("Filter 1").Build(),
		morph:  param.New(ParamFilter1Morph, "Filter 1 Morph").Range(0, 1).Default(0).Group("Filter 1").Build(),
	}
	p.keyTrack = param.New(ParamFilter1KeyTrack, "Filter 1 Key Track").Range(0, 1).Default(0).Group("Filter 1").Build()
	p.envAmount = param.New(ParamFilter1EnvAmount, "Filter Env Amount").Range(-10000, 10000).Default(4000).Unit("Hz").Group("Filter 1").Build()
	p.filter[1] = filterParams{
		typ:    param.Choice(ParamFilter2Type, "Filter 2 Type", filter.TypeNames...).Group("Filter 2").Build(),
		cutoff: param.FrequencyParameter(ParamFilter2Cutoff, "Filter 2 Cutoff", 20, 20000, 2000).Group("Filter 2").Modulatable().Build(),
		res:    param.New(ParamFilter2Res, "Filter 2 Resonance").Range(0, 1).Default(0.3).Group("Filter 2").Modulatable().Build(),
		drive:  param.New(ParamFilter2Drive, "Filter 2 Drive").Range(0, 1).Default(0).Group("Filter 2").Build(),
		morph:  param.New(ParamFilter2Morph, "Filter 2 Morph").Range(0, 1).Default(0).Group("Filter 2").Build(),
	}
	p.routing = param.Choice(ParamFilterRouting, "Filter Routing", filter.RoutingNames...).Group("Filter 2").Build()
	for _, f := range p.filter {
		keep(f.typ, f.cutoff, f.res, f.drive, f.morph)
	}
	keep(p.keyTrack, p.envAmount, p.routing)

	// envelopes
	for i := range p.env {
		d := envDefaults[i]
		g := fmt.Sprintf("Env %d", i+1)
		name := func(field string) string { return g + " " + field }
		e := &p.env[i]
		e.p[envDelay] = param.TimeParameter(EnvelopeID(i, envDelay), name("Delay"), 0, 10000, d.Delay).Group(g).Build()
		e.p[envAttack] = param.TimeParameter(EnvelopeID(i, envAttack), name("Attack"), 0, 20000, d.Attack).Group(g).Build()
		e.p[envHold] = param.TimeParameter(EnvelopeID(i, envHold), name("Hold"), 0, 10000, d.Hold).Group(g).Build()
		e.p[envDecay] = param.TimeParameter(EnvelopeID(i, envDecay), name("Decay"), 0, 20000, d.Decay).Group(g).Build()
		e.p[envSustain] = param.PercentParameter(EnvelopeID(i, envSustain), name("Sustain"), d.Sustain*100).Group(g).Build()
		e.p[envRelease] = param.TimeParameter(EnvelopeID(i, envRelease), name("Release"), 0, 30000, d.Release).Group(g).Build()
		e.p[envAttackCurve] = param.BipolarParameter(EnvelopeID(i, envAttackCurve), name("Attack Curve"), d.AttackCurve).Group(g).Build()
		e.p[envDecayCurve] = param.BipolarParameter(EnvelopeID(i, envDecayCurve), name("Decay Curve"), d.DecayCurve).Group(g).Build()
		e.p[envReleaseCurve] = param.BipolarParameter(EnvelopeID(i, envReleaseCurve), name("Release Curve"), d.ReleaseCurve).Group(g).Build()
		e.p[envVelToLevel] = param.PercentParameter(EnvelopeID(i, envVelToLevel), name("Vel > Level"), d.VelToLevel*100).Group(g).Build()
		e.velAttack = param.PercentParameter(envVelAttack[i], name("Vel > Attack"), d.VelToAttack*100).Group(g).Build()
		keep(e.p[:]...)
		keep(e.velAttack)
	}

	// LFOs
	for i := range p.lfo {
		d := lfoDefaults[i]
		g := fmt.Sprintf("LFO %d", i+1)
		name := func(field string) string { return g + " " + field }
		l := &p.lfo[i]
		l.p[lfoShape] = param.Choice(LFOID(i, lfoShape), name("Shape"), modulation.ShapeNames...).Default(float64(d.Shape)).Group(g).Build()
		l.p[lfoRate] = param.RateParameter(LFOID(i, lfoRate), name("Rate"), 0.01, 50, d.Rate).Group(g).Modulatable().Build()
		l.p[lfoDepth] = param.PercentParameter(LFOID(i, lfoDepth), name("Depth"), d.Depth*100).Group(g).Modulatable().Build()
		l.p[lfoPhase] = param.New(LFOID(i, lfoPhase), name("Phase")).Range(0, 1).Default(d.Phase).Group(g).Build()
		l.p[lfoFade] = param.TimeParameter(LFOID(i, lfoFade), name("Fade In"), 0, 10000, d.FadeIn).Group(g).Build()
		l.p[lfoSync] = param.ToggleParameter(LFOID(i, lfoSync), name("Sync"), d.TempoSync).Group(g).Build()
		l.p[lfoDivision] = param.Choice(LFOID(i, lfoDivision), name("Division"), modulation.DivisionNames()...).Default(float64(d.Division)).Group(g).Build()
		l.p[lfoKeySync] = param.ToggleParameter(LFOID(i, lfoKeySync), name("Key Sync"), d.KeySync).Group(g).Build()
		l.p[lfoUnipolar] = param.ToggleParameter(LFOID(i, lfoUnipolar), name("Unipolar"), d.Unipolar).Group(g).Build()
		keep(l.p[:]...)
	}

	// granular
	gd := granular.DefaultParams()
	p.grain = [12]*param.Parameter{
		param.Choice(ParamGrainMode, "Grain Mode", granular.ModeNames...).Group("Granular").Build(),
		param.TimeParameter(ParamGrainSize, "Grain Size", 10, 500, gd.Size).Group("Granular").Modulatable().Build(),
		param.New(ParamGrainDensity, "Grain Density").Range(1, 100).Default(gd.Density).Unit("/s").Group("Granular").Modulatable().Build(),
		param.New(ParamGrainPosition, "Grain Position").Range(0, 1).Default(0).Group("Granular").Modulatable().Build(),
		param.New(ParamGrainPosRand, "Grain Position Random").Range(0, 1).Default(0).Group("Granular").Build(),
		param.New(ParamGrainPitchRand, "Grain Pitch Random").Range(0, 24).Default(0).Unit("st").Group("Granular").Build(),
		param.New(ParamGrainSpread, "Grain Spread").Range(0, 1).Default(0).Group("Granular").Build(),
		param.Choice(ParamGrainWindow, "Grain Window", granular.WindowNames...).Group("Granular").Build(),
		param.New(ParamGrainStretch, "Stretch").Range(0.25, 4).Default(1).Unit("x").Group("Granular").Build(),
		param.SemitoneParameter(ParamGrainShift, "Pitch Shift", 24, 0).Group("Granular").Build(),
		param.ToggleParameter(ParamGrainSync, "Grain Sync", false).Group("Granular").Build(),
		param.Choice(ParamGrainDivision, "Grain Division", modulation.DivisionNames()...).Default(float64(gd.Division)).Group("Granular").Build(),
	}
	keep(p.grain[:]...)

	// macros and step sequencer
	for i := range p.macro {
		p.macro[i] = param.New(MacroID(i), fmt.Sprintf("Macro %d", i+1)).Range(0, 1).Default(0).Group("Macros").Build()
	}
	keep(p.macro[:]...)
	p.seqLength = param.New(ParamSeqLength, "Seq Length").Range(1, modulation.MaxSteps).Default(8).Integer().Group("Step Seq").Build()
	p.seqDiv = param.Choice(ParamSeqDivision, "Seq Division", modulation.DivisionNames()...).Default(12).Group("Step Seq").Build()
	p.seqGlide = param.New(ParamSeqGlide, "Seq Glide").Range(0, 1).Default(0).Group("Step Seq").Build()
	keep(p.seqLength, p.seqDiv, p.seqGlide)
	for i := range p.seqSteps {
		p.seqSteps[i] = param.BipolarParameter(StepID(i), fmt.Sprintf("Step %d", i+1), 0).Group("Step Seq").Build()
	}
	keep(p.seqSteps[:]...)

	// modulation matrix
	for i := range p.slots {
		src, dst, amt, bip := SlotID(i)
		g := fmt.Sprintf("Mod %d", i+1)
		s := &p.slots[i]
		s.source = param.Choice(src, g+" Source", SourceNames...).Group("Matrix").Build()
		s.dest = param.Choice(dst, g+" Destination", DestNames...).Group("Matrix").Build()
		s.amount = param.BipolarParameter(amt, g+" Amount", 0).Group("Matrix").Build()
		s.bipolar = param.ToggleParameter(bip, g+" Bipolar", true).Group("Matrix").Build()
		keep(s.source, s.dest, s.amount, s.bipolar)
	}

	if err := p.reg.Add(all...); err != nil {
		return nil, err
	}
	return p, nil
}

// Registry returns the underlying table.
func (p *Params) Registry() *param.Registry {
	return p.reg
}

// Get returns a parameter by ID.
func (p *Params) Get(id uint32) *param.Parameter {
	return p.reg.Get(id)
}

// Set stores a plain value by ID. Unknown IDs are ignored.
func (p *Params) Set(id uint32, v float64) bool {
	if prm := p.reg.Get(id); prm != nil {
		prm.SetValue(v)
		return true
	}
	return false
}

// Envelope returns the settings of envelope i.
func (p *Params) Envelope(i int) envelope.Params {
	e := &p.env[i]
	return envelope.Params{
		Delay:        e.p[envDelay].Value(),
		Attack:       e.p[envAttack].Value(),
		Hold:         e.p[envHold].Value(),
		Decay:        e.p[envDecay].Value(),
		Sustain:      e.p[envSustain].Value() / 100,
		Release:      e.p[envRelease].Value(),
		AttackCurve:  e.p[envAttackCurve].Value(),
		DecayCurve:   e.p[envDecayCurve].Value(),
		ReleaseCurve: e.p[envReleaseCurve].Value(),
		VelToAttack:  e.velAttack.Value() / 100,
		VelToLevel:   e.p[envVelToLevel].Value() / 100,
	}
}

// SetEnvelope stores the settings of envelope i.
func (p *Params) SetEnvelope(i int, ep envelope.Params) {
	e := &p.env[i]
	e.p[envDelay].SetValue(ep.Delay)
	e.p[envAttack].SetValue(ep.Attack)
	e.p[envHold].SetValue(ep.Hold)
	e.p[envDecay].SetValue(ep.Decay)
	e.p[envSustain].SetValue(ep.Sustain * 100)
	e.p[envRelease].SetValue(ep.Release)
	e.p[envAttackCurve].SetValue(ep.AttackCurve)
	e.p[envDecayCurve].SetValue(ep.DecayCurve)
	e.p[envReleaseCurve].SetValue(ep.ReleaseCurve)
	e.velAttack.SetValue(ep.VelToAttack * 100)
	e.p[envVelToLevel].SetValue(ep.VelToLevel * 100)
}

// LFO returns the settings of LFO i.
func (p *Params) LFO(i int) modulation.LFOParams {
	l := &p.lfo[i]
	return modulation.LFOParams{
		Shape:     modulation.Shape(l.p[lfoShape].Int()),
		Rate:      l.p[lfoRate].Value(),
		Depth:     l.p[lfoDepth].Value() / 100,
		Phase:     l.p[lfoPhase].Value(),
		FadeIn:    l.p[lfoFade].Value(),
		TempoSync: l.p[lfoSync].Bool(),
		Division:  l.p[lfoDivision].Int(),
		KeySync:   l.p[lfoKeySync].Bool(),
		Unipolar:  l.p[lfoUnipolar].Bool(),
	}
}

// SetLFO stores the settings of LFO i.
func (p *Params) SetLFO(i int, lp modulation.LFOParams) {
	l := &p.lfo[i]
	l.p[lfoShape].SetValue(float64(lp.Shape))
	l.p[lfoRate].SetValue(lp.Rate)
	l.p[lfoDepth].SetValue(lp.Depth * 100)
	l.p[lfoPhase].SetValue(lp.Phase)
	l.p[lfoFade].SetValue(lp.FadeIn)
	l.p[lfoSync].SetValue(boolValue(lp.TempoSync))
	l.p[lfoDivision].SetValue(float64(lp.Division))
	l.p[lfoKeySync].SetValue(boolValue(lp.KeySync))
	l.p[lfoUnipolar].SetValue(boolValue(lp.Unipolar))
}

// Filter returns the settings of filter slot i (0 or 1) before modulation.
func (p *Params) Filter(i int) filter.Settings {
	f := &p.filter[i]
	return filter.Settings{
		Type:      filter.Type(f.typ.Int()),
		Cutoff:    f.cutoff.Value(),
		Resonance: f.res.Value(),
		Drive:     f.drive.Value(),
		Morph:     f.morph.Value(),
	}
}

// SetFilter stores the settings of filter slot i.
func (p *Params) SetFilter(i int, s filter.Settings) {
	f := &p.filter[i]
	f.typ.SetValue(float64(s.Type))
	f.cutoff.SetValue(s.Cutoff)
	f.res.SetValue(s.Resonance)
	f.drive.SetValue(s.Drive)
	f.morph.SetValue(s.Morph)
}

// Granular returns the grain engine settings.
func (p *Params) Granular() granular.Params {
	g := &p.grain
	return granular.Params{
		Mode:         granular.Mode(g[0].Int()),
		Size:         g[1].Value(),
		Density:      g[2].Value(),
		Position:     g[3].Value(),
		PositionRand: g[4].Value(),
		PitchRand:    g[5].Value(),
		PanSpread:    g[6].Value(),
		Window:       granular.Window(g[7].Int()),
		Stretch:      g[8].Value(),
		PitchShift:   g[9].Value(),
		TempoSync:    g[10].Bool(),
		Division:     g[11].Int(),
	}
}

// SetGranular stores the grain engine settings.
func (p *Params) SetGranular(gp granular.Params) {
	g := &p.grain
	g[0].SetValue(float64(gp.Mode))
	g[1].SetValue(gp.Size)
	g[2].SetValue(gp.Density)
	g[3].SetValue(gp.Position)
	g[4].SetValue(gp.PositionRand)
	g[5].SetValue(gp.PitchRand)
	g[6].SetValue(gp.PanSpread)
	g[7].SetValue(float64(gp.Window))
	g[8].SetValue(gp.Stretch)
	g[9].SetValue(gp.PitchShift)
	g[10].SetValue(boolValue(gp.TempoSync))
	g[11].SetValue(float64(gp.Division))
}

// Slot returns modulation slot i.
func (p *Params) Slot(i int) ModSlot {
	s := &p.slots[i]
	return ModSlot{
		Source:  ModSource(s.source.Int()),
		Dest:    ModDest(s.dest.Int()),
		Amount:  s.amount.Value(),
		Bipolar: s.bipolar.Bool(),
	}
}

// SetSlot stores modulation slot i.
func (p *Params) SetSlot(i int, slot ModSlot) error {
	if i < 0 || i >= MaxModSlots {
		return fmt.Errorf("sampler: modulation slot %d out of range", i)
	}
	s := &p.slots[i]
	s.source.SetValue(float64(slot.Source))
	s.dest.SetValue(float64(slot.Dest))
	s.amount.SetValue(slot.Amount)
	s.bipolar.SetValue(boolValue(slot.Bipolar))
	return nil
}

// Macro returns macro i (0-1).
func (p *Params) Macro(i int) float64 {
	return p.macro[i].Value()
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
