package sampler

import (
	"fmt"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/envelope"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/filter"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/granular"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/modulation"
)

// Preset is a factory patch.
type Preset int

const (
	PresetInit Preset = iota
	PresetAcousticPiano
	PresetElectricPiano
	PresetStrings
	PresetChoir
	PresetBrass
	PresetPadSweep
	PresetTextureEvolving
	PresetGranularAtmosphere
	PresetBioReactivePad
	PresetDrumKit
	PresetLoFiKeys

	NumPresets
)

// PresetNames are display names indexed by Preset.
var PresetNames = []string{
	"Init", "Acoustic Piano", "Electric Piano", "Strings", "Choir", "Brass",
	"Pad Sweep", "Texture Evolving", "Granular Atmosphere", "Bio-Reactive Pad",
	"Drum Kit", "Lo-Fi Keys",
}

func (p Preset) String() string {
	if p >= 0 && int(p) < len(PresetNames) {
		return PresetNames[p]
	}
	return "Unknown"
}

// LoadPreset resets every engine parameter to its default and applies the
// patch. Zones are left untouched. Call it from a control goroutine.
func (e *Engine) LoadPreset(preset Preset) error {
	if preset < 0 || preset >= NumPresets {
		return fmt.Errorf("sampler: unknown preset %d", preset)
	}
	p := e.params
	p.reg.ResetToDefaults()
	applyPreset(p, preset)
	e.log.Info("preset %q loaded", preset)
	return nil
}

func applyPreset(p *Params, preset Preset) {
	f1 := p.Filter(0)
	lfo1 := p.LFO(0)
	grains := p.Granular()

	switch preset {
	case PresetAcousticPiano:
		p.SetEnvelope(0, envelope.Params{Attack: 2, Decay: 50, Sustain: 0.8, Release: 300, VelToLevel: 1})
		f1.Cutoff = 12000

	case PresetElectricPiano:
		p.SetEnvelope(0, envelope.Params{Attack: 1, Decay: 200, Sustain: 0.6, Release: 400, DecayCurve: -0.2, VelToLevel: 0.8})
		p.SetEnvelope(1, envelope.Params{Attack: 5, Decay: 300, Sustain: 0.2, Release: 500, DecayCurve: -0.3, VelToLevel: 0.5})
		f1.Cutoff, f1.Resonance = 3000, 0.4

	case PresetStrings:
		p.SetEnvelope(0, envelope.Params{Attack: 300, Decay: 100, Sustain: 0.9, Release: 500, AttackCurve: 0.3, VelToLevel: 0.7})
		f1.Cutoff = 5000
		lfo1.Shape, lfo1.Rate, lfo1.Depth = modulation.ShapeSine, 5, 0.02

	case PresetChoir:
		p.SetEnvelope(0, envelope.Params{Attack: 400, Decay: 200, Sustain: 0.85, Release: 600, AttackCurve: 0.2, VelToLevel: 0.6})
		f1.Type, f1.Cutoff = filter.TypeFormant, 1500
		lfo1.Shape, lfo1.Rate, lfo1.Depth, lfo1.FadeIn = modulation.ShapeSine, 4, 0.03, 100

	case PresetBrass:
		p.SetEnvelope(0, envelope.Params{Attack: 60, Decay: 200, Sustain: 0.8, Release: 250, AttackCurve: 0.2, VelToAttack: 0.3, VelToLevel: 0.8})
		p.SetEnvelope(1, envelope.Params{Attack: 80, Decay: 400, Sustain: 0.5, Release: 300, VelToLevel: 0.9})
		f1.Cutoff, f1.Resonance = 1800, 0.25
		lfo1.Shape, lfo1.Rate, lfo1.Depth, lfo1.FadeIn = modulation.ShapeSine, 5.5, 0.015, 300

	case PresetPadSweep:
		p.SetEnvelope(0, envelope.Params{Attack: 500, Decay: 300, Sustain: 0.7, Release: 1000, AttackCurve: 0.5, ReleaseCurve: 0.3, VelToLevel: 0.5})
		p.SetEnvelope(1, envelope.Params{Attack: 1000, Decay: 2000, Sustain: 0.3, Release: 2000, DecayCurve: 0.5, VelToLevel: 0.8})
		f1.Cutoff, f1.Resonance = 500, 0.5

	case PresetTextureEvolving:
		p.SetEnvelope(0, envelope.Params{Attack: 800, Decay: 500, Sustain: 0.6, Release: 1500, AttackCurve: 0.4, ReleaseCurve: 0.2, VelToLevel: 0.4})
		grains.Mode = granular.ModeCloud
		grains.Size, grains.Density = 80, 15
		grains.PositionRand, grains.PitchRand, grains.PanSpread = 0.3, 0.5, 0.8

	case PresetGranularAtmosphere:
		p.SetEnvelope(0, envelope.Params{Attack: 1000, Decay: 500, Sustain: 0.8, Release: 2000, AttackCurve: 0.6, ReleaseCurve: 0.4, VelToLevel: 0.3})
		grains.Mode = granular.ModeCloud
		grains.Size, grains.Density = 150, 8
		grains.PositionRand, grains.PitchRand, grains.PanSpread = 0.5, 2, 1
		grains.Window = granular.WindowHann
		f1.Cutoff, f1.Resonance = 3000, 0.4

	case PresetBioReactivePad:
		p.SetEnvelope(0, envelope.Params{Attack: 600, Decay: 400, Sustain: 0.75, Release: 1200, AttackCurve: 0.3, ReleaseCurve: 0.2, VelToLevel: 0.5})
		grains.Mode = granular.ModeCloud
		grains.Size, grains.Density = 100, 12
		p.bioReactive.SetValue(1)
		f1.Cutoff = 2000
		lfo1.Shape, lfo1.Rate, lfo1.Depth, lfo1.FadeIn = modulation.ShapeSine, 0.5, 0.1, 500

	case PresetDrumKit:
		p.SetEnvelope(0, envelope.Params{Attack: 0.5, Decay: 50, Sustain: 0, Release: 100, DecayCurve: -0.5, VelToLevel: 1})
		f1.Type = filter.TypeOff

	case PresetLoFiKeys:
		p.SetEnvelope(0, envelope.Params{Attack: 5, Decay: 150, Sustain: 0.5, Release: 300, VelToLevel: 0.9})
		f1.Cutoff, f1.Resonance = 2500, 0.2
	}

	p.SetFilter(0, f1)
	p.SetLFO(0, lfo1)
	p.SetGranular(grains)
}
