package plugin

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/effects/modulation"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"

	"github.com/echoelmusic/ultrasampler/pkg/framework/dsp"
)

// Freeverb room scaling: comb feedback = roomOffset + room*roomScale.
const (
	roomOffset = 0.7
	roomScale  = 0.28

	driveFloor = 0.01
)

// fxSettings is the per-block parameter snapshot the chain is driven by.
type fxSettings struct {
	drive        float64 // 0..1
	delayMs      float64
	delayFB      float64 // 0..0.95
	delayMix     float64 // 0..1
	reverbWet    float64 // 0..1
	room         float64 // 0..1
	compThreshDB float64
	compRatio    float64
	chorusMix    float64 // 0..1
}

// fxChain is the stereo output stage: drive, delay, reverb, compressor,
// chorus, DC blocker. Everything is built in newFXChain; update and
// ProcessStereo only touch preallocated state.
type fxChain struct {
	drive  [2]*effects.Distortion
	delay  [2]*effects.Delay
	reverb [2]*reverb.Reverb
	comp   [2]*dynamics.Compressor
	chorus [2]*modulation.Chorus

	driveStage, delayStage, compStage, chorusStage *dsp.DualMono

	chain *dsp.StereoChain
	last  fxSettings
	fresh bool
}

func newFXChain(sampleRate float64) (*fxChain, error) {
	fx := &fxChain{}
	for ch := range 2 {
		d, err := effects.NewDistortion(sampleRate,
			effects.WithDistortionMode(effects.DistortionModeSoftClip))
		if err != nil {
			return nil, fmt.Errorf("drive: %w", err)
		}
		fx.drive[ch] = d

		if fx.delay[ch], err = effects.NewDelay(sampleRate); err != nil {
			return nil, fmt.Errorf("delay: %w", err)
		}

		fx.reverb[ch] = reverb.NewReverb()

		if fx.comp[ch], err = dynamics.NewCompressor(sampleRate); err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}
		if err := fx.comp[ch].SetAutoMakeup(false); err != nil {
			return nil, fmt.Errorf("compressor: %w", err)
		}

		if fx.chorus[ch], err = modulation.NewChorus(); err != nil {
			return nil, fmt.Errorf("chorus: %w", err)
		}
		if err := fx.chorus[ch].SetSampleRate(sampleRate); err != nil {
			return nil, fmt.Errorf("chorus: %w", err)
		}
	}
	// Slightly different rates keep the two chorus channels apart.
	if err := fx.chorus[1].SetSpeedHz(0.41); err != nil {
		return nil, fmt.Errorf("chorus: %w", err)
	}
	// Uneven damping widens the stereo image.
	fx.reverb[1].SetDamp(0.55)

	fx.driveStage = dsp.NewDualMono(fx.drive[0], fx.drive[1])
	fx.delayStage = dsp.NewDualMono(fx.delay[0], fx.delay[1])
	fx.compStage = dsp.NewDualMono(fx.comp[0], fx.comp[1])
	fx.chorusStage = dsp.NewDualMono(fx.chorus[0], fx.chorus[1])

	chain, err := dsp.NewStereoBuilder("output").
		WithProcessor(fx.driveStage).
		WithProcessor(fx.delayStage).
		WithProcessor(dsp.NewDualMono(fx.reverb[0], fx.reverb[1])).
		WithProcessor(fx.compStage).
		WithProcessor(fx.chorusStage).
		WithProcessor(dsp.NewDCBlockerStage(sampleRate)).
		Build()
	if err != nil {
		return nil, err
	}
	fx.chain = chain
	fx.fresh = true
	return fx, nil
}

// update applies the settings that changed since the last block. Values are
// clamped first so the setters never take their error path.
func (fx *fxChain) update(s fxSettings) {
	prev := fx.last
	all := fx.fresh
	fx.fresh = false
	fx.last = s

	if all || s.drive != prev.drive {
		fx.driveStage.SetBypass(s.drive <= driveFloor)
		for _, d := range fx.drive {
			_ = d.SetDrive(clampf(1+3*s.drive, 0.01, 20))
			_ = d.SetMix(clampf(s.drive, 0, 1))
		}
	}
	if all || s.delayMs != prev.delayMs || s.delayFB != prev.delayFB || s.delayMix != prev.delayMix {
		fx.delayStage.SetBypass(s.delayMix <= 0)
		for _, d := range fx.delay {
			_ = d.SetTime(clampf(s.delayMs/1000, 0.001, 2))
			_ = d.SetFeedback(clampf(s.delayFB, 0, 0.95))
			_ = d.SetMix(clampf(s.delayMix, 0, 1))
		}
	}
	if all || s.reverbWet != prev.reverbWet || s.room != prev.room {
		w := clampf(s.reverbWet, 0, 1)
		fb := roomOffset + clampf(s.room, 0, 1)*roomScale
		for _, r := range fx.reverb {
			r.SetWet(w)
			r.SetDry(1 - w)
			r.SetRoomSize(fb)
		}
	}
	if all || s.compThreshDB != prev.compThreshDB || s.compRatio != prev.compRatio {
		fx.compStage.SetBypass(s.compRatio <= 1)
		for _, c := range fx.comp {
			_ = c.SetThreshold(clampf(s.compThreshDB, -60, 0))
			_ = c.SetRatio(clampf(s.compRatio, 1, 100))
		}
	}
	if all || s.chorusMix != prev.chorusMix {
		fx.chorusStage.SetBypass(s.chorusMix <= 0)
		for _, c := range fx.chorus {
			_ = c.SetMix(clampf(s.chorusMix, 0, 1))
		}
	}
}

func (fx *fxChain) ProcessStereo(left, right []float32) {
	fx.chain.ProcessStereo(left, right)
}

func (fx *fxChain) Reset() {
	fx.chain.Reset()
}

func clampf(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
