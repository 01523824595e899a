package dsp

import (
	"github.com/echoelmusic/ultrasampler/pkg/dsp/utility"
)

// SampleProcessor is the per-sample shape of the algo-dsp effects.
type SampleProcessor interface {
	ProcessSample(input float64) float64
	Reset()
}

// DualMono runs an independent mono processor on each channel.
type DualMono struct {
	left, right SampleProcessor
	bypass      bool
}

// NewDualMono pairs two processors of the same kind.
func NewDualMono(left, right SampleProcessor) *DualMono {
	return &DualMono{left: left, right: right}
}

func (d *DualMono) ProcessStereo(left, right []float32) {
	for i := range left {
		left[i] = float32(d.left.ProcessSample(float64(left[i])))
	}
	for i := range right {
		right[i] = float32(d.right.ProcessSample(float64(right[i])))
	}
}

func (d *DualMono) Reset() {
	d.left.Reset()
	d.right.Reset()
}

// SetBypass skips the stage in a chain. State is kept.
func (d *DualMono) SetBypass(bypass bool) {
	d.bypass = bypass
}

func (d *DualMono) Bypassed() bool {
	return d.bypass
}

// DCBlockerStage removes DC offset from both channels.
type DCBlockerStage struct {
	blocker *utility.DCBlocker
}

// NewDCBlockerStage creates a 10 Hz blocker.
func NewDCBlockerStage(sampleRate float64) *DCBlockerStage {
	return &DCBlockerStage{blocker: utility.NewDCBlocker(10, sampleRate)}
}

func (s *DCBlockerStage) ProcessStereo(left, right []float32) {
	s.blocker.ProcessBuffer(left, 0)
	s.blocker.ProcessBuffer(right, 1)
}

func (s *DCBlockerStage) Reset() {
	s.blocker.Reset()
}
