// Package process provides the per-block processing context handed to the
// engine by a host adapter.
package process

import (
	"github.com/echoelmusic/ultrasampler/pkg/midi"
)

// Transport is the host's read-only timeline state for one block.
type Transport struct {
	SampleRate     float64
	Tempo          float64 // BPM
	PPQPosition    float64 // beats since song start
	BarPosition    float64 // beat position of the current bar start
	TimeSigNum     int32
	TimeSigDen     int32
	SamplePosition int64
	Playing        bool
	Recording      bool
	Looping        bool
	LoopStart      float64 // beats
	LoopEnd        float64 // beats
}

// DefaultTransport is a stopped 120 BPM 4/4 timeline.
func DefaultTransport(sampleRate float64) Transport {
	return Transport{
		SampleRate: sampleRate,
		Tempo:      120,
		TimeSigNum: 4,
		TimeSigDen: 4,
	}
}

// BeatsPerSample returns how far the beat position moves per sample.
func (t Transport) BeatsPerSample() float64 {
	if t.SampleRate <= 0 || t.Tempo <= 0 {
		return 0
	}
	return t.Tempo / 60.0 / t.SampleRate
}

// BeatInBar returns the beat position inside the current bar.
func (t Transport) BeatInBar() float64 {
	return t.PPQPosition - t.BarPosition
}

// Context describes one audio block. Events are sorted by Offset and every
// Offset lies in [0, NumSamples).
type Context struct {
	Input      [][]float32
	Output     [][]float32
	Events     []midi.Event
	Transport  Transport
	NumSamples int

	workBuffer []float32
}

// NewContext creates a context with a pre-allocated work buffer.
func NewContext(maxBlockSize int) *Context {
	return &Context{workBuffer: make([]float32, maxBlockSize)}
}

// Samples returns the block length, inferring it from the buffers when
// NumSamples is zero.
func (c *Context) Samples() int {
	if c.NumSamples > 0 {
		return c.NumSamples
	}
	if len(c.Output) > 0 {
		return len(c.Output[0])
	}
	if len(c.Input) > 0 {
		return len(c.Input[0])
	}
	return 0
}

// WorkBuffer returns the pre-allocated scratch buffer sized to the block.
func (c *Context) WorkBuffer() []float32 {
	n := c.Samples()
	if n > len(c.workBuffer) {
		n = len(c.workBuffer)
	}
	return c.workBuffer[:n]
}

// PassThrough copies input to output (for bypass)
func (c *Context) PassThrough() {
	n := c.Samples()
	for ch := range c.Output {
		if ch < len(c.Input) {
			copy(c.Output[ch][:n], c.Input[ch][:n])
		} else {
			clear(c.Output[ch][:n])
		}
	}
}

// Clear zeros the output buffers
func (c *Context) Clear() {
	n := c.Samples()
	for ch := range c.Output {
		clear(c.Output[ch][:n])
	}
}
