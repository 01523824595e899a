// Package oscillator generates the periodic tables used for built-in tones
// and test material.
package oscillator

import "math"

// Waveform selects the generated shape.
type Waveform int

const (
	Sine Waveform = iota
	Saw
	Square
	Triangle
)

// WaveformNames are display names indexed by Waveform.
var WaveformNames = []string{"Sine", "Saw", "Square", "Triangle"}

// Oscillator generates periodic waveforms
type Oscillator struct {
	sampleRate float64
	phase      float64
	phaseInc   float64
}

// New creates an oscillator at 440 Hz.
func New(sampleRate float64) *Oscillator {
	o := &Oscillator{sampleRate: sampleRate}
	o.SetFrequency(440)
	return o
}

// SetFrequency sets the oscillator frequency
func (o *Oscillator) SetFrequency(freq float64) {
	o.phaseInc = freq / o.sampleRate
}

// SetPhase sets the oscillator phase (0-1)
func (o *Oscillator) SetPhase(phase float64) {
	o.phase = phase - math.Floor(phase)
}

// Reset resets the oscillator phase to 0
func (o *Oscillator) Reset() {
	o.phase = 0
}

// Next returns one sample of w and advances the phase.
func (o *Oscillator) Next(w Waveform) float32 {
	p := o.phase
	var s float64
	switch w {
	case Saw:
		s = 2*p - 1
	case Square:
		if p < 0.5 {
			s = 1
		} else {
			s = -1
		}
	case Triangle:
		if p < 0.5 {
			s = 4*p - 1
		} else {
			s = 3 - 4*p
		}
	default:
		s = math.Sin(2 * math.Pi * p)
	}

	o.phase += o.phaseInc
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return float32(s)
}

// Process fills buffer with w - no allocations
func (o *Oscillator) Process(buffer []float32, w Waveform) {
	for i := range buffer {
		buffer[i] = o.Next(w)
	}
}

// Table renders frames samples of w at freq and amplitude amp.
func Table(w Waveform, freq, sampleRate, amp float64, frames int) []float32 {
	o := New(sampleRate)
	o.SetFrequency(freq)
	out := make([]float32, frames)
	o.Process(out, w)
	if amp != 1 {
		for i := range out {
			out[i] *= float32(amp)
		}
	}
	return out
}
