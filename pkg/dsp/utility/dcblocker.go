// Package utility provides small always-on processors for the output stage.
package utility

import "math"

// DCBlocker removes DC offset from a stereo signal with a one-pole high-pass:
// y[n] = x[n] - x[n-1] + R*y[n-1].
type DCBlocker struct {
	x1, y1 [2]float32
	r      float32
}

// NewDCBlocker creates a blocker with the given cutoff, typically 5-20 Hz.
func NewDCBlocker(cutoffHz, sampleRate float64) *DCBlocker {
	dc := &DCBlocker{}
	dc.SetCutoff(cutoffHz, sampleRate)
	return dc
}

// SetCutoff updates the cutoff frequency.
func (dc *DCBlocker) SetCutoff(cutoffHz, sampleRate float64) {
	r := 1 - 2*math.Pi*cutoffHz/sampleRate
	dc.r = float32(math.Max(0.9, math.Min(0.9999, r)))
}

// Process filters one sample of channel 0 or 1.
func (dc *DCBlocker) Process(input float32, ch int) float32 {
	ch &= 1
	out := input - dc.x1[ch] + dc.r*dc.y1[ch]
	dc.x1[ch] = input
	dc.y1[ch] = out
	return out
}

// ProcessBuffer filters buffer in place.
func (dc *DCBlocker) ProcessBuffer(buffer []float32, ch int) {
	for i := range buffer {
		buffer[i] = dc.Process(buffer[i], ch)
	}
}

// Reset clears the DC blocker state.
func (dc *DCBlocker) Reset() {
	dc.x1 = [2]float32{}
	dc.y1 = [2]float32{}
}
