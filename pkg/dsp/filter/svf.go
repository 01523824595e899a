// Package filter provides the per-voice zero-delay-feedback filters
package filter

import "math"

// SVFOutputs holds all filter outputs
type SVFOutputs struct {
	Lowpass  float64
	Highpass float64
	Bandpass float64
	Notch    float64
}

// svf is one trapezoidal state variable stage. The two-integrator loop is
// solved in closed form so there is no unit delay in the feedback path.
type svf struct {
	ic1eq float64
	ic2eq float64
}

// svfCoeffs are the per-cutoff terms shared by every channel.
type svfCoeffs struct {
	g, k       float64
	a1, a2, a3 float64
}

func makeSVFCoeffs(cutoff, sampleRate, k float64) svfCoeffs {
	g := math.Tan(math.Pi * clampNormalized(cutoff/sampleRate))
	a1 := 1 / (1 + g*(g+k))
	a2 := g * a1
	return svfCoeffs{g: g, k: k, a1: a1, a2: a2, a3: g * a2}
}

func (s *svf) tick(in float64, c *svfCoeffs) SVFOutputs {
	v3 := in - s.ic2eq
	v1 := c.a1*s.ic1eq + c.a2*v3
	v2 := s.ic2eq + c.a2*s.ic1eq + c.a3*v3

	s.ic1eq = 2*v1 - s.ic1eq
	s.ic2eq = 2*v2 - s.ic2eq

	return SVFOutputs{
		Lowpass:  v2,
		Bandpass: v1,
		Highpass: in - c.k*v1 - v2,
		Notch:    in - c.k*v1,
	}
}

func (s *svf) reset() {
	s.ic1eq = 0
	s.ic2eq = 0
}

// Resonance bounds; k never reaches zero so the loop stays damped.
const (
	maxResonance = 0.98
	butterworthK = math.Sqrt2
)

func clampNormalized(fc float64) float64 {
	switch {
	case math.IsNaN(fc) || fc < 0.0001:
		return 0.0001
	case fc > 0.49:
		return 0.49
	}
	return fc
}

func clampResonance(res float64) float64 {
	switch {
	case math.IsNaN(res) || res < 0:
		return 0
	case res > maxResonance:
		return maxResonance
	}
	return res
}

// dampingFromResonance maps resonance 0..1 to the SVF damping k = 2 - 2*res.
func dampingFromResonance(res float64) float64 {
	return 2 - 2*clampResonance(res)
}

// Keytrack offsets a cutoff relative to middle C by amount octaves per octave.
func Keytrack(cutoff, amount float64, note int) float64 {
	return cutoff * math.Exp2(amount*float64(note-60)/12)
}

// ClampCutoff keeps a modulated cutoff in the audible range.
func ClampCutoff(hz float64) float64 {
	switch {
	case math.IsNaN(hz) || hz < 20:
		return 20
	case hz > 20000:
		return 20000
	}
	return hz
}
