package filter

import "math"

// vowel formant frequencies F1-F3 in Hz
var vowels = [5][3]float64{
	{800, 1150, 2900}, // A
	{350, 2000, 2800}, // E
	{270, 2140, 2950}, // I
	{450, 800, 2830},  // O
	{325, 700, 2700},  // U
}

var formantGains = [3]float64{1, 0.5, 0.25}

type formant struct {
	bands [3]svf
}

// formantCoeffs maps the cutoff logarithmically across the vowel set
// (20 Hz = A ... 20 kHz = U) and narrows the bands with resonance.
func formantCoeffs(cutoff, sampleRate, res float64) [3]svfCoeffs {
	pos := math.Log2(ClampCutoff(cutoff)/20) / math.Log2(1000) * float64(len(vowels)-1)
	pos = math.Max(0, math.Min(float64(len(vowels)-1), pos))
	v := int(pos)
	if v >= len(vowels)-1 {
		v = len(vowels) - 2
	}
	frac := pos - float64(v)

	k := 0.15 + 0.35*(1-clampResonance(res))
	var out [3]svfCoeffs
	for i := range out {
		hz := vowels[v][i] + (vowels[v+1][i]-vowels[v][i])*frac
		out[i] = makeSVFCoeffs(hz, sampleRate, k)
	}
	return out
}

func (f *formant) tick(in float64, c *[3]svfCoeffs) float64 {
	var sum float64
	for i := range f.bands {
		o := f.bands[i].tick(in, &c[i])
		sum += formantGains[i] * c[i].k * o.Bandpass
	}
	return sum
}

func (f *formant) reset() {
	for i := range f.bands {
		f.bands[i].reset()
	}
}
