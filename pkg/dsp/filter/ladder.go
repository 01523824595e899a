package filter

import "math"

// ladderIterations is the fixed number of fixed-point passes per sample.
const ladderIterations = 4

// ladder is a four-stage transistor ladder. The feedback from the last stage
// is solved implicitly: each sample iterates the whole cascade, feeding the
// current output estimate back, until the estimate settles.
type ladder struct {
	s [4]float64
}

func ladderCoeffs(cutoff, sampleRate, res float64) (f, k float64) {
	f = math.Min(2*cutoff/sampleRate, 0.99)
	if f < 0 || math.IsNaN(f) {
		f = 0
	}
	return f, 4 * clampResonance(res)
}

func (l *ladder) tick(in, f, k float64) float64 {
	y := l.s[3]
	var next [4]float64
	for it := 0; it < ladderIterations; it++ {
		prev := math.Tanh(in - k*y)
		for i := 0; i < 4; i++ {
			next[i] = l.s[i] + f*(prev-math.Tanh(l.s[i]))
			prev = math.Tanh(next[i])
		}
		// damped update keeps the iteration contractive at high resonance
		y = 0.5 * (y + next[3])
	}
	l.s = next
	// passband gain lost to the feedback
	return next[3] * (1 + k*0.5)
}

func (l *ladder) reset() {
	l.s = [4]float64{}
}
