package filter

// CombSize is the comb delay line length in samples.
const CombSize = 4096

type comb struct {
	line  [CombSize]float32
	write int
	dirty bool
}

// combCoeffs derives the delay in samples from the cutoff (one period) and
// the feedback from the resonance.
func combCoeffs(cutoff, sampleRate, res float64) (delay, feedback float64) {
	delay = sampleRate / cutoff
	switch {
	case delay < 1:
		delay = 1
	case delay > CombSize-2:
		delay = CombSize - 2
	}
	return delay, clampResonance(res) * 0.95
}

func (c *comb) tick(in, delay, feedback float64) float64 {
	rd := float64(c.write) - delay
	if rd < 0 {
		rd += CombSize
	}
	i := int(rd)
	frac := rd - float64(i)
	j := i + 1
	if j == CombSize {
		j = 0
	}
	delayed := float64(c.line[i]) + float64(c.line[j]-c.line[i])*frac

	y := in + feedback*delayed
	c.line[c.write] = float32(y)
	c.dirty = true
	c.write++
	if c.write == CombSize {
		c.write = 0
	}
	return y * (1 - feedback)
}

func (c *comb) reset() {
	if c.dirty {
		c.line = [CombSize]float32{}
		c.dirty = false
	}
	c.write = 0
}
