package filter

const phaserStages = 4

// stage spread relative to the cutoff
var phaserSpread = [phaserStages]float64{1, 1.6, 2.6, 4.2}

type phaser struct {
	stages [phaserStages]svf
	last   float64
}

func phaserCoeffs(cutoff, sampleRate float64) [phaserStages]svfCoeffs {
	var out [phaserStages]svfCoeffs
	for i := range out {
		out[i] = makeSVFCoeffs(cutoff*phaserSpread[i], sampleRate, 1)
	}
	return out
}

// tick runs the input through four ZDF allpass stages (x - 2k*bp) and mixes
// the result with the dry signal to form notches.
func (p *phaser) tick(in, feedback float64, c *[phaserStages]svfCoeffs) float64 {
	x := in + feedback*p.last
	for i := range p.stages {
		o := p.stages[i].tick(x, &c[i])
		x = x - 2*c[i].k*o.Bandpass
	}
	p.last = x
	return 0.5 * (in + x)
}

func (p *phaser) reset() {
	for i := range p.stages {
		p.stages[i].reset()
	}
	p.last = 0
}
