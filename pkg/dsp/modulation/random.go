package modulation

// Rand is a xorshift32 generator. Each voice owns one so random shapes are
// deterministic per seed and never touch a shared source.
type Rand struct {
	state uint32
}

// NewRand creates a generator; a zero seed is replaced with a fixed constant.
func NewRand(seed uint32) Rand {
	var r Rand
	r.Seed(seed)
	return r
}

// Seed restarts the sequence.
func (r *Rand) Seed(seed uint32) {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	r.state = seed
}

// Uint32 returns the next raw value.
func (r *Rand) Uint32() uint32 {
	x := r.state
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.state = x
	return x
}

// Float64 returns a value in [0, 1).
func (r *Rand) Float64() float64 {
	return float64(r.Uint32()>>8) / (1 << 24)
}

// Bipolar returns a value in [-1, 1).
func (r *Rand) Bipolar() float64 {
	return r.Float64()*2 - 1
}
