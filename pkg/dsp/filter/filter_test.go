package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sr = 48000.0

func newFilter(s Settings) *Filter {
	f := &Filter{}
	f.Init(sr)
	f.Update(s)
	return f
}

// rms of a sine at freq after the filter settles
func sineResponse(f *Filter, freq float64) float64 {
	n := int(sr / 4)
	sum := 0.0
	for i := 0; i < n; i++ {
		y := f.Process(float32(math.Sin(2*math.Pi*freq*float64(i)/sr)), 0)
		if i >= n/2 {
			sum += float64(y) * float64(y)
		}
	}
	return math.Sqrt(sum / float64(n-n/2))
}

func TestStabilitySweep(t *testing.T) {
	for typ := TypeLP12; typ <= TypeStateVariable; typ++ {
		t.Run(typ.String(), func(t *testing.T) {
			f := newFilter(Settings{Type: typ, Cutoff: 20, Morph: 0.5})
			peak := 0.0
			i := 0
			for res := 0.0; res <= 1.0; res += 0.125 {
				for cutoff := 20.0; cutoff <= 20000; cutoff *= 1.5 {
					f.Update(Settings{Type: typ, Cutoff: cutoff, Resonance: res, Morph: 0.5})
					for j := 0; j < 256; j++ {
						in := 0.0
						if i == 0 {
							in = 1 // unit impulse
						} else {
							in = math.Sin(2 * math.Pi * cutoff * float64(i) / sr)
						}
						y := float64(f.Process(float32(in), i&1))
						require.False(t, math.IsNaN(y) || math.IsInf(y, 0), "res %.2f cutoff %.0f", res, cutoff)
						peak = math.Max(peak, math.Abs(y))
						i++
					}
				}
			}
			assert.Less(t, peak, 100.0)
		})
	}
}

func TestLowpassHighpassResponse(t *testing.T) {
	tests := []struct {
		typ      Type
		passHz   float64
		stopHz   float64
		maxRatio float64
	}{
		{TypeLP12, 100, 10000, 0.05},
		{TypeLP24, 100, 10000, 0.005},
		{TypeLP36, 100, 10000, 0.001},
		{TypeHP12, 10000, 100, 0.05},
		{TypeHP24, 10000, 100, 0.005},
		{TypeMoogLadder, 100, 10000, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			f := newFilter(Settings{Type: tt.typ, Cutoff: 1000})
			pass := sineResponse(f, tt.passHz)
			f.Reset()
			stop := sineResponse(f, tt.stopHz)
			assert.Greater(t, pass, 0.4)
			assert.Less(t, stop/pass, tt.maxRatio)
		})
	}
}

func TestBandPassAndNotch(t *testing.T) {
	bp := newFilter(Settings{Type: TypeBandPass, Cutoff: 1000, Resonance: 0.5})
	assert.InDelta(t, 1/math.Sqrt2, sineResponse(bp, 1000), 0.05, "unity peak gain")
	bp.Reset()
	assert.Less(t, sineResponse(bp, 50), 0.1)

	notch := newFilter(Settings{Type: TypeNotch, Cutoff: 1000, Resonance: 0.5})
	assert.Less(t, sineResponse(notch, 1000), 0.05)
	notch.Reset()
	assert.Greater(t, sineResponse(notch, 100), 0.6)
}

func TestResonancePeaks(t *testing.T) {
	low := newFilter(Settings{Type: TypeLP12, Cutoff: 1000, Resonance: 0})
	high := newFilter(Settings{Type: TypeLP12, Cutoff: 1000, Resonance: 0.9})
	assert.Greater(t, sineResponse(high, 1000), 3*sineResponse(low, 1000))
}

func TestResetClearsState(t *testing.T) {
	for typ := TypeLP12; typ <= TypeStateVariable; typ++ {
		f := newFilter(Settings{Type: typ, Cutoff: 500, Resonance: 0.8})
		for i := 0; i < 2000; i++ {
			f.Process(float32(math.Sin(float64(i)*0.1)), 0)
		}
		f.Reset()
		fresh := newFilter(Settings{Type: typ, Cutoff: 500, Resonance: 0.8})
		for i := 0; i < 64; i++ {
			assert.Equal(t, fresh.Process(0.25, 0), f.Process(0.25, 0), "%v sample %d", typ, i)
		}
	}
}

func TestOffPassesThrough(t *testing.T) {
	f := newFilter(Settings{Type: TypeOff})
	assert.Equal(t, float32(0.3), f.Process(0.3, 1))
}

func TestChannelsAreIndependent(t *testing.T) {
	f := newFilter(Settings{Type: TypeLP24, Cutoff: 200})
	for i := 0; i < 500; i++ {
		f.Process(1, 0)
	}
	assert.Equal(t, float32(0), f.Process(0, 1))
}

func TestCombResonatesAtCutoff(t *testing.T) {
	f := newFilter(Settings{Type: TypeComb, Cutoff: 480, Resonance: 1})
	atPeak := sineResponse(f, 480)
	f.Reset()
	between := sineResponse(f, 720)
	assert.Greater(t, atPeak, 2*between)
}

func TestKeytrack(t *testing.T) {
	tests := []struct {
		amount float64
		note   int
		want   float64
	}{
		{0, 72, 1000},
		{1, 60, 1000},
		{1, 72, 2000},
		{1, 48, 500},
		{0.5, 84, 2000},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Keytrack(1000, tt.amount, tt.note), 1e-9)
	}
}

func TestCutoffClampedBelowNyquist(t *testing.T) {
	c := makeSVFCoeffs(30000, sr, 1)
	assert.InDelta(t, math.Tan(math.Pi*0.49), c.g, 1e-12)
	f, _ := ladderCoeffs(30000, sr, 0.5)
	assert.Equal(t, 0.99, f)
}

func TestBankRouting(t *testing.T) {
	var b Bank
	b.Init(sr)
	lp := Settings{Type: TypeLP12, Cutoff: 1000}
	hp := Settings{Type: TypeHP12, Cutoff: 1000}

	b.Update(lp, hp, Serial)
	serial := 0.0
	for i := 0; i < 4800; i++ {
		serial = math.Max(serial, math.Abs(float64(b.Process(float32(math.Sin(2*math.Pi*100*float64(i)/sr)), 0))))
	}
	b.Reset()
	b.Update(lp, hp, Parallel)
	parallel := 0.0
	for i := 0; i < 4800; i++ {
		parallel = math.Max(parallel, math.Abs(float64(b.Process(float32(math.Sin(2*math.Pi*100*float64(i)/sr)), 0))))
	}
	// LP into HP removes a 100 Hz tone, LP beside HP keeps it
	assert.Less(t, serial, 0.2)
	assert.Greater(t, parallel, 0.4)
}

func TestProcessDoesNotAllocate(t *testing.T) {
	f := newFilter(Settings{Type: TypeFormant, Cutoff: 800, Resonance: 0.5})
	allocs := testing.AllocsPerRun(100, func() {
		f.Update(Settings{Type: TypeFormant, Cutoff: 900, Resonance: 0.5})
		for i := 0; i < 32; i++ {
			f.Process(0.1, 0)
		}
	})
	assert.Zero(t, allocs)
}
