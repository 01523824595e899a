package interpolation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineSource(freq, sampleRate float64, n int) *Source {
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / sampleRate))
	}
	return &Source{Data: data}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		speed    float64
		taps     int
		degraded bool
		want     Mode
	}{
		{"explicit mode wins", ModeLinear, 1, 64, false, ModeLinear},
		{"unity speed sinc 8", ModeAuto, 1, 8, false, ModeSinc8},
		{"unity speed sinc 64", ModeAuto, 1, 64, false, ModeSinc64},
		{"slightly detuned", ModeAuto, 1.3, 64, false, ModeSinc64},
		{"octave up", ModeAuto, 2, 64, false, ModeHermite},
		{"octave down", ModeAuto, 0.25, 64, false, ModeHermite},
		{"far up", ModeAuto, 6, 64, false, ModeLinear},
		{"degraded caps at hermite", ModeAuto, 1, 64, true, ModeHermite},
		{"degraded keeps linear", ModeAuto, 8, 64, true, ModeLinear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.mode, tt.speed, tt.taps, tt.degraded))
		})
	}
}

func TestSourceAt(t *testing.T) {
	src := &Source{Data: []float32{1, 2, 3, 4, 5, 6}}

	assert.Equal(t, float32(0), src.At(-1))
	assert.Equal(t, float32(3), src.At(2))
	assert.Equal(t, float32(6), src.At(6), "past end holds last sample")
	assert.Equal(t, float32(6), src.At(100))

	src.Loop = true
	src.LoopStart = 2
	src.LoopEnd = 5
	assert.Equal(t, float32(3), src.At(5), "wraps to loop start")
	assert.Equal(t, float32(4), src.At(6))
	assert.Equal(t, float32(5), src.At(7))
	assert.Equal(t, float32(3), src.At(8))
}

func TestReadSineAccuracy(t *testing.T) {
	const sr = 48000.0
	const freq = 1000.0
	src := sineSource(freq, sr, 4096)
	table8 := NewSincTable(8)
	table64 := NewSincTable(64)

	tests := []struct {
		mode  Mode
		table *SincTable
		bound float64
	}{
		// linear error bound is (w^2)/8 with w = 2*pi*f/sr
		{ModeLinear, nil, 2.5e-3},
		{ModeHermite, nil, 2e-4},
		{ModeSinc8, table8, 2e-4},
		{ModeSinc64, table64, 2e-5},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			var h History
			maxErr := 0.0
			for pos := 100.37; pos < 3000; pos += 0.61 {
				got := float64(Read(src, pos, tt.mode, tt.table, &h))
				want := math.Sin(2 * math.Pi * freq * pos / sr)
				maxErr = math.Max(maxErr, math.Abs(got-want))
			}
			assert.Less(t, maxErr, tt.bound)
		})
	}
}

func TestReadIntegerPositionsAreExact(t *testing.T) {
	src := sineSource(440, 48000, 512)
	table := NewSincTable(64)
	for _, mode := range []Mode{ModeLinear, ModeHermite, ModeSinc64} {
		for i := 64; i < 400; i += 17 {
			assert.InDelta(t, src.Data[i], Read(src, float64(i), mode, table, nil), 1e-5, "%v at %d", mode, i)
		}
	}
}

func TestHistoryMatchesDirectReads(t *testing.T) {
	src := sineSource(1234, 44100, 2048)
	table := NewSincTable(64)
	var h History
	for pos := 10.0; pos < 1500; pos += 1.73 {
		cached := Read(src, pos, ModeSinc64, table, &h)
		direct := Read(src, pos, ModeSinc64, table, nil)
		require.Equal(t, direct, cached, "pos %f", pos)
	}
	// jumping backwards refills the window
	assert.Equal(t, Read(src, 20.5, ModeSinc64, table, nil), Read(src, 20.5, ModeSinc64, table, &h))

	h.Reset()
	assert.Equal(t, Read(src, 700.25, ModeHermite, table, nil), Read(src, 700.25, ModeHermite, table, &h))
}

func TestSincTableUnityGain(t *testing.T) {
	table := NewSincTable(8)
	ones := make([]float32, table.Taps())
	for i := range ones {
		ones[i] = 1
	}
	for _, frac := range []float32{0, 0.1, 0.5, 0.77, 0.999} {
		assert.InDelta(t, 1.0, table.Apply(ones, frac), 1e-5)
	}
}

func TestLoopCrossfadeIsContinuous(t *testing.T) {
	data := make([]float32, 1000)
	for i := range data {
		data[i] = float32(i) / 1000
	}
	src := &Source{Data: data, Loop: true, LoopStart: 200, LoopEnd: 800, Crossfade: 100}

	// entering the fade there is no blend yet
	assert.InDelta(t, data[700], Read(src, 700, ModeLinear, nil, nil), 1e-6)
	// at the end of the fade the output matches the audio just before the loop start
	end := Read(src, 799.999, ModeLinear, nil, nil)
	assert.InDelta(t, Read(src, 199.999, ModeLinear, nil, nil), end, 1e-3)
	// after the wrap playback continues from loop start
	assert.InDelta(t, data[200], src.At(800), 1e-6)
}

func TestReadDoesNotAllocate(t *testing.T) {
	src := sineSource(1000, 48000, 1024)
	table := NewSincTable(64)
	var h History
	pos := 10.0
	allocs := testing.AllocsPerRun(200, func() {
		Read(src, pos, ModeSinc64, table, &h)
		Read(src, pos, ModeSinc64, table, nil)
		Read(src, pos, ModeHermite, table, nil)
		pos += 1.01
	})
	assert.Zero(t, allocs)
}
