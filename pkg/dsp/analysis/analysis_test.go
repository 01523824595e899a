package analysis

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, sampleRate, amp float64, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/sampleRate))
	}
	return out
}

func TestLevelMeterPeakAndRMS(t *testing.T) {
	m := NewLevelMeter(48000)
	block := sine(1000, 48000, 0.5, 96000)
	for i := 0; i < len(block); i += 512 {
		m.Process(block[i:min(i+512, len(block))])
	}

	assert.InDelta(t, 0.5, m.Peak(), 0.01)
	assert.InDelta(t, 0.5, m.Hold(), 0.01)
	assert.InDelta(t, 0.5/math.Sqrt2, m.RMS(), 0.01)
	assert.InDelta(t, -9.0, m.RMSDB(), 0.1)
	assert.Zero(t, m.Clips())
}

func TestLevelMeterDecay(t *testing.T) {
	m := NewLevelMeter(1000)
	m.SetDecayRate(20)
	m.Process([]float32{1})
	assert.Equal(t, uint64(1), m.Clips())

	silence := make([]float32, 1000)
	m.Process(silence)
	// 20 dB per second
	assert.InDelta(t, 0.1, m.Peak(), 0.001)
	assert.InDelta(t, 1.0, m.Hold(), 1e-9, "still within hold time")

	m.Process(silence)
	assert.Less(t, m.Hold(), 0.1)
}

func TestLevelMeterConcurrentReaders(t *testing.T) {
	m := NewLevelMeter(48000)
	block := sine(440, 48000, 0.8, 256)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			p := m.Peak()
			if p < 0 || p > 1 {
				t.Errorf("torn read: %f", p)
				return
			}
		}
	}()
	for i := 0; i < 1000; i++ {
		m.Process(block)
	}
	wg.Wait()
}

func TestLevelMeterDoesNotAllocate(t *testing.T) {
	m := NewLevelMeter(48000)
	block := sine(440, 48000, 0.8, 256)
	assert.Zero(t, testing.AllocsPerRun(100, func() { m.Process(block) }))
}

func TestToDB(t *testing.T) {
	assert.Equal(t, MinDB, ToDB(0))
	assert.InDelta(t, 0, ToDB(1), 1e-12)
	assert.InDelta(t, -6.0206, ToDB(0.5), 1e-3)
}

func TestSpectrumPeakFrequency(t *testing.T) {
	const sr = 48000.0
	sa := NewSpectrumAnalyzer(1024, sr)
	// exactly on bin 32
	freq := sa.GetFrequencyForBin(32)
	require.True(t, sa.Process(sine(freq, sr, 1, 2048)))

	got, mag := sa.GetPeakFrequency()
	assert.InDelta(t, freq, got, 1e-9)
	assert.InDelta(t, 1.0, mag, 0.02)

	db := sa.GetSpectrumDB()
	assert.Len(t, db, 513)
	assert.Less(t, db[200], -60.0)
}

func TestSpectrumAveraging(t *testing.T) {
	const sr = 48000.0
	sa := NewSpectrumAnalyzer(512, sr)
	sa.SetAveraging(PeakHold)
	sa.Process(sine(3000, sr, 1, 1024))
	_, loud := sa.GetPeakFrequency()
	sa.Process(make([]float32, 2048))
	_, held := sa.GetPeakFrequency()
	assert.InDelta(t, loud, held, 1e-12)

	sa.Reset()
	assert.Equal(t, 0.0, sa.GetSpectrum()[10])
}

func TestOctaveBands(t *testing.T) {
	const sr = 48000.0
	sa := NewSpectrumAnalyzer(4096, sr)
	sa.Process(sine(1000, sr, 1, 8192))
	bands := sa.GetOctaveBands(StandardOctaveBands())
	require.Len(t, bands, 10)

	loudest := 0
	for i := range bands {
		if bands[i] > bands[loudest] {
			loudest = i
		}
	}
	assert.Equal(t, 5, loudest, "1 kHz band")
}

func negate(in []float32) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = -v
	}
	return out
}

func TestCorrelationMeter(t *testing.T) {
	tone := sine(440, 48000, 0.5, 48000)
	quarter := sine(440, 48000, 0.5, 48000+27)[27:] // ~90 degrees late

	tests := []struct {
		name   string
		right  []float32
		want   float64
		status PhaseStatus
	}{
		{"mono", tone, 1, PhaseInPhase},
		{"inverted", negate(tone), -1, PhaseOutOfPhase},
		{"quadrature", quarter, 0, PhasePartiallyCorrelated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCorrelationMeter(48000, 100)
			for i := 0; i < len(tone); i += 256 {
				end := min(i+256, len(tone))
				c.Process(tone[i:end], tt.right[i:end])
			}
			assert.InDelta(t, tt.want, c.Correlation(), 0.05)
			assert.Equal(t, tt.status, c.Status())
		})
	}
}

func TestCorrelationMeterSilenceAndLow(t *testing.T) {
	c := NewCorrelationMeter(48000, 50)
	c.Process(make([]float32, 512), make([]float32, 512))
	assert.Equal(t, 0.0, c.Correlation())
	assert.Equal(t, 1.0, c.Low())

	tone := sine(440, 48000, 0.5, 9600)
	c.Process(tone, negate(tone))
	c.Process(tone, tone)
	c.Process(tone, tone)
	assert.Greater(t, c.Correlation(), 0.9)
	assert.Less(t, c.Low(), -0.9, "the inverted stretch stays in Low")

	c.Reset()
	assert.Equal(t, 1.0, c.Low())
	assert.Equal(t, "in phase", PhaseStatusOf(1).String())
}
