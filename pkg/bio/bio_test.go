package bio

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeutralState(t *testing.T) {
	s := NewState()
	d := s.Snapshot()
	assert.Equal(t, 72.0, d.HeartRate)
	assert.Equal(t, 0.5, d.Coherence)
	assert.False(t, d.Valid)
}

func TestSetIgnoresInvalid(t *testing.T) {
	s := NewState()
	d := Neutral()
	d.Coherence = 0.9
	assert.False(t, s.Set(d))
	assert.Equal(t, 0.5, s.Snapshot().Coherence)

	d.Valid = true
	require.True(t, s.Set(d))
	got := s.Snapshot()
	assert.Equal(t, 0.9, got.Coherence)
	assert.True(t, got.Valid)
	assert.Equal(t, uint64(2), s.Updates())
}

func TestStoreClamps(t *testing.T) {
	s := NewState()
	s.Store(Data{HeartRate: 1000, Coherence: 3, Stress: -1, BreathPhase: 2})
	d := s.Snapshot()
	assert.Equal(t, 250.0, d.HeartRate)
	assert.Equal(t, 1.0, d.Coherence)
	assert.Equal(t, 0.0, d.Stress)
	assert.Equal(t, 1.0, d.BreathPhase)
}

func TestModulate(t *testing.T) {
	tests := []struct {
		name      string
		coherence float64
		intensity float64
		target    Target
		want      Modulation
	}{
		{"all high coherence", 1, 1, TargetAll, Modulation{Filter: 1, Reverb: 1, LFO: 1.5, Tempo: 1, Intensity: 1}},
		{"all neutral", 0.5, 0.5, TargetAll, Modulation{Filter: 0, Reverb: 0.25, LFO: 1, Tempo: 1, Intensity: 0.5}},
		{"filter only", 0, 1, TargetFilter, Modulation{Filter: -1, LFO: 1, Tempo: 1, Intensity: 1}},
		{"reverb only", 0.8, 0.5, TargetReverb, Modulation{Reverb: 0.4, LFO: 1, Tempo: 1, Intensity: 0.5}},
		{"lfo only", 0, 1, TargetLFO, Modulation{LFO: 0.5, Tempo: 1, Intensity: 1}},
		{"zero intensity", 1, 0, TargetAll, Modulation{LFO: 1, Tempo: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Neutral()
			d.Coherence = tt.coherence
			got := Modulate(d, tt.intensity, tt.target)
			assert.InDelta(t, tt.want.Filter, got.Filter, 1e-12)
			assert.InDelta(t, tt.want.Reverb, got.Reverb, 1e-12)
			assert.InDelta(t, tt.want.LFO, got.LFO, 1e-12)
			assert.Equal(t, tt.want.Tempo, got.Tempo)
			assert.Equal(t, tt.want.Intensity, got.Intensity)
		})
	}
}

func TestPitchOffset(t *testing.T) {
	d := Neutral()
	assert.Zero(t, PitchOffset(d))
	d.Coherence = 1
	assert.InDelta(t, 0.05, PitchOffset(d), 1e-12)
}

func TestConcurrentSetAndSnapshot(t *testing.T) {
	s := NewState()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			d := Neutral()
			d.Coherence = float64(i%100) / 100
			d.Valid = true
			s.Set(d)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			d := s.Snapshot()
			if d.Coherence < 0 || d.Coherence > 1 {
				t.Errorf("coherence out of range: %f", d.Coherence)
				return
			}
		}
	}()
	wg.Wait()
}

func TestSnapshotDoesNotAllocate(t *testing.T) {
	s := NewState()
	allocs := testing.AllocsPerRun(100, func() {
		_ = s.Snapshot()
	})
	assert.Zero(t, allocs)
}
