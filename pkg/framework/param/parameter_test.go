package param

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterClampAndQuantize(t *testing.T) {
	tests := []struct {
		name  string
		build *Builder
		in    float64
		want  float64
	}{
		{"float clamps low", New(1, "Cutoff").Range(20, 20000), 5, 20},
		{"float clamps high", New(1, "Cutoff").Range(20, 20000), 30000, 20000},
		{"float passes through", New(1, "Cutoff").Range(20, 20000), 440.5, 440.5},
		{"int rounds", New(2, "Voices").Range(1, 64).Integer(), 7.6, 8},
		{"enum rounds", Choice(3, "Shape", "Sine", "Tri", "Saw"), 1.4, 1},
		{"toggle rounds", New(4, "Sync").Toggle(), 0.7, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.build.Build()
			p.SetValue(tt.in)
			assert.Equal(t, tt.want, p.Value())
		})
	}
}

func TestParameterNormalizedRoundTrip(t *testing.T) {
	p := FrequencyParameter(30, "Cutoff", 20, 20000, 8000).Build()

	assert.Equal(t, 8000.0, p.Value(), "default applied at build")

	p.SetNormalized(0.5)
	assert.InDelta(t, 10010.0, p.Value(), 1e-9)
	assert.InDelta(t, 0.5, p.Normalized(), 1e-12)

	p.SetNormalized(2)
	assert.Equal(t, 20000.0, p.Value())

	p.Reset()
	assert.Equal(t, 8000.0, p.Value())
}

func TestParameterFormatParse(t *testing.T) {
	t.Run("Choice", func(t *testing.T) {
		p := Choice(100, "Mode", "Off", "Low", "High").Build()
		assert.Equal(t, "Low", p.Format(1))

		v, err := p.Parse("high")
		require.NoError(t, err)
		assert.Equal(t, 2.0, v)

		_, err = p.Parse("medium")
		assert.Error(t, err)
	})

	t.Run("Gain", func(t *testing.T) {
		p := GainParameter(1, "Gain", -60, 12, 0).Build()
		assert.Equal(t, "-∞ dB", p.Format(-60))
		assert.Equal(t, "6.0 dB", p.Format(6))

		v, err := p.Parse("-inf")
		require.NoError(t, err)
		assert.Equal(t, -60.0, v)
	})

	t.Run("Time", func(t *testing.T) {
		p := TimeParameter(40, "Attack", 0, 10000, 10).Build()
		assert.Equal(t, "10.0 ms", p.Format(10))
		assert.Equal(t, "2.50 s", p.Format(2500))

		v, err := p.Parse("1.5 s")
		require.NoError(t, err)
		assert.Equal(t, 1500.0, v)
	})

	t.Run("Frequency", func(t *testing.T) {
		p := FrequencyParameter(30, "Cutoff", 20, 20000, 1000).Build()
		assert.Equal(t, "1.00 kHz", p.Format(1000))

		v, err := p.Parse("2.5 kHz")
		require.NoError(t, err)
		assert.Equal(t, 2500.0, v)
	})

	t.Run("Bypass", func(t *testing.T) {
		p := BypassParameter(0, "Bypass").Build()
		assert.NotZero(t, p.Flags&IsBypass)
		assert.Equal(t, "Active", p.Format(0))

		v, err := p.Parse("Bypassed")
		require.NoError(t, err)
		assert.Equal(t, 1.0, v)
	})
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(
		New(1, "A").Build(),
		New(2, "B").Build(),
	))

	err := r.Add(New(3, "C").Build(), New(2, "B again").Build())
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 2, r.Count(), "failed batch must not be partially applied")

	err = r.Add(New(4, "D").Build(), New(4, "D").Build())
	require.ErrorIs(t, err, ErrDuplicateID)

	assert.Equal(t, uint32(1), r.GetByIndex(0).ID)
	assert.Equal(t, uint32(2), r.GetByIndex(1).ID)
	assert.Nil(t, r.GetByIndex(2))
}

func TestRegistryMergeSharesValues(t *testing.T) {
	engine := NewRegistry()
	p := PercentParameter(10, "Mix", 50).Build()
	require.NoError(t, engine.Add(p))

	bridge := NewRegistry()
	require.NoError(t, bridge.Merge(engine))

	bridge.Get(10).SetValue(75)
	assert.Equal(t, 75.0, p.Value())

	bridge.ResetToDefaults()
	assert.Equal(t, 50.0, p.Value())
}

func TestParameterConcurrentAccess(t *testing.T) {
	p := New(1, "Level").Range(0, 1).Build()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				p.SetValue(float64((i + seed) % 2))
				v := p.Value()
				if v != 0 && v != 1 {
					t.Errorf("torn value %f", v)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
