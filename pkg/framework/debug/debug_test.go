package debug

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("BasicLogging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "TEST", FlagLevel|FlagPrefix)

		logger.Info("Hello %s", "World")

		out := buf.String()
		assert.Contains(t, out, "[INFO]")
		assert.Contains(t, out, "[TEST]")
		assert.Contains(t, out, "Hello World")
		assert.True(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("LogLevels", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "", FlagLevel)
		logger.SetLevel(LogLevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("With", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(&buf, "engine", FlagPrefix).With("voice")
		logger.Info("stolen")
		assert.Contains(t, buf.String(), "[engine/voice] stolen")
	})

	t.Run("Discard", func(t *testing.T) {
		Discard().Error("nothing")
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LogLevelDebug,
		"INFO":  LogLevelInfo,
		"warn":  LogLevelWarn,
		"error": LogLevelError,
		"off":   LogLevelOff,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestAnalyzeBuffer(t *testing.T) {
	const sr = 48000
	buf := make([]float32, sr)
	for i := range buf {
		buf[i] = float32(0.5 * math.Sin(2*math.Pi*100*float64(i)/sr))
	}

	r := AnalyzeBuffer(buf)
	assert.InDelta(t, 0.5, r.Peak, 1e-3)
	assert.InDelta(t, 0.5/math.Sqrt2, r.RMS, 1e-3)
	assert.InDelta(t, 0, r.DC, 1e-4)
	assert.InDelta(t, 100, r.ZeroCrossings, 1)
	assert.False(t, r.Silent())

	buf[10] = float32(math.NaN())
	assert.Equal(t, 1, AnalyzeBuffer(buf).NaNCount)
	assert.True(t, AnalyzeBuffer(make([]float32, 64)).Silent())
}

func TestLoadMeter(t *testing.T) {
	m := NewLoadMeter(48000)

	for i := 0; i < 200; i++ {
		m.Observe(0.5)
	}
	assert.InDelta(t, 0.5, m.Load(), 1e-3)

	m.Observe(1.5)
	assert.Equal(t, uint64(1), m.Overloads())
	assert.Equal(t, 1.5, m.Peak())

	load := m.Record(time.Now(), 512)
	assert.GreaterOrEqual(t, load, 0.0)

	m.Reset()
	assert.Zero(t, m.Load())
	assert.Zero(t, m.Overloads())
}
