package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSmoother(t *testing.T) {
	t.Run("LinearSmoothing", func(t *testing.T) {
		s := NewSmoother(LinearSmoothing, 10)
		s.Reset(0)
		s.SetTarget(1)

		for i := 0; i < 10; i++ {
			assert.InDelta(t, float64(i+1)*0.1, s.Next(), 1e-9, "sample %d", i)
		}
		assert.Equal(t, 1.0, s.Next())
		assert.False(t, s.IsSmoothing())
	})

	t.Run("ExponentialSmoothing", func(t *testing.T) {
		s := NewSmoother(ExponentialSmoothing, 0.9)
		s.Reset(0)
		s.SetTarget(1)

		prev := 0.0
		for i := 0; i < 20; i++ {
			v := s.Next()
			assert.Greater(t, v, prev)
			assert.Less(t, v, 1.0)
			prev = v
		}
		for i := 0; i < 500; i++ {
			s.Next()
		}
		assert.False(t, s.IsSmoothing())
		assert.Equal(t, 1.0, s.Next())
	})

	t.Run("TimeMs", func(t *testing.T) {
		s := NewSmoother(LinearSmoothing, 1)
		s.SetTimeMs(10, 48000)
		s.Reset(0)
		s.SetTarget(1)
		for i := 0; i < 479; i++ {
			s.Next()
		}
		assert.True(t, s.IsSmoothing())
		s.Next()
		s.Next()
		assert.False(t, s.IsSmoothing())
		assert.Equal(t, 1.0, s.Next())
	})
}
