package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gainStage struct {
	left, right float32
	calls       int
	bypass      bool
}

func (g *gainStage) ProcessStereo(left, right []float32) {
	for i := range left {
		left[i] *= g.left
	}
	for i := range right {
		right[i] *= g.right
	}
	g.calls++
}

func (g *gainStage) Reset()         { g.calls = 0 }
func (g *gainStage) Bypassed() bool { return g.bypass }

type offsetStage struct{ add float32 }

func (o *offsetStage) ProcessStereo(left, right []float32) {
	for i := range left {
		left[i] += o.add
		right[i] += o.add
	}
}

func (o *offsetStage) Reset() {}

func TestStereoChainOrder(t *testing.T) {
	c := NewStereoChain("order").
		Add(&offsetStage{add: 1}).
		Add(&gainStage{left: 2, right: 3})

	l, r := []float32{0, 1}, []float32{0, 1}
	c.ProcessStereo(l, r)
	assert.Equal(t, []float32{2, 4}, l, "offset then gain")
	assert.Equal(t, []float32{3, 6}, r)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, "order", c.Name())
}

func TestStereoChainBypass(t *testing.T) {
	g := &gainStage{left: 2, right: 2}
	c := NewStereoChain("bypass").Add(g)

	t.Run("Stage", func(t *testing.T) {
		g.bypass = true
		l, r := []float32{1}, []float32{1}
		c.ProcessStereo(l, r)
		assert.Equal(t, float32(1), l[0])
		assert.Zero(t, g.calls)
		g.bypass = false
	})

	t.Run("Chain", func(t *testing.T) {
		c.SetBypass(true)
		l, r := []float32{1}, []float32{1}
		c.ProcessStereo(l, r)
		assert.Equal(t, float32(1), r[0])
		c.SetBypass(false)
	})

	t.Run("Reset", func(t *testing.T) {
		c.ProcessStereo([]float32{1}, []float32{1})
		require.Equal(t, 1, g.calls)
		c.Reset()
		assert.Zero(t, g.calls)
	})
}

func TestStereoBuilder(t *testing.T) {
	c, err := NewStereoBuilder("ok").
		WithProcessor(&gainStage{left: 1, right: 1}).
		WithFunc(func(l, r []float32) { l[0] = 9 }).
		Build()
	require.NoError(t, err)
	l := []float32{0}
	c.ProcessStereo(l, []float32{0})
	assert.Equal(t, float32(9), l[0])

	_, err = NewStereoBuilder("empty").Build()
	assert.ErrorIs(t, err, ErrEmptyChain)

	_, err = NewStereoBuilder("nil").WithProcessor(nil).WithFunc(nil).Build()
	assert.Error(t, err)
}

type scale struct{ k float64 }

func (s *scale) ProcessSample(x float64) float64 { return x * s.k }
func (s *scale) Reset()                          {}

func TestDualMono(t *testing.T) {
	d := NewDualMono(&scale{k: 0.5}, &scale{k: -1})
	l, r := []float32{1, 2}, []float32{1, 2}
	d.ProcessStereo(l, r)
	assert.Equal(t, []float32{0.5, 1}, l)
	assert.Equal(t, []float32{-1, -2}, r)

	d.SetBypass(true)
	assert.True(t, d.Bypassed())
}

func TestDCBlockerStage(t *testing.T) {
	s := NewDCBlockerStage(48000)
	l := make([]float32, 48000)
	r := make([]float32, 48000)
	for i := range l {
		l[i], r[i] = 0.5, -0.5
	}
	s.ProcessStereo(l, r)
	assert.InDelta(t, 0, l[len(l)-1], 1e-3)
	assert.InDelta(t, 0, r[len(r)-1], 1e-3)
}

func TestStereoChainDoesNotAllocate(t *testing.T) {
	c, err := NewStereoBuilder("rt").
		WithProcessor(NewDualMono(&scale{k: 0.5}, &scale{k: 0.5})).
		WithProcessor(NewDCBlockerStage(48000)).
		Build()
	require.NoError(t, err)
	l, r := make([]float32, 256), make([]float32, 256)
	allocs := testing.AllocsPerRun(100, func() {
		c.ProcessStereo(l, r)
	})
	assert.Zero(t, allocs)
}
