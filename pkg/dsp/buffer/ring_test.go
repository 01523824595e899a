package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingRoundsCapacity(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{0, 2},
		{3, 4},
		{4, 4},
		{1000, 1024},
		{4096, 4096},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewRing[float32](tt.requested).Cap(), "requested %d", tt.requested)
	}
}

func TestRingPushPop(t *testing.T) {
	r := NewRing[int](4)
	for i := 0; i < 4; i++ {
		require.True(t, r.Push(i))
	}
	assert.False(t, r.Push(99), "full ring must drop")
	assert.Equal(t, uint64(1), r.Stats().Overruns)

	for i := 0; i < 4; i++ {
		v, ok := r.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok := r.Pop()
	assert.False(t, ok)
}

func TestRingWriteReadWraps(t *testing.T) {
	r := NewRing[float32](8)
	dst := make([]float32, 8)

	for round := 0; round < 5; round++ {
		in := []float32{float32(round), float32(round) + 0.5, float32(round) + 0.25}
		require.Equal(t, 3, r.Write(in))
		n := r.Read(dst)
		require.Equal(t, 3, n)
		assert.Equal(t, in, dst[:n])
	}
	assert.Equal(t, 0, r.Len())
}

func TestRingWritePartialWhenFull(t *testing.T) {
	r := NewRing[float32](4)
	n := r.Write([]float32{1, 2, 3, 4, 5, 6})
	assert.Equal(t, 4, n)
	assert.Equal(t, uint64(1), r.Stats().Overruns)
	assert.InDelta(t, 100, r.Stats().FillPercentage, 0.01)
}

func TestRingLatest(t *testing.T) {
	r := NewRing[int](16)
	for i := 0; i < 10; i++ {
		r.Push(i)
	}
	dst := make([]int, 4)
	n := r.Latest(dst)
	require.Equal(t, 4, n)
	assert.Equal(t, []int{6, 7, 8, 9}, dst)
	assert.Equal(t, 0, r.Len())
}

func TestRingConcurrentOrder(t *testing.T) {
	const total = 100000
	r := NewRing[int](256)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.Push(i) {
				i++
			}
		}
	}()

	next := 0
	for next < total {
		if v, ok := r.Pop(); ok {
			if v != next {
				t.Fatalf("out of order: got %d want %d", v, next)
			}
			next++
		}
	}
	wg.Wait()
}

func TestRingPushDoesNotAllocate(t *testing.T) {
	r := NewRing[float32](1024)
	block := make([]float32, 64)
	allocs := testing.AllocsPerRun(100, func() {
		r.Write(block)
		r.Read(block)
		r.Push(1)
		r.Pop()
	})
	assert.Zero(t, allocs)
}
