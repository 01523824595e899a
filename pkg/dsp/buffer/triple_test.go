package buffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripleBufferKeepsNewest(t *testing.T) {
	b := NewTripleBuffer[int]()
	_, ok := b.Take()
	assert.False(t, ok, "nothing published yet")

	for i := 1; i <= 20; i++ {
		b.Publish(i)
	}
	v, ok := b.Take()
	require.True(t, ok)
	assert.Equal(t, 20, v)
	assert.Equal(t, uint64(19), b.Overwrites())

	_, ok = b.Take()
	assert.False(t, ok, "a value is taken once")

	b.Publish(21)
	v, ok = b.Take()
	require.True(t, ok)
	assert.Equal(t, 21, v)
}

func TestTripleBufferConcurrent(t *testing.T) {
	type pair struct{ a, b int }
	buf := NewTripleBuffer[pair]()
	const n = 100000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			buf.Publish(pair{i, -i})
		}
	}()

	last := 0
	for last < n {
		p, ok := buf.Take()
		if !ok {
			continue
		}
		require.Equal(t, -p.a, p.b, "torn value")
		require.Greater(t, p.a, last, "values only move forward")
		last = p.a
	}
	wg.Wait()
}
