package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	fw "github.com/echoelmusic/ultrasampler/pkg/framework/plugin"
)

func TestHandleRegistry(t *testing.T) {
	in, err := New(fw.EngineSampler)
	require.NoError(t, err)

	h, err := Register(in)
	require.NoError(t, err)
	require.NotZero(t, h)
	assert.Equal(t, h, in.Handle())
	assert.Same(t, in, Lookup(h))

	again, err := Register(in)
	require.NoError(t, err)
	assert.Equal(t, h, again, "registering twice keeps the handle")

	assert.Same(t, in, Unregister(h))
	assert.Nil(t, Lookup(h))
	assert.Nil(t, Unregister(h))
	assert.Zero(t, in.Handle())

	t.Run("StaleHandle", func(t *testing.T) {
		next, err := New(fw.EngineFX)
		require.NoError(t, err)
		h2, err := Register(next)
		require.NoError(t, err)
		defer Unregister(h2)

		assert.NotEqual(t, h, h2)
		assert.Nil(t, Lookup(h), "old handle does not reach the new occupant")
		assert.Same(t, next, Lookup(h2))
	})

	t.Run("Garbage", func(t *testing.T) {
		assert.Nil(t, Lookup(0))
		assert.Nil(t, Lookup(MaxInstances+1))
		assert.Nil(t, Lookup(^uintptr(0)))
	})
}

func TestRecover(t *testing.T) {
	ok := func() (ok bool) {
		defer Recover(debug.Discard(), "test")
		panic("boom")
	}()
	assert.False(t, ok)
}
