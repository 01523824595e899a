package samplefile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

const testKeymap = `
name: Upright
zones:
  - name: low
    keys: [0, 59]
    root: 48
    loop: pingpong
    volume: -6
    layers:
      - file: soft.wav
        velocity: [0, 63]
      - file: hard.wav
        velocity: [64, 127]
        gain: -6
  - keys: [60, 127]
    round_robin: true
    release: soft.wav
    layers:
      - file: hard.wav
      - file: soft.wav
`

func keymapDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeWAV(t, dir, "soft.wav", 44100, 16, 1, []int{1000, 2000, 3000, 4000})
	writeWAV(t, dir, "hard.wav", 44100, 16, 2, []int{8000, 8000, 16000, 16000})
	return dir
}

func TestParseKeymap(t *testing.T) {
	km, err := ParseKeymap([]byte(testKeymap))
	require.NoError(t, err)
	assert.Equal(t, "Upright", km.Name)
	require.Len(t, km.Zones, 2)
	require.NotNil(t, km.Zones[0].Root)
	assert.Equal(t, 48, *km.Zones[0].Root)
	assert.Nil(t, km.Zones[1].Root)
	assert.Equal(t, [2]int{64, 127}, km.Zones[0].Layers[1].Velocity)
	assert.Equal(t, []string{"soft.wav", "hard.wav"}, km.Files())
}

func TestParseKeymapRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Syntax", "zones: [unclosed"},
		{"UnknownField", "zones:\n  - keys: [0, 127]\n    colour: red\n    layers:\n      - file: a.wav\n"},
		{"NoZones", "name: empty\n"},
		{"NoLayers", "zones:\n  - keys: [0, 127]\n"},
		{"NoFile", "zones:\n  - layers:\n      - velocity: [0, 127]\n"},
		{"LoopMode", "zones:\n  - loop: sideways\n    layers:\n      - file: a.wav\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKeymap([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrKeymap)
		})
	}
}

func TestKeymapBuild(t *testing.T) {
	dir := keymapDir(t)
	km, err := ParseKeymap([]byte(testKeymap))
	require.NoError(t, err)

	zones, err := km.Build(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, zones, 2)

	low := zones[0]
	assert.Equal(t, "low", low.Name)
	assert.Equal(t, 0, low.KeyLow)
	assert.Equal(t, 59, low.KeyHigh)
	assert.Equal(t, 48, low.RootKey)
	assert.Equal(t, sampler.LoopPingPong, low.LoopMode)
	assert.Equal(t, -6.0, low.Volume)
	require.Equal(t, 2, low.NumLayers)
	assert.Equal(t, "soft", low.Layers[0].Sample.Name)
	assert.Equal(t, uint8(63), low.Layers[0].VelHigh)
	assert.Equal(t, 1.0, low.Layers[0].Gain)
	assert.InDelta(t, 0.501, low.Layers[1].Gain, 0.001)
	assert.Zero(t, low.NumRoundRobin)

	high := zones[1]
	assert.Equal(t, "hard", high.Name, "unnamed zones take the first file's name")
	assert.Equal(t, 60, high.KeyLow)
	assert.Equal(t, 127, high.KeyHigh)
	assert.Equal(t, 60, high.RootKey, "root defaults to the sample's unity note")
	assert.Equal(t, 2, high.NumRoundRobin)
	assert.Equal(t, uint8(0), high.Layers[1].VelLow)
	assert.Equal(t, uint8(127), high.Layers[1].VelHigh)
	require.NotNil(t, high.ReleaseSample)
	assert.Same(t, low.Layers[0].Sample, high.ReleaseSample, "shared files are decoded once")
}

func TestKeymapBuildErrors(t *testing.T) {
	dir := keymapDir(t)

	t.Run("MissingFile", func(t *testing.T) {
		km, err := ParseKeymap([]byte("zones:\n  - layers:\n      - file: gone.wav\n"))
		require.NoError(t, err)
		_, err = km.Build(context.Background(), dir)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("KeyRange", func(t *testing.T) {
		km, err := ParseKeymap([]byte("zones:\n  - keys: [70, 50]\n    layers:\n      - file: soft.wav\n"))
		require.NoError(t, err)
		_, err = km.Build(context.Background(), dir)
		assert.ErrorIs(t, err, ErrKeymap)
	})

	t.Run("Cancelled", func(t *testing.T) {
		km, err := ParseKeymap([]byte(testKeymap))
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = km.Build(ctx, dir)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestKeymapApply(t *testing.T) {
	dir := keymapDir(t)
	path := filepath.Join(dir, "upright.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testKeymap), 0o644))

	km, err := LoadKeymap(path)
	require.NoError(t, err)

	store := sampler.NewStore()
	_, err = store.Add(sampler.NewZone("old", 0, 127, 60))
	require.Error(t, err, "a zone without layers is rejected but kept disabled")

	require.NoError(t, km.Apply(context.Background(), store, dir, debug.Discard()))
	zs := store.Snapshot()
	assert.Equal(t, 2, zs.Count())
	assert.Equal(t, 0, zs.Find(40, 100))
	assert.Equal(t, 1, zs.Find(72, 10))

	bad := &Keymap{Name: "broken", Zones: []ZoneSpec{{Layers: []LayerSpec{{File: "gone.wav"}}}}}
	require.Error(t, bad.Apply(context.Background(), store, dir, debug.Discard()))
	assert.Equal(t, 2, store.Snapshot().Count(), "a failed keymap leaves the store alone")
}
