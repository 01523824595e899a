package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fw "github.com/echoelmusic/ultrasampler/pkg/framework/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/samplefile"
)

func writeTone(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, 4800)
	for i := range data {
		data[i] = (i%100 - 50) * 400
	}
	enc := wav.NewEncoder(f, 48000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 48000},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestLoadSampleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saw.wav")
	writeTone(t, path)

	in, err := New(fw.EngineSampler)
	require.NoError(t, err)
	require.NoError(t, in.LoadSampleFile(3, path))

	z := in.Engine().Store().Snapshot().Zone(3)
	require.NotNil(t, z)
	assert.Equal(t, "saw", z.Name)
	assert.Equal(t, 4800, z.Layers[0].Sample.Frames())

	err = in.LoadSampleFile(0, filepath.Join(dir, "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadKeymap(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "saw.wav"))
	km := "name: Saws\nzones:\n  - keys: [0, 63]\n    layers:\n      - file: saw.wav\n  - keys: [64, 127]\n    pitch: 12\n    layers:\n      - file: saw.wav\n"
	path := filepath.Join(dir, "saws.yaml")
	require.NoError(t, os.WriteFile(path, []byte(km), 0o644))

	in, err := New(fw.EngineSampler)
	require.NoError(t, err)
	require.NoError(t, in.LoadKeymap(context.Background(), path))

	zs := in.Engine().Store().Snapshot()
	assert.Equal(t, 2, zs.Count())
	assert.Equal(t, 12.0, zs.Zone(1).Pitch)

	require.NoError(t, os.WriteFile(path, []byte("zones: []\n"), 0o644))
	assert.ErrorIs(t, in.LoadKeymap(context.Background(), path), samplefile.ErrKeymap)
	assert.Equal(t, 2, in.Engine().Store().Snapshot().Count())
}
