package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoelmusic/ultrasampler/pkg/midi"
)

func TestParseNotes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []uint8
		wantErr bool
	}{
		{"chord", "60,64,67", []uint8{60, 64, 67}, false},
		{"spaces and trailing comma", " 0, 127 ,", []uint8{0, 127}, false},
		{"empty", "", nil, true},
		{"not a number", "60,c4", nil, true},
		{"out of range", "128", nil, true},
		{"negative", "-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseNotes(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchedule(t *testing.T) {
	events := schedule([]uint8{60, 64}, 90, 1000, 0.5, 0.25)
	require.Len(t, events, 4)

	assert.Equal(t, int64(0), events[0].Frame)
	assert.Equal(t, midi.EventTypeNoteOn, events[0].Event.Type())
	assert.Equal(t, uint8(90), events[0].Event.Velocity())
	assert.Equal(t, int64(500), events[1].Frame)
	assert.Equal(t, midi.EventTypeNoteOff, events[1].Event.Type())

	assert.Equal(t, int64(250), events[2].Frame)
	assert.Equal(t, uint8(64), events[2].Event.Note())
	assert.Equal(t, int64(750), events[3].Frame)
}

func TestKeyNote(t *testing.T) {
	n, ok := keyNote('a', 60)
	require.True(t, ok)
	assert.Equal(t, uint8(60), n)

	n, ok = keyNote('k', 60)
	require.True(t, ok)
	assert.Equal(t, uint8(72), n)

	_, ok = keyNote('q', 60)
	assert.False(t, ok)
	_, ok = keyNote('\'', 120)
	assert.False(t, ok)
}

func TestMeterWidth(t *testing.T) {
	assert.Equal(t, 0, meterWidth(-120, -60, 40))
	assert.Equal(t, 0, meterWidth(-60, -60, 40))
	assert.Equal(t, 20, meterWidth(-30, -60, 40))
	assert.Equal(t, 40, meterWidth(3, -60, 40))
}

func TestSetupInstance(t *testing.T) {
	s := setup{rate: 48000, block: 256, level: "off", preset: "strings"}
	in, _, err := s.instance(context.Background())
	require.NoError(t, err)
	defer in.Deactivate()

	assert.True(t, in.Active())
	assert.Equal(t, 1, in.Engine().Store().Snapshot().Count())

	s = setup{rate: 48000, block: 256, level: "loud"}
	_, _, err = s.instance(context.Background())
	assert.Error(t, err)

	s = setup{rate: 48000, block: 256, sample: "a.wav", keymap: "b.yaml"}
	_, _, err = s.instance(context.Background())
	assert.Error(t, err)
}

func TestFindPreset(t *testing.T) {
	s := setup{rate: 48000, block: 256, level: "off"}
	in, _, err := s.instance(context.Background())
	require.NoError(t, err)

	i, err := findPreset(in, "Lo-Fi Keys")
	require.NoError(t, err)
	assert.Equal(t, "Lo-Fi Keys", in.PresetName(i))

	i, err = findPreset(in, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = findPreset(in, "99")
	assert.Error(t, err)
	_, err = findPreset(in, "kazoo")
	assert.Error(t, err)
}

func TestRunRender(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "chord.wav")
	err := run([]string{"render", "-log", "off", "-seconds", "0.25", "-hold", "0.1", "-out", out})
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Format.NumChannels)
	assert.Equal(t, 12000*2, len(buf.Data))
	assert.NotZero(t, peak(buf))
}

func TestRunErrors(t *testing.T) {
	assert.ErrorIs(t, run(nil), errUsage)
	assert.ErrorIs(t, run([]string{"dance"}), errUsage)
	assert.Error(t, run([]string{"render", "-log", "off"}))
	assert.Error(t, run([]string{"render", "-log", "off", "-velocity", "0", "-out", "x.wav"}))
}

func peak(buf *audio.IntBuffer) int {
	p := 0
	for _, v := range buf.Data {
		p = max(p, v, -v)
	}
	return p
}
