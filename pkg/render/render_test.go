package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/oscillator"
	fw "github.com/echoelmusic/ultrasampler/pkg/framework/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/framework/process"
	"github.com/echoelmusic/ultrasampler/pkg/midi"
	"github.com/echoelmusic/ultrasampler/pkg/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

type call struct {
	frames int
	start  int64
	events []midi.Event
}

// recorder writes the frame index into the left channel, copies the input
// to the right channel and records each call.
type recorder struct {
	calls  []call
	failAt int
}

func (r *recorder) Process(input, output [][]float32, events []midi.Event, tr process.Transport) error {
	if r.failAt > 0 && len(r.calls)+1 == r.failAt {
		return errors.New("boom")
	}
	r.calls = append(r.calls, call{
		frames: len(output[0]),
		start:  tr.SamplePosition,
		events: append([]midi.Event(nil), events...),
	})
	for i := range output[0] {
		output[0][i] = float32(tr.SamplePosition + int64(i))
		output[1][i] = 0
		if len(input) > 1 {
			output[1][i] = input[1][i]
		}
	}
	return nil
}

func TestStreamerSchedulesEvents(t *testing.T) {
	rec := &recorder{}
	events := []Timed{
		{Frame: 130, Event: midi.NoteOn(0, 0, 64, 90)},
		{Frame: 10, Event: midi.NoteOn(0, 0, 60, 100)},
		{Frame: 100, Event: midi.NoteOff(0, 0, 60, 0)},
	}
	s, err := NewStreamer(rec, 48000, 64, events)
	require.NoError(t, err)

	buf := make([][2]float64, 200)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 200, n)
	assert.Equal(t, int64(200), s.Position())

	require.Len(t, rec.calls, 4)
	sizes := []int{64, 64, 64, 8}
	for i, c := range rec.calls {
		assert.Equal(t, sizes[i], c.frames)
		assert.Equal(t, int64(i*64), c.start)
	}
	require.Len(t, rec.calls[0].events, 1)
	assert.Equal(t, int32(10), rec.calls[0].events[0].Offset)
	require.Len(t, rec.calls[1].events, 1)
	assert.Equal(t, int32(36), rec.calls[1].events[0].Offset)
	assert.Equal(t, midi.EventTypeNoteOff, rec.calls[1].events[0].Type())
	require.Len(t, rec.calls[2].events, 1)
	assert.Equal(t, int32(2), rec.calls[2].events[0].Offset)
	assert.Empty(t, rec.calls[3].events)

	for i := range buf {
		assert.Equal(t, float64(i), buf[i][0])
	}
	assert.Equal(t, int64(10), events[1].Frame, "caller's slice is not reordered")
}

func TestStreamerLiveEvents(t *testing.T) {
	rec := &recorder{}
	s, err := NewStreamer(rec, 48000, 32, nil)
	require.NoError(t, err)

	ev := midi.NoteOn(17, 0, 60, 100)
	require.True(t, s.Send(ev))
	s.Stream(make([][2]float64, 32))
	s.Stream(make([][2]float64, 32))

	require.Len(t, rec.calls, 2)
	require.Len(t, rec.calls[0].events, 1)
	assert.Zero(t, rec.calls[0].events[0].Offset)
	assert.Empty(t, rec.calls[1].events)

	for i := 0; i < 64; i++ {
		s.Send(ev)
	}
	assert.False(t, s.Send(ev), "full queue rejects")
}

func TestStreamerInput(t *testing.T) {
	rec := &recorder{}
	s, err := NewStreamer(rec, 48000, 64, nil)
	require.NoError(t, err)
	s.SetInput(beep.Take(100, beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		for i := range samples {
			samples[i] = [2]float64{0.25, 0.25}
		}
		return len(samples), true
	})))

	buf := make([][2]float64, 160)
	n, ok := s.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 160, n)
	assert.Equal(t, 0.25, buf[0][1])
	assert.Equal(t, 0.25, buf[99][1])
	assert.Zero(t, buf[100][1], "drained input is silence")
	assert.Zero(t, buf[159][1])
}

func TestStreamerError(t *testing.T) {
	rec := &recorder{failAt: 2}
	s, err := NewStreamer(rec, 48000, 64, nil)
	require.NoError(t, err)

	n, ok := s.Stream(make([][2]float64, 200))
	assert.Equal(t, 64, n)
	assert.True(t, ok)
	require.Error(t, s.Err())

	n, ok = s.Stream(make([][2]float64, 10))
	assert.Zero(t, n)
	assert.False(t, ok)

	_, err = NewStreamer(rec, 48000, 0, nil)
	assert.ErrorIs(t, err, ErrBlockSize)
}

func TestReader(t *testing.T) {
	s, err := NewStreamer(&recorder{}, 48000, 64, nil)
	require.NoError(t, err)
	r := NewReader(beep.Take(10, s), 4)

	var out bytes.Buffer
	_, err = io.Copy(&out, r)
	require.NoError(t, err)
	require.Equal(t, 10*BytesPerFrame, out.Len())

	data := out.Bytes()
	for i := range 10 {
		left := math.Float32frombits(binary.LittleEndian.Uint32(data[i*BytesPerFrame:]))
		assert.Equal(t, float32(i), left)
	}

	n, err := r.Read(make([]byte, 3))
	assert.Zero(t, n)
	assert.NoError(t, err, "short buffers read nothing")
}

func TestRenderFile(t *testing.T) {
	const sr = 48000.0
	in, err := plugin.New(fw.EngineSampler)
	require.NoError(t, err)
	require.NoError(t, in.LoadSample(0, sampler.ToneSample(oscillator.Sine, 261.63, sr, 1, 60)))
	require.NoError(t, in.Activate(sr, 256))

	path := filepath.Join(t.TempDir(), "out.wav")
	require.NoError(t, RenderFile(path, in, sr, 0.5, Note(0, 12000, 60, 100)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	st, format, err := wav.Decode(f)
	require.NoError(t, err)
	defer st.Close()

	assert.Equal(t, beep.SampleRate(sr), format.SampleRate)
	assert.Equal(t, 2, format.NumChannels)
	assert.Equal(t, 24000, st.Len())

	buf := make([][2]float64, 4800)
	n, _ := st.Stream(buf)
	require.Equal(t, len(buf), n)
	peak := 0.0
	for _, f := range buf {
		peak = math.Max(peak, math.Abs(f[0]))
	}
	assert.Greater(t, peak, 0.01)
}

func TestRenderFileErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, RenderFile(filepath.Join(dir, "a.wav"), &recorder{}, 48000, 0, nil))

	in, err := plugin.New(fw.EngineSampler)
	require.NoError(t, err)
	err = RenderFile(filepath.Join(dir, "b.wav"), in, 48000, 0.1, nil)
	assert.ErrorIs(t, err, plugin.ErrNotActive)
}
