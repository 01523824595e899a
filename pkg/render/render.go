// Package render drives a block processor as a beep.Streamer, for offline
// rendering to WAV files and for feeding live audio output.
package render

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"

	"github.com/echoelmusic/ultrasampler/pkg/framework/process"
	"github.com/echoelmusic/ultrasampler/pkg/midi"
)

// DefaultBlockSize is the block size used by RenderFile.
const DefaultBlockSize = 512

// ErrBlockSize is returned by NewStreamer for a block size below one frame.
var ErrBlockSize = errors.New("render: block size must be positive")

// Processor renders one block of stereo audio. *plugin.Instance implements it.
type Processor interface {
	Process(input, output [][]float32, events []midi.Event, tr process.Transport) error
}

// Timed is an event at an absolute frame of the render.
type Timed struct {
	Frame int64
	Event midi.Event
}

// Note returns the note-on and note-off pair for a note held from start for
// length frames.
func Note(start, length int64, note, velocity uint8) []Timed {
	return []Timed{
		{Frame: start, Event: midi.NoteOn(0, 0, note, velocity)},
		{Frame: start + max(length, 1), Event: midi.NoteOff(0, 0, note, 0)},
	}
}

// Streamer pulls audio from a Processor in blocks of at most blockSize
// frames. Scheduled events are delivered at their frame; live events sent
// with Send land at the start of the next block. It never drains on its own;
// wrap it in beep.Take for a fixed length.
type Streamer struct {
	proc  Processor
	tr    process.Transport
	block int

	events  []Timed
	next    int
	pending []midi.Event
	live    chan midi.Event

	input beep.Streamer
	inBuf [][2]float64
	in    [2][]float32
	out   [2][]float32
	inCh  [][]float32
	outCh [][]float32

	err error
}

// NewStreamer creates a streamer. events need not be sorted.
func NewStreamer(p Processor, sampleRate float64, blockSize int, events []Timed) (*Streamer, error) {
	if blockSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, blockSize)
	}
	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, func(a, b Timed) int {
		switch {
		case a.Frame < b.Frame:
			return -1
		case a.Frame > b.Frame:
			return 1
		}
		return 0
	})
	s := &Streamer{
		proc:    p,
		tr:      process.DefaultTransport(sampleRate),
		block:   blockSize,
		events:  sorted,
		pending: make([]midi.Event, 0, len(sorted)+64),
		live:    make(chan midi.Event, 64),
		inBuf:   make([][2]float64, blockSize),
	}
	s.tr.Playing = true
	for ch := range s.out {
		s.in[ch] = make([]float32, blockSize)
		s.out[ch] = make([]float32, blockSize)
	}
	s.inCh = make([][]float32, 2)
	s.outCh = make([][]float32, 2)
	return s, nil
}

// SetInput feeds in to the processor's input. A drained input is followed
// by silence.
func (s *Streamer) SetInput(in beep.Streamer) {
	s.input = in
}

// SetTempo sets the transport tempo in BPM.
func (s *Streamer) SetTempo(bpm float64) {
	if bpm > 0 {
		s.tr.Tempo = bpm
	}
}

// Send queues a live event for the next block. It is safe to call while
// another goroutine streams and reports false when the queue is full.
func (s *Streamer) Send(ev midi.Event) bool {
	select {
	case s.live <- ev:
		return true
	default:
		return false
	}
}

// Position returns the number of frames rendered.
func (s *Streamer) Position() int64 {
	return s.tr.SamplePosition
}

// Stream implements beep.Streamer.
func (s *Streamer) Stream(samples [][2]float64) (n int, ok bool) {
	if s.err != nil {
		return 0, false
	}
	for n < len(samples) {
		c := min(s.block, len(samples)-n)
		if err := s.render(c); err != nil {
			s.err = err
			return n, n > 0
		}
		l, r := s.out[0][:c], s.out[1][:c]
		for i := range c {
			samples[n+i][0] = float64(l[i])
			samples[n+i][1] = float64(r[i])
		}
		n += c
	}
	return n, true
}

// Err implements beep.Streamer.
func (s *Streamer) Err() error {
	return s.err
}

func (s *Streamer) render(c int) error {
	pos := s.tr.SamplePosition
	s.pending = s.pending[:0]
drain:
	for {
		select {
		case ev := <-s.live:
			ev.Offset = 0
			s.pending = append(s.pending, ev)
		default:
			break drain
		}
	}
	for s.next < len(s.events) && s.events[s.next].Frame < pos+int64(c) {
		t := s.events[s.next]
		t.Event.Offset = int32(max(t.Frame-pos, 0))
		s.pending = append(s.pending, t.Event)
		s.next++
	}

	var input [][]float32
	if s.input != nil {
		s.readInput(c)
		s.inCh[0], s.inCh[1] = s.in[0][:c], s.in[1][:c]
		input = s.inCh
	}
	s.outCh[0], s.outCh[1] = s.out[0][:c], s.out[1][:c]
	if err := s.proc.Process(input, s.outCh, s.pending, s.tr); err != nil {
		return fmt.Errorf("render: frame %d: %w", pos, err)
	}
	s.tr.SamplePosition += int64(c)
	s.tr.PPQPosition += s.tr.BeatsPerSample() * float64(c)
	return nil
}

func (s *Streamer) readInput(c int) {
	buf := s.inBuf[:c]
	got := 0
	for got < c && s.input != nil {
		k, ok := s.input.Stream(buf[got:])
		got += k
		if !ok {
			s.input = nil
		}
	}
	for i := range c {
		if i < got {
			s.in[0][i], s.in[1][i] = float32(buf[i][0]), float32(buf[i][1])
		} else {
			s.in[0][i], s.in[1][i] = 0, 0
		}
	}
}

// Format is the stereo format written by RenderFile.
func Format(sampleRate float64) beep.Format {
	return beep.Format{SampleRate: beep.SampleRate(sampleRate), NumChannels: 2, Precision: 2}
}

// RenderFile renders seconds of audio from p into a 16-bit stereo WAV at
// path. p must already be active at sampleRate.
func RenderFile(path string, p Processor, sampleRate, seconds float64, events []Timed) error {
	if !(seconds > 0) {
		return fmt.Errorf("render: duration %.3fs", seconds)
	}
	s, err := NewStreamer(p, sampleRate, DefaultBlockSize, events)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	frames := int(seconds * sampleRate)
	if err := wav.Encode(f, beep.Take(frames, s), Format(sampleRate)); err != nil {
		f.Close()
		return fmt.Errorf("render: encode %s: %w", path, err)
	}
	if err := s.Err(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
