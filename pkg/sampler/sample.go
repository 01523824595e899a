package sampler

import (
	"errors"
	"fmt"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/oscillator"
)

var (
	// ErrEmptySample is returned for sample data without frames.
	ErrEmptySample = errors.New("sampler: empty sample data")
	// ErrSampleRate is returned when the source sample rate is not positive.
	ErrSampleRate = errors.New("sampler: invalid sample rate")
	// ErrChannelLength is returned when channels differ in length.
	ErrChannelLength = errors.New("sampler: channel lengths differ")
	// ErrLoopRange is returned by SetLoop for loop points outside the sample.
	ErrLoopRange = errors.New("sampler: loop points out of range")
)

// SampleData is a decoded multi-channel sample. It is treated as immutable
// once a zone referencing it has been published to a Store.
type SampleData struct {
	Name       string
	Channels   [][]float32
	SampleRate float64
	RootNote   int

	LoopStart     int
	LoopEnd       int // exclusive; 0 means the end of the sample
	LoopCrossfade int
	LoopEnabled   bool
}

// NewSampleData wraps channel data. Mono data is played on both sides.
func NewSampleData(name string, sampleRate float64, rootNote int, channels ...[]float32) *SampleData {
	return &SampleData{
		Name:       name,
		Channels:   channels,
		SampleRate: sampleRate,
		RootNote:   rootNote,
	}
}

// ToneSample renders a one-shot periodic tone, handy as a built-in
// instrument and as test material.
func ToneSample(w oscillator.Waveform, freq, sampleRate, seconds float64, rootNote int) *SampleData {
	frames := int(seconds * sampleRate)
	data := oscillator.Table(w, freq, sampleRate, 0.8, frames)
	name := fmt.Sprintf("%s %.0f Hz", oscillator.WaveformNames[w], freq)
	return NewSampleData(name, sampleRate, rootNote, data)
}

// Frames returns the length of the shortest channel.
func (s *SampleData) Frames() int {
	if s == nil || len(s.Channels) == 0 {
		return 0
	}
	n := len(s.Channels[0])
	for _, ch := range s.Channels[1:] {
		n = min(n, len(ch))
	}
	return n
}

// Channel returns channel ch, falling back to the first channel for mono data.
func (s *SampleData) Channel(ch int) []float32 {
	if ch < len(s.Channels) {
		return s.Channels[ch]
	}
	return s.Channels[0]
}

// SetLoop sets the loop region and enables looping. end 0 means the end
// of the sample.
func (s *SampleData) SetLoop(start, end, crossfade int) error {
	n := s.Frames()
	if end == 0 {
		end = n
	}
	if start < 0 || end > n || end <= start || crossfade < 0 {
		return fmt.Errorf("%w: [%d, %d) in %d frames", ErrLoopRange, start, end, n)
	}
	s.LoopStart, s.LoopEnd, s.LoopCrossfade = start, end, crossfade
	s.LoopEnabled = true
	return nil
}

// Validate rejects unusable data and repairs the loop: points are clamped
// into the sample, an empty or inverted loop disables looping and the
// crossfade is limited to the audio available before the loop start.
func (s *SampleData) Validate() error {
	if s == nil || len(s.Channels) == 0 {
		return ErrEmptySample
	}
	n := len(s.Channels[0])
	if n == 0 {
		return ErrEmptySample
	}
	for i, ch := range s.Channels[1:] {
		if len(ch) != n {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrChannelLength, i+1, len(ch), n)
		}
	}
	if !(s.SampleRate > 0) {
		return fmt.Errorf("%w: %v", ErrSampleRate, s.SampleRate)
	}

	if s.LoopEnd <= 0 || s.LoopEnd > n {
		s.LoopEnd = n
	}
	s.LoopStart = max(0, min(s.LoopStart, n))
	if s.LoopEnd <= s.LoopStart {
		s.LoopEnabled = false
	}
	s.LoopCrossfade = max(0, min(s.LoopCrossfade, s.LoopStart, s.LoopEnd-s.LoopStart))
	return nil
}
