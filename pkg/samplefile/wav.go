// Package samplefile loads sample data from disk: PCM WAV files, with the
// root note and loop read from a smpl chunk when present, and YAML keymaps
// that spread many WAV files over zones.
package samplefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"

	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

// ErrUnsupported is returned for files that are not integer PCM WAV.
var ErrUnsupported = errors.New("samplefile: unsupported file")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE

	defaultRoot = 60
)

// Load decodes the WAV file at path. The sample is named after the file.
func Load(path string) (*sampler.SampleData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("samplefile: %w", err)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s, err := Decode(f, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode reads a WAV stream. The reader is read twice: once for the smpl
// chunk and once for the audio.
func Decode(r io.ReadSeeker, name string) (*sampler.SampleData, error) {
	root, loop := readSamplerChunk(r)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("samplefile: rewind: %w", err)
	}

	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupported)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV format %d", ErrUnsupported, d.WavAudioFormat)
	}
	depth := int(d.BitDepth)
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupported, depth)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("samplefile: decode: %w", err)
	}
	// The decoder reads on past the data chunk into any trailing chunks.
	if n := d.PCMSize / ((depth + 7) / 8); n >= 0 && n < len(buf.Data) {
		buf.Data = buf.Data[:n]
	}
	channels := int(d.NumChans)
	if channels < 1 || len(buf.Data) < channels {
		return nil, sampler.ErrEmptySample
	}

	frames := len(buf.Data) / channels
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	scale := 1 / float32(int64(1)<<(depth-1))
	offset := 0
	if depth == 8 {
		offset = 128 // 8-bit WAV is unsigned
	}
	for i := range frames {
		for ch := range channels {
			data[ch][i] = float32(buf.Data[i*channels+ch]-offset) * scale
		}
	}

	s := sampler.NewSampleData(name, float64(d.SampleRate), root, data...)
	if loop.ok {
		// Bad loop points are dropped; the sample still plays one-shot.
		_ = s.SetLoop(loop.start, loop.end, 0)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

type loopPoints struct {
	start, end int
	ok         bool
}

// readSamplerChunk returns the unity note and first loop of the smpl chunk.
// Files without one get middle C and no loop.
func readSamplerChunk(r io.ReadSeeker) (root int, loop loopPoints) {
	root = defaultRoot
	d := wav.NewDecoder(r)
	d.ReadMetadata()
	if d.Metadata == nil || d.Metadata.SamplerInfo == nil {
		return root, loop
	}
	info := d.Metadata.SamplerInfo
	if info.MIDIUnityNote <= 127 {
		root = int(info.MIDIUnityNote)
	}
	if len(info.Loops) > 0 && info.Loops[0] != nil {
		l := info.Loops[0]
		// smpl loop ends are inclusive.
		loop = loopPoints{start: int(l.Start), end: int(l.End) + 1, ok: l.End > l.Start}
	}
	return root, loop
}
