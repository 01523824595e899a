package render

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/gopxl/beep"
)

// BytesPerFrame is the size of one interleaved stereo float32 frame.
const BytesPerFrame = 8

// Reader turns a beep.Streamer into interleaved little-endian float32 stereo
// PCM, the layout audio players such as oto pull from an io.Reader.
type Reader struct {
	s   beep.Streamer
	buf [][2]float64
}

// NewReader creates a Reader that pulls at most frames frames per Read.
func NewReader(s beep.Streamer, frames int) *Reader {
	return &Reader{s: s, buf: make([][2]float64, max(frames, 1))}
}

// Read implements io.Reader. It returns io.EOF once the streamer drains, or
// the streamer's error if it failed.
func (r *Reader) Read(p []byte) (int, error) {
	frames := min(len(p)/BytesPerFrame, len(r.buf))
	if frames == 0 {
		return 0, nil
	}
	n, ok := r.s.Stream(r.buf[:frames])
	for i, f := range r.buf[:n] {
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame:], math.Float32bits(float32(f[0])))
		binary.LittleEndian.PutUint32(p[i*BytesPerFrame+4:], math.Float32bits(float32(f[1])))
	}
	if !ok && n == 0 {
		if err := r.s.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return n * BytesPerFrame, nil
}
