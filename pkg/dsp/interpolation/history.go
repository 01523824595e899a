package interpolation

const historySize = MaxTaps

// History is a per-voice, per-channel ring of the samples under the kernel.
// As the playhead moves forward only the newly covered samples are fetched.
// Storage is mirrored so every window is a contiguous slice.
type History struct {
	buf   [2 * historySize]float32
	head  int // ring index of the window's first sample
	first int // source index of the window's first sample
	taps  int
	valid bool
}

// Reset discards the cached window and zeros the ring.
func (h *History) Reset() {
	h.buf = [2 * historySize]float32{}
	h.head = 0
	h.first = 0
	h.taps = 0
	h.valid = false
}

// Window returns taps samples of src starting at index first.
func (h *History) Window(src *Source, first, taps int) []float32 {
	d := first - h.first
	if !h.valid || taps != h.taps || d < 0 || d >= taps {
		for j := 0; j < taps; j++ {
			h.put(j, src.At(first+j))
		}
		h.head = 0
		h.first = first
		h.taps = taps
		h.valid = true
		return h.buf[:taps]
	}
	if d > 0 {
		h.head = (h.head + d) % historySize
		h.first = first
		for j := taps - d; j < taps; j++ {
			h.put((h.head+j)%historySize, src.At(first+j))
		}
	}
	return h.buf[h.head : h.head+taps]
}

func (h *History) put(i int, v float32) {
	h.buf[i] = v
	h.buf[i+historySize] = v
}
