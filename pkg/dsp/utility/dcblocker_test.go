package utility

import (
	"math"
	"testing"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	dc := NewDCBlocker(10, 48000)
	var out float32
	for i := 0; i < 48000; i++ {
		out = dc.Process(0.5, 0)
	}
	if math.Abs(float64(out)) > 1e-3 {
		t.Errorf("DC not removed: %f", out)
	}
}

func TestDCBlockerPassesAudio(t *testing.T) {
	dc := NewDCBlocker(10, 48000)
	buf := make([]float32, 48000)
	for i := range buf {
		buf[i] = float32(math.Sin(2 * math.Pi * 1000 * float64(i) / 48000))
	}
	dc.ProcessBuffer(buf, 1)
	var peak float32
	for _, s := range buf[24000:] {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	if peak < 0.95 || peak > 1.05 {
		t.Errorf("1 kHz peak %f", peak)
	}

	// channel 0 untouched by channel 1 processing
	if dc.y1[0] != 0 {
		t.Error("channel state leaked")
	}
	dc.Reset()
	if dc.y1[1] != 0 {
		t.Error("reset did not clear state")
	}
}
