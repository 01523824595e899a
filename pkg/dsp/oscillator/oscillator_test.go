package oscillator

import (
	"math"
	"testing"
)

func TestSineTable(t *testing.T) {
	const sr = 48000.0
	tab := Table(Sine, 1000, sr, 0.5, 480)
	for i, s := range tab {
		want := 0.5 * math.Sin(2*math.Pi*1000*float64(i)/sr)
		if math.Abs(float64(s)-want) > 1e-5 {
			t.Fatalf("sample %d: got %f want %f", i, s, want)
		}
	}
}

func TestWaveformRanges(t *testing.T) {
	for w := Sine; w <= Triangle; w++ {
		t.Run(WaveformNames[w], func(t *testing.T) {
			o := New(48000)
			o.SetFrequency(110)
			lo, hi := float32(1), float32(-1)
			for i := 0; i < 4800; i++ {
				s := o.Next(w)
				lo = min(lo, s)
				hi = max(hi, s)
			}
			if lo < -1 || hi > 1 || hi-lo < 1.9 {
				t.Errorf("range [%f, %f]", lo, hi)
			}
		})
	}
}

func TestReset(t *testing.T) {
	o := New(48000)
	first := o.Next(Saw)
	for i := 0; i < 100; i++ {
		o.Next(Saw)
	}
	o.Reset()
	if got := o.Next(Saw); got != first {
		t.Errorf("after reset got %f want %f", got, first)
	}
}
