package dsp

import "testing"

func TestValidConfig(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate float64
		block      int
		want       bool
	}{
		{"cd", 44100, 512, true},
		{"high rate", 192000, 64, true},
		{"single frame", 48000, 1, true},
		{"zero rate", 0, 512, false},
		{"negative rate", -48000, 512, false},
		{"absurd rate", 1e7, 512, false},
		{"zero block", 48000, 0, false},
		{"huge block", 48000, 1 << 20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidConfig(tt.sampleRate, tt.block); got != tt.want {
				t.Errorf("ValidConfig(%v, %d) = %v, want %v", tt.sampleRate, tt.block, got, tt.want)
			}
		})
	}
}
