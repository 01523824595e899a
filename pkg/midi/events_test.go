package midi

import (
	"math"
	"testing"
)

func TestEventType(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		want  EventType
	}{
		{"note on", NoteOn(0, 0, 60, 100), EventTypeNoteOn},
		{"note on velocity zero", NoteOn(0, 0, 60, 0), EventTypeNoteOff},
		{"note off", NoteOff(0, 3, 60, 0), EventTypeNoteOff},
		{"cc", ControlChange(0, 0, CCSustain, 127), EventTypeControlChange},
		{"bend", PitchBend(0, 0, 0.5), EventTypePitchBend},
		{"aftertouch", ChannelPressure(0, 0, 64), EventTypeChannelPressure},
		{"program", Event{Status: StatusProgramChange, Data1: 5}, EventTypeProgramChange},
		{"clock", Event{Status: 0xF8}, EventTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Type(); got != tt.want {
				t.Errorf("Type() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPitchBendRoundTrip(t *testing.T) {
	for _, v := range []float64{-1, -0.5, 0, 0.25, 0.999} {
		got := PitchBend(0, 0, v).Bend()
		if math.Abs(got-v) > 1.0/8192 {
			t.Errorf("Bend(%f) = %f", v, got)
		}
	}

	if got := PitchBend(0, 0, 2).Bend(); got >= 1 {
		t.Errorf("Bend should clamp below 1, got %f", got)
	}
}

func TestNoteToFrequency(t *testing.T) {
	tests := []struct {
		note float64
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6256},
	}
	for _, tt := range tests {
		if got := NoteToFrequency(tt.note, 0); math.Abs(got-tt.want) > 0.001 {
			t.Errorf("NoteToFrequency(%f) = %f, want %f", tt.note, got, tt.want)
		}
	}
}

func TestNoteName(t *testing.T) {
	if got := NoteName(69); got != "A4" {
		t.Errorf("NoteName(69) = %s, want A4", got)
	}
	if got := NoteName(60); got != "C4" {
		t.Errorf("NoteName(60) = %s, want C4", got)
	}
}
