// Package midi models the per-block MIDI events the engine consumes.
package midi

import (
	"fmt"
	"math"
)

type EventType uint8

const (
	EventTypeNoteOff EventType = iota
	EventTypeNoteOn
	EventTypePolyPressure
	EventTypeControlChange
	EventTypeProgramChange
	EventTypeChannelPressure
	EventTypePitchBend
	EventTypeOther
)

// Status nibbles
const (
	StatusNoteOff         uint8 = 0x80
	StatusNoteOn          uint8 = 0x90
	StatusPolyPressure    uint8 = 0xA0
	StatusControlChange   uint8 = 0xB0
	StatusProgramChange   uint8 = 0xC0
	StatusChannelPressure uint8 = 0xD0
	StatusPitchBend       uint8 = 0xE0
)

const (
	CCModWheel       uint8 = 1
	CCBreath         uint8 = 2
	CCPortamentoTime uint8 = 5
	CCVolume         uint8 = 7
	CCPan            uint8 = 10
	CCExpression     uint8 = 11
	CCSustain        uint8 = 64
	CCPortamento     uint8 = 65
	CCSostenuto      uint8 = 66
	CCAllSoundOff    uint8 = 120
	CCResetAll       uint8 = 121
	CCAllNotesOff    uint8 = 123
)

// Event is one short MIDI message placed at a sample offset inside the
// current block. It mirrors the C-ABI event struct field for field and is
// passed by value so queues never allocate.
type Event struct {
	Offset  int32
	Status  uint8
	Data1   uint8
	Data2   uint8
	Channel uint8
}

// Type decodes the status byte. A NoteOn with velocity 0 is a NoteOff.
func (e Event) Type() EventType {
	switch e.Status & 0xF0 {
	case StatusNoteOff:
		return EventTypeNoteOff
	case StatusNoteOn:
		if e.Data2 == 0 {
			return EventTypeNoteOff
		}
		return EventTypeNoteOn
	case StatusPolyPressure:
		return EventTypePolyPressure
	case StatusControlChange:
		return EventTypeControlChange
	case StatusProgramChange:
		return EventTypeProgramChange
	case StatusChannelPressure:
		return EventTypeChannelPressure
	case StatusPitchBend:
		return EventTypePitchBend
	}
	return EventTypeOther
}

// Note returns the note number of note and poly-pressure events.
func (e Event) Note() uint8 { return e.Data1 & 0x7F }

// Velocity returns the 7-bit velocity.
func (e Event) Velocity() uint8 { return e.Data2 & 0x7F }

// VelocityFloat returns velocity scaled to 0-1.
func (e Event) VelocityFloat() float64 { return float64(e.Velocity()) / 127.0 }

// Bend returns the 14-bit pitch bend mapped to [-1, 1).
func (e Event) Bend() float64 {
	raw := int(e.Data1&0x7F) | int(e.Data2&0x7F)<<7
	return float64(raw-8192) / 8192.0
}

// Pressure returns channel or poly pressure scaled to 0-1.
func (e Event) Pressure() float64 {
	if e.Type() == EventTypeChannelPressure {
		return float64(e.Data1&0x7F) / 127.0
	}
	return float64(e.Data2&0x7F) / 127.0
}

func (e Event) String() string {
	switch e.Type() {
	case EventTypeNoteOn:
		return fmt.Sprintf("NoteOn{ch:%d, note:%d, vel:%d, offset:%d}", e.Channel, e.Data1, e.Data2, e.Offset)
	case EventTypeNoteOff:
		return fmt.Sprintf("NoteOff{ch:%d, note:%d, vel:%d, offset:%d}", e.Channel, e.Data1, e.Data2, e.Offset)
	case EventTypeControlChange:
		return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}", e.Channel, e.Data1, e.Data2, e.Offset)
	case EventTypePitchBend:
		return fmt.Sprintf("PitchBend{ch:%d, val:%.3f, offset:%d}", e.Channel, e.Bend(), e.Offset)
	}
	return fmt.Sprintf("Event{status:%#02x, d1:%d, d2:%d, ch:%d, offset:%d}", e.Status, e.Data1, e.Data2, e.Channel, e.Offset)
}

// NoteOn builds a note-on event.
func NoteOn(offset int32, channel, note, velocity uint8) Event {
	return Event{Offset: offset, Status: StatusNoteOn | channel&0x0F, Data1: note, Data2: velocity, Channel: channel}
}

// NoteOff builds a note-off event.
func NoteOff(offset int32, channel, note, velocity uint8) Event {
	return Event{Offset: offset, Status: StatusNoteOff | channel&0x0F, Data1: note, Data2: velocity, Channel: channel}
}

// ControlChange builds a CC event.
func ControlChange(offset int32, channel, controller, value uint8) Event {
	return Event{Offset: offset, Status: StatusControlChange | channel&0x0F, Data1: controller, Data2: value, Channel: channel}
}

// PitchBend builds a pitch bend event from a value in [-1, 1].
func PitchBend(offset int32, channel uint8, value float64) Event {
	raw := int(math.Round(value*8192)) + 8192
	if raw < 0 {
		raw = 0
	} else if raw > 16383 {
		raw = 16383
	}
	return Event{Offset: offset, Status: StatusPitchBend | channel&0x0F, Data1: uint8(raw & 0x7F), Data2: uint8(raw >> 7), Channel: channel}
}

// ChannelPressure builds an aftertouch event.
func ChannelPressure(offset int32, channel, pressure uint8) Event {
	return Event{Offset: offset, Status: StatusChannelPressure | channel&0x0F, Data1: pressure, Channel: channel}
}

// NoteToFrequency converts a (fractional) note number to Hz.
func NoteToFrequency(note, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Exp2((note-69.0)/12.0)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns e.g. "A4" for 69.
func NoteName(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note/12)-1)
}
