package modulation

import "math"

// MaxSteps is the longest step sequence.
const MaxSteps = 16

// StepSequencer is a tempo-synced stepped modulation source.
type StepSequencer struct {
	sampleRate float64
	tempo      float64

	Steps    [MaxSteps]float64 // -1..1
	Length   int
	Division int
	// Glide smooths between steps as a fraction of a step (0 = hard steps).
	Glide float64

	pos   float64 // in steps
	value float64
}

// NewStepSequencer creates an 8-step sequencer running in 1/16 notes.
func NewStepSequencer(sampleRate float64) *StepSequencer {
	s := &StepSequencer{}
	s.Init(sampleRate)
	return s
}

// Init prepares a sequencer value in place.
func (s *StepSequencer) Init(sampleRate float64) {
	s.sampleRate = sampleRate
	s.tempo = 120
	s.Length = 8
	s.Division = 12
}

// SetTempo sets the host tempo.
func (s *StepSequencer) SetTempo(bpm float64) {
	if bpm > 0 {
		s.tempo = bpm
	}
}

// NoteOn restarts the sequence.
func (s *StepSequencer) NoteOn() {
	s.pos = 0
}

// Step returns the index of the current step.
func (s *StepSequencer) Step() int {
	n := s.length()
	return int(s.pos) % n
}

func (s *StepSequencer) length() int {
	if s.Length < 1 {
		return 1
	}
	if s.Length > MaxSteps {
		return MaxSteps
	}
	return s.Length
}

// Advance moves n samples forward and returns the current value.
func (s *StepSequencer) Advance(n int) float32 {
	if s.sampleRate > 0 {
		s.pos += SyncedRate(s.tempo, s.Division) / s.sampleRate * float64(n)
	}
	steps := float64(s.length())
	if s.pos >= steps {
		s.pos -= steps * math.Floor(s.pos/steps)
	}

	i := int(s.pos)
	cur := s.Steps[i]
	if s.Glide > 0 {
		frac := s.pos - float64(i)
		if start := 1 - s.Glide; frac > start {
			next := s.Steps[(i+1)%s.length()]
			cur += (next - cur) * (frac - start) / s.Glide
		}
	}
	s.value = cur
	return float32(cur)
}

// Value returns the last output.
func (s *StepSequencer) Value() float32 {
	return float32(s.value)
}

// Reset rewinds to the first step.
func (s *StepSequencer) Reset() {
	s.pos = 0
	s.value = 0
}
