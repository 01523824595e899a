// Package voice allocates a fixed pool of voices to incoming notes. The pool
// and all bookkeeping are sized at construction; note handling never allocates.
package voice

import (
	"github.com/echoelmusic/ultrasampler/pkg/midi"
)

// AllocationMode defines how voices are allocated
type AllocationMode int

const (
	// ModePoly - each note gets its own voice
	ModePoly AllocationMode = iota
	// ModeMono - one voice, retriggered by every note
	ModeMono
	// ModeLegato - mono with no retriggering on overlapping notes
	ModeLegato
)

// ModeNames are display names indexed by AllocationMode.
var ModeNames = []string{"Poly", "Mono", "Legato"}

// StealingMode defines how voices are stolen when the polyphony limit is reached
type StealingMode int

const (
	// StealOldest steals the voice triggered first
	StealOldest StealingMode = iota
	// StealQuietest steals the voice with the lowest current level
	StealQuietest
	// StealNone ignores new notes when full
	StealNone
)

// StealingNames are display names indexed by StealingMode.
var StealingNames = []string{"Oldest", "Quietest", "None"}

// Voice is one pooled sound generator.
type Voice interface {
	// IsActive reports whether the voice produces sound, including release and fade.
	IsActive() bool
	// IsReleasing reports whether the note has been released.
	IsReleasing() bool
	// IsFading reports whether the voice is being stolen.
	IsFading() bool
	// Note returns the MIDI note the voice was started with.
	Note() uint8
	// Level returns the current amplitude envelope level.
	Level() float64
	// Start begins a note. With legato set an already sounding voice changes
	// pitch without retriggering. It returns false when nothing can play.
	Start(note, velocity uint8, legato bool) bool
	// Release enters the release stage.
	Release()
	// Kill fades the voice out over fadeSamples.
	Kill(fadeSamples int)
	// Reset silences the voice and clears all state.
	Reset()
}

type pendingNote struct {
	note, velocity uint8
	set            bool
}

const maxHeld = 16

// Allocator manages voice allocation for polyphonic playback
type Allocator[V Voice] struct {
	voices       []V
	started      []uint64 // trigger sequence per voice, lower is older
	pending      []pendingNote
	mode         AllocationMode
	stealingMode StealingMode
	polyphony    int
	fadeSamples  int
	seq          uint64
	lastStarted  int

	sustainPedal bool
	keyDown      [128]bool
	sustained    [128]bool

	// mono and legato note stack, most recent last
	held     [maxHeld]uint8
	heldVel  [maxHeld]uint8
	numHeld  int
	dropped  uint64
	stolen   uint64
	deferred uint64
}

// NewAllocator creates an allocator over voices. Polyphony defaults to the pool size.
func NewAllocator[V Voice](voices []V) *Allocator[V] {
	return &Allocator[V]{
		voices:      voices,
		started:     make([]uint64, len(voices)),
		pending:     make([]pendingNote, len(voices)),
		polyphony:   len(voices),
		fadeSamples: 96,
		lastStarted: -1,
	}
}

// SetMode sets the allocation mode, releasing every held note.
func (a *Allocator[V]) SetMode(mode AllocationMode) {
	if mode == a.mode {
		return
	}
	a.AllNotesOff()
	a.mode = mode
}

// Mode returns the allocation mode.
func (a *Allocator[V]) Mode() AllocationMode {
	return a.mode
}

// SetStealingMode sets the voice stealing mode
func (a *Allocator[V]) SetStealingMode(mode StealingMode) {
	a.stealingMode = mode
}

// SetPolyphony sets the maximum number of non-fading voices.
func (a *Allocator[V]) SetPolyphony(n int) {
	a.polyphony = max(1, min(n, len(a.voices)))
}

// Polyphony returns the voice limit.
func (a *Allocator[V]) Polyphony() int {
	return a.polyphony
}

// SetFadeSamples sets the fade length used when stealing.
func (a *Allocator[V]) SetFadeSamples(n int) {
	a.fadeSamples = max(1, n)
}

// HandleEvent dispatches note and sustain events. Other events are ignored.
func (a *Allocator[V]) HandleEvent(e midi.Event) {
	switch e.Type() {
	case midi.EventTypeNoteOn:
		a.NoteOn(e.Note(), e.Velocity())
	case midi.EventTypeNoteOff:
		a.NoteOff(e.Note())
	case midi.EventTypeControlChange:
		if e.Data1 == midi.CCSustain {
			a.SetSustain(e.Data2 >= 64)
		}
	}
}

// NoteOn handles a note on event. Velocity 0 is a note off.
func (a *Allocator[V]) NoteOn(note, velocity uint8) {
	note &= 0x7F
	if velocity == 0 {
		a.NoteOff(note)
		return
	}
	a.keyDown[note] = true
	a.sustained[note] = false

	switch a.mode {
	case ModeMono, ModeLegato:
		a.push(note, velocity)
		v := a.voices[0]
		legato := a.mode == ModeLegato && v.IsActive() && !v.IsReleasing() && !v.IsFading()
		a.retrigger(note, velocity, legato)
	default:
		a.noteOnPoly(note, velocity)
	}
}

// NoteOff releases note, or marks it sustained while the pedal is down.
func (a *Allocator[V]) NoteOff(note uint8) {
	note &= 0x7F
	a.keyDown[note] = false
	if a.sustainPedal {
		a.sustained[note] = true
		return
	}
	a.release(note)
}

func (a *Allocator[V]) release(note uint8) {
	a.sustained[note] = false

	switch a.mode {
	case ModeMono, ModeLegato:
		wasTop := a.numHeld > 0 && a.held[a.numHeld-1] == note
		a.remove(note)
		if !wasTop {
			return
		}
		if a.numHeld > 0 {
			prev, vel := a.held[a.numHeld-1], a.heldVel[a.numHeld-1]
			v := a.voices[0]
			legato := a.mode == ModeLegato && v.IsActive() && !v.IsReleasing() && !v.IsFading()
			a.retrigger(prev, vel, legato)
			return
		}
		a.pending[0] = pendingNote{}
		if a.voices[0].IsActive() && !a.voices[0].IsFading() {
			a.voices[0].Release()
		}
	default:
		for i := range a.pending {
			if a.pending[i].set && a.pending[i].note == note {
				a.pending[i] = pendingNote{}
			}
		}
		for _, v := range a.voices {
			if v.IsActive() && !v.IsReleasing() && !v.IsFading() && v.Note() == note {
				v.Release()
			}
		}
	}
}

// SetSustain sets the sustain pedal. Lifting it releases every note whose
// key is no longer down.
func (a *Allocator[V]) SetSustain(on bool) {
	a.sustainPedal = on
	if on {
		return
	}
	for n := range a.sustained {
		if a.sustained[n] && !a.keyDown[n] {
			a.release(uint8(n))
		}
	}
}

// Sustain reports the pedal state.
func (a *Allocator[V]) Sustain() bool {
	return a.sustainPedal
}

// AllNotesOff releases every voice and clears pedal and pending state.
func (a *Allocator[V]) AllNotesOff() {
	for _, v := range a.voices {
		if v.IsActive() && !v.IsFading() {
			v.Release()
		}
	}
	a.clearState()
}

// Reset silences every voice immediately.
func (a *Allocator[V]) Reset() {
	for _, v := range a.voices {
		v.Reset()
	}
	a.clearState()
}

func (a *Allocator[V]) clearState() {
	for i := range a.pending {
		a.pending[i] = pendingNote{}
	}
	a.keyDown = [128]bool{}
	a.sustained = [128]bool{}
	a.sustainPedal = false
	a.numHeld = 0
}

// Update starts notes that were waiting for a stolen voice to finish its
// fade. Call it once per processing slice.
func (a *Allocator[V]) Update() {
	for i := range a.pending {
		p := a.pending[i]
		if !p.set || a.voices[i].IsActive() {
			continue
		}
		a.pending[i] = pendingNote{}
		a.start(i, p.note, p.velocity, false)
	}
}

// ActiveCount returns the number of active voices that are not being stolen.
func (a *Allocator[V]) ActiveCount() int {
	n := 0
	for _, v := range a.voices {
		if v.IsActive() && !v.IsFading() {
			n++
		}
	}
	return n
}

// PendingCount returns the number of notes waiting for a voice.
func (a *Allocator[V]) PendingCount() int {
	n := 0
	for _, p := range a.pending {
		if p.set {
			n++
		}
	}
	return n
}

// Stats returns counters for stolen, deferred and dropped notes.
func (a *Allocator[V]) Stats() (stolen, deferred, dropped uint64) {
	return a.stolen, a.deferred, a.dropped
}

func (a *Allocator[V]) noteOnPoly(note, velocity uint8) {
	if a.ActiveCount() < a.polyphony {
		if idx := a.findFreeVoice(); idx >= 0 {
			a.start(idx, note, velocity, false)
			return
		}
		// every slot is busy fading out
		if idx := a.findFadingVoice(); idx >= 0 {
			a.queue(idx, note, velocity)
			return
		}
		a.dropped++
		return
	}

	victim := a.selectVictim()
	if victim < 0 {
		a.dropped++
		return
	}
	a.voices[victim].Kill(a.fadeSamples)
	a.stolen++

	if idx := a.findFreeVoice(); idx >= 0 {
		a.start(idx, note, velocity, false)
		return
	}
	a.queue(victim, note, velocity)
}

// retrigger moves the single mono voice to note. A sounding voice fades out
// first and the note starts from Update once the fade is done.
func (a *Allocator[V]) retrigger(note, velocity uint8, legato bool) {
	v := a.voices[0]
	switch {
	case legato:
		a.pending[0] = pendingNote{}
		a.start(0, note, velocity, true)
	case a.pending[0].set || v.IsFading():
		a.pending[0] = pendingNote{note: note, velocity: velocity, set: true}
	case v.IsActive():
		v.Kill(a.fadeSamples)
		a.queue(0, note, velocity)
	default:
		a.start(0, note, velocity, false)
	}
}

// Claim reserves a free voice for a sound the caller starts itself, such as
// a release sample. It respects pending notes and the polyphony limit,
// stealing a voice when the limit is reached. It returns -1, counting a
// dropped note, when no voice is free right now.
func (a *Allocator[V]) Claim() int {
	idx := a.findFreeVoice()
	if idx < 0 {
		a.dropped++
		return -1
	}
	if a.ActiveCount() >= a.polyphony {
		victim := a.selectVictim()
		if victim < 0 {
			a.dropped++
			return -1
		}
		a.voices[victim].Kill(a.fadeSamples)
		a.stolen++
	}
	a.seq++
	a.started[idx] = a.seq
	a.lastStarted = idx
	return idx
}

func (a *Allocator[V]) queue(idx int, note, velocity uint8) {
	a.pending[idx] = pendingNote{note: note, velocity: velocity, set: true}
	a.deferred++
}

func (a *Allocator[V]) start(idx int, note, velocity uint8, legato bool) {
	if a.voices[idx].Start(note, velocity, legato) {
		a.seq++
		a.started[idx] = a.seq
		a.lastStarted = idx
	}
}

// findFreeVoice scans round-robin from the last started voice so that
// released voices get time to ring out.
func (a *Allocator[V]) findFreeVoice() int {
	n := len(a.voices)
	for i := 1; i <= n; i++ {
		idx := (a.lastStarted + i) % n
		if idx < 0 {
			idx += n
		}
		if !a.voices[idx].IsActive() && !a.pending[idx].set {
			return idx
		}
	}
	return -1
}

func (a *Allocator[V]) findFadingVoice() int {
	for i, v := range a.voices {
		if v.IsFading() && !a.pending[i].set {
			return i
		}
	}
	return -1
}

// selectVictim picks a non-fading voice to steal. Released voices are
// always preferred over held ones.
func (a *Allocator[V]) selectVictim() int {
	if a.stealingMode == StealNone {
		return -1
	}
	best := -1
	bestReleasing := false
	var bestValue float64
	for i, v := range a.voices {
		if !v.IsActive() || v.IsFading() {
			continue
		}
		var value float64
		switch a.stealingMode {
		case StealQuietest:
			value = v.Level()
		default:
			value = float64(a.started[i])
		}
		releasing := v.IsReleasing()
		switch {
		case best < 0,
			releasing && !bestReleasing,
			releasing == bestReleasing && value < bestValue:
			best, bestValue, bestReleasing = i, value, releasing
		}
	}
	return best
}

func (a *Allocator[V]) push(note, velocity uint8) {
	a.remove(note)
	if a.numHeld == maxHeld {
		copy(a.held[:], a.held[1:])
		copy(a.heldVel[:], a.heldVel[1:])
		a.numHeld--
	}
	a.held[a.numHeld] = note
	a.heldVel[a.numHeld] = velocity
	a.numHeld++
}

func (a *Allocator[V]) remove(note uint8) {
	for i := 0; i < a.numHeld; i++ {
		if a.held[i] == note {
			copy(a.held[i:], a.held[i+1:a.numHeld])
			copy(a.heldVel[i:], a.heldVel[i+1:a.numHeld])
			a.numHeld--
			return
		}
	}
}
