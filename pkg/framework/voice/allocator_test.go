package voice

import (
	"testing"

	"github.com/echoelmusic/ultrasampler/pkg/midi"
)

// testVoice is a minimal voice: release and fade last until tick runs them out.
type testVoice struct {
	active    bool
	releasing bool
	fading    bool
	fadeLeft  int
	note      uint8
	velocity  uint8
	level     float64
	legato    bool
	starts    int
}

func (v *testVoice) IsActive() bool    { return v.active }
func (v *testVoice) IsReleasing() bool { return v.releasing }
func (v *testVoice) IsFading() bool    { return v.fading }
func (v *testVoice) Note() uint8       { return v.note }
func (v *testVoice) Level() float64    { return v.level }
func (v *testVoice) Start(note, velocity uint8, legato bool) bool {
	v.active = true
	v.releasing = false
	v.fading = false
	v.note = note
	v.velocity = velocity
	v.level = float64(velocity) / 127
	v.legato = legato
	v.starts++
	return true
}
func (v *testVoice) Release() { v.releasing = true }
func (v *testVoice) Kill(n int) {
	v.fading = true
	v.fadeLeft = n
}
func (v *testVoice) Reset() { *v = testVoice{starts: v.starts} }

func (v *testVoice) tick(n int) {
	if v.fading {
		v.fadeLeft -= n
		if v.fadeLeft <= 0 {
			v.active, v.fading, v.releasing = false, false, false
		}
	}
}

func newTestPool(n int) ([]*testVoice, *Allocator[*testVoice]) {
	voices := make([]*testVoice, n)
	for i := range voices {
		voices[i] = &testVoice{}
	}
	return voices, NewAllocator(voices)
}

func playing(voices []*testVoice, note uint8) int {
	n := 0
	for _, v := range voices {
		if v.active && !v.fading && !v.releasing && v.note == note {
			n++
		}
	}
	return n
}

func TestAllocatorPolyMode(t *testing.T) {
	voices, a := newTestPool(4)

	a.NoteOn(60, 100)
	a.NoteOn(64, 100)
	a.NoteOn(67, 100)

	if got := a.ActiveCount(); got != 3 {
		t.Errorf("Expected 3 active voices, got %d", got)
	}

	a.NoteOff(64)
	if playing(voices, 64) != 0 {
		t.Error("note 64 should be released")
	}
	if playing(voices, 60) != 1 || playing(voices, 67) != 1 {
		t.Error("other notes should still play")
	}

	// velocity 0 is a note off
	a.NoteOn(60, 0)
	if playing(voices, 60) != 0 {
		t.Error("note on with velocity 0 should release")
	}
}

func TestAllocatorStealOldestFades(t *testing.T) {
	voices, a := newTestPool(4)
	a.SetPolyphony(2)
	a.SetFadeSamples(96)

	a.NoteOn(60, 100)
	a.NoteOn(62, 100)
	a.NoteOn(64, 100)

	var oldest *testVoice
	for _, v := range voices {
		if v.note == 60 {
			oldest = v
		}
	}
	if oldest == nil || !oldest.fading || oldest.fadeLeft != 96 {
		t.Fatal("oldest voice should be fading, not hard cut")
	}
	if !oldest.active {
		t.Error("stolen voice must keep sounding during its fade")
	}
	if got := a.ActiveCount(); got != 2 {
		t.Errorf("active count %d exceeds polyphony", got)
	}
	if playing(voices, 64) != 1 {
		t.Error("new note should take a spare slot immediately")
	}
}

func TestAllocatorDefersUntilFadeEnds(t *testing.T) {
	voices, a := newTestPool(2)
	a.SetFadeSamples(64)

	a.NoteOn(60, 100)
	a.NoteOn(62, 100)
	a.NoteOn(64, 100)

	if a.PendingCount() != 1 {
		t.Fatalf("expected 1 pending note, got %d", a.PendingCount())
	}
	if playing(voices, 64) != 0 {
		t.Fatal("note must wait for the fade")
	}

	for _, v := range voices {
		v.tick(32)
	}
	a.Update()
	if playing(voices, 64) != 0 {
		t.Error("started before fade finished")
	}

	for _, v := range voices {
		v.tick(32)
	}
	a.Update()
	if playing(voices, 64) != 1 {
		t.Error("deferred note should start after the fade")
	}
	if a.ActiveCount() != 2 {
		t.Errorf("active count %d", a.ActiveCount())
	}
	stolen, deferred, dropped := a.Stats()
	if stolen != 1 || deferred != 1 || dropped != 0 {
		t.Errorf("stats stolen=%d deferred=%d dropped=%d", stolen, deferred, dropped)
	}
}

func TestAllocatorPrefersReleasedVictims(t *testing.T) {
	voices, a := newTestPool(3)

	a.NoteOn(60, 100)
	a.NoteOn(62, 100)
	a.NoteOn(64, 100)
	a.NoteOff(62)
	a.NoteOn(65, 100)

	for _, v := range voices {
		if v.note == 62 && !v.fading {
			t.Error("released voice should be stolen first")
		}
		if v.note == 60 && v.fading {
			t.Error("held oldest voice should survive")
		}
	}
}

func TestAllocatorStealQuietest(t *testing.T) {
	voices, a := newTestPool(3)
	a.SetStealingMode(StealQuietest)

	a.NoteOn(60, 100)
	a.NoteOn(62, 20)
	a.NoteOn(64, 90)
	a.NoteOn(65, 100)

	for _, v := range voices {
		if v.note == 62 && !v.fading {
			t.Error("quietest voice should be stolen")
		}
	}
}

func TestAllocatorStealNone(t *testing.T) {
	voices, a := newTestPool(2)
	a.SetStealingMode(StealNone)

	a.NoteOn(60, 100)
	a.NoteOn(62, 100)
	a.NoteOn(64, 100)

	if playing(voices, 64) != 0 {
		t.Error("note should be dropped")
	}
	if _, _, dropped := a.Stats(); dropped != 1 {
		t.Errorf("dropped = %d", dropped)
	}
}

func TestAllocatorActiveNeverExceedsLimit(t *testing.T) {
	voices, a := newTestPool(8)
	a.SetPolyphony(4)
	for i := 0; i < 100; i++ {
		a.NoteOn(uint8(40+i%40), 100)
		if got := a.ActiveCount(); got > 4 {
			t.Fatalf("step %d: active %d", i, got)
		}
		for _, v := range voices {
			v.tick(16)
		}
		a.Update()
	}
}

func TestAllocatorSustainPedal(t *testing.T) {
	voices, a := newTestPool(4)

	a.HandleEvent(midi.ControlChange(0, 0, midi.CCSustain, 127))
	a.HandleEvent(midi.NoteOn(0, 0, 60, 100))
	a.HandleEvent(midi.NoteOff(0, 0, 60, 0))

	if playing(voices, 60) != 1 {
		t.Fatal("pedal should hold the note")
	}

	a.NoteOn(62, 100)
	a.HandleEvent(midi.ControlChange(0, 0, midi.CCSustain, 0))
	if playing(voices, 60) != 0 {
		t.Error("pedal up should release sustained note")
	}
	if playing(voices, 62) != 1 {
		t.Error("key still down must keep playing")
	}
}

func TestAllocatorMonoMode(t *testing.T) {
	voices, a := newTestPool(4)
	a.SetMode(ModeMono)

	a.NoteOn(60, 100)
	a.NoteOn(64, 100)

	// the sounding note fades before the new one starts
	if !voices[0].fading || voices[0].fadeLeft != a.fadeSamples || voices[0].note != 60 {
		t.Fatal("mono retrigger should fade the sounding note, not cut it")
	}
	if a.PendingCount() != 1 {
		t.Fatal("new note should wait for the fade")
	}
	voices[0].tick(a.fadeSamples)
	a.Update()
	if voices[0].note != 64 || voices[0].legato || voices[0].fading {
		t.Error("mono should retrigger voice 0 with the new note")
	}
	if voices[1].active {
		t.Error("mono should only use voice 0")
	}

	// releasing the top note returns to the previous held one
	a.NoteOff(64)
	voices[0].tick(a.fadeSamples)
	a.Update()
	if voices[0].note != 60 || voices[0].releasing {
		t.Error("should fall back to held note 60")
	}
	a.NoteOff(60)
	if !voices[0].releasing {
		t.Error("last note off should release")
	}
}

func TestAllocatorMonoRetriggerDuringFade(t *testing.T) {
	voices, a := newTestPool(2)
	a.SetMode(ModeMono)

	a.NoteOn(60, 100)
	a.NoteOn(64, 100)
	a.NoteOn(67, 90)
	if voices[0].starts != 1 {
		t.Fatalf("voice restarted %d times during its fade", voices[0].starts-1)
	}
	voices[0].tick(a.fadeSamples)
	a.Update()
	if voices[0].note != 67 || voices[0].velocity != 90 {
		t.Errorf("latest note should win, got %d", voices[0].note)
	}

	// a queued note released before its fade ends never starts
	a.NoteOn(72, 100)
	a.NoteOff(72)
	a.NoteOff(67)
	a.NoteOff(64)
	a.NoteOff(60)
	voices[0].tick(a.fadeSamples)
	a.Update()
	if voices[0].active || a.PendingCount() != 0 {
		t.Error("no note should sound once every key is up")
	}
}

func TestAllocatorClaimRespectsPolyphony(t *testing.T) {
	voices, a := newTestPool(4)
	a.SetPolyphony(2)

	a.NoteOn(60, 100)
	a.NoteOn(64, 100)
	idx := a.Claim()
	if idx < 0 {
		t.Fatal("claim should steal when the limit is reached")
	}
	voices[idx].Start(30, 100, false)
	if got := a.ActiveCount(); got != 2 {
		t.Errorf("active count %d exceeds polyphony", got)
	}
	if stolen, _, _ := a.Stats(); stolen != 1 {
		t.Errorf("expected one steal, got %d", stolen)
	}
}

func TestAllocatorClaimSkipsPendingVoices(t *testing.T) {
	voices, a := newTestPool(2)

	a.NoteOn(60, 100)
	a.NoteOn(64, 100)
	a.NoteOn(67, 100) // steals 60, queued on its voice
	if a.PendingCount() != 1 {
		t.Fatal("expected a queued note")
	}
	for _, v := range voices {
		v.tick(a.fadeSamples)
	}
	if idx := a.Claim(); idx >= 0 {
		t.Errorf("claim took voice %d reserved for a queued note", idx)
	}
	a.Update()
	if playing(voices, 67) != 1 {
		t.Error("queued note should start on its reserved voice")
	}
	if _, _, dropped := a.Stats(); dropped != 1 {
		t.Errorf("expected the claim to count as dropped, got %d", dropped)
	}
}

func TestAllocatorLegatoMode(t *testing.T) {
	voices, a := newTestPool(2)
	a.SetMode(ModeLegato)

	a.NoteOn(60, 100)
	if voices[0].legato {
		t.Error("first note must retrigger")
	}
	a.NoteOn(67, 100)
	if !voices[0].legato || voices[0].note != 67 {
		t.Error("overlapping note should glide without retrigger")
	}
}

func TestAllocatorReset(t *testing.T) {
	voices, a := newTestPool(2)
	a.NoteOn(60, 100)
	a.NoteOn(62, 100)
	a.NoteOn(64, 100)
	a.Reset()

	if a.ActiveCount() != 0 || a.PendingCount() != 0 {
		t.Error("reset should clear voices and pending notes")
	}
	for _, v := range voices {
		if v.active {
			t.Error("voice still active after reset")
		}
	}
}

func TestAllocatorNoAllocations(t *testing.T) {
	voices, a := newTestPool(8)
	a.SetPolyphony(4)
	allocs := testing.AllocsPerRun(100, func() {
		for n := uint8(40); n < 60; n++ {
			a.NoteOn(n, 100)
			a.NoteOff(n - 2)
		}
		for _, v := range voices {
			v.tick(200)
		}
		a.Update()
	})
	if allocs != 0 {
		t.Errorf("allocations: %v", allocs)
	}
}
