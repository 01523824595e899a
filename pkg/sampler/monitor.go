package sampler

import (
	"github.com/echoelmusic/ultrasampler/pkg/dsp/analysis"
	"github.com/echoelmusic/ultrasampler/pkg/dsp/buffer"
)

// MonitorVoices is the number of voices described in a Snapshot.
const MonitorVoices = 16

const correlationWindowMs = 300

// VoiceInfo describes one sounding voice.
type VoiceInfo struct {
	Note      uint8
	Zone      int
	Level     float64
	Position  float64 // 0-1 within the sample
	Releasing bool
}

// Snapshot is the per-block state published for a UI.
type Snapshot struct {
	Block uint64

	PeakL, PeakR float64
	RMSL, RMSR   float64
	Correlation  float64 // stereo phase correlation, -1 to 1

	ActiveVoices int
	Grains       int
	Load         float64
	Degraded     bool
	Stolen       uint64
	Dropped      uint64

	Voices    [MonitorVoices]VoiceInfo
	NumVoices int
}

// Monitor carries snapshots and scope audio from the audio thread to one
// reader. The audio thread never blocks. An unread snapshot is replaced by
// the next one; scope samples that do not fit are dropped until the reader
// catches up.
type Monitor struct {
	left  *analysis.LevelMeter
	right *analysis.LevelMeter
	phase *analysis.CorrelationMeter
	snaps *buffer.TripleBuffer[Snapshot]
	scope *buffer.Ring[float32]
	mono  []float32
	block uint64
}

func newMonitor(sampleRate float64, maxBlock int) *Monitor {
	return &Monitor{
		left:  analysis.NewLevelMeter(sampleRate),
		right: analysis.NewLevelMeter(sampleRate),
		phase: analysis.NewCorrelationMeter(sampleRate, correlationWindowMs),
		snaps: buffer.NewTripleBuffer[Snapshot](),
		scope: buffer.NewRing[float32](8192),
		mono:  make([]float32, maxBlock),
	}
}

// publish meters one block and pushes s. Audio thread only.
func (m *Monitor) publish(left, right []float32, s *Snapshot) {
	m.left.Process(left)
	m.right.Process(right)
	m.phase.Process(left, right)
	mono := m.mono[:len(left)]
	for i := range mono {
		mono[i] = 0.5 * (left[i] + right[i])
	}
	m.scope.Write(mono)

	m.block++
	s.Block = m.block
	s.PeakL, s.PeakR = m.left.Peak(), m.right.Peak()
	s.RMSL, s.RMSR = m.left.RMS(), m.right.RMS()
	s.Correlation = m.phase.Correlation()
	m.snaps.Publish(*s)
}

// Latest returns the newest snapshot. ok is false when nothing was
// published since the last call.
func (m *Monitor) Latest() (Snapshot, bool) {
	return m.snaps.Take()
}

// Scope copies the newest len(dst) mono output samples into dst.
func (m *Monitor) Scope(dst []float32) int {
	return m.scope.Latest(dst)
}

// Clips returns the clipped sample count of both channels.
func (m *Monitor) Clips() uint64 {
	return m.left.Clips() + m.right.Clips()
}

// PhaseLow returns the most negative correlation since the last reset.
func (m *Monitor) PhaseLow() float64 {
	return m.phase.Low()
}

// Overruns returns how many snapshots were replaced unread plus how many
// scope samples were dropped.
func (m *Monitor) Overruns() uint64 {
	return m.snaps.Overwrites() + m.scope.Stats().Overruns
}

func (m *Monitor) reset() {
	m.left.Reset()
	m.right.Reset()
	m.phase.Reset()
}
