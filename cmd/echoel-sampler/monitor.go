package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/analysis"
	"github.com/echoelmusic/ultrasampler/pkg/midi"
	"github.com/echoelmusic/ultrasampler/pkg/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/render"
	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

const (
	frameInterval = 33 * time.Millisecond
	fftSize       = 2048
	meterFloorDB  = -60.0
	bandFloorDB   = -72.0
)

// pianoKeys lays two octaves over the home row, black keys on the row above.
const pianoKeys = "awsedftgyhujkolp;'"

// keyNote maps a key to a note relative to base, if the key plays one.
func keyNote(r rune, base int) (uint8, bool) {
	i := strings.IndexRune(pianoKeys, r)
	if i < 0 {
		return 0, false
	}
	n := base + i
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

// meterWidth maps a level in dB onto a bar of at most width cells.
func meterWidth(db, floor float64, width int) int {
	if db <= floor {
		return 0
	}
	if db >= 0 {
		return width
	}
	return int(float64(width) * (1 - db/floor))
}

type monitor struct {
	screen   tcell.Screen
	in       *plugin.Instance
	stream   *render.Streamer
	spectrum *analysis.SpectrumAnalyzer
	scope    []float32
	bands    []float64

	base     int
	velocity uint8
	hold     time.Duration
	held     map[uint8]time.Time

	snap   sampler.Snapshot
	status string
}

func runMonitor(args []string) error {
	var s setup
	fs := flag.NewFlagSet("monitor", flag.ContinueOnError)
	s.register(fs)
	velocity := fs.Int("velocity", defaultVelocity, "note velocity (1-127)")
	hold := fs.Duration("hold", 400*time.Millisecond, "how long a key press holds its note")
	if err := fs.Parse(args); err != nil {
		return err
	}
	vel, err := checkVelocity(*velocity)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("monitor: stdout is not a terminal")
	}
	// Log lines would tear the screen unless asked for explicitly.
	explicit := false
	fs.Visit(func(f *flag.Flag) { explicit = explicit || f.Name == "log" })
	if !explicit {
		s.level = "off"
	}

	in, _, err := s.instance(context.Background())
	if err != nil {
		return err
	}
	defer in.Deactivate()

	stream, err := render.NewStreamer(in, s.rate, s.block, nil)
	if err != nil {
		return err
	}
	out, err := openOutput(stream, s.rate, s.block)
	if err != nil {
		return fmt.Errorf("monitor: audio output: %w", err)
	}
	defer out.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	m := &monitor{
		screen:   screen,
		in:       in,
		stream:   stream,
		spectrum: analysis.NewSpectrumAnalyzer(fftSize, s.rate),
		scope:    make([]float32, 8192),
		base:     60,
		velocity: vel,
		hold:     *hold,
		held:     make(map[uint8]time.Time),
	}
	m.run()
	return stream.Err()
}

func (m *monitor) run() {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := m.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	for {
		select {
		case ev := <-events:
			if !m.handleInput(ev) {
				m.stream.Send(midi.ControlChange(0, 0, midi.CCAllNotesOff, 0))
				return
			}
		case now := <-ticker.C:
			m.release(now)
			m.update()
			m.draw()
		}
	}
}

func (m *monitor) handleInput(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}
		switch r := ev.Rune(); r {
		case 'z':
			m.base = max(m.base-12, 0)
		case 'x':
			m.base = min(m.base+12, 108)
		case ' ':
			m.stream.Send(midi.ControlChange(0, 0, midi.CCAllNotesOff, 0))
			clear(m.held)
		default:
			n, ok := keyNote(r, m.base)
			if !ok {
				return true
			}
			if _, down := m.held[n]; !down {
				if !m.stream.Send(midi.NoteOn(0, 0, n, m.velocity)) {
					m.status = "event queue full"
					return true
				}
			}
			// Terminals report key repeats, not releases.
			m.held[n] = time.Now().Add(m.hold)
		}
	case *tcell.EventResize:
		m.screen.Sync()
	}
	return true
}

// release ends notes whose key has not repeated within the hold time.
func (m *monitor) release(now time.Time) {
	for n, until := range m.held {
		if now.Before(until) {
			continue
		}
		if m.stream.Send(midi.NoteOff(0, 0, n, 0)) {
			delete(m.held, n)
		}
	}
}

func (m *monitor) update() {
	mon := m.in.Engine().Monitor()
	if snap, ok := mon.Latest(); ok {
		m.snap = snap
	}
	if n := mon.Scope(m.scope); n > 0 && m.spectrum.Process(m.scope[:n]) {
		m.bands = m.spectrum.GetOctaveBands(analysis.StandardOctaveBands())
	}
}

func (m *monitor) draw() {
	m.screen.Clear()
	width, _ := m.screen.Size()
	title := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	label := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)

	m.text(0, 0, title, fmt.Sprintf("%s  octave %s", m.in.Info().Name, midi.NoteName(uint8(m.base))))
	m.text(0, 1, dim, "keys "+pianoKeys+"  z/x octave  space all off  esc quit")

	bar := max(width-20, 10)
	m.meter(3, "L", analysis.ToDB(m.snap.PeakL), bar)
	m.meter(4, "R", analysis.ToDB(m.snap.PeakR), bar)

	m.text(0, 5, label, fmt.Sprintf("phase %+.2f %s  low %+.2f",
		m.snap.Correlation, analysis.PhaseStatusOf(m.snap.Correlation), m.in.Engine().Monitor().PhaseLow()))

	mon := m.in.Engine().Monitor()
	m.text(0, 6, label, fmt.Sprintf("voices %-3d grains %-4d load %3.0f%%  stolen %d  dropped %d  clips %d",
		m.snap.ActiveVoices, m.snap.Grains, m.snap.Load*100, m.snap.Stolen, m.snap.Dropped, mon.Clips()))
	if m.snap.Degraded {
		m.text(0, 7, tcell.StyleDefault.Foreground(tcell.ColorRed), "quality reduced under load")
	}

	row := 9
	for i := range m.snap.NumVoices {
		v := m.snap.Voices[i]
		style := label
		if v.Releasing {
			style = dim
		}
		pos := int(v.Position * 20)
		m.text(0, row, style, fmt.Sprintf("%-4s zone %-3d %s%s %5.1f dB",
			midi.NoteName(v.Note), v.Zone, strings.Repeat("=", pos), strings.Repeat(" ", 20-min(pos, 20)), analysis.ToDB(v.Level)))
		row++
	}

	m.drawBands(row + 1)
	if m.status != "" {
		m.text(0, row+14, tcell.StyleDefault.Foreground(tcell.ColorRed), m.status)
	}
	m.screen.Show()
}

// drawBands draws the octave bands as vertical bars ten rows high.
func (m *monitor) drawBands(top int) {
	const height = 10
	style := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	scale := 4.0 / fftSize
	for i, center := range analysis.StandardOctaveBands() {
		x := i * 6
		level := 0
		if i < len(m.bands) {
			level = meterWidth(analysis.ToDB(m.bands[i]*scale), bandFloorDB, height)
		}
		for y := range level {
			m.screen.SetContent(x+1, top+height-1-y, '█', nil, style)
			m.screen.SetContent(x+2, top+height-1-y, '█', nil, style)
		}
		m.text(x, top+height, tcell.StyleDefault.Foreground(tcell.ColorGray), bandLabel(center))
	}
}

func bandLabel(hz float64) string {
	if hz >= 1000 {
		return fmt.Sprintf("%gk", hz/1000)
	}
	return fmt.Sprintf("%g", hz)
}

func (m *monitor) meter(y int, name string, db float64, width int) {
	m.text(0, y, tcell.StyleDefault, name)
	n := meterWidth(db, meterFloorDB, width)
	for x := range n {
		color := tcell.ColorGreen
		switch {
		case x >= width*9/10:
			color = tcell.ColorRed
		case x >= width*3/4:
			color = tcell.ColorYellow
		}
		m.screen.SetContent(2+x, y, '█', nil, tcell.StyleDefault.Foreground(color))
	}
	if db > analysis.MinDB {
		m.text(width+3, y, tcell.StyleDefault, fmt.Sprintf("%6.1f dB", db))
	}
}

func (m *monitor) text(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		m.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
