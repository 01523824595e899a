// Command echoel-sampler renders, plays and monitors the sampler from a
// terminal.
//
// Usage:
//
//	echoel-sampler render -notes 60,64,67 -seconds 4 -out chord.wav
//	echoel-sampler play -keymap piano.yaml -notes 48,55,60 -arp 0.25
//	echoel-sampler monitor -sample cello.wav -preset "Strings"
//
// Without -sample or -keymap a built-in saw tone is mapped to every key.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/oscillator"
	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	fw "github.com/echoelmusic/ultrasampler/pkg/framework/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/render"
	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

const (
	defaultRate     = 48000.0
	defaultVelocity = 100
	toneFreq        = 261.63 // middle C
	toneSeconds     = 2.0
	toneRoot        = 60
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			return
		case errors.Is(err, errUsage):
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return errUsage
	}
	switch args[0] {
	case "render":
		return runRender(args[1:])
	case "play":
		return runPlay(args[1:])
	case "monitor":
		return runMonitor(args[1:])
	case "-h", "-help", "--help", "help":
		usage()
		return nil
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		return errUsage
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  render   render notes offline to a WAV file\n")
	fmt.Fprintf(os.Stderr, "  play     play notes through the audio device\n")
	fmt.Fprintf(os.Stderr, "  monitor  play from the keyboard with a live meter view\n")
	fmt.Fprintf(os.Stderr, "\nRun '%s <command> -h' for command options.\n", os.Args[0])
}

// setup holds the flags every command shares.
type setup struct {
	sample string
	keymap string
	preset string
	rate   float64
	block  int
	level  string
}

func (s *setup) register(fs *flag.FlagSet) {
	fs.StringVar(&s.sample, "sample", "", "WAV file mapped across the keyboard")
	fs.StringVar(&s.keymap, "keymap", "", "YAML keymap describing a multi-zone instrument")
	fs.StringVar(&s.preset, "preset", "", "factory preset, by name or index")
	fs.Float64Var(&s.rate, "rate", defaultRate, "sample rate in Hz")
	fs.IntVar(&s.block, "block", render.DefaultBlockSize, "processing block size in frames")
	fs.StringVar(&s.level, "log", "warn", "log level: debug, info, warn, error, off")
}

// instance builds and activates a sampler instance from the shared flags.
func (s *setup) instance(ctx context.Context) (*plugin.Instance, *debug.Logger, error) {
	logger := debug.New(os.Stderr, "echoel-sampler", debug.DefaultFlags)
	level, err := debug.ParseLevel(s.level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)

	if s.sample != "" && s.keymap != "" {
		return nil, nil, errors.New("-sample and -keymap are mutually exclusive")
	}
	in, err := plugin.New(fw.EngineSampler, plugin.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	switch {
	case s.keymap != "":
		err = in.LoadKeymap(ctx, s.keymap)
	case s.sample != "":
		err = in.LoadSampleFile(0, s.sample)
	default:
		err = in.LoadSample(0, sampler.ToneSample(oscillator.Saw, toneFreq, s.rate, toneSeconds, toneRoot))
	}
	if err != nil {
		return nil, nil, err
	}
	if s.preset != "" {
		i, err := findPreset(in, s.preset)
		if err != nil {
			return nil, nil, err
		}
		if err := in.LoadPreset(i); err != nil {
			return nil, nil, err
		}
	}
	if err := in.Activate(s.rate, s.block); err != nil {
		return nil, nil, err
	}
	logger.Info("%s ready at %.0f Hz, block %d", in.Info().Name, s.rate, s.block)
	return in, logger, nil
}

// findPreset resolves a preset by index or by case-insensitive name.
func findPreset(in *plugin.Instance, name string) (int, error) {
	if i, err := strconv.Atoi(name); err == nil {
		if i < 0 || i >= in.PresetCount() {
			return 0, fmt.Errorf("preset index %d out of range [0, %d)", i, in.PresetCount())
		}
		return i, nil
	}
	for i := range in.PresetCount() {
		if strings.EqualFold(in.PresetName(i), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown preset %q", name)
}

// parseNotes parses a comma separated list of MIDI note numbers.
func parseNotes(list string) ([]uint8, error) {
	var notes []uint8
	for field := range strings.SplitSeq(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("note %q: %w", field, err)
		}
		if n < 0 || n > 127 {
			return nil, fmt.Errorf("note %d out of range [0, 127]", n)
		}
		notes = append(notes, uint8(n))
	}
	if len(notes) == 0 {
		return nil, errors.New("no notes given")
	}
	return notes, nil
}

// schedule starts one note every arp seconds, each held for hold seconds.
// An arp of zero plays the notes as a chord.
func schedule(notes []uint8, velocity uint8, sampleRate, hold, arp float64) []render.Timed {
	length := int64(hold * sampleRate)
	var events []render.Timed
	for i, n := range notes {
		start := int64(float64(i) * arp * sampleRate)
		events = append(events, render.Note(start, length, n, velocity)...)
	}
	return events
}

func checkVelocity(v int) (uint8, error) {
	if v < 1 || v > 127 {
		return 0, fmt.Errorf("velocity %d out of range [1, 127]", v)
	}
	return uint8(v), nil
}
