package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	"github.com/echoelmusic/ultrasampler/pkg/render"
	"github.com/echoelmusic/ultrasampler/pkg/samplefile"
)

func runRender(args []string) error {
	var s setup
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	s.register(fs)
	notes := fs.String("notes", "60,64,67", "comma separated MIDI notes")
	velocity := fs.Int("velocity", defaultVelocity, "note velocity (1-127)")
	seconds := fs.Float64("seconds", 4, "length of the render in seconds")
	hold := fs.Float64("hold", 2, "how long each note is held in seconds")
	arp := fs.Float64("arp", 0, "seconds between note starts; 0 plays a chord")
	out := fs.String("out", "", "output WAV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		fs.Usage()
		return errors.New("render: -out is required")
	}
	list, err := parseNotes(*notes)
	if err != nil {
		return err
	}
	vel, err := checkVelocity(*velocity)
	if err != nil {
		return err
	}

	in, _, err := s.instance(context.Background())
	if err != nil {
		return err
	}
	defer in.Deactivate()

	start := time.Now()
	events := schedule(list, vel, s.rate, *hold, *arp)
	if err := render.RenderFile(*out, in, s.rate, *seconds, events); err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := in.Engine().Stats()
	fmt.Printf("Rendered %s\n", filepath.Base(*out))
	fmt.Printf("  %d notes, %.2fs at %.0f Hz\n", len(list), *seconds, s.rate)
	fmt.Printf("  stolen %d, dropped %d, peak load %.0f%%\n", stats.Stolen, stats.Dropped, stats.PeakLoad*100)
	fmt.Printf("  %.1fx realtime\n", *seconds/elapsed.Seconds())

	rendered, err := samplefile.Load(*out)
	if err != nil {
		return fmt.Errorf("render: reading back %s: %w", *out, err)
	}
	for ch, data := range rendered.Channels {
		fmt.Printf("  ch%d %s\n", ch+1, debug.AnalyzeBuffer(data))
	}
	return nil
}
