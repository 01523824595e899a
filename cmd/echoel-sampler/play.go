package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/echoelmusic/ultrasampler/pkg/render"
)

func runPlay(args []string) error {
	var s setup
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	s.register(fs)
	notes := fs.String("notes", "60,64,67", "comma separated MIDI notes")
	velocity := fs.Int("velocity", defaultVelocity, "note velocity (1-127)")
	seconds := fs.Float64("seconds", 4, "how long to play in seconds")
	hold := fs.Float64("hold", 2, "how long each note is held in seconds")
	arp := fs.Float64("arp", 0, "seconds between note starts; 0 plays a chord")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := parseNotes(*notes)
	if err != nil {
		return err
	}
	vel, err := checkVelocity(*velocity)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	in, logger, err := s.instance(ctx)
	if err != nil {
		return err
	}
	defer in.Deactivate()

	stream, err := render.NewStreamer(in, s.rate, s.block, schedule(list, vel, s.rate, *hold, *arp))
	if err != nil {
		return err
	}
	out, err := openOutput(stream, s.rate, s.block)
	if err != nil {
		return fmt.Errorf("play: audio output: %w", err)
	}

	select {
	case <-ctx.Done():
		logger.Info("interrupted")
	case <-time.After(time.Duration(*seconds * float64(time.Second))):
	}
	if err := out.Close(); err != nil {
		return err
	}
	return stream.Err()
}
