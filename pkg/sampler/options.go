package sampler

import (
	"github.com/echoelmusic/ultrasampler/pkg/bio"
	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
)

// Option configures an Engine.
type Option func(*Engine)

// WithMaxVoices sets the voice pool size (1..MaxVoices, default MaxVoices).
func WithMaxVoices(n int) Option {
	return func(e *Engine) {
		e.maxVoices = max(1, min(n, MaxVoices))
	}
}

// WithSincTaps selects the kernel ModeAuto uses near unity speed: 8 or 64.
func WithSincTaps(taps int) Option {
	return func(e *Engine) {
		if taps <= 8 {
			e.sincTaps = 8
			return
		}
		e.sincTaps = 64
	}
}

// WithLogger sets the engine logger. Nothing is logged from the audio thread.
func WithLogger(l *debug.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithStore shares an existing zone store.
func WithStore(s *Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithBio shares bio state written by a sensor goroutine.
func WithBio(s *bio.State) Option {
	return func(e *Engine) {
		e.bioState = s
	}
}

// WithSeed seeds the per-voice random generators.
func WithSeed(seed uint32) Option {
	return func(e *Engine) {
		e.seed = seed
	}
}
