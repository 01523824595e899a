// Package dsp chains stereo processors for the output stage. A chain is built
// once, off the audio thread; processing it never allocates.
package dsp

import (
	"errors"
	"fmt"
)

// StereoProcessor processes a stereo block in place.
type StereoProcessor interface {
	ProcessStereo(left, right []float32)
	Reset()
}

// StereoFunc adapts a function to StereoProcessor. Reset is a no-op.
type StereoFunc func(left, right []float32)

func (f StereoFunc) ProcessStereo(left, right []float32) {
	f(left, right)
}

func (f StereoFunc) Reset() {}

// Bypasser is implemented by stages that can be switched off per block.
type Bypasser interface {
	Bypassed() bool
}

// StereoChain runs its stages in order.
type StereoChain struct {
	name       string
	processors []StereoProcessor
	bypass     bool
}

// NewStereoChain creates an empty chain.
func NewStereoChain(name string) *StereoChain {
	return &StereoChain{name: name}
}

// Name returns the chain name.
func (c *StereoChain) Name() string {
	return c.name
}

// Add appends a stage.
func (c *StereoChain) Add(processor StereoProcessor) *StereoChain {
	c.processors = append(c.processors, processor)
	return c
}

// ProcessStereo runs every stage that is not bypassed.
func (c *StereoChain) ProcessStereo(left, right []float32) {
	if c.bypass {
		return
	}
	for _, p := range c.processors {
		if b, ok := p.(Bypasser); ok && b.Bypassed() {
			continue
		}
		p.ProcessStereo(left, right)
	}
}

// Reset resets every stage.
func (c *StereoChain) Reset() {
	for _, p := range c.processors {
		p.Reset()
	}
}

// SetBypass switches the whole chain off.
func (c *StereoChain) SetBypass(bypass bool) {
	c.bypass = bypass
}

// Count returns the number of stages.
func (c *StereoChain) Count() int {
	return len(c.processors)
}

// ErrEmptyChain is returned by Build for a chain without stages.
var ErrEmptyChain = errors.New("dsp: chain is empty")

// StereoBuilder builds a StereoChain fluently and collects errors.
type StereoBuilder struct {
	chain  *StereoChain
	errors []error
}

// NewStereoBuilder creates a builder for a chain called name.
func NewStereoBuilder(name string) *StereoBuilder {
	return &StereoBuilder{chain: NewStereoChain(name)}
}

// WithProcessor appends a stage. A nil stage is recorded as an error.
func (b *StereoBuilder) WithProcessor(processor StereoProcessor) *StereoBuilder {
	if processor == nil {
		b.errors = append(b.errors, fmt.Errorf("stage %d is nil", b.chain.Count()))
		return b
	}
	b.chain.Add(processor)
	return b
}

// WithFunc appends a function stage.
func (b *StereoBuilder) WithFunc(process func(left, right []float32)) *StereoBuilder {
	if process == nil {
		b.errors = append(b.errors, fmt.Errorf("stage %d is nil", b.chain.Count()))
		return b
	}
	b.chain.Add(StereoFunc(process))
	return b
}

// Build returns the chain or the collected errors.
func (b *StereoBuilder) Build() (*StereoChain, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("dsp: build %q: %w", b.chain.name, errors.Join(b.errors...))
	}
	if b.chain.Count() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyChain, b.chain.name)
	}
	return b.chain, nil
}
