//go:build headless

package main

import (
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
)

// nullOutput pulls audio at real-time pace and discards it, for machines
// without a sound device.
type nullOutput struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func openOutput(s beep.Streamer, sampleRate float64, block int) (io.Closer, error) {
	o := &nullOutput{stop: make(chan struct{}), done: make(chan struct{})}
	period := time.Duration(float64(block) / sampleRate * float64(time.Second))
	buf := make([][2]float64, block)
	go func() {
		defer close(o.done)
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-o.stop:
				return
			case <-ticker.C:
				if _, ok := s.Stream(buf); !ok {
					return
				}
			}
		}
	}()
	return o, nil
}

func (o *nullOutput) Close() error {
	o.once.Do(func() { close(o.stop) })
	<-o.done
	return nil
}
