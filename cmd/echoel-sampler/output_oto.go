//go:build !headless

package main

import (
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep"

	"github.com/echoelmusic/ultrasampler/pkg/render"
)

type otoOutput struct {
	ctx    *oto.Context
	player *oto.Player
}

// openOutput starts playing s on the default audio device. The device pulls
// float32 stereo frames on its own goroutine.
func openOutput(s beep.Streamer, sampleRate float64, block int) (io.Closer, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(sampleRate),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(float64(2*block) / sampleRate * float64(time.Second)),
	})
	if err != nil {
		return nil, err
	}
	<-ready

	player := ctx.NewPlayer(render.NewReader(s, block))
	player.Play()
	return &otoOutput{ctx: ctx, player: player}, nil
}

func (o *otoOutput) Close() error {
	o.player.Pause()
	return o.player.Close()
}
