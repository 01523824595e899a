package samplefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/gain"
	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	"github.com/echoelmusic/ultrasampler/pkg/sampler"
)

// ErrKeymap is returned for keymaps that cannot be turned into zones.
var ErrKeymap = errors.New("samplefile: invalid keymap")

// Keymap describes a multi-sample instrument:
//
//	name: Upright
//	zones:
//	  - name: low
//	    keys: [0, 59]
//	    root: 48
//	    loop: forward
//	    round_robin: true
//	    layers:
//	      - file: c3_soft.wav
//	        velocity: [0, 63]
//	      - file: c3_hard.wav
//	        velocity: [64, 127]
//
// File paths are relative to the keymap's directory.
type Keymap struct {
	Name  string     `yaml:"name"`
	Zones []ZoneSpec `yaml:"zones"`
}

// ZoneSpec is one zone of a keymap.
type ZoneSpec struct {
	Name       string      `yaml:"name"`
	Keys       [2]int      `yaml:"keys"`
	Root       *int        `yaml:"root"`
	Loop       string      `yaml:"loop"`
	Volume     float64     `yaml:"volume"` // dB
	Pan        float64     `yaml:"pan"`
	Pitch      float64     `yaml:"pitch"` // semitones
	FineTune   float64     `yaml:"fine_tune"`
	Crossfade  float64     `yaml:"crossfade"`
	RoundRobin bool        `yaml:"round_robin"`
	Release    string      `yaml:"release"`
	Layers     []LayerSpec `yaml:"layers"`
}

// LayerSpec maps a velocity range to a file. A missing range covers 0-127.
type LayerSpec struct {
	File     string  `yaml:"file"`
	Velocity [2]int  `yaml:"velocity"`
	Gain     float64 `yaml:"gain"` // dB
}

// ParseKeymap decodes YAML. Unknown fields are rejected.
func ParseKeymap(data []byte) (*Keymap, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var km Keymap
	if err := dec.Decode(&km); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeymap, err)
	}
	if len(km.Zones) == 0 {
		return nil, fmt.Errorf("%w: no zones", ErrKeymap)
	}
	if len(km.Zones) > sampler.MaxZones {
		return nil, fmt.Errorf("%w: %d zones, max %d", ErrKeymap, len(km.Zones), sampler.MaxZones)
	}
	for i, z := range km.Zones {
		if len(z.Layers) == 0 {
			return nil, fmt.Errorf("%w: zone %d has no layers", ErrKeymap, i)
		}
		if len(z.Layers) > sampler.MaxVelocityLayers {
			return nil, fmt.Errorf("%w: zone %d has %d layers", ErrKeymap, i, len(z.Layers))
		}
		for j, l := range z.Layers {
			if l.File == "" {
				return nil, fmt.Errorf("%w: zone %d layer %d has no file", ErrKeymap, i, j)
			}
		}
		if _, ok := loopModes[strings.ToLower(z.Loop)]; !ok {
			return nil, fmt.Errorf("%w: zone %d: unknown loop mode %q", ErrKeymap, i, z.Loop)
		}
	}
	return &km, nil
}

// LoadKeymap reads and parses a keymap file.
func LoadKeymap(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("samplefile: %w", err)
	}
	km, err := ParseKeymap(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return km, nil
}

var loopModes = map[string]sampler.LoopMode{
	"":         sampler.LoopOff,
	"off":      sampler.LoopOff,
	"forward":  sampler.LoopForward,
	"backward": sampler.LoopBackward,
	"pingpong": sampler.LoopPingPong,
	"release":  sampler.LoopRelease,
}

// Files lists every file the keymap references, once each.
func (km *Keymap) Files() []string {
	seen := make(map[string]struct{})
	var files []string
	add := func(f string) {
		if f == "" {
			return
		}
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	for _, z := range km.Zones {
		for _, l := range z.Layers {
			add(l.File)
		}
		add(z.Release)
	}
	return files
}

// Build decodes every referenced file in parallel and assembles the zones.
// A file shared by several layers is decoded once.
func (km *Keymap) Build(ctx context.Context, dir string) ([]*sampler.Zone, error) {
	files := km.Files()
	decoded := make([]*sampler.SampleData, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := f
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			s, err := Load(path)
			if err != nil {
				return err
			}
			decoded[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byFile := make(map[string]*sampler.SampleData, len(files))
	for i, f := range files {
		byFile[f] = decoded[i]
	}

	zones := make([]*sampler.Zone, 0, len(km.Zones))
	for i, spec := range km.Zones {
		z, err := spec.zone(byFile)
		if err != nil {
			return nil, fmt.Errorf("%w: zone %d: %v", ErrKeymap, i, err)
		}
		zones = append(zones, z)
	}
	return zones, nil
}

func (spec ZoneSpec) zone(samples map[string]*sampler.SampleData) (*sampler.Zone, error) {
	low, high := spec.Keys[0], spec.Keys[1]
	if low == 0 && high == 0 {
		high = 127
	}
	first := samples[spec.Layers[0].File]
	root := first.RootNote
	if spec.Root != nil {
		root = *spec.Root
	}
	root = min(max(root, low), high)

	name := spec.Name
	if name == "" {
		name = first.Name
	}
	z := sampler.NewZone(name, low, high, root)
	z.LoopMode = loopModes[strings.ToLower(spec.Loop)]
	if spec.Loop == "" && first.LoopEnabled {
		z.LoopMode = sampler.LoopForward
	}
	z.Volume = spec.Volume
	z.Pan = spec.Pan
	z.Pitch = spec.Pitch
	z.FineTune = spec.FineTune
	z.VelocityCrossfade = spec.Crossfade
	if spec.Release != "" {
		z.ReleaseSample = samples[spec.Release]
	}

	for _, l := range spec.Layers {
		lo, hi := l.Velocity[0], l.Velocity[1]
		if lo == 0 && hi == 0 {
			hi = 127
		}
		if lo < 0 || hi > 127 {
			return nil, fmt.Errorf("velocity range [%d, %d]", lo, hi)
		}
		idx, err := z.AddLayer(samples[l.File], uint8(lo), uint8(hi))
		if err != nil {
			return nil, err
		}
		if l.Gain != 0 {
			z.Layers[idx].Gain = gain.DbToLinear(l.Gain)
		}
		if spec.RoundRobin {
			if err := z.AddRoundRobin(idx); err != nil {
				return nil, err
			}
		}
	}
	return z, z.Validate()
}

// Apply builds the keymap and replaces every zone in store. On error the
// store is left as it was.
func (km *Keymap) Apply(ctx context.Context, store *sampler.Store, dir string, log *debug.Logger) error {
	zones, err := km.Build(ctx, dir)
	if err != nil {
		if log != nil {
			log.Warn("keymap %q rejected: %v", km.Name, err)
		}
		return err
	}
	store.ClearAll()
	for i, z := range zones {
		if err := store.Set(i, z); err != nil {
			return err
		}
	}
	if log != nil {
		log.Info("keymap %q: %d zones, %d files", km.Name, len(zones), len(km.Files()))
	}
	return nil
}
