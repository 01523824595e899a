package sampler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/echoelmusic/ultrasampler/pkg/dsp/mix"
)

// Zone and store limits.
const (
	MaxZones          = 128
	MaxVelocityLayers = 16
	MaxRoundRobin     = 16
)

var (
	// ErrZoneLimit is returned when a zone index is out of range or the store is full.
	ErrZoneLimit = errors.New("sampler: zone limit reached")
	// ErrKeyRange is returned when a zone violates keyLow <= rootKey <= keyHigh.
	ErrKeyRange = errors.New("sampler: invalid key range")
	// ErrLayerLimit is returned when a zone already holds MaxVelocityLayers layers.
	ErrLayerLimit = errors.New("sampler: velocity layer limit reached")
)

// LoopMode selects how a zone loops its sample.
type LoopMode int

const (
	LoopOff LoopMode = iota
	LoopForward
	LoopBackward
	LoopPingPong
	// LoopRelease loops forward while the key is held, then plays through.
	LoopRelease
)

// LoopModeNames are display names indexed by LoopMode.
var LoopModeNames = []string{"Off", "Forward", "Backward", "Ping-Pong", "Release"}

func (m LoopMode) String() string {
	if m >= 0 && int(m) < len(LoopModeNames) {
		return LoopModeNames[m]
	}
	return "Unknown"
}

// VelocityLayer maps a velocity range to one sample.
type VelocityLayer struct {
	Sample          *SampleData
	VelLow          uint8
	VelHigh         uint8
	Gain            float64 // linear
	RoundRobinGroup int
}

func (l *VelocityLayer) contains(vel uint8) bool {
	return vel >= l.VelLow && vel <= l.VelHigh
}

// Zone maps a key range to a stack of velocity layers. Zones are handled by
// pointer; a published zone must not be modified.
type Zone struct {
	Name    string
	KeyLow  int
	KeyHigh int
	RootKey int

	Layers            [MaxVelocityLayers]VelocityLayer
	NumLayers         int
	VelocityCrossfade float64 // 0-1 of a layer's range blended at each edge

	// RoundRobin lists the layer indices cycled for every note.
	RoundRobin    [MaxRoundRobin]int
	NumRoundRobin int
	rrCursor      atomic.Uint32

	SampleStart float64 // fraction of the sample
	SampleEnd   float64
	LoopMode    LoopMode

	Volume   float64 // dB
	Pan      float64 // -1..1
	Pitch    float64 // semitones
	FineTune float64 // cents

	// ReleaseSample is played as a one-shot when the key is released.
	ReleaseSample *SampleData

	Enabled bool
}

// NewZone creates an enabled zone covering keyLow..keyHigh.
func NewZone(name string, keyLow, keyHigh, rootKey int) *Zone {
	return &Zone{
		Name:      name,
		KeyLow:    keyLow,
		KeyHigh:   keyHigh,
		RootKey:   rootKey,
		SampleEnd: 1,
		Enabled:   true,
	}
}

// AddLayer appends a velocity layer and returns its index.
func (z *Zone) AddLayer(s *SampleData, velLow, velHigh uint8) (int, error) {
	if z.NumLayers >= MaxVelocityLayers {
		return -1, ErrLayerLimit
	}
	if velLow > velHigh {
		velLow, velHigh = velHigh, velLow
	}
	i := z.NumLayers
	z.Layers[i] = VelocityLayer{Sample: s, VelLow: velLow, VelHigh: min(velHigh, 127), Gain: 1}
	z.NumLayers++
	return i, nil
}

// AddRoundRobin appends a layer index to the round-robin cycle.
func (z *Zone) AddRoundRobin(layer int) error {
	if layer < 0 || layer >= z.NumLayers {
		return fmt.Errorf("sampler: round-robin layer %d out of range", layer)
	}
	if z.NumRoundRobin >= MaxRoundRobin {
		return fmt.Errorf("sampler: round-robin cycle full (%d)", MaxRoundRobin)
	}
	z.RoundRobin[z.NumRoundRobin] = layer
	z.NumRoundRobin++
	return nil
}

// Validate checks the key range and every layer's sample. Sample loops are
// repaired in place.
func (z *Zone) Validate() error {
	if z.KeyLow < 0 || z.KeyHigh > 127 || z.KeyLow > z.RootKey || z.RootKey > z.KeyHigh {
		return fmt.Errorf("%w: low %d root %d high %d", ErrKeyRange, z.KeyLow, z.RootKey, z.KeyHigh)
	}
	if z.NumLayers == 0 {
		return fmt.Errorf("zone %q: %w", z.Name, ErrEmptySample)
	}
	for i := 0; i < z.NumLayers; i++ {
		if err := z.Layers[i].Sample.Validate(); err != nil {
			return fmt.Errorf("zone %q layer %d: %w", z.Name, i, err)
		}
	}
	if z.ReleaseSample != nil {
		if err := z.ReleaseSample.Validate(); err != nil {
			return fmt.Errorf("zone %q release sample: %w", z.Name, err)
		}
	}
	if !(z.SampleEnd > z.SampleStart) {
		z.SampleStart, z.SampleEnd = 0, 1
	}
	z.SampleStart = max(0, min(z.SampleStart, 1))
	z.SampleEnd = max(z.SampleStart, min(z.SampleEnd, 1))
	return nil
}

// Contains reports whether note falls in the key range.
func (z *Zone) Contains(note int) bool {
	return note >= z.KeyLow && note <= z.KeyHigh
}

// HasLayer reports whether any layer covers vel.
func (z *Zone) HasLayer(vel uint8) bool {
	return z.layerFor(vel) >= 0
}

func (z *Zone) layerFor(vel uint8) int {
	for i := 0; i < z.NumLayers; i++ {
		if z.Layers[i].contains(vel) {
			return i
		}
	}
	return -1
}

// NextRoundRobin returns the next layer of the round-robin cycle. The
// cursor is advanced with a single fetch-add so concurrent notes never
// skip or repeat an entry. It returns -1 without a cycle.
func (z *Zone) NextRoundRobin() int {
	n := z.NumRoundRobin
	if n <= 0 {
		return -1
	}
	c := z.rrCursor.Add(1) - 1
	return z.RoundRobin[int(c%uint32(n))]
}

// LayerSelection is the result of SelectLayer: up to two layers with
// equal-power weights.
type LayerSelection struct {
	A, B             int
	WeightA, WeightB float64
}

// SelectLayer picks the layer for vel. Inside the crossfade region around
// the boundary of two adjacent layers both are returned, blended by the
// distance to the boundary. A matched layer that belongs to the round-robin
// cycle is replaced by the next entry of the cycle.
func (z *Zone) SelectLayer(vel uint8) LayerSelection {
	sel := LayerSelection{A: -1, B: -1}
	i := z.layerFor(vel)
	if i < 0 {
		if z.NumLayers == 0 {
			return sel
		}
		i = 0
	}
	sel.A, sel.WeightA = i, 1

	if z.VelocityCrossfade > 0 {
		l := &z.Layers[i]
		xf := z.VelocityCrossfade * float64(int(l.VelHigh)-int(l.VelLow)+1) / 2
		v := float64(vel)
		if j := z.adjacent(int(l.VelHigh) + 1); j >= 0 && v > float64(l.VelHigh)+0.5-xf {
			// blending up into the next layer
			t := (v - (float64(l.VelHigh) + 0.5 - xf)) / (2 * xf)
			sel.B = j
			sel.WeightA, sel.WeightB = mix.EqualPower(t)
		} else if j := z.adjacentBelow(int(l.VelLow) - 1); j >= 0 && v < float64(l.VelLow)-0.5+xf {
			t := (v - (float64(l.VelLow) - 0.5 - xf)) / (2 * xf)
			sel.B = j
			sel.WeightB, sel.WeightA = mix.EqualPower(t)
		}
	}

	if z.inRoundRobin(sel.A) {
		if next := z.NextRoundRobin(); next >= 0 {
			sel.A = next
		}
	}
	return sel
}

func (z *Zone) adjacent(velLow int) int {
	for i := 0; i < z.NumLayers; i++ {
		if int(z.Layers[i].VelLow) == velLow {
			return i
		}
	}
	return -1
}

func (z *Zone) adjacentBelow(velHigh int) int {
	for i := 0; i < z.NumLayers; i++ {
		if int(z.Layers[i].VelHigh) == velHigh {
			return i
		}
	}
	return -1
}

func (z *Zone) inRoundRobin(layer int) bool {
	for i := 0; i < z.NumRoundRobin; i++ {
		if z.RoundRobin[i] == layer {
			return true
		}
	}
	return false
}

// Zones is an immutable snapshot of the store.
type Zones struct {
	zones [MaxZones]*Zone
}

// Zone returns the zone at index i or nil.
func (zs *Zones) Zone(i int) *Zone {
	if zs == nil || i < 0 || i >= MaxZones {
		return nil
	}
	return zs.zones[i]
}

// Find returns the index of the first enabled zone, in index order, whose
// key range holds note and that has a layer for vel. It returns -1 when no
// zone matches.
func (zs *Zones) Find(note int, vel uint8) int {
	if zs == nil {
		return -1
	}
	for i, z := range zs.zones {
		if z != nil && z.Enabled && z.Contains(note) && z.HasLayer(vel) {
			return i
		}
	}
	return -1
}

// Count returns the number of occupied slots.
func (zs *Zones) Count() int {
	if zs == nil {
		return 0
	}
	n := 0
	for _, z := range zs.zones {
		if z != nil {
			n++
		}
	}
	return n
}

// Store holds the zone map. Writers copy the current snapshot, modify the
// copy and publish it atomically; the audio thread loads the snapshot once
// per block and never blocks.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Zones]
}

// NewStore creates an empty store.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Zones{})
	return s
}

// Snapshot returns the published zones.
func (s *Store) Snapshot() *Zones {
	return s.current.Load()
}

// Set validates z and publishes it at index i. An invalid zone is stored
// disabled so the slot stays silent.
func (s *Store) Set(i int, z *Zone) error {
	if i < 0 || i >= MaxZones {
		return fmt.Errorf("%w: index %d", ErrZoneLimit, i)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(i, z)
}

// Add stores z in the first free slot and returns its index.
func (s *Store) Add(z *Zone) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.current.Load().zones {
		if cur == nil {
			return i, s.setLocked(i, z)
		}
	}
	return -1, ErrZoneLimit
}

func (s *Store) setLocked(i int, z *Zone) error {
	err := z.Validate()
	if err != nil {
		z.Enabled = false
	}
	next := *s.current.Load()
	next.zones[i] = z
	s.current.Store(&next)
	return err
}

// Clear removes the zone at index i.
func (s *Store) Clear(i int) {
	if i < 0 || i >= MaxZones {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := *s.current.Load()
	next.zones[i] = nil
	s.current.Store(&next)
}

// ClearAll removes every zone.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&Zones{})
}
