// Package plugin describes the plugin types the bridge can instantiate.
package plugin

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
)

// Vendor metadata shared by every descriptor.
const (
	APIVersion = 1
	Version    = "2.0.0"
	Vendor     = "Echoelmusic"
	VendorURL  = "https://echoelmusic.com"
)

// Type is the host-facing plugin category.
type Type uint32

const (
	TypeInstrument Type = iota
	TypeEffect
	TypeMIDI
	TypeAnalyzer
	TypeVideoEffect
)

// EngineID selects the engine behind a plugin handle. The values are part
// of the C ABI.
type EngineID uint32

const (
	EngineSynth   EngineID = 0
	EngineFX      EngineID = 1
	EngineSampler EngineID = 16
)

// Info contains plugin metadata
type Info struct {
	Engine      EngineID
	Type        Type
	ID          string // reverse-DNS identifier, e.g. "com.echoelmusic.sampler"
	Name        string
	Description string
	Version     string
	Vendor      string
	URL         string
	Category    string

	// Bus layout in channels.
	Inputs    int
	Outputs   int
	Sidechain int

	AUType         uint32
	AUSubtype      uint32
	AUManufacturer uint32
	AAXTypeID      uint32

	Features []string
}

// ErrEmptyID is returned by ValidateUID for a descriptor without an ID.
var ErrEmptyID = errors.New("plugin: empty plugin id")

// UID derives a stable 16-byte class ID from the string ID: a name-based
// (version 5 layout) hash, so renaming the display name never changes it.
func (i Info) UID() [16]byte {
	sum := sha1.Sum([]byte("echoel:" + i.ID))
	var uid [16]byte
	copy(uid[:], sum[:16])
	uid[6] = uid[6]&0x0F | 0x50
	uid[8] = uid[8]&0x3F | 0x80
	return uid
}

// UIDString is UID as 32 upper-case hex digits.
func (i Info) UIDString() string {
	uid := i.UID()
	return strings.ToUpper(hex.EncodeToString(uid[:]))
}

// ValidateUID checks that a UID can be derived.
func (i Info) ValidateUID() error {
	if strings.TrimSpace(i.ID) == "" {
		return ErrEmptyID
	}
	return nil
}

// FourCC packs a four-character code, big-endian. Shorter codes are padded
// with spaces.
func FourCC(code string) uint32 {
	var b [4]byte
	for k := range b {
		b[k] = ' '
		if k < len(code) {
			b[k] = code[k]
		}
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

var descriptors = []Info{
	{
		Engine:         EngineSampler,
		Type:           TypeInstrument,
		ID:             "com.echoelmusic.sampler",
		Name:           "EchoelSampler",
		Description:    "Bio-reactive multi-zone sampler with granular engine",
		Category:       "Instrument|Sampler",
		Outputs:        2,
		AUType:         FourCC("aumu"),
		AUSubtype:      FourCC("Esmp"),
		AUManufacturer: FourCC("Echo"),
		AAXTypeID:      0x45730003,
		Features:       []string{"instrument", "sampler", "bio-reactive"},
	},
	{
		Engine:         EngineFX,
		Type:           TypeEffect,
		ID:             "com.echoelmusic.fx",
		Name:           "EchoelFX",
		Description:    "Effects chain with bio-reactive reverb and filter",
		Category:       "Fx",
		Inputs:         2,
		Outputs:        2,
		Sidechain:      2,
		AUType:         FourCC("aufx"),
		AUSubtype:      FourCC("Eefx"),
		AUManufacturer: FourCC("Echo"),
		AAXTypeID:      0x45660001,
		Features:       []string{"audio-effect", "reverb", "delay", "compressor"},
	},
}

func init() {
	for k := range descriptors {
		d := &descriptors[k]
		d.Version = Version
		d.Vendor = Vendor
		d.URL = VendorURL
	}
}

// Descriptors returns every plugin type, in C ABI index order.
func Descriptors() []Info {
	return descriptors
}

// Lookup finds the descriptor for an engine.
func Lookup(engine EngineID) (Info, bool) {
	for _, d := range descriptors {
		if d.Engine == engine {
			return d, true
		}
	}
	return Info{}, false
}
