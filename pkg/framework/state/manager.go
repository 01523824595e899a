// Package state serializes the parameter table into an opaque host blob.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/echoelmusic/ultrasampler/pkg/framework/param"
)

// Magic and Version open every blob. They are mirrored in echoel_plugin.h.
const (
	Magic   = "ECHO"
	Version = uint32(1)

	headerSize = 12 // magic + version + count
	entrySize  = 12 // u32 id + f64 value

	legacyEntrySize = 8 // u32 id + f32 value
)

var (
	// ErrBadMagic is returned for blobs that are neither the current nor the
	// legacy layout.
	ErrBadMagic = errors.New("state: unrecognized blob")
	// ErrTruncated is returned when the blob is shorter than its count says.
	ErrTruncated = errors.New("state: truncated blob")
	// ErrVersion is returned for blobs written by a newer format.
	ErrVersion = errors.New("state: unsupported version")
)

// Manager handles state saving and loading for one parameter registry
type Manager struct {
	registry *param.Registry
	scratch  []entry
}

type entry struct {
	id    uint32
	value float64
}

// NewManager creates a new state manager
func NewManager(registry *param.Registry) *Manager {
	return &Manager{registry: registry}
}

// Save writes the full parameter table:
//
//	"ECHO" | u32 version | u32 count | count × (u32 id, f64 value)
//
// All integers are little-endian and values are plain, so a round trip is exact.
func (m *Manager) Save(w io.Writer) error {
	params := m.registry.All()
	buf := make([]byte, headerSize+entrySize*len(params))
	copy(buf, Magic)
	binary.LittleEndian.PutUint32(buf[4:], Version)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(params)))

	off := headerSize
	for _, p := range params {
		binary.LittleEndian.PutUint32(buf[off:], p.ID)
		binary.LittleEndian.PutUint64(buf[off+4:], math.Float64bits(p.Value()))
		off += entrySize
	}

	_, err := w.Write(buf)
	return err
}

// Bytes returns the serialized state.
func (m *Manager) Bytes() []byte {
	var b bytes.Buffer
	_ = m.Save(&b) // bytes.Buffer writes do not fail
	return b.Bytes()
}

// Load reads a blob produced by Save, or the legacy
// [u32 count][(u32 id, f32 value)...] layout. Unknown IDs are skipped. The
// whole blob is decoded before any parameter changes, so a malformed blob
// leaves the table untouched.
func (m *Manager) Load(r io.Reader) error {
	blob, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("state: read: %w", err)
	}
	return m.LoadBytes(blob)
}

// LoadBytes is Load for an in-memory blob.
func (m *Manager) LoadBytes(blob []byte) error {
	entries, err := m.decode(blob)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if p := m.registry.Get(e.id); p != nil {
			p.SetValue(e.value)
		}
	}
	return nil
}

func (m *Manager) decode(blob []byte) ([]entry, error) {
	m.scratch = m.scratch[:0]

	if len(blob) >= 4 && string(blob[:4]) == Magic {
		if len(blob) < headerSize {
			return nil, ErrTruncated
		}
		version := binary.LittleEndian.Uint32(blob[4:])
		if version == 0 || version > Version {
			return nil, fmt.Errorf("%w: %d (max %d)", ErrVersion, version, Version)
		}
		count := int(binary.LittleEndian.Uint32(blob[8:]))
		if count < 0 || len(blob)-headerSize < count*entrySize {
			return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrTruncated, count, len(blob))
		}
		for i, off := 0, headerSize; i < count; i, off = i+1, off+entrySize {
			m.scratch = append(m.scratch, entry{
				id:    binary.LittleEndian.Uint32(blob[off:]),
				value: math.Float64frombits(binary.LittleEndian.Uint64(blob[off+4:])),
			})
		}
		return m.scratch, nil
	}

	if len(blob) < 4 {
		return nil, ErrBadMagic
	}
	count := int(binary.LittleEndian.Uint32(blob))
	if len(blob) != 4+count*legacyEntrySize {
		return nil, ErrBadMagic
	}
	for i, off := 0, 4; i < count; i, off = i+1, off+legacyEntrySize {
		m.scratch = append(m.scratch, entry{
			id:    binary.LittleEndian.Uint32(blob[off:]),
			value: float64(math.Float32frombits(binary.LittleEndian.Uint32(blob[off+4:]))),
		})
	}
	return m.scratch, nil
}
