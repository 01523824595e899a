package plugin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
)

// MaxInstances is the number of instances that can be registered at once.
const MaxInstances = 256

// ErrRegistryFull is returned by Register when every slot is taken.
var ErrRegistryFull = errors.New("plugin: instance registry full")

// Handles are opaque to C: generation<<16 | slot+1. A stale handle from a
// destroyed instance never matches the slot's new occupant.
var (
	slots      [MaxInstances]atomic.Pointer[Instance]
	registerMu sync.Mutex
	generation uintptr
)

// Register stores in and returns its handle. Registering an instance twice
// returns the existing handle.
func Register(in *Instance) (uintptr, error) {
	registerMu.Lock()
	defer registerMu.Unlock()

	if h := in.handle.Load(); h != 0 {
		return h, nil
	}
	for i := range slots {
		if slots[i].Load() != nil {
			continue
		}
		generation++
		h := (generation&0xFFFF)<<16 | uintptr(i+1)
		in.handle.Store(h)
		slots[i].Store(in)
		return h, nil
	}
	return 0, fmt.Errorf("%w (%d)", ErrRegistryFull, MaxInstances)
}

// Lookup resolves a handle. It takes no lock and is safe on the audio thread.
func Lookup(h uintptr) *Instance {
	i := int(h&0xFFFF) - 1
	if i < 0 || i >= MaxInstances {
		return nil
	}
	in := slots[i].Load()
	if in == nil || in.handle.Load() != h {
		return nil
	}
	return in
}

// Unregister removes the instance behind h and returns it.
func Unregister(h uintptr) *Instance {
	registerMu.Lock()
	defer registerMu.Unlock()

	in := Lookup(h)
	if in == nil {
		return nil
	}
	slots[int(h&0xFFFF)-1].Store(nil)
	in.handle.Store(0)
	return in
}

// Recover stops a panic at the C boundary and logs it. Call it deferred:
//
//	defer plugin.Recover(log, "echoel_process")
func Recover(log *debug.Logger, operation string) {
	if r := recover(); r != nil {
		log.Error("panic in %s: %v", operation, r)
	}
}
