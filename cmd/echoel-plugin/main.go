// Command echoel-plugin builds the EchoelPluginCore C ABI as a shared
// library:
//
//	go build -buildmode=c-shared -o libechoel.so ./cmd/echoel-plugin
//
// Instances are handed to C as opaque handles from the plugin package's
// registry, never as Go pointers. Every export recovers from panics and
// reports failure through its return value. ECHOEL_LOG selects the log level
// (debug, info, warn, error, off); the default is warn.
package main

// #include <stdlib.h>
// #include "echoel_plugin.h"
import "C"

import (
	"os"
	"strings"
	"sync"
	"unsafe"

	"github.com/echoelmusic/ultrasampler/pkg/framework/debug"
	"github.com/echoelmusic/ultrasampler/pkg/plugin"
)

var log = newLogger()

func newLogger() *debug.Logger {
	l := debug.New(os.Stderr, "echoel-plugin", debug.DefaultFlags)
	l.SetLevel(debug.LogLevelWarn)
	if v, ok := os.LookupEnv("ECHOEL_LOG"); ok {
		level, err := debug.ParseLevel(v)
		if err != nil {
			l.Warn("ECHOEL_LOG: %v", err)
		} else {
			l.SetLevel(level)
		}
	}
	return l
}

func handleRef(h uintptr) C.EchoelPluginRef {
	return C.EchoelPluginRef(unsafe.Pointer(h))
}

func lookup(ref C.EchoelPluginRef) *plugin.Instance {
	if ref == nil {
		return nil
	}
	return plugin.Lookup(uintptr(unsafe.Pointer(ref)))
}

// C strings handed out by the library live as long as the process. The set
// of distinct strings is bounded by the descriptors and parameter tables.
var (
	cstringsMu sync.Mutex
	cstrings   = map[string]*C.char{}
	carrays    = map[string]**C.char{}
)

func cstring(s string) *C.char {
	cstringsMu.Lock()
	defer cstringsMu.Unlock()
	return cstringLocked(s)
}

func cstringLocked(s string) *C.char {
	if p, ok := cstrings[s]; ok {
		return p
	}
	p := C.CString(s)
	cstrings[s] = p
	return p
}

// cstringArray returns a NULL-terminated array of C strings.
func cstringArray(items []string) **C.char {
	if len(items) == 0 {
		return nil
	}
	key := strings.Join(items, "\x00")
	cstringsMu.Lock()
	defer cstringsMu.Unlock()
	if p, ok := carrays[key]; ok {
		return p
	}
	ptrSize := unsafe.Sizeof((*C.char)(nil))
	mem := C.calloc(C.size_t(len(items)+1), C.size_t(ptrSize))
	arr := unsafe.Slice((**C.char)(mem), len(items)+1)
	for k, s := range items {
		arr[k] = cstringLocked(s)
	}
	p := (**C.char)(mem)
	carrays[key] = p
	return p
}

// copyString writes s into a caller buffer of size bytes, truncating and
// always NUL-terminating.
func copyString(buf *C.char, size C.uint32_t, s string) {
	if buf == nil || size == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(buf)), int(size))
	n := copy(dst[:len(dst)-1], s)
	dst[n] = 0
}

func main() {}
