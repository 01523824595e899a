package main

// #include <stdlib.h>
// #include <string.h>
// #include "echoel_plugin.h"
import "C"

import (
	"context"
	"unsafe"

	"github.com/echoelmusic/ultrasampler/pkg/framework/param"
	"github.com/echoelmusic/ultrasampler/pkg/plugin"
)

//export echoel_get_parameter_count
func echoel_get_parameter_count(ref C.EchoelPluginRef) (n C.uint32_t) {
	defer plugin.Recover(log, "echoel_get_parameter_count")
	if in := lookup(ref); in != nil {
		return C.uint32_t(in.ParamCount())
	}
	return 0
}

//export echoel_get_parameter_info
func echoel_get_parameter_info(ref C.EchoelPluginRef, index C.uint32_t, info *C.EchoelParamInfo) (ok C.bool) {
	defer plugin.Recover(log, "echoel_get_parameter_info")
	in := lookup(ref)
	if in == nil || info == nil {
		return false
	}
	p := in.ParamInfo(int(index))
	if p == nil {
		return false
	}
	info.id = C.uint32_t(p.ID)
	info.name = cstring(p.Name)
	info.short_name = cstring(p.ShortName)
	info.unit_label = cstring(p.Unit)
	info.group = cstring(p.Group)
	info._type = C.EchoelParamType(p.Kind)
	info.flags = C.uint32_t(paramFlags(p))
	info.min_value = C.double(p.Min)
	info.max_value = C.double(p.Max)
	info.default_value = C.double(p.DefaultValue)
	info.step_size = 0
	if p.StepCount > 0 {
		info.step_size = C.double((p.Max - p.Min) / float64(p.StepCount))
	}
	info.enum_count = C.uint32_t(len(p.Choices))
	info.enum_names = cstringArray(p.Choices)
	return true
}

// paramFlags maps parameter flags onto the ABI's bit layout.
func paramFlags(p *param.Parameter) uint32 {
	var f uint32
	if p.Flags&param.CanAutomate != 0 {
		f |= C.ECHOEL_PARAM_FLAG_AUTOMATABLE
	}
	if p.Flags&param.IsReadOnly != 0 {
		f |= C.ECHOEL_PARAM_FLAG_READONLY
	}
	if p.Flags&param.IsHidden != 0 {
		f |= C.ECHOEL_PARAM_FLAG_HIDDEN
	}
	if p.StepCount > 0 {
		f |= C.ECHOEL_PARAM_FLAG_STEPPED
	}
	if p.Flags&param.IsBypass != 0 {
		f |= C.ECHOEL_PARAM_FLAG_IS_BYPASS
	}
	if p.Flags&param.IsModulatable != 0 {
		f |= C.ECHOEL_PARAM_FLAG_MODULATABLE
	}
	return f
}

//export echoel_get_parameter
func echoel_get_parameter(ref C.EchoelPluginRef, id C.uint32_t) (v C.double) {
	defer plugin.Recover(log, "echoel_get_parameter")
	if in := lookup(ref); in != nil {
		return C.double(in.Param(uint32(id)))
	}
	return 0
}

//export echoel_set_parameter
func echoel_set_parameter(ref C.EchoelPluginRef, id C.uint32_t, value C.double) {
	defer plugin.Recover(log, "echoel_set_parameter")
	if in := lookup(ref); in != nil {
		in.SetParam(uint32(id), float64(value))
	}
}

//export echoel_format_parameter
func echoel_format_parameter(ref C.EchoelPluginRef, id C.uint32_t, buffer *C.char, size C.uint32_t) {
	defer plugin.Recover(log, "echoel_format_parameter")
	in := lookup(ref)
	if in == nil {
		copyString(buffer, size, "")
		return
	}
	copyString(buffer, size, in.FormatParam(uint32(id), in.Param(uint32(id))))
}

//export echoel_get_state
func echoel_get_state(ref C.EchoelPluginRef, data **C.uint8_t, size *C.uint32_t) (ok C.bool) {
	defer plugin.Recover(log, "echoel_get_state")
	in := lookup(ref)
	if in == nil || data == nil || size == nil {
		return false
	}
	blob := in.State()
	mem := C.malloc(C.size_t(max(len(blob), 1)))
	if mem == nil {
		return false
	}
	if len(blob) > 0 {
		C.memcpy(mem, unsafe.Pointer(&blob[0]), C.size_t(len(blob)))
	}
	*data = (*C.uint8_t)(mem)
	*size = C.uint32_t(len(blob))
	return true
}

//export echoel_set_state
func echoel_set_state(ref C.EchoelPluginRef, data *C.uint8_t, size C.uint32_t) (ok C.bool) {
	defer plugin.Recover(log, "echoel_set_state")
	in := lookup(ref)
	if in == nil || data == nil {
		return false
	}
	blob := C.GoBytes(unsafe.Pointer(data), C.int(size))
	return in.SetState(blob) == nil
}

//export echoel_free_state
func echoel_free_state(data *C.uint8_t) {
	if data != nil {
		C.free(unsafe.Pointer(data))
	}
}

//export echoel_get_preset_count
func echoel_get_preset_count(ref C.EchoelPluginRef) (n C.uint32_t) {
	defer plugin.Recover(log, "echoel_get_preset_count")
	if in := lookup(ref); in != nil {
		return C.uint32_t(in.PresetCount())
	}
	return 0
}

//export echoel_get_preset_name
func echoel_get_preset_name(ref C.EchoelPluginRef, index C.uint32_t) (name *C.char) {
	defer plugin.Recover(log, "echoel_get_preset_name")
	in := lookup(ref)
	if in == nil || int(index) >= in.PresetCount() {
		return nil
	}
	return cstring(in.PresetName(int(index)))
}

//export echoel_load_preset
func echoel_load_preset(ref C.EchoelPluginRef, index C.uint32_t) (ok C.bool) {
	defer plugin.Recover(log, "echoel_load_preset")
	in := lookup(ref)
	if in == nil || int(index) >= in.PresetCount() {
		return false
	}
	return in.LoadPreset(int(index)) == nil
}

//export echoel_sampler_load_wav
func echoel_sampler_load_wav(ref C.EchoelPluginRef, zone C.uint32_t, path *C.char) (ok C.bool) {
	defer plugin.Recover(log, "echoel_sampler_load_wav")
	in := lookup(ref)
	if in == nil || path == nil {
		return false
	}
	return in.LoadSampleFile(int(zone), C.GoString(path)) == nil
}

//export echoel_sampler_load_keymap
func echoel_sampler_load_keymap(ref C.EchoelPluginRef, path *C.char) (ok C.bool) {
	defer plugin.Recover(log, "echoel_sampler_load_keymap")
	in := lookup(ref)
	if in == nil || path == nil {
		return false
	}
	return in.LoadKeymap(context.Background(), C.GoString(path)) == nil
}
