package main

// #include <stdlib.h>
// #include "echoel_plugin.h"
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/echoelmusic/ultrasampler/pkg/bio"
	fw "github.com/echoelmusic/ultrasampler/pkg/framework/plugin"
	"github.com/echoelmusic/ultrasampler/pkg/framework/process"
	"github.com/echoelmusic/ultrasampler/pkg/midi"
	"github.com/echoelmusic/ultrasampler/pkg/plugin"
)

var (
	descOnce    sync.Once
	descriptors []*C.EchoelPluginDescriptor
)

func loadDescriptors() []*C.EchoelPluginDescriptor {
	descOnce.Do(func() {
		for _, info := range fw.Descriptors() {
			descriptors = append(descriptors, newDescriptor(info))
		}
	})
	return descriptors
}

func newDescriptor(info fw.Info) *C.EchoelPluginDescriptor {
	d := (*C.EchoelPluginDescriptor)(C.calloc(1, C.sizeof_EchoelPluginDescriptor))
	d.engine_id = C.EchoelEngineID(info.Engine)
	d.plugin_type = C.EchoelPluginType(info.Type)
	d.id = cstring(info.ID)
	d.name = cstring(info.Name)
	d.description = cstring(info.Description)
	d.version = cstring(info.Version)
	d.vendor = cstring(info.Vendor)
	d.url = cstring(info.URL)
	if in, err := plugin.New(info.Engine); err == nil {
		d.param_count = C.uint32_t(in.ParamCount())
	} else {
		log.Error("descriptor %s: %v", info.ID, err)
	}
	d.bus_config.input_channels = C.uint32_t(info.Inputs)
	d.bus_config.output_channels = C.uint32_t(info.Outputs)
	d.bus_config.sidechain_channels = C.uint32_t(info.Sidechain)
	d.au_type = C.uint32_t(info.AUType)
	d.au_subtype = C.uint32_t(info.AUSubtype)
	d.au_manufacturer = C.uint32_t(info.AUManufacturer)
	d.vst3_class_id = cstring(info.UIDString())
	d.clap_id = cstring(info.ID)
	d.clap_features = cstringArray(info.Features)
	d.aax_type_id = C.uint32_t(info.AAXTypeID)
	return d
}

//export echoel_get_plugin_count
func echoel_get_plugin_count() C.uint32_t {
	return C.uint32_t(len(fw.Descriptors()))
}

//export echoel_get_plugin_descriptor
func echoel_get_plugin_descriptor(index C.uint32_t) (d *C.EchoelPluginDescriptor) {
	defer plugin.Recover(log, "echoel_get_plugin_descriptor")
	all := loadDescriptors()
	if int(index) >= len(all) {
		return nil
	}
	return all[index]
}

//export echoel_get_descriptor_by_engine
func echoel_get_descriptor_by_engine(engine C.EchoelEngineID) (d *C.EchoelPluginDescriptor) {
	defer plugin.Recover(log, "echoel_get_descriptor_by_engine")
	for _, desc := range loadDescriptors() {
		if desc.engine_id == engine {
			return desc
		}
	}
	return nil
}

//export echoel_create
func echoel_create(engine C.EchoelEngineID) (ref C.EchoelPluginRef) {
	defer plugin.Recover(log, "echoel_create")
	in, err := plugin.New(fw.EngineID(engine), plugin.WithLogger(log))
	if err != nil {
		log.Warn("create: %v", err)
		return nil
	}
	h, err := plugin.Register(in)
	if err != nil {
		log.Error("create: %v", err)
		return nil
	}
	return handleRef(h)
}

//export echoel_destroy
func echoel_destroy(ref C.EchoelPluginRef) {
	defer plugin.Recover(log, "echoel_destroy")
	if in := plugin.Unregister(uintptr(unsafe.Pointer(ref))); in != nil {
		in.Deactivate()
	}
}

//export echoel_activate
func echoel_activate(ref C.EchoelPluginRef, sampleRate C.double, maxBlockSize C.uint32_t) (ok C.bool) {
	defer plugin.Recover(log, "echoel_activate")
	in := lookup(ref)
	if in == nil {
		return false
	}
	if err := in.Activate(float64(sampleRate), int(maxBlockSize)); err != nil {
		log.Warn("activate: %v", err)
		return false
	}
	return true
}

//export echoel_deactivate
func echoel_deactivate(ref C.EchoelPluginRef) {
	defer plugin.Recover(log, "echoel_deactivate")
	if in := lookup(ref); in != nil {
		in.Deactivate()
	}
}

//export echoel_reset
func echoel_reset(ref C.EchoelPluginRef) {
	defer plugin.Recover(log, "echoel_reset")
	if in := lookup(ref); in != nil {
		in.Reset()
	}
}

//export echoel_process
func echoel_process(ref C.EchoelPluginRef, input *C.EchoelAudioBuffer, output *C.EchoelAudioBuffer,
	midiIn *C.EchoelMIDIEventList, midiOut *C.EchoelMIDIEventList, context *C.EchoelProcessContext) {
	defer plugin.Recover(log, "echoel_process")
	in := lookup(ref)
	if in == nil || output == nil {
		return
	}
	if midiOut != nil {
		midiOut.count = 0
	}
	host := in.HostBuffers()
	host.Output = wrapChannels(host.Output, output)
	var inputs [][]float32
	if input != nil {
		host.Input = wrapChannels(host.Input, input)
		inputs = host.Input
	}
	var events []midi.Event
	if midiIn != nil && midiIn.events != nil && midiIn.count > 0 {
		// EchoelMIDIEvent and midi.Event share one layout.
		events = unsafe.Slice((*midi.Event)(unsafe.Pointer(midiIn.events)), int(midiIn.count))
	}
	tr := process.DefaultTransport(0)
	if context != nil {
		tr = transport(context)
	}
	_ = in.Process(inputs, host.Output, events, tr)
}

// wrapChannels points dst's slices at the C channel pointers without
// allocating. Channels beyond dst's capacity are ignored.
func wrapChannels(dst [][]float32, buf *C.EchoelAudioBuffer) [][]float32 {
	dst = dst[:0]
	if buf.channels == nil || buf.frame_count == 0 {
		return dst
	}
	n := int(buf.frame_count)
	for _, p := range unsafe.Slice(buf.channels, int(buf.channel_count)) {
		if p == nil || len(dst) == cap(dst) {
			break
		}
		dst = append(dst, unsafe.Slice((*float32)(unsafe.Pointer(p)), n))
	}
	return dst
}

func transport(c *C.EchoelProcessContext) process.Transport {
	return process.Transport{
		SampleRate:     float64(c.sample_rate),
		Tempo:          float64(c.tempo),
		PPQPosition:    float64(c.beat_position),
		BarPosition:    float64(c.bar_position),
		TimeSigNum:     int32(c.time_sig_num),
		TimeSigDen:     int32(c.time_sig_den),
		SamplePosition: int64(c.sample_position),
		Playing:        bool(c.is_playing),
		Recording:      bool(c.is_recording),
		Looping:        bool(c.is_looping),
		LoopStart:      float64(c.loop_start),
		LoopEnd:        float64(c.loop_end),
	}
}

//export echoel_get_audio_analysis
func echoel_get_audio_analysis(ref C.EchoelPluginRef, rms *C.float, peak *C.float, spectrum *C.float, spectrumSize *C.uint32_t) {
	defer plugin.Recover(log, "echoel_get_audio_analysis")
	if spectrumSize != nil {
		*spectrumSize = 0
	}
	in := lookup(ref)
	if in == nil {
		return
	}
	r, p := in.Analysis()
	if rms != nil {
		out := unsafe.Slice((*float32)(unsafe.Pointer(rms)), 2)
		out[0], out[1] = r[0], r[1]
	}
	if peak != nil {
		out := unsafe.Slice((*float32)(unsafe.Pointer(peak)), 2)
		out[0], out[1] = p[0], p[1]
	}
}

//export echoel_set_bio_data
func echoel_set_bio_data(ref C.EchoelPluginRef, data *C.EchoelBioData) {
	defer plugin.Recover(log, "echoel_set_bio_data")
	in := lookup(ref)
	if in == nil || data == nil {
		return
	}
	in.SetBioData(bio.Data{
		HeartRate:   float64(data.heart_rate),
		HRV:         float64(data.hrv),
		Coherence:   float64(data.coherence),
		Stress:      in.Engine().Bio().Snapshot().Stress,
		BreathPhase: float64(data.breath_phase),
		BreathRate:  float64(data.breath_rate),
		EEGAlpha:    float64(data.eeg_alpha),
		EEGBeta:     float64(data.eeg_beta),
		EEGTheta:    float64(data.eeg_theta),
		GSR:         float64(data.gsr),
		Temperature: float64(data.temperature),
		Valid:       bool(data.is_valid),
		Timestamp:   float64(data.timestamp),
	})
}

//export echoel_get_bio_modulation
func echoel_get_bio_modulation(ref C.EchoelPluginRef, filterMod, reverbMod, tempoMod, intensityMod *C.float) {
	defer plugin.Recover(log, "echoel_get_bio_modulation")
	m := bio.Modulate(bio.Neutral(), 0, bio.TargetAll)
	if in := lookup(ref); in != nil {
		m = in.BioModulation()
	}
	set := func(dst *C.float, v float64) {
		if dst != nil {
			*dst = C.float(v)
		}
	}
	set(filterMod, m.Filter)
	set(reverbMod, m.Reverb)
	set(tempoMod, m.Tempo)
	set(intensityMod, m.Intensity)
}

//export echoel_get_latency
func echoel_get_latency(ref C.EchoelPluginRef) (n C.uint32_t) {
	defer plugin.Recover(log, "echoel_get_latency")
	if in := lookup(ref); in != nil {
		return C.uint32_t(in.Latency())
	}
	return 0
}

//export echoel_get_tail_time
func echoel_get_tail_time(ref C.EchoelPluginRef) (seconds C.double) {
	defer plugin.Recover(log, "echoel_get_tail_time")
	if in := lookup(ref); in != nil {
		return C.double(in.TailTime())
	}
	return 0
}

//export echoel_get_api_version
func echoel_get_api_version() C.uint32_t {
	return fw.APIVersion
}

//export echoel_get_version_string
func echoel_get_version_string() *C.char {
	return cstring(fw.Version)
}

//export echoel_get_build_info
func echoel_get_build_info() *C.char {
	return cstring(fmt.Sprintf("echoel %s, %s %s/%s", fw.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH))
}
