// Package dsp holds the audio limits shared by the engine and the plugin bridge.
package dsp

// Host configuration limits accepted by Activate.
const (
	MinSampleRate = 8000.0
	MaxSampleRate = 384000.0

	MinBlockSize = 1
	MaxBlockSize = 8192
)

// Channel counts
const (
	Mono   = 1
	Stereo = 2
)

// ControlRate is the number of frames between modulation updates.
const ControlRate = 32

// ValidConfig reports whether a sample rate and block size can be activated.
func ValidConfig(sampleRate float64, maxBlock int) bool {
	return sampleRate >= MinSampleRate && sampleRate <= MaxSampleRate &&
		maxBlock >= MinBlockSize && maxBlock <= MaxBlockSize
}
