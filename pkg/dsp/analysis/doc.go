// Package analysis provides level metering and spectral analysis.
//
// Level Metering:
//   - LevelMeter runs on the audio thread (peak with hold and decay, RMS)
//     and publishes its readings through atomics
//   - CorrelationMeter tracks stereo phase correlation the same way
//
// Spectral Analysis:
//   - SpectrumAnalyzer runs on the UI side, fed from a lock-free scope ring
//   - Exponential averaging and peak hold
//   - Octave band grouping
package analysis
