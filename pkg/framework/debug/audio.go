package debug

import (
	"fmt"
	"math"
)

// AnalysisResult contains the results of audio buffer analysis.
type AnalysisResult struct {
	Peak           float32
	RMS            float32
	DC             float32
	ClippedSamples int
	NaNCount       int
	ZeroCrossings  int
}

// Silent reports an RMS below -80 dBFS.
func (r AnalysisResult) Silent() bool { return r.RMS < 1e-4 }

// HasNaN reports NaN or Inf samples.
func (r AnalysisResult) HasNaN() bool { return r.NaNCount > 0 }

func (r AnalysisResult) String() string {
	return fmt.Sprintf("peak=%.3f rms=%.3f dc=%+.5f clipped=%d nan=%d zc=%d",
		r.Peak, r.RMS, r.DC, r.ClippedSamples, r.NaNCount, r.ZeroCrossings)
}

// AnalyzeBuffer measures peak, RMS, DC, clipping, non-finite samples and
// negative-to-positive zero crossings. Non-finite samples are excluded from
// the other statistics.
func AnalyzeBuffer(buffer []float32) AnalysisResult {
	var result AnalysisResult
	if len(buffer) == 0 {
		return result
	}

	var sum, sumSquares float64
	var last float32
	haveLast := false
	for _, sample := range buffer {
		f := float64(sample)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			result.NaNCount++
			continue
		}
		abs := float32(math.Abs(f))
		if abs > result.Peak {
			result.Peak = abs
		}
		if abs >= 0.999 {
			result.ClippedSamples++
		}
		sum += f
		sumSquares += f * f
		if haveLast && last < 0 && sample >= 0 {
			result.ZeroCrossings++
		}
		last, haveLast = sample, true
	}

	n := float64(len(buffer) - result.NaNCount)
	if n > 0 {
		result.RMS = float32(math.Sqrt(sumSquares / n))
		result.DC = float32(sum / n)
	}
	return result
}

// LogBufferStats logs a one-line summary of buffer at Info level.
func (l *Logger) LogBufferStats(buffer []float32, name string) {
	result := AnalyzeBuffer(buffer)
	if result.HasNaN() {
		l.Error("%s: %d non-finite samples", name, result.NaNCount)
	}
	l.Info("%s: %d samples, %s", name, len(buffer), result)
}
