package analysis

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
)

// SpectrumAnalyzer provides spectral analysis of scope samples. It runs on
// the UI side; the audio thread only fills the scope ring.
type SpectrumAnalyzer struct {
	fftSize      int
	sampleRate   float64
	fft          *fourier.FFT
	window       []float64
	buffer       []float64
	frame        []float64
	coeffs       []complex128
	writePos     int
	hopSize      int
	averaging    AveragingMode
	smoothing    float64
	outputBuffer []float64
	mu           sync.Mutex
}

// AveragingMode defines how the spectrum is averaged over time
type AveragingMode int

const (
	NoAveraging AveragingMode = iota
	ExponentialAveraging
	PeakHold
)

// NewSpectrumAnalyzer creates a Hann-windowed analyzer; fftSize should be a power of two.
func NewSpectrumAnalyzer(fftSize int, sampleRate float64) *SpectrumAnalyzer {
	win := window.Generate(window.TypeHann, fftSize, window.WithPeriodic())
	// amplitude normalization: a full-scale sine reads 1.0 at its bin
	sum := 0.0
	for _, w := range win {
		sum += w
	}
	for i := range win {
		win[i] *= 2 / sum
	}
	return &SpectrumAnalyzer{
		fftSize:      fftSize,
		sampleRate:   sampleRate,
		fft:          fourier.NewFFT(fftSize),
		window:       win,
		buffer:       make([]float64, fftSize),
		frame:        make([]float64, fftSize),
		coeffs:       make([]complex128, fftSize/2+1),
		hopSize:      fftSize / 2,
		smoothing:    0.8,
		outputBuffer: make([]float64, fftSize/2+1),
	}
}

// SetAveraging sets the averaging mode
func (sa *SpectrumAnalyzer) SetAveraging(mode AveragingMode) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	sa.averaging = mode
}

// SetSmoothing sets the smoothing factor for exponential averaging (0-1)
func (sa *SpectrumAnalyzer) SetSmoothing(smoothing float64) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	if smoothing >= 0 && smoothing <= 1 {
		sa.smoothing = smoothing
	}
}

// Process adds samples and returns true when a new spectrum is available
func (sa *SpectrumAnalyzer) Process(samples []float32) bool {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	ready := false
	for _, s := range samples {
		sa.buffer[sa.writePos] = float64(s)
		sa.writePos++
		if sa.writePos < sa.fftSize {
			continue
		}
		for i, x := range sa.buffer {
			sa.frame[i] = x * sa.window[i]
		}
		sa.coeffs = sa.fft.Coefficients(sa.coeffs, sa.frame)
		sa.applyAveraging()

		copy(sa.buffer, sa.buffer[sa.hopSize:])
		sa.writePos = sa.fftSize - sa.hopSize
		ready = true
	}
	return ready
}

func (sa *SpectrumAnalyzer) applyAveraging() {
	for i, c := range sa.coeffs {
		mag := cmplx.Abs(c)
		switch sa.averaging {
		case ExponentialAveraging:
			sa.outputBuffer[i] = sa.outputBuffer[i]*sa.smoothing + mag*(1-sa.smoothing)
		case PeakHold:
			sa.outputBuffer[i] = math.Max(sa.outputBuffer[i], mag)
		default:
			sa.outputBuffer[i] = mag
		}
	}
}

// GetSpectrum returns a copy of the current magnitude spectrum
func (sa *SpectrumAnalyzer) GetSpectrum() []float64 {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	result := make([]float64, len(sa.outputBuffer))
	copy(result, sa.outputBuffer)
	return result
}

// GetSpectrumDB returns the spectrum in decibels
func (sa *SpectrumAnalyzer) GetSpectrumDB() []float64 {
	spectrum := sa.GetSpectrum()
	for i, mag := range spectrum {
		spectrum[i] = ToDB(mag)
	}
	return spectrum
}

// GetFrequencyForBin returns the frequency corresponding to a bin index
func (sa *SpectrumAnalyzer) GetFrequencyForBin(bin int) float64 {
	return float64(bin) * sa.sampleRate / float64(sa.fftSize)
}

// GetBinForFrequency returns the bin index for a given frequency
func (sa *SpectrumAnalyzer) GetBinForFrequency(freq float64) int {
	return int(math.Round(freq * float64(sa.fftSize) / sa.sampleRate))
}

// GetPeakFrequency finds the frequency with the highest magnitude
func (sa *SpectrumAnalyzer) GetPeakFrequency() (float64, float64) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	maxMag := 0.0
	maxBin := 0
	for i := 1; i < len(sa.outputBuffer); i++ {
		if sa.outputBuffer[i] > maxMag {
			maxMag = sa.outputBuffer[i]
			maxBin = i
		}
	}
	return sa.GetFrequencyForBin(maxBin), maxMag
}

// GetOctaveBands returns the RMS magnitude of each octave band around centerFreqs
func (sa *SpectrumAnalyzer) GetOctaveBands(centerFreqs []float64) []float64 {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	bands := make([]float64, len(centerFreqs))
	for i, center := range centerFreqs {
		lower := sa.GetBinForFrequency(center / math.Sqrt2)
		upper := sa.GetBinForFrequency(center * math.Sqrt2)
		energy := 0.0
		count := 0
		for bin := max(lower, 0); bin <= upper && bin < len(sa.outputBuffer); bin++ {
			energy += sa.outputBuffer[bin] * sa.outputBuffer[bin]
			count++
		}
		if count > 0 {
			bands[i] = math.Sqrt(energy / float64(count))
		}
	}
	return bands
}

// Reset clears all buffers
func (sa *SpectrumAnalyzer) Reset() {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	clear(sa.buffer)
	clear(sa.outputBuffer)
	sa.writePos = 0
}

// StandardOctaveBands returns standard octave band center frequencies
func StandardOctaveBands() []float64 {
	return []float64{31.5, 63, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}
}
