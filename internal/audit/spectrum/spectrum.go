// Package spectrum computes windowed magnitude spectra and their peak frequency.
package spectrum

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"

	"github.com/farcloser/phonometer/internal/audit/shared"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

var (
	ErrInvalidSize       = errors.New("invalid fft size")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
)

type Options struct {
	FFTSize    int // default 4096
	WindowsMax int // windows averaged by Summarize, default 50
}

func DefaultOptions() Options {
	return Options{
		FFTSize:    4096,
		WindowsMax: 50,
	}
}

// Spectrum is the single-sided magnitude spectrum of one window, normalized so a full-scale sine reads 1.
type Spectrum struct {
	Magnitudes []float64
	BinHz      float64
	PeakHz     float64
}

// Analyzer reuses FFT plans and buffers across windows of one size. It is not safe for concurrent use.
type Analyzer struct {
	sampleRate int
	fft        *fourier.FFT
	taper      []float64
	gain       float64
	in         []float64
	coeffs     []complex128
}

func NewAnalyzer(sampleRate, fftSize int) (*Analyzer, error) {
	if fftSize < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, fftSize)
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	ones := make([]float64, fftSize)
	floats.AddConst(1, ones)
	taper := window.BlackmanHarris(ones)

	return &Analyzer{
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		taper:      taper,
		gain:       floats.Sum(taper) / 2,
		in:         make([]float64, fftSize),
		coeffs:     make([]complex128, fftSize/2+1),
	}, nil
}

// Size is the FFT length.
func (a *Analyzer) Size() int {
	return len(a.in)
}

// BinHz is the frequency resolution.
func (a *Analyzer) BinHz() float64 {
	return float64(a.sampleRate) / float64(len(a.in))
}

// Magnitudes transforms the window of samples ending at position into dst, which must hold Size()/2+1 values.
// Samples before the start of the channel are zero.
func (a *Analyzer) Magnitudes(dst []float64, channel []float32, position int) {
	size := len(a.in)
	end := min(max(position, 0), len(channel))
	start := end - size

	for i := range size {
		idx := start + i
		if idx < 0 {
			a.in[i] = 0

			continue
		}

		a.in[i] = float64(channel[idx]) * a.taper[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.in)

	for i, c := range a.coeffs {
		dst[i] = math.Hypot(real(c), imag(c)) / a.gain
	}
}

// PeakHz returns the loudest bin's frequency, refined by parabolic interpolation against its neighbors.
func PeakHz(magnitudes []float64, binHz float64) float64 {
	if len(magnitudes) == 0 {
		return 0
	}

	peak := floats.MaxIdx(magnitudes)
	if peak == 0 || peak >= len(magnitudes)-1 {
		return float64(peak) * binHz
	}

	left, center, right := magnitudes[peak-1], magnitudes[peak], magnitudes[peak+1]

	denominator := left - 2*center + right
	if denominator == 0 {
		return float64(peak) * binHz
	}

	offset := 0.5 * (left - right) / denominator

	return (float64(peak) + offset) * binHz
}

// Analyze returns the spectrum of the fftSize samples ending at position.
func Analyze(channel []float32, sampleRate, fftSize, position int) (*Spectrum, error) {
	analyzer, err := NewAnalyzer(sampleRate, fftSize)
	if err != nil {
		return nil, err
	}

	magnitudes := make([]float64, fftSize/2+1)
	analyzer.Magnitudes(magnitudes, channel, position)

	return &Spectrum{
		Magnitudes: magnitudes,
		BinHz:      analyzer.BinHz(),
		PeakHz:     PeakHz(magnitudes, analyzer.BinHz()),
	}, nil
}

// Summarize averages spectra over evenly spaced windows of both channels.
func Summarize(ch *pcm.Channels, sampleRate int, opts Options) (*types.SpectrumResult, error) {
	defaults := DefaultOptions()
	if opts.FFTSize == 0 {
		opts.FFTSize = defaults.FFTSize
	}

	if opts.WindowsMax <= 0 {
		opts.WindowsMax = defaults.WindowsMax
	}

	analyzer, err := NewAnalyzer(sampleRate, opts.FFTSize)
	if err != nil {
		return nil, err
	}

	result := &types.SpectrumResult{
		FFTSize: opts.FFTSize,
		BinHz:   analyzer.BinHz(),
	}

	positions := windowPositions(ch.Len(), opts.FFTSize, opts.WindowsMax)
	if len(positions) == 0 {
		return result, nil
	}

	binCount := opts.FFTSize/2 + 1
	leftSum := make([]float64, binCount)
	rightSum := make([]float64, binCount)
	scratch := make([]float64, binCount)

	for _, pos := range positions {
		end := pos + opts.FFTSize

		analyzer.Magnitudes(scratch, ch.Left, end)
		floats.Add(leftSum, scratch)

		analyzer.Magnitudes(scratch, ch.Right, end)
		floats.Add(rightSum, scratch)
	}

	scale := 1 / float64(len(positions))
	floats.Scale(scale, leftSum)
	floats.Scale(scale, rightSum)

	result.Windows = len(positions)
	result.PeakLeftHz = PeakHz(leftSum, result.BinHz)
	result.PeakRightHz = PeakHz(rightSum, result.BinHz)
	result.CentroidLeftHz = calculateCentroid(leftSum, result.BinHz)
	result.CentroidRightHz = calculateCentroid(rightSum, result.BinHz)
	result.Left = toDb(leftSum)
	result.Right = toDb(rightSum)

	return result, nil
}

// windowPositions returns up to maxWindows evenly spaced window starts covering the sequence.
func windowPositions(frames, size, maxWindows int) []int {
	if frames < size || size <= 0 {
		return nil
	}

	available := frames - size
	count := min(maxWindows, available/size+1)

	if count <= 1 {
		return []int{0}
	}

	positions := make([]int, count)
	for i := range positions {
		positions[i] = i * available / (count - 1)
	}

	return positions
}

func calculateCentroid(magnitude []float64, binHz float64) float64 {
	var weightedSum, totalMag float64

	for i, mag := range magnitude {
		weightedSum += float64(i) * binHz * mag
		totalMag += mag
	}

	if totalMag == 0 {
		return 0
	}

	return weightedSum / totalMag
}

func toDb(magnitude []float64) []float64 {
	db := make([]float64, len(magnitude))
	for i, m := range magnitude {
		db[i] = shared.AmplitudeDb(m, shared.SilenceDb)
	}

	return db
}
