// Package block splits sample sequences into fixed-length, possibly overlapping windows.
package block

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
)

// Window describes a block length and the hop between consecutive block starts, in samples.
// Hop is always at least 1.
type Window struct {
	Length int
	Hop    int
}

// NewWindow derives a window from a duration and an overlap percentage (0 to <100).
func NewWindow(seconds, overlapPercent float64, sampleRate int) Window {
	length := max(int(math.Round(seconds*float64(sampleRate))), 1)

	return WithOverlap(length, overlapPercent)
}

// WithOverlap builds a window of a given length in samples.
func WithOverlap(length int, overlapPercent float64) Window {
	length = max(length, 1)
	overlapPercent = math.Max(0, math.Min(overlapPercent, 99.999))
	hop := max(int(math.Round(float64(length)*(1-overlapPercent/100))), 1)

	return Window{Length: length, Hop: hop}
}

// Count returns the number of blocks needed for a sequence of n samples.
// Sequences shorter than one block still yield a single zero-padded block.
// Otherwise blocks continue until one reaches the end of the sequence, so that
// with Hop <= Length every sample belongs to at least one block.
func Count(n int, w Window) int {
	if n <= w.Length {
		return 1
	}

	return 1 + (n-w.Length+w.Hop-1)/w.Hop
}

// Start returns the first sample index of block b.
func (w Window) Start(b int) int {
	return b * w.Hop
}

// Fill copies the block starting at start into dst (len(dst) is the block length), zero padding past the end.
func Fill(dst, seq []float64, start int) {
	n := 0
	if start < len(seq) {
		n = copy(dst, seq[start:])
	}

	clear(dst[n:])
}

// view returns the in-range portion of a block.
func view(seq []float64, start, length int) []float64 {
	if start >= len(seq) || start < 0 {
		return nil
	}

	return seq[start:min(start+length, len(seq))]
}

// Energy returns the sum of squares of a block. Samples past the end count as zero.
func Energy(seq []float64, start, length int) float64 {
	v := view(seq, start, length)

	return vecmath.DotProduct(v, v)
}

// MeanSquare returns Energy divided by the full block length.
func MeanSquare(seq []float64, start, length int) float64 {
	if length <= 0 {
		return 0
	}

	return Energy(seq, start, length) / float64(length)
}

// Peak returns the largest absolute sample in a block.
func Peak(seq []float64, start, length int) float64 {
	v := view(seq, start, length)
	if len(v) == 0 {
		return 0
	}

	return vecmath.MaxAbs(v)
}

// Product returns the sum of a[i]*b[i] over a block.
func Product(a, b []float64, start, length int) float64 {
	va := view(a, start, length)
	vb := view(b, start, length)
	n := min(len(va), len(vb))

	return vecmath.DotProduct(va[:n], vb[:n])
}
