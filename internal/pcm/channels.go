// Package pcm turns interleaved sample streams into per-channel sequences.
package pcm

import (
	"errors"
	"fmt"
)

var ErrInvalidInput = errors.New("invalid pcm input")

// Channels holds the deinterleaved left and right sequences of one clip.
// Mono sources carry an independent copy of the single channel in Right.
type Channels struct {
	Left  []float32
	Right []float32
}

// Len returns the per-channel sample count.
func (c *Channels) Len() int {
	return len(c.Left)
}

// Deinterleave splits an interleaved buffer. Channel c of frame i is buffer[i*channels+c].
func Deinterleave(buffer []float32, channels int) (*Channels, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidInput, channels)
	}

	if len(buffer)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a multiple of %d channels", ErrInvalidInput, len(buffer), channels)
	}

	frames := len(buffer) / channels
	out := &Channels{
		Left:  make([]float32, frames),
		Right: make([]float32, frames),
	}

	if channels == 1 {
		copy(out.Left, buffer)
		copy(out.Right, buffer)

		return out, nil
	}

	for i := range frames {
		out.Left[i] = buffer[i*2]
		out.Right[i] = buffer[i*2+1]
	}

	return out, nil
}

// Interleave is the inverse of Deinterleave for stereo output.
func Interleave(left, right []float32) []float32 {
	frames := min(len(left), len(right))
	out := make([]float32, frames*2)

	for i := range frames {
		out[i*2] = left[i]
		out[i*2+1] = right[i]
	}

	return out
}

// Float64 widens a sequence for processing.
func Float64(seq []float32) []float64 {
	out := make([]float64, len(seq))
	for i, v := range seq {
		out[i] = float64(v)
	}

	return out
}
