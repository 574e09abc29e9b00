// Package crest measures peak-to-RMS ratios over short overlapping windows.
package crest

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/farcloser/phonometer/internal/block"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

var ErrInvalidSampleRate = errors.New("invalid sample rate")

type Options struct {
	WindowSeconds  float64 // default 0.05
	OverlapPercent float64 // 0 is valid
}

func DefaultOptions() Options {
	return Options{
		WindowSeconds:  0.05,
		OverlapPercent: 75,
	}
}

// ToDb converts a crest factor to dB.
func ToDb(crest float64) float64 {
	return 20 * math.Log10(crest)
}

// Factor returns peak/rms, or 1 when rms is zero.
func Factor(peak, rms float64) float64 {
	if rms <= 0 {
		return 1
	}

	return peak / rms
}

// Analyze precomputes crest blocks for both channels.
func Analyze(ch *pcm.Channels, sampleRate int, opts Options) (*types.CrestResult, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = DefaultOptions().WindowSeconds
	}

	w := block.NewWindow(opts.WindowSeconds, opts.OverlapPercent, sampleRate)

	result := &types.CrestResult{
		WindowLength: w.Length,
		Hop:          w.Hop,
	}

	var wg sync.WaitGroup

	wg.Go(func() { result.Left = channel(pcm.Float64(ch.Left), w) })
	wg.Go(func() { result.Right = channel(pcm.Float64(ch.Right), w) })
	wg.Wait()

	var (
		sumDb float64
		count int
	)

	for i := range result.Left {
		result.MaxLeft = math.Max(result.MaxLeft, result.Left[i].Crest)
		result.MaxRight = math.Max(result.MaxRight, result.Right[i].Crest)

		for _, b := range []types.CrestBlock{result.Left[i], result.Right[i]} {
			if b.RMS > 0 {
				sumDb += ToDb(b.Crest)
				count++
			}
		}
	}

	result.ActiveBlocks = count
	if count > 0 {
		result.MeanDb = sumDb / float64(count)
	}

	return result, nil
}

func channel(seq []float64, w block.Window) []types.CrestBlock {
	count := block.Count(len(seq), w)
	blocks := make([]types.CrestBlock, count)

	for b := range count {
		start := w.Start(b)
		peak := block.Peak(seq, start, w.Length)
		rms := math.Sqrt(block.MeanSquare(seq, start, w.Length))

		blocks[b] = types.CrestBlock{Peak: peak, RMS: rms, Crest: Factor(peak, rms)}
	}

	return blocks
}
