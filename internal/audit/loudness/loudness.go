package loudness

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/farcloser/phonometer/internal/audit/shared"
	"github.com/farcloser/phonometer/internal/block"
	"github.com/farcloser/phonometer/internal/filter"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

var ErrInvalidSampleRate = errors.New("invalid sample rate")

const (
	// Offset in the BS.1770 loudness formula.
	offset = -0.691
	// AbsoluteGate excludes near-silent blocks from integrated loudness.
	AbsoluteGate = -70.0
)

type Options struct {
	MomentarySeconds float64 // default 0.4
	ShortTermSeconds float64 // default 3
	OverlapPercent   float64 // momentary overlap, 0 is valid
}

func DefaultOptions() Options {
	return Options{
		MomentarySeconds: 0.4,
		ShortTermSeconds: 3,
		OverlapPercent:   75,
	}
}

// Lufs converts a summed channel energy to loudness.
func Lufs(energy float64) float64 {
	return offset + 10*math.Log10(math.Max(energy, shared.EnergyFloor))
}

// Energy is the inverse of Lufs.
func Energy(lufs float64) float64 {
	return math.Pow(10, (lufs-offset)/10)
}

// Analyze K-weights both channels and measures momentary, short-term and integrated loudness.
func Analyze(ch *pcm.Channels, sampleRate int, opts Options) (*types.LoudnessResult, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	defaults := DefaultOptions()
	if opts.MomentarySeconds <= 0 {
		opts.MomentarySeconds = defaults.MomentarySeconds
	}

	if opts.ShortTermSeconds <= 0 {
		opts.ShortTermSeconds = defaults.ShortTermSeconds
	}

	// One lookup per load so an unsupported rate warns once.
	highPass, shelf, exact := filter.KWeighting(sampleRate)
	left := filter.NewChain(highPass, shelf).ProcessSequence(ch.Left)
	right := filter.NewChain(highPass, shelf).ProcessSequence(ch.Right)

	momentaryWindow := block.NewWindow(opts.MomentarySeconds, opts.OverlapPercent, sampleRate)
	shortTermWindow := block.NewWindow(opts.ShortTermSeconds, 0, sampleRate)

	momentary := measure(left, right, momentaryWindow)
	shortTerm := measure(left, right, shortTermWindow)

	return &types.LoudnessResult{
		Momentary:                momentary,
		ShortTerm:                shortTerm,
		MomentaryLength:          momentaryWindow.Length,
		MomentaryHop:             momentaryWindow.Hop,
		ShortTermLength:          shortTermWindow.Length,
		IntegratedLUFS:           integrated(shortTerm),
		MomentaryMax:             maxLufs(momentary),
		ShortTermMax:             maxLufs(shortTerm),
		LoudnessRange:            calculateLoudnessRange(shortTerm),
		CoefficientsApproximated: !exact,
		Frames:                   uint64(ch.Len()), //nolint:gosec // lengths are non-negative
	}, nil
}

func measure(left, right []float64, w block.Window) []types.LoudnessBlock {
	count := block.Count(len(left), w)
	blocks := make([]types.LoudnessBlock, count)

	for b := range count {
		start := w.Start(b)
		energyLeft := block.MeanSquare(left, start, w.Length)
		energyRight := block.MeanSquare(right, start, w.Length)

		blocks[b] = types.LoudnessBlock{
			Index:       b,
			EnergyLeft:  energyLeft,
			EnergyRight: energyRight,
			LUFS:        Lufs(energyLeft + energyRight),
		}
	}

	return blocks
}

func integrated(blocks []types.LoudnessBlock) float64 {
	var (
		sum   float64
		count int
	)

	for _, b := range blocks {
		if b.LUFS > AbsoluteGate {
			sum += Energy(b.LUFS)
			count++
		}
	}

	if count == 0 {
		return types.LoudnessFloor
	}

	return Lufs(sum / float64(count))
}

func maxLufs(blocks []types.LoudnessBlock) float64 {
	peak := types.LoudnessFloor
	for _, b := range blocks {
		peak = math.Max(peak, b.LUFS)
	}

	return peak
}

func calculateLoudnessRange(blocks []types.LoudnessBlock) float64 {
	var lufsValues []float64

	for _, b := range blocks {
		if b.LUFS > AbsoluteGate {
			lufsValues = append(lufsValues, b.LUFS)
		}
	}

	if len(lufsValues) < 2 {
		return 0
	}

	// Relative gate at -20 LU below the absolute-gated mean
	var sum float64
	for _, l := range lufsValues {
		sum += l
	}

	relativeThreshold := sum/float64(len(lufsValues)) - 20

	var gated []float64

	for _, l := range lufsValues {
		if l > relativeThreshold {
			gated = append(gated, l)
		}
	}

	if len(gated) < 2 {
		return 0
	}

	sort.Float64s(gated)
	low := gated[int(float64(len(gated))*0.10)]
	high := gated[min(int(float64(len(gated))*0.95), len(gated)-1)]

	return high - low
}
