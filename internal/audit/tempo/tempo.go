// Package tempo estimates beats per minute from block loudness peaks.
package tempo

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/phonometer/internal/audit/shared"
	"github.com/farcloser/phonometer/internal/types"
)

// NoTempo is reported when detection fails.
const NoTempo = -1

const (
	// Intervals this close to the voted tempo's spacing take part in refinement.
	refineToleranceBlocks = 1.5
	refineToleranceRatio  = 0.04
)

type Options struct {
	BlockSize          int     // samples per RMS block, default 1024
	MinTempo           int     // default 60
	MaxTempo           int     // default 200
	SilenceThresholdDb float64 // default -40
	PeakWindowSeconds  float64 // default 0.3
	RequiredBeats      int     // beats projected during verification, default 3
	HigherMargin       float64 // a faster variant must beat the best score by this factor, default 1.1
	LowerMargin        float64 // a slower variant must beat the best score by this factor, default 1.2
}

func DefaultOptions() Options {
	return Options{
		BlockSize:          1024,
		MinTempo:           60,
		MaxTempo:           200,
		SilenceThresholdDb: -40,
		PeakWindowSeconds:  0.3,
		RequiredBeats:      3,
		HigherMargin:       1.1,
		LowerMargin:        1.2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.BlockSize <= 0 {
		o.BlockSize = d.BlockSize
	}

	if o.MinTempo <= 0 {
		o.MinTempo = d.MinTempo
	}

	if o.MaxTempo <= 0 {
		o.MaxTempo = d.MaxTempo
	}

	if o.SilenceThresholdDb == 0 {
		o.SilenceThresholdDb = d.SilenceThresholdDb
	}

	if o.PeakWindowSeconds <= 0 {
		o.PeakWindowSeconds = d.PeakWindowSeconds
	}

	if o.RequiredBeats <= 0 {
		o.RequiredBeats = d.RequiredBeats
	}

	if o.HigherMargin <= 0 {
		o.HigherMargin = d.HigherMargin
	}

	if o.LowerMargin <= 0 {
		o.LowerMargin = d.LowerMargin
	}

	return o
}

type detector struct {
	opts       Options
	sampleRate int
	levels     []float64 // dB per block
}

// Detect runs offline tempo detection over one channel.
func Detect(channel []float32, sampleRate int, opts Options) *types.TempoResult {
	opts = opts.withDefaults()

	result := &types.TempoResult{
		Tempo:     NoTempo,
		Candidate: NoTempo,
		BlockSize: opts.BlockSize,
	}

	if sampleRate <= 0 || len(channel) == 0 {
		return result
	}

	d := &detector{
		opts:       opts,
		sampleRate: sampleRate,
		levels:     BlockLevels(channel, opts.BlockSize),
	}

	result.Beats = d.peaks()
	if len(result.Beats) < 2 {
		return result
	}

	result.Candidate = d.refine(d.vote(result.Beats), result.Beats)

	tempo, confidence := d.verify(result.Candidate, result.Beats)
	if tempo == NoTempo {
		return result
	}

	result.Tempo = tempo
	result.Confidence = confidence
	result.Detected = true

	return result
}

// BlockLevels returns the RMS level in dB of consecutive blocks. The last block may be partial.
func BlockLevels(channel []float32, blockSize int) []float64 {
	count := (len(channel) + blockSize - 1) / blockSize
	levels := make([]float64, count)

	for b := range count {
		start := b * blockSize
		end := min(start+blockSize, len(channel))

		var sum float64
		for _, v := range channel[start:end] {
			sum += float64(v) * float64(v)
		}

		rms := math.Sqrt(sum / float64(end-start))
		levels[b] = 20 * math.Log10(math.Max(rms, 1e-6))
	}

	return levels
}

func (d *detector) blockSeconds() float64 {
	return float64(d.opts.BlockSize) / float64(d.sampleRate)
}

// peaks returns blocks above the silence threshold that no neighbor within the peak window exceeds.
func (d *detector) peaks() []int {
	window := max(1, int(math.Round(d.opts.PeakWindowSeconds/d.blockSeconds())))

	var beats []int

	for i := 0; i < len(d.levels); i++ {
		if d.levels[i] <= d.opts.SilenceThresholdDb {
			continue
		}

		isPeak := true

		for j := max(0, i-window); j <= min(len(d.levels)-1, i+window); j++ {
			if j != i && d.levels[j] > d.levels[i] {
				isPeak = false

				break
			}
		}

		if isPeak {
			beats = append(beats, i)
			i += window
		}
	}

	return beats
}

func (d *detector) clampTempo(bpm int) int {
	return min(max(bpm, d.opts.MinTempo), d.opts.MaxTempo)
}

// vote buckets successive beat intervals by tempo, weighting each by how similar the two beats are.
func (d *detector) vote(beats []int) int {
	scores := map[int]float64{}

	for i := 1; i < len(beats); i++ {
		bpm := d.clampTempo(int(math.Round(d.bpm(float64(beats[i] - beats[i-1])))))
		scores[bpm] += 1 - math.Abs(d.levels[beats[i]]-d.levels[beats[i-1]])/-d.opts.SilenceThresholdDb
	}

	candidate := NoTempo
	best := 0.0

	// Sorted so ties go to the slower tempo.
	tempos := make([]int, 0, len(scores))
	for bpm := range scores {
		tempos = append(tempos, bpm)
	}

	slices.Sort(tempos)

	for _, bpm := range tempos {
		if scores[bpm] > best {
			best = scores[bpm]
			candidate = bpm
		}
	}

	return candidate
}

// refine replaces a voted tempo by the mean of the beat intervals close to it.
// Intervals are whole blocks, so a single one rarely lands on the true tempo; their mean does.
func (d *detector) refine(candidate int, beats []int) int {
	if candidate == NoTempo {
		return candidate
	}

	spacing := d.spacing(candidate)
	tolerance := math.Max(refineToleranceBlocks, refineToleranceRatio*spacing)

	var intervals []float64

	for i := 1; i < len(beats); i++ {
		interval := float64(beats[i] - beats[i-1])
		if math.Abs(interval-spacing) <= tolerance {
			intervals = append(intervals, interval)
		}
	}

	if len(intervals) == 0 {
		return candidate
	}

	return d.clampTempo(int(math.Round(d.bpm(stat.Mean(intervals, nil)))))
}

// bpm converts a beat interval in blocks to beats per minute.
func (d *detector) bpm(blocks float64) float64 {
	return 60 / (blocks * d.blockSeconds())
}

// spacing is the fractional beat interval in blocks for a tempo.
func (d *detector) spacing(bpm int) float64 {
	return 60 / float64(bpm) / d.blockSeconds()
}

func (d *detector) verify(candidate int, beats []int) (int, float64) {
	if candidate == NoTempo {
		return NoTempo, 0
	}

	threshold := d.opts.SilenceThresholdDb
	first := -1

	for i, b := range beats {
		if d.levels[b] > threshold && (i == len(beats)-1 || d.levels[beats[i+1]] > threshold*0.8) {
			first = b

			break
		}
	}

	if first < 0 {
		return NoTempo, 0
	}

	best := candidate
	bestScore := d.evaluate(first, candidate)

	for variation := 1; variation <= 2; variation++ {
		if higher := candidate + variation; higher <= d.opts.MaxTempo {
			if score := d.evaluate(first, higher); score > bestScore*d.opts.HigherMargin {
				best, bestScore = higher, score
			}
		}

		if lower := candidate - variation; lower >= d.opts.MinTempo {
			if score := d.evaluate(first, lower); score > bestScore*d.opts.LowerMargin {
				best, bestScore = lower, score
			}
		}
	}

	return best, shared.Clamp01(bestScore / float64(d.opts.RequiredBeats))
}

// evaluate projects beats at a tempo from start and scores level similarity.
// Projections are rounded from the fractional interval, and the best match within one block is taken
// since beats are quantized to blocks. The score is the 1/n weighted mean similarity times the number
// of projected beats that fit in the clip.
func (d *detector) evaluate(start, bpm int) float64 {
	spacing := d.spacing(bpm)
	if spacing < 1 {
		return 0
	}

	reference := d.levels[start]

	var similarities, weights []float64

	for beat := 1; beat <= d.opts.RequiredBeats; beat++ {
		target := start + int(math.Round(float64(beat)*spacing))
		if target >= len(d.levels) {
			break
		}

		similarity := 0.0

		for j := target - 1; j <= min(target+1, len(d.levels)-1); j++ {
			diff := math.Abs(d.levels[j] - reference)
			similarity = math.Max(similarity, 1-shared.Clamp01(diff/-d.opts.SilenceThresholdDb))
		}

		similarities = append(similarities, similarity)
		weights = append(weights, 1/float64(beat))
	}

	if len(similarities) == 0 {
		return 0
	}

	return stat.Mean(similarities, weights) * float64(len(similarities))
}
