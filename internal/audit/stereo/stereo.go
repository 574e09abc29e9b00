package stereo

import (
	"math"

	"github.com/farcloser/phonometer/internal/audit/shared"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/types"
)

// Analyze computes whole-clip stereo statistics: Pearson correlation, mono fold-down loss and balance.
func Analyze(ch *pcm.Channels) *types.StereoResult {
	frames := ch.Len()
	if frames == 0 {
		return &types.StereoResult{
			DifferenceDb: shared.SilenceDb,
			MonoSumDb:    shared.SilenceDb,
			StereoRmsDb:  shared.SilenceDb,
			LeftRmsDb:    shared.SilenceDb,
			RightRmsDb:   shared.SilenceDb,
		}
	}

	var sumL, sumR, sumLL, sumRR, sumLR float64

	var sumDiffSq, sumMonoSq float64

	for i := range frames {
		left := float64(ch.Left[i])
		right := float64(ch.Right[i])

		sumL += left
		sumR += right
		sumLL += left * left
		sumRR += right * right
		sumLR += left * right

		diff := left - right
		sumDiffSq += diff * diff

		mono := (left + right) / 2
		sumMonoSq += mono * mono
	}

	n := float64(frames)

	// Pearson correlation
	numerator := n*sumLR - sumL*sumR
	denominator := math.Sqrt((n*sumLL - sumL*sumL) * (n*sumRR - sumR*sumR))

	var correlation float64
	if denominator > 0 {
		correlation = shared.Clamp(numerator/denominator, -1, 1)
	}

	stereoDb := shared.AmplitudeDb(math.Sqrt((sumLL+sumRR)/2/n), shared.SilenceDb)
	monoDb := shared.AmplitudeDb(math.Sqrt(sumMonoSq/n), shared.SilenceDb)
	leftDb := shared.AmplitudeDb(math.Sqrt(sumLL/n), shared.SilenceDb)
	rightDb := shared.AmplitudeDb(math.Sqrt(sumRR/n), shared.SilenceDb)

	return &types.StereoResult{
		Correlation:    correlation,
		DifferenceDb:   shared.AmplitudeDb(math.Sqrt(sumDiffSq/n), shared.SilenceDb),
		MonoSumDb:      monoDb,
		StereoRmsDb:    stereoDb,
		CancellationDb: stereoDb - monoDb,
		LeftRmsDb:      leftDb,
		RightRmsDb:     rightDb,
		ImbalanceDb:    leftDb - rightDb,
		Frames:         uint64(frames), //nolint:gosec // lengths are non-negative
	}
}
