package filter

import "log/slog"

// K-weighting coefficient sets. Only 44.1 and 48 kHz are exact.
//
//nolint:gochecknoglobals // coefficient tables
var (
	highPass48k = Coefficients{B0: 1, B1: -2, B2: 1, A1: -1.99004745483398, A2: 0.99007225036621}
	shelf48k    = Coefficients{
		B0: 1.5351722789171889, B1: -2.6917030820199477, B2: 1.1983529243618682,
		A1: -1.6906327554159912, A2: 0.7324548766751006,
	}

	highPass44k = Coefficients{B0: 1, B1: -2, B2: 1, A1: -1.98838142, A2: 0.98841517}
	shelf44k    = Coefficients{
		B0: 1.5270604978757836, B1: -2.6146232365796047, B2: 1.1432961778963153,
		A1: -1.6394317259680504, A2: 0.6951651651605447,
	}
)

// KWeighting returns the high-pass and high-shelf sections for a sample rate.
// Unsupported rates get the 48 kHz sections and exact = false.
func KWeighting(sampleRate int) (highPass, shelf Coefficients, exact bool) {
	switch sampleRate {
	case 48000:
		return highPass48k, shelf48k, true
	case 44100:
		return highPass44k, shelf44k, true
	default:
		slog.Warn("no k-weighting coefficients for sample rate, using 48 kHz set", "sample rate", sampleRate)

		return highPass48k, shelf48k, false
	}
}

// NewKWeightingChain returns a fresh chain: high-pass first, then the shelf.
func NewKWeightingChain(sampleRate int) (*Chain, bool) {
	highPass, shelf, exact := KWeighting(sampleRate)

	return NewChain(highPass, shelf), exact
}
