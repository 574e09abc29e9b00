package shared

import "math"

const (
	// SilenceDb is reported when an amplitude is zero or below representable levels.
	SilenceDb = -120.0
	// EnergyFloor guards log10 of summed energies.
	EnergyFloor = 1e-12
)

// AmplitudeDb converts a linear amplitude to dB, returning floor for anything at or below it.
func AmplitudeDb(amplitude, floor float64) float64 {
	if amplitude <= 0 {
		return floor
	}

	return max(20*math.Log10(amplitude), floor)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
