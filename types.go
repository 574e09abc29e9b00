package phonometer

// Check represents a high-level analysis check.
type Check int

const (
	CheckLoudness Check = 1 << iota
	CheckDynamics
	CheckPhaseIssues
	CheckInvertedPhase
	CheckFakeStereo
	CheckChannelImbalance
	CheckTempo
	CheckSpectrum

	// Presets.
	ChecksDefects = CheckDynamics | CheckPhaseIssues | CheckInvertedPhase |
		CheckFakeStereo | CheckChannelImbalance

	ChecksMetrics = CheckLoudness | CheckTempo | CheckSpectrum

	ChecksAll = ChecksDefects | ChecksMetrics
)

// AllChecks lists the individual checks in bit order.
var AllChecks = []Check{
	CheckLoudness,
	CheckDynamics,
	CheckPhaseIssues,
	CheckInvertedPhase,
	CheckFakeStereo,
	CheckChannelImbalance,
	CheckTempo,
	CheckSpectrum,
}

func (c Check) String() string {
	switch c {
	case CheckLoudness:
		return "loudness"
	case CheckDynamics:
		return "dynamics"
	case CheckPhaseIssues:
		return "phase-issues"
	case CheckInvertedPhase:
		return "inverted-phase"
	case CheckFakeStereo:
		return "fake-stereo"
	case CheckChannelImbalance:
		return "channel-imbalance"
	case CheckTempo:
		return "tempo"
	case CheckSpectrum:
		return "spectrum"
	}

	return "unknown"
}

// Severity indicates how bad a detected issue is.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "no issue"
	case SeverityMild:
		return "mild"
	case SeverityModerate:
		return "moderate"
	case SeveritySevere:
		return "severe"
	}

	return "unknown"
}

// Issue represents a check outcome. Informational checks are never Detected.
type Issue struct {
	Check      Check
	Detected   bool
	Severity   Severity
	Summary    string  // human-readable summary
	Confidence float64 // 0.0-1.0
}

// Bands defines severity thresholds for a check. Direction is implicit:
// if Mild < Severe, higher values are worse (ascending, e.g. dB imbalance).
// If Mild > Severe, lower values are worse (descending, e.g. correlation).
type Bands struct {
	Mild     float64
	Moderate float64
	Severe   float64
}

// Match returns the severity for a value.
// Returns (SeverityNone, false) when the value does not reach the Mild threshold.
func (b Bands) Match(value float64) (Severity, bool) {
	if b.Mild <= b.Severe {
		switch {
		case value >= b.Severe:
			return SeveritySevere, true
		case value >= b.Moderate:
			return SeverityModerate, true
		case value >= b.Mild:
			return SeverityMild, true
		}

		return SeverityNone, false
	}

	switch {
	case value <= b.Severe:
		return SeveritySevere, true
	case value <= b.Moderate:
		return SeverityModerate, true
	case value <= b.Mild:
		return SeverityMild, true
	}

	return SeverityNone, false
}

// Cursor reports the playback position, in frames, of a clip loaded in an Engine.
type Cursor interface {
	Position() int
}
