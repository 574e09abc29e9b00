//nolint:staticcheck // too dumb on Db vs. DB
package types

type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// PCMFormat describes a raw little-endian PCM encoding. Float selects IEEE float samples (32-bit only).
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
	Float      bool
}

// Clip is a loaded source: interleaved normalized samples plus their layout.
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the per-channel sample count.
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}

	return len(c.Samples) / c.Channels
}

/*
Loudness Interpretation

## Integrated Loudness (LUFS)

| IntegratedLUFS | Interpretation                          |
|----------------|-----------------------------------------|
| -80            | Nothing above the -70 gate. Silence.    |
| < -30          | Very quiet. Background or ambient.      |
| -23            | Broadcast target (EBU R128).            |
| -16 to -14     | Streaming targets.                      |
| > -9           | Very loud master.                       |

## Momentary vs Short-Term

Momentary blocks are 400 ms long and overlap (75% by default), so they react to
transients. Short-term blocks are 3 s long and adjacent; integrated loudness is
built from them. The final short-term block is zero padded, which biases it low
on clips that are not a multiple of 3 s.

Values are K-weighted. 44.1 and 48 kHz use exact coefficients; any other rate
reuses the 48 kHz table and sets CoefficientsApproximated.
*/

// LoudnessBlock is one measured block. Energies are K-weighted mean squares.
type LoudnessBlock struct {
	Index       int
	EnergyLeft  float64
	EnergyRight float64
	LUFS        float64
}

// LoudnessResult contains per-block and aggregated loudness.
type LoudnessResult struct {
	Momentary []LoudnessBlock
	ShortTerm []LoudnessBlock

	MomentaryLength int // samples per momentary block
	MomentaryHop    int
	ShortTermLength int // also the short-term hop

	IntegratedLUFS float64 // absolute-gated average of short-term blocks, -80 when none pass
	MomentaryMax   float64
	ShortTermMax   float64
	LoudnessRange  float64 // LU, 95th - 10th percentile of gated short-term blocks

	CoefficientsApproximated bool
	Frames                   uint64
}

// MomentaryAt returns the momentary block covering a playback sample position.
func (r *LoudnessResult) MomentaryAt(position int) LoudnessBlock {
	return blockAt(r.Momentary, position, r.MomentaryHop)
}

// ShortTermAt returns the short-term block covering a playback sample position.
func (r *LoudnessResult) ShortTermAt(position int) LoudnessBlock {
	return blockAt(r.ShortTerm, position, r.ShortTermLength)
}

func blockAt(blocks []LoudnessBlock, position, hop int) LoudnessBlock {
	if len(blocks) == 0 || hop <= 0 {
		return LoudnessBlock{LUFS: LoudnessFloor}
	}

	return blocks[ClampIndex(position/hop, len(blocks))]
}

// LoudnessFloor is reported for empty or silent measurements.
const LoudnessFloor = -80.0

// ClampIndex clamps idx to [0, n-1].
func ClampIndex(idx, n int) int {
	if idx < 0 {
		return 0
	}

	if idx >= n {
		return n - 1
	}

	return idx
}

/*
Crest Factor Interpretation

Crest factor is peak / RMS over a short window (50 ms by default). In dB:

| CrestDb   | Interpretation                               |
|-----------|----------------------------------------------|
| 0         | Square wave or silence (crest reported as 1) |
| 3         | Pure sine                                    |
| 4 to 8    | Heavily limited, brickwalled material        |
| 8 to 14   | Typical modern music                         |
| > 14      | Very dynamic, percussive, or acoustic        |
*/

// CrestBlock is one analysis window of one channel.
type CrestBlock struct {
	Peak  float64
	RMS   float64
	Crest float64
}

// CrestResult contains per-channel crest factor blocks.
type CrestResult struct {
	Left  []CrestBlock
	Right []CrestBlock

	WindowLength int
	Hop          int

	MaxLeft  float64 // highest crest factor over the whole clip
	MaxRight float64
	MeanDb   float64 // mean crest in dB across both channels, silent blocks excluded

	ActiveBlocks int // non-silent blocks counted in MeanDb, both channels
}

/*
Correlation Interpretation

| Value        | Interpretation                           |
|--------------|------------------------------------------|
| +1           | Mono. Identical channels.                |
| +0.3 to +0.9 | Healthy stereo.                          |
| -0.3 to +0.3 | Very wide or decorrelated.               |
| < -0.7       | Phase problem. Collapses in mono.        |
| -1           | Polarity inverted on one channel.        |
*/

// CorrelationResult summarizes a correlation meter run across a clip.
type CorrelationResult struct {
	Value    float64 // last published value
	Smoothed float64 // last display value
	Mean     float64 // mean of published values
	Min      float64
	Max      float64
	History  []float64 // most recent published values, oldest first
	Ticks    int
}

// StereoResult contains whole-clip stereo statistics.
type StereoResult struct {
	Correlation    float64 // Pearson, 1.0 = identical, -1.0 = inverted
	DifferenceDb   float64 // RMS of (L-R) in dB; very negative = identical channels
	MonoSumDb      float64 // RMS of (L+R)/2 in dB; very negative = inverted phase
	StereoRmsDb    float64
	CancellationDb float64 // StereoRmsDb - MonoSumDb; positive = cancellation when summed
	LeftRmsDb      float64
	RightRmsDb     float64
	ImbalanceDb    float64 // LeftRmsDb - RightRmsDb; positive = left louder
	Frames         uint64
}

// TempoResult contains offline beat detection output. Tempo is -1 when nothing was detected.
type TempoResult struct {
	Tempo      int
	Confidence float64
	Detected   bool
	Candidate  int   // winner of the interval vote refined by the mean beat interval, before verification
	Beats      []int // block indices of detected peaks
	BlockSize  int
}

// LevelResult is a snapshot of the level meter. All values are dBFS.
type LevelResult struct {
	RMSLeftDb   float64
	RMSRightDb  float64
	PeakLeftDb  float64
	PeakRightDb float64
	PeakDb      float64
}

// SpectrumResult summarizes averaged magnitude spectra of both channels.
type SpectrumResult struct {
	FFTSize int
	BinHz   float64
	Windows int

	PeakLeftHz      float64
	PeakRightHz     float64
	CentroidLeftHz  float64
	CentroidRightHz float64

	Left  []float64 // average magnitude per bin, dB
	Right []float64
}
