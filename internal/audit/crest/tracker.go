package crest

import (
	"math"

	"github.com/farcloser/phonometer/internal/types"
)

// Tracker follows playback over precomputed crest blocks and keeps a running maximum per channel.
// It is not safe for concurrent use.
type Tracker struct {
	result *types.CrestResult

	currentLeft, currentRight float64
	maxLeft, maxRight         float64
	block                     int
}

// NewTracker starts a tracker with no current block.
func NewTracker(result *types.CrestResult) *Tracker {
	return &Tracker{result: result, block: -1}
}

// Advance moves to the block covering a playback position. Positions outside the analyzed range are ignored.
func (t *Tracker) Advance(position int) bool {
	if t.result == nil || t.result.Hop <= 0 || position < 0 {
		return false
	}

	idx := position / t.result.Hop
	if idx >= len(t.result.Left) {
		return false
	}

	t.block = idx
	t.currentLeft = t.result.Left[idx].Crest
	t.currentRight = t.result.Right[idx].Crest
	t.maxLeft = math.Max(t.maxLeft, t.currentLeft)
	t.maxRight = math.Max(t.maxRight, t.currentRight)

	return true
}

// Current returns the crest factors of the current block.
func (t *Tracker) Current() (left, right float64) {
	return t.currentLeft, t.currentRight
}

// Max returns the running maxima since the last reset.
func (t *Tracker) Max() (left, right float64) {
	return t.maxLeft, t.maxRight
}

// Block returns the current block index, -1 before the first Advance.
func (t *Tracker) Block() int {
	return t.block
}

// Reset clears the running maxima and the current display values.
func (t *Tracker) Reset() {
	t.currentLeft, t.currentRight = 0, 0
	t.maxLeft, t.maxRight = 0, 0
	t.block = -1
}
