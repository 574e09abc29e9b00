// Package signal synthesizes calibration and test material.
package signal

import (
	"math"
	"math/rand/v2"
)

// Sine returns a mono sine wave.
func Sine(frames int, frequency, amplitude float64, sampleRate int) []float32 {
	out := make([]float32, frames)
	step := 2 * math.Pi * frequency / float64(sampleRate)

	for i := range out {
		out[i] = float32(amplitude * math.Sin(step*float64(i)))
	}

	return out
}

// Clicks returns a mono click track: a decaying 1 kHz burst of clickLength samples every beat, silence in between.
func Clicks(frames, sampleRate int, bpm float64, clickLength int, amplitude float64) []float32 {
	out := make([]float32, frames)
	if bpm <= 0 {
		return out
	}

	interval := int(math.Round(60 / bpm * float64(sampleRate)))
	burst := Sine(clickLength, 1000, amplitude, sampleRate)

	for start := 0; start < frames; start += interval {
		for i := 0; i < clickLength && start+i < frames; i++ {
			decay := math.Exp(-4 * float64(i) / float64(clickLength))
			out[start+i] = float32(float64(burst[i]) * decay)
		}
	}

	return out
}

// Noise produces stereo noise. Each call to a generator method advances the same random source.
type Noise struct {
	rng *rand.Rand
}

// NewNoise returns a deterministic generator for a seed.
func NewNoise(seed uint64) *Noise {
	return &Noise{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))} //nolint:gosec // not for crypto
}

func (n *Noise) white() float64 {
	return n.rng.Float64()*2 - 1
}

// White returns independent uniform noise on both channels, scaled by gain.
func (n *Noise) White(frames int, gain float64) (left, right []float32) {
	left = make([]float32, frames)
	right = make([]float32, frames)

	for i := range frames {
		left[i] = float32(n.white() * gain)
		right[i] = float32(n.white() * gain)
	}

	return left, right
}

// pinkFilter is Paul Kellet's refined pink noise filter.
type pinkFilter struct {
	b0, b1, b2, b3, b4, b5, b6 float64
}

// kelletScale brings the filter output to roughly unit peak.
const kelletScale = 0.11

func (p *pinkFilter) next(white float64) float64 {
	p.b0 = 0.99886*p.b0 + white*0.0555179
	p.b1 = 0.99332*p.b1 + white*0.0750759
	p.b2 = 0.96900*p.b2 + white*0.1538520
	p.b3 = 0.86650*p.b3 + white*0.3104856
	p.b4 = 0.55000*p.b4 + white*0.5329522
	p.b5 = -0.7616*p.b5 - white*0.0168980
	pink := p.b0 + p.b1 + p.b2 + p.b3 + p.b4 + p.b5 + p.b6 + white*0.5362
	p.b6 = white * 0.115926

	return pink * kelletScale
}

// Pink returns independent pink noise on both channels.
func (n *Noise) Pink(frames int, gain float64) (left, right []float32) {
	left = make([]float32, frames)
	right = make([]float32, frames)

	var pl, pr pinkFilter

	for i := range frames {
		left[i] = float32(pl.next(n.white()) * gain)
		right[i] = float32(pr.next(n.white()) * gain)
	}

	return left, right
}

// PinkInverted returns pink noise whose right channel is the left channel inverted and delayed by one sample.
func (n *Noise) PinkInverted(frames int, gain float64) (left, right []float32) {
	left = make([]float32, frames)
	right = make([]float32, frames)

	var p pinkFilter

	for i := range frames {
		left[i] = float32(p.next(n.white()) * gain)

		if i > 0 {
			right[i] = -left[i-1]
		} else {
			right[i] = -left[i]
		}
	}

	return left, right
}
