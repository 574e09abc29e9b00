// Package level implements a per-channel RMS and peak meter in dBFS.
package level

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.com/farcloser/phonometer/internal/audit/shared"
	"github.com/farcloser/phonometer/internal/ring"
	"github.com/farcloser/phonometer/internal/types"
)

// Floor is the lowest reported level.
const Floor = -60.0

type Config struct {
	FrameSize       int     // samples per tick, default 1024
	AverageWindowMs float64 // RMS averaging window, default 300
	UpdateRateHz    float64 // default 30
	SmoothingMin    float64 // default 0.1
	SmoothingMax    float64 // default 0.9
	WarmupSeconds   float64 // time spent at SmoothingMax, default 2
}

func DefaultConfig() Config {
	return Config{
		FrameSize:       1024,
		AverageWindowMs: 300,
		UpdateRateHz:    30,
		SmoothingMin:    0.1,
		SmoothingMax:    0.9,
		WarmupSeconds:   2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.FrameSize <= 0 {
		c.FrameSize = d.FrameSize
	}

	if c.AverageWindowMs <= 0 {
		c.AverageWindowMs = d.AverageWindowMs
	}

	if c.UpdateRateHz <= 0 {
		c.UpdateRateHz = d.UpdateRateHz
	}

	if c.SmoothingMin <= 0 {
		c.SmoothingMin = d.SmoothingMin
	}

	if c.SmoothingMax <= 0 {
		c.SmoothingMax = d.SmoothingMax
	}

	if c.WarmupSeconds <= 0 {
		c.WarmupSeconds = d.WarmupSeconds
	}

	return c
}

// HistoryFrames is the number of frames averaged for a given sample rate.
func HistoryFrames(config Config, sampleRate int) int {
	frameMs := float64(config.FrameSize) / float64(sampleRate) * 1000

	return max(1, int(math.Ceil(config.AverageWindowMs/frameMs)))
}

type channel struct {
	history  *ring.Buffer[float64]
	smoothed float64
	peak     float64
}

func (c *channel) reset() {
	c.history.Reset()
	c.smoothed = Floor
	c.peak = Floor
}

// Meter is not safe for concurrent use.
type Meter struct {
	config    Config
	dt        float64
	elapsed   float64
	smoothing float64

	left, right channel

	buf []float64
}

func NewMeter(config Config, sampleRate int) *Meter {
	config = config.withDefaults()
	frames := HistoryFrames(config, max(sampleRate, 1))

	m := &Meter{
		config: config,
		dt:     1 / config.UpdateRateHz,
		left:   channel{history: ring.New[float64](frames)},
		right:  channel{history: ring.New[float64](frames)},
	}

	m.Reset()

	return m
}

// Config returns the effective configuration.
func (m *Meter) Config() Config {
	return m.config
}

// Smoothing returns the current RMS smoothing factor.
func (m *Meter) Smoothing() float64 {
	return m.smoothing
}

// Tick consumes the most recent frame of both channels.
func (m *Meter) Tick(left, right []float32) {
	m.elapsed += m.dt
	if m.elapsed < m.config.WarmupSeconds {
		m.smoothing = m.config.SmoothingMax
	} else {
		m.smoothing += (m.config.SmoothingMin - m.smoothing) * shared.Clamp01(m.dt)
	}

	m.update(&m.left, left)
	m.update(&m.right, right)
}

func (m *Meter) update(c *channel, frame []float32) {
	m.buf = m.buf[:0]
	for _, v := range frame {
		m.buf = append(m.buf, float64(v))
	}

	var rms, peak float64
	if len(m.buf) > 0 {
		rms = math.Sqrt(vecmath.DotProduct(m.buf, m.buf) / float64(len(m.buf)))
		peak = vecmath.MaxAbs(m.buf)
	}

	c.history.Push(shared.AmplitudeDb(rms, Floor))
	average := stat.Mean(c.history.Values(), nil)
	c.smoothed += m.smoothing * (average - c.smoothed)

	c.peak = math.Max(c.peak, shared.AmplitudeDb(peak, Floor))
}

// RMS returns the smoothed RMS level per channel.
func (m *Meter) RMS() (left, right float64) {
	return m.left.smoothed, m.right.smoothed
}

// Peak returns the held sample peak per channel.
func (m *Meter) Peak() (left, right float64) {
	return m.left.peak, m.right.peak
}

// OverallPeak is the higher of both held peaks.
func (m *Meter) OverallPeak() float64 {
	return math.Max(m.left.peak, m.right.peak)
}

// Reset clears peaks, history and the warmup timer.
func (m *Meter) Reset() {
	m.left.reset()
	m.right.reset()
	m.elapsed = 0
	m.smoothing = m.config.SmoothingMax
}

// Result snapshots the meter.
func (m *Meter) Result() types.LevelResult {
	return types.LevelResult{
		RMSLeftDb:   m.left.smoothed,
		RMSRightDb:  m.right.smoothed,
		PeakLeftDb:  m.left.peak,
		PeakRightDb: m.right.peak,
		PeakDb:      m.OverallPeak(),
	}
}
