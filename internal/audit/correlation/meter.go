// Package correlation implements a real-time stereo phase correlation meter.
package correlation

import (
	"math"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/farcloser/phonometer/internal/audit/shared"
	"github.com/farcloser/phonometer/internal/ring"
)

type Config struct {
	WindowSize     int     // samples per tick, default 1024
	UpdateRateHz   float64 // default 30
	CutoffHz       float64 // low-pass cutoff, default 10
	DisplaySeconds float64 // display smoothing time, default 0.2
	Floor          float64 // minimum rms per channel, default 1e-4
	HistorySize    int     // default 100
}

func DefaultConfig() Config {
	return Config{
		WindowSize:     1024,
		UpdateRateHz:   30,
		CutoffHz:       10,
		DisplaySeconds: 0.2,
		Floor:          1e-4,
		HistorySize:    100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.WindowSize <= 0 {
		c.WindowSize = d.WindowSize
	}

	if c.UpdateRateHz <= 0 {
		c.UpdateRateHz = d.UpdateRateHz
	}

	if c.CutoffHz <= 0 {
		c.CutoffHz = d.CutoffHz
	}

	if c.DisplaySeconds <= 0 {
		c.DisplaySeconds = d.DisplaySeconds
	}

	if c.Floor <= 0 {
		c.Floor = d.Floor
	}

	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}

	return c
}

// LowPass is a one-pole smoother: y += alpha·(x - y).
type LowPass struct {
	Alpha float64
	Y     float64
}

// Alpha for a cutoff frequency sampled every dt seconds.
func Alpha(cutoffHz, dt float64) float64 {
	rc := 1 / (2 * math.Pi * cutoffHz)

	return dt / (rc + dt)
}

func (l *LowPass) Process(x float64) float64 {
	l.Y += l.Alpha * (x - l.Y)

	return l.Y
}

// State is the meter's filter memory and published values.
type State struct {
	EnergyLeft  LowPass
	EnergyRight LowPass
	Product     LowPass
	Output      LowPass
	Display     LowPass

	Raw       float64
	Published bool // at least one tick passed the floor
}

// Meter computes a smoothed correlation from successive windows. It is not safe for concurrent use.
type Meter struct {
	config  Config
	state   State
	history *ring.Buffer[float64]

	left, right []float64
}

func NewMeter(config Config) *Meter {
	config = config.withDefaults()
	dt := 1 / config.UpdateRateHz
	alpha := Alpha(config.CutoffHz, dt)

	return &Meter{
		config: config,
		state: State{
			EnergyLeft:  LowPass{Alpha: alpha},
			EnergyRight: LowPass{Alpha: alpha},
			Product:     LowPass{Alpha: alpha},
			Output:      LowPass{Alpha: alpha},
			Display:     LowPass{Alpha: shared.Clamp01(dt / config.DisplaySeconds)},
		},
		history: ring.New[float64](config.HistorySize),
	}
}

// Config returns the effective configuration.
func (m *Meter) Config() Config {
	return m.config
}

// Tick consumes the most recent window of both channels.
// It returns false when either channel is below the floor, in which case published values hold.
func (m *Meter) Tick(left, right []float32) bool {
	n := min(len(left), len(right))
	m.left = widen(m.left, left[:n])
	m.right = widen(m.right, right[:n])

	return m.tick(m.left, m.right)
}

func widen(dst []float64, src []float32) []float64 {
	dst = dst[:0]
	for _, v := range src {
		dst = append(dst, float64(v))
	}

	return dst
}

func (m *Meter) tick(left, right []float64) bool {
	n := float64(len(left))

	var energyLeft, energyRight, product float64
	if n > 0 {
		energyLeft = vecmath.DotProduct(left, left) / n
		energyRight = vecmath.DotProduct(right, right) / n
		product = vecmath.DotProduct(left, right) / n
	}

	rmsLeft := math.Sqrt(m.state.EnergyLeft.Process(energyLeft))
	rmsRight := math.Sqrt(m.state.EnergyRight.Process(energyRight))
	p := m.state.Product.Process(product)

	if rmsLeft <= m.config.Floor || rmsRight <= m.config.Floor {
		return false
	}

	m.state.Raw = shared.Clamp(p/(rmsLeft*rmsRight), -1, 1)
	value := m.state.Output.Process(m.state.Raw)
	m.state.Display.Process(value)
	m.state.Published = true

	m.history.Push(value)

	return true
}

// Value is the published correlation in [-1, 1].
func (m *Meter) Value() float64 {
	return m.state.Output.Y
}

// Smoothed is the display value.
func (m *Meter) Smoothed() float64 {
	return m.state.Display.Y
}

// Raw is the last unsmoothed correlation.
func (m *Meter) Raw() float64 {
	return m.state.Raw
}

// Published reports whether any tick produced a value.
func (m *Meter) Published() bool {
	return m.state.Published
}

// History returns published values, oldest first.
func (m *Meter) History() []float64 {
	return m.history.Values()
}

// Reset zeroes filters and history, keeping the configuration.
func (m *Meter) Reset() {
	*m = *NewMeter(m.config)
}

// Status classifies the published value.
func (m *Meter) Status() Status {
	return StatusOf(m.state.Output.Y)
}
