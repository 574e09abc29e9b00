package phonometer

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/farcloser/phonometer/internal/audit/correlation"
	"github.com/farcloser/phonometer/internal/audit/crest"
	"github.com/farcloser/phonometer/internal/audit/level"
	"github.com/farcloser/phonometer/internal/pcm"
	"github.com/farcloser/phonometer/internal/schedule"
	"github.com/farcloser/phonometer/internal/types"
)

// ErrNotLoaded is returned when starting an engine that holds no clip.
var ErrNotLoaded = errors.New("no clip loaded")

// engineChecks are the offline passes an engine precomputes on load.
const engineChecks = CheckLoudness | CheckDynamics | CheckTempo | CheckSpectrum

// CrestReading is the crest factor of the block under the playhead and the maxima since the last reset.
type CrestReading struct {
	Left     float64
	Right    float64
	MaxLeft  float64
	MaxRight float64
}

// CorrelationReading is the state of the real-time correlation meter.
type CorrelationReading struct {
	Value     float64
	Smoothed  float64
	Status    correlation.Status
	Published bool
}

// Engine holds the analysis of one clip and follows its playback.
// Load replaces everything; ticks run from a periodic task or from explicit Tick calls.
type Engine struct {
	opts Options

	// task is guarded separately so Stop can wait for a tick that holds mu.
	taskMu sync.Mutex
	task   *schedule.Task

	mu         sync.RWMutex
	loaded     bool
	sampleRate int
	channels   *pcm.Channels
	position   int

	loudness *types.LoudnessResult
	crest    *types.CrestResult
	tempo    *types.TempoResult
	spectrum *types.SpectrumResult

	tracker *crest.Tracker
	meter   *correlation.Meter
	levels  *level.Meter
}

func NewEngine(opts Options) *Engine {
	applyDefaults(&opts)

	return &Engine{opts: opts}
}

// Load stops ticking, analyzes clip and swaps the results in.
// On error the previous clip and its state are kept.
func (e *Engine) Load(ctx context.Context, clip types.Clip) error {
	e.Stop()

	ch, err := split(clip)
	if err != nil {
		return err
	}

	out, err := run(ctx, ch, clip.SampleRate, engineChecks, e.opts)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.loaded = true
	e.sampleRate = clip.SampleRate
	e.channels = ch
	e.position = 0
	e.loudness = out.loudness
	e.crest = out.crest
	e.tempo = out.tempo
	e.spectrum = out.spectrum
	e.tracker = crest.NewTracker(out.crest)
	e.meter = correlation.NewMeter(e.opts.Correlation)
	e.levels = level.NewMeter(e.opts.Level, clip.SampleRate)

	return nil
}

// Loaded reports whether the engine holds a clip.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.loaded
}

// Tick runs one real-time update at a playback position in frames.
// Positions outside the clip are recorded but leave every meter untouched.
func (e *Engine) Tick(position int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return
	}

	e.position = position
	length := e.channels.Len()

	// Outside the clip there is nothing to meter.
	if position < 0 || position > length {
		return
	}

	start, end := correlation.Window(position, e.meter.Config().WindowSize, length)
	e.meter.Tick(e.channels.Left[start:end], e.channels.Right[start:end])

	start, end = correlation.Window(position, e.levels.Config().FrameSize, length)
	e.levels.Tick(e.channels.Left[start:end], e.channels.Right[start:end])

	e.tracker.Advance(position)
}

// Start ticks at the correlation update rate, reading the playhead from cursor, until Stop or ctx is done.
func (e *Engine) Start(ctx context.Context, cursor Cursor) error {
	if !e.Loaded() {
		return ErrNotLoaded
	}

	e.taskMu.Lock()
	defer e.taskMu.Unlock()

	if e.task != nil && e.task.Running() {
		return schedule.ErrRunning
	}

	rate := e.opts.Correlation.UpdateRateHz
	if rate <= 0 {
		rate = correlation.DefaultConfig().UpdateRateHz
	}

	e.task = schedule.New(time.Duration(float64(time.Second)/rate), func(context.Context) {
		e.Tick(cursor.Position())
	})

	return e.task.Start(ctx)
}

// Stop halts periodic ticking and returns once no tick is running.
func (e *Engine) Stop() {
	e.taskMu.Lock()
	task := e.task
	e.task = nil
	e.taskMu.Unlock()

	if task != nil {
		task.Stop()
	}
}

// Running reports whether periodic ticking is active.
func (e *Engine) Running() bool {
	e.taskMu.Lock()
	defer e.taskMu.Unlock()

	return e.task != nil && e.task.Running()
}

// Close stops ticking and discards the clip.
func (e *Engine) Close() {
	e.Stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.loaded = false
	e.sampleRate = 0
	e.channels = nil
	e.position = 0
	e.loudness = nil
	e.crest = nil
	e.tempo = nil
	e.spectrum = nil
	e.tracker = nil
	e.meter = nil
	e.levels = nil
}

// SampleRate of the loaded clip, 0 before Load.
func (e *Engine) SampleRate() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.sampleRate
}

// Frames is the per-channel length of the loaded clip.
func (e *Engine) Frames() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.channels == nil {
		return 0
	}

	return e.channels.Len()
}

// Position is the playhead of the last tick.
func (e *Engine) Position() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.position
}

// Loudness returns the full loudness analysis, nil before Load.
func (e *Engine) Loudness() *types.LoudnessResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.loudness
}

// Momentary returns the momentary block under the playhead.
func (e *Engine) Momentary() types.LoudnessBlock {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.loudness == nil {
		return types.LoudnessBlock{LUFS: types.LoudnessFloor}
	}

	return e.loudness.MomentaryAt(e.position)
}

// ShortTerm returns the short-term block under the playhead.
func (e *Engine) ShortTerm() types.LoudnessBlock {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.loudness == nil {
		return types.LoudnessBlock{LUFS: types.LoudnessFloor}
	}

	return e.loudness.ShortTermAt(e.position)
}

// Integrated returns the integrated loudness of the clip.
func (e *Engine) Integrated() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.loudness == nil {
		return types.LoudnessFloor
	}

	return e.loudness.IntegratedLUFS
}

// Crest returns the crest reading under the playhead.
func (e *Engine) Crest() CrestReading {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.tracker == nil {
		return CrestReading{}
	}

	var reading CrestReading

	reading.Left, reading.Right = e.tracker.Current()
	reading.MaxLeft, reading.MaxRight = e.tracker.Max()

	return reading
}

// CrestResult returns the precomputed crest blocks, nil before Load.
func (e *Engine) CrestResult() *types.CrestResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.crest
}

// ResetCrest clears the crest maxima.
func (e *Engine) ResetCrest() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tracker != nil {
		e.tracker.Reset()
	}
}

// Correlation returns the meter reading.
func (e *Engine) Correlation() CorrelationReading {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.meter == nil {
		return CorrelationReading{}
	}

	return CorrelationReading{
		Value:     e.meter.Value(),
		Smoothed:  e.meter.Smoothed(),
		Status:    e.meter.Status(),
		Published: e.meter.Published(),
	}
}

// CorrelationHistory returns recent published correlation values, oldest first.
func (e *Engine) CorrelationHistory() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.meter == nil {
		return nil
	}

	return e.meter.History()
}

// Tempo returns the offline tempo detection.
func (e *Engine) Tempo() types.TempoResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.tempo == nil {
		return types.TempoResult{Tempo: -1, Candidate: -1}
	}

	return *e.tempo
}

// Spectrum returns the averaged spectrum summary, nil before Load.
func (e *Engine) Spectrum() *types.SpectrumResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.spectrum
}

// Levels returns the level meter snapshot.
func (e *Engine) Levels() types.LevelResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.levels == nil {
		return types.LevelResult{
			RMSLeftDb:   level.Floor,
			RMSRightDb:  level.Floor,
			PeakLeftDb:  level.Floor,
			PeakRightDb: level.Floor,
			PeakDb:      level.Floor,
		}
	}

	return e.levels.Result()
}

// ResetLevels clears held peaks and RMS history.
func (e *Engine) ResetLevels() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.levels != nil {
		e.levels.Reset()
	}
}

// Clock is a Cursor that advances with wall time from its creation.
type Clock struct {
	start      time.Time
	sampleRate int
}

func NewClock(sampleRate int) *Clock {
	return &Clock{start: time.Now(), sampleRate: sampleRate}
}

func (c *Clock) Position() int {
	return int(math.Round(time.Since(c.start).Seconds() * float64(c.sampleRate)))
}
