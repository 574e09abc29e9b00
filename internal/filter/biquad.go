// Package filter implements Direct Form I biquad sections and the K-weighting pre-filter chain.
package filter

// Coefficients of one normalized biquad section (a0 = 1).
type Coefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// State holds the two previous inputs and outputs of a section.
type State struct {
	X1, X2 float64
	Y1, Y2 float64
}

// Reset zeroes the state.
func (s *State) Reset() {
	*s = State{}
}

// Process runs one sample through a section:
// y[n] = b0·x[n] + b1·x[n-1] + b2·x[n-2] - a1·y[n-1] - a2·y[n-2].
func Process(c *Coefficients, s *State, x float64) float64 {
	y := c.B0*x + c.B1*s.X1 + c.B2*s.X2 - c.A1*s.Y1 - c.A2*s.Y2

	s.X2 = s.X1
	s.X1 = x
	s.Y2 = s.Y1
	s.Y1 = y

	return y
}

// Stage pairs coefficients with their own state.
type Stage struct {
	Coefficients Coefficients
	State        State
}

// Process runs one sample through the stage.
func (st *Stage) Process(x float64) float64 {
	return Process(&st.Coefficients, &st.State, x)
}

// Chain is an ordered series of stages for a single channel.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain with zeroed state. Samples flow through the coefficients in order.
func NewChain(coefficients ...Coefficients) *Chain {
	chain := &Chain{stages: make([]Stage, len(coefficients))}
	for i, c := range coefficients {
		chain.stages[i].Coefficients = c
	}

	return chain
}

// Reset zeroes every stage.
func (c *Chain) Reset() {
	for i := range c.stages {
		c.stages[i].State.Reset()
	}
}

// Process runs one sample through every stage.
func (c *Chain) Process(x float64) float64 {
	for i := range c.stages {
		x = c.stages[i].Process(x)
	}

	return x
}

// ProcessSequence filters a whole sequence, continuing from the current state.
func (c *Chain) ProcessSequence(seq []float32) []float64 {
	out := make([]float64, len(seq))
	for i, v := range seq {
		out[i] = c.Process(float64(v))
	}

	return out
}
