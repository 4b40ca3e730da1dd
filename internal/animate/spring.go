// Package animate drives the spawn scale of a newly created record with a
// damped spring that pops it from 0 to full size.
package animate

import (
	"fmt"
	"math"
)

// Defaults for the spawn spring.
const (
	DefaultStiffness = 170
	DefaultDamping   = 26
	DefaultMass      = 1

	// Epsilon is the distance and speed below which a spring is at rest.
	Epsilon = 1e-3
)

// Spring is a damped harmonic oscillator pulling towards Target.
type Spring struct {
	Stiffness float64
	Damping   float64
	Mass      float64
	Target    float64
}

// DefaultSpring returns the spawn spring targeting full scale.
func DefaultSpring() Spring {
	return Spring{Stiffness: DefaultStiffness, Damping: DefaultDamping, Mass: DefaultMass, Target: 1}
}

// State is a spring's position and velocity.
type State struct {
	Value    float64
	Velocity float64
}

// Validate rejects springs that cannot be integrated.
func (s Spring) Validate() error {
	if s.Mass <= 0 || math.IsNaN(s.Mass) {
		return fmt.Errorf("spring mass must be positive, got %v", s.Mass)
	}
	if s.Stiffness <= 0 || math.IsNaN(s.Stiffness) {
		return fmt.Errorf("spring stiffness must be positive, got %v", s.Stiffness)
	}
	if s.Damping < 0 || math.IsNaN(s.Damping) {
		return fmt.Errorf("spring damping must be non-negative, got %v", s.Damping)
	}
	return nil
}

// Step advances st by dt seconds using semi-implicit Euler.
func (s Spring) Step(st State, dt float64) State {
	force := -s.Stiffness*(st.Value-s.Target) - s.Damping*st.Velocity
	st.Velocity += force / s.Mass * dt
	st.Value += st.Velocity * dt
	return st
}

// Settled reports whether st is within Epsilon of rest at the target.
func (s Spring) Settled(st State) bool {
	return math.Abs(st.Value-s.Target) < Epsilon && math.Abs(st.Velocity) < Epsilon
}

// Sample returns the value after each of frames steps of dt, starting at
// rest at 0.
func (s Spring) Sample(frames int, dt float64) []float64 {
	if frames <= 0 {
		return nil
	}
	out := make([]float64, frames)
	var st State
	for i := range out {
		st = s.Step(st, dt)
		out[i] = st.Value
	}
	return out
}

// SettleFrames returns how many steps of dt the spring needs to come to rest
// from 0, or -1 if it has not settled within limit steps.
func (s Spring) SettleFrames(dt float64, limit int) int {
	var st State
	for i := 1; i <= limit; i++ {
		st = s.Step(st, dt)
		if s.Settled(st) {
			return i
		}
	}
	return -1
}
