// Package environment outlines the interfaces and structs needed to
// implement the simulators that rollout workers collect experience from
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/timestep"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when an episode ends. If the episode should end,
// End modifies the TimeStep so that its StepType is timestep.Last.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme, starting state distribution, and
// episode termination of some environment
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	TimestepLimit() int
}

// Environment implements a simulated environment. Environments are
// not safe for concurrent use; each rollout worker owns its own.
type Environment interface {
	// Reset starts a new episode
	Reset() (timestep.TimeStep, error)

	// Step takes one environmental step, returning the next TimeStep
	// and whether the episode has ended
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	ObservationSpec() Spec
	ActionSpec() Spec

	// TimestepLimit returns the maximum length of an episode
	TimestepLimit() int

	// Close releases any resources held by the environment
	Close() error
}
