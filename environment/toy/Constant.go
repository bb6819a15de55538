// Package toy implements small deterministic environments with known
// returns, useful for checking a training pipeline end to end
package toy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/timestep"
)

// Constant is an environment whose episodes always last exactly
// EpisodeLength steps and pay Reward on every step, independent of the
// actions taken. The single observation feature is the fraction of the
// episode that has elapsed.
type Constant struct {
	episodeLength int
	reward        float64
	actionDims    int
	lastStep      timestep.TimeStep
}

// NewConstant returns a new Constant environment
func NewConstant(episodeLength int, reward float64,
	actionDims int) (*Constant, error) {
	if episodeLength <= 0 {
		return nil, fmt.Errorf("newConstant: episode length must be "+
			"positive\n\thave(%v)", episodeLength)
	}
	if actionDims <= 0 {
		return nil, fmt.Errorf("newConstant: action dimensions must be "+
			"positive\n\thave(%v)", actionDims)
	}
	c := &Constant{
		episodeLength: episodeLength,
		reward:        reward,
		actionDims:    actionDims,
	}
	c.Reset()
	return c, nil
}

func (c *Constant) observation(n int) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(n) / float64(c.episodeLength)})
}

// Reset starts a new episode
func (c *Constant) Reset() (timestep.TimeStep, error) {
	c.lastStep = timestep.New(timestep.First, 0, c.observation(0), 0)
	return c.lastStep, nil
}

// Step takes a single step, ignoring the action
func (c *Constant) Step(action *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	if action.Len() != c.actionDims {
		return timestep.TimeStep{}, true, fmt.Errorf("step: invalid action "+
			"dimensions\n\twant(%v)\n\thave(%v)", c.actionDims, action.Len())
	}
	if c.lastStep.Last() {
		return timestep.TimeStep{}, true, fmt.Errorf("step: episode has " +
			"ended, call Reset")
	}

	n := c.lastStep.Number + 1
	next := timestep.New(timestep.Mid, c.reward, c.observation(n), n)
	if n >= c.episodeLength {
		next.StepType = timestep.Last
	}
	c.lastStep = next
	return next, next.Last(), nil
}

// ObservationSpec returns the observation specification
func (c *Constant) ObservationSpec() environment.Spec {
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Observation, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}), environment.Continuous)
}

// ActionSpec returns the action specification. Actions are unbounded.
func (c *Constant) ActionSpec() environment.Spec {
	low := make([]float64, c.actionDims)
	high := make([]float64, c.actionDims)
	for i := range low {
		low[i], high[i] = math.Inf(-1), math.Inf(1)
	}
	return environment.NewSpec(mat.NewVecDense(c.actionDims, nil),
		environment.Action, mat.NewVecDense(c.actionDims, low),
		mat.NewVecDense(c.actionDims, high), environment.Continuous)
}

// TimestepLimit returns the episode length
func (c *Constant) TimestepLimit() int {
	return c.episodeLength
}

// Close implements the environment.Environment interface
func (c *Constant) Close() error {
	return nil
}
