package pendulum

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/environment"
)

// SwingUp implements a task where the agent must swing the pendulum up
// and hold it in a vertical position. Rewards are the cosine of the
// pendulum angle measured from the positive y-axis, so the agent gets a
// reward of 1.0 on each timestep the pendulum points straight up.
type SwingUp struct {
	environment.Starter
	environment.StepLimit
}

// NewSwingUp creates and returns a new SwingUp task
func NewSwingUp(s environment.Starter, maxSteps int) *SwingUp {
	return &SwingUp{s, environment.NewStepLimit(maxSteps)}
}

// GetReward returns the reward for entering nextState
func (s *SwingUp) GetReward(_, _, nextState mat.Vector) float64 {
	return math.Cos(nextState.AtVec(0))
}

// TorqueCost implements the swing-up task with a quadratic cost on the
// angle, the angular velocity, and the applied torque, as in the Gym
// Pendulum task. Rewards are never positive; the best reward of 0 is
// attained when the pendulum rests straight up without any torque.
type TorqueCost struct {
	environment.Starter
	environment.StepLimit
}

// NewTorqueCost creates and returns a new TorqueCost task
func NewTorqueCost(s environment.Starter, maxSteps int) *TorqueCost {
	return &TorqueCost{s, environment.NewStepLimit(maxSteps)}
}

// GetReward returns the negative cost of applying action in state
func (t *TorqueCost) GetReward(state, action, _ mat.Vector) float64 {
	th, thdot := state.AtVec(0), state.AtVec(1)
	u := action.AtVec(0)

	return -(th*th + 0.1*thdot*thdot + 0.001*u*u)
}
