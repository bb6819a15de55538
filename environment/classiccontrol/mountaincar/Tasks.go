package mountaincar

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/timestep"
)

const (
	GoalPosition float64 = 0.45
	GoalReward   float64 = 100
	ActionCost   float64 = 0.1
)

// Goal implements the task of driving the car up the right hill past
// GoalPosition, as in the Gym MountainCarContinuous task. Each step
// costs ActionCost times the squared force and driving past the goal
// pays GoalReward.
//
// Episodes end after a step limit or when the car passes the goal.
type Goal struct {
	environment.Starter
	stepEnder environment.StepLimit
	goalEnder environment.IntervalLimit
	goalX     float64
}

// NewGoal creates and returns a new Goal task given a Starter, the
// maximum number of episode steps, and the goal x position
func NewGoal(s environment.Starter, episodeSteps int, goalX float64) *Goal {
	interval := []r1.Interval{{Min: math.Inf(-1), Max: goalX}}
	goalEnder, _ := environment.NewIntervalLimit(interval, []int{0})

	return &Goal{
		Starter:   s,
		stepEnder: environment.NewStepLimit(episodeSteps),
		goalEnder: goalEnder,
		goalX:     goalX,
	}
}

// AtGoal returns whether state is past the goal
func (g *Goal) AtGoal(state mat.Vector) bool {
	return state.AtVec(0) > g.goalX
}

// GetReward returns the reward for applying action in state and
// transitioning to nextState
func (g *Goal) GetReward(_, action, nextState mat.Vector) float64 {
	u := action.AtVec(0)
	reward := -ActionCost * u * u
	if g.AtGoal(nextState) {
		reward += GoalReward
	}
	return reward
}

// End ends the episode once the goal is passed or the step limit is
// reached
func (g *Goal) End(t *timestep.TimeStep) bool {
	if g.goalEnder.End(t) {
		return true
	}
	return g.stepEnder.End(t)
}

// TimestepLimit returns the episode step limit
func (g *Goal) TimestepLimit() int {
	return g.stepEnder.TimestepLimit()
}
