// Package mountaincar implements the continuous-action Mountain Car
// classic control environment
package mountaincar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/timestep"
	"github.com/nottombrown/parallel-trpo/utils/floatutils"
)

// default physical constants
const (
	MinPosition float64 = -1.2
	MaxPosition float64 = 0.6
	MaxSpeed    float64 = 0.07
	Power       float64 = 0.0015 // Engine power
	Gravity     float64 = 0.0025

	MinAction float64 = -1.0
	MaxAction float64 = 1.0

	ActionDims      int = 1
	ObservationDims int = 2
)

// MountainCar implements the classic control environment Mountain Car
// with continuous actions. The agent controls a car in a valley between
// two hills. The car is underpowered and cannot drive up the hill unless
// it rocks back and forth from hill to hill, using its momentum to
// gradually climb higher.
//
// State features consist of the x position of the car and its velocity.
// Upon reaching the minimum position the velocity of the car is set
// to 0.
//
// Actions are 1-dimensional forces. Actions outside of
// [MinAction, MaxAction] are clipped.
type MountainCar struct {
	environment.Task
	positionBounds r1.Interval
	speedBounds    r1.Interval
	actionBounds   r1.Interval
	lastStep       timestep.TimeStep
}

// New creates and returns a new MountainCar with the given Task
func New(t environment.Task) (*MountainCar, timestep.TimeStep, error) {
	m := &MountainCar{
		Task:           t,
		positionBounds: r1.Interval{Min: MinPosition, Max: MaxPosition},
		speedBounds:    r1.Interval{Min: -MaxSpeed, Max: MaxSpeed},
		actionBounds:   r1.Interval{Min: MinAction, Max: MaxAction},
	}
	first, err := m.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return m, first, nil
}

// Reset resets the environment and returns a starting state drawn from
// the Task's Starter
func (m *MountainCar) Reset() (timestep.TimeStep, error) {
	state := m.Start()
	if err := m.validateState(state); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	m.lastStep = timestep.New(timestep.First, 0, state, 0)

	return m.lastStep, nil
}

// Step takes one environmental step given a horizontal force
func (m *MountainCar) Step(action *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	if action.Len() != ActionDims {
		return timestep.TimeStep{}, true, fmt.Errorf("step: actions should "+
			"be 1-dimensional\n\thave(%v)", action.Len())
	}

	force := floatutils.ClipInterval(action.AtVec(0), m.actionBounds)
	state := m.lastStep.Observation
	nextState := m.nextState(state, force)

	reward := m.GetReward(state, mat.NewVecDense(1, []float64{force}),
		nextState)
	next := timestep.New(timestep.Mid, reward, nextState, m.lastStep.Number+1)
	m.End(&next)

	m.lastStep = next
	return next, next.Last(), nil
}

// nextState computes the next state of the environment given the
// current state and a clipped force
func (m *MountainCar) nextState(state mat.Vector, force float64) *mat.VecDense {
	position, velocity := state.AtVec(0), state.AtVec(1)

	velocity += force*Power - Gravity*math.Cos(3*position)
	velocity = floatutils.ClipInterval(velocity, m.speedBounds)

	position += velocity
	position = floatutils.ClipInterval(position, m.positionBounds)

	if position <= m.positionBounds.Min && velocity < 0 {
		velocity = 0
	}
	return mat.NewVecDense(ObservationDims, []float64{position, velocity})
}

// ObservationSpec returns the observation specification of the
// environment
func (m *MountainCar) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lowerBound := mat.NewVecDense(ObservationDims,
		[]float64{m.positionBounds.Min, m.speedBounds.Min})
	upperBound := mat.NewVecDense(ObservationDims,
		[]float64{m.positionBounds.Max, m.speedBounds.Max})

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (m *MountainCar) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{m.actionBounds.Min})
	upperBound := mat.NewVecDense(ActionDims, []float64{m.actionBounds.Max})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// Close implements the environment.Environment interface
func (m *MountainCar) Close() error {
	return nil
}

// String returns a string representation of the environment
func (m *MountainCar) String() string {
	str := "Mountain Car  |  Position: %v  |  Speed: %v"
	state := m.lastStep.Observation
	return fmt.Sprintf(str, state.AtVec(0), state.AtVec(1))
}

// validateState ensures the position and speed are within the
// environmental limits
func (m *MountainCar) validateState(s mat.Vector) error {
	if position := s.AtVec(0); position < m.positionBounds.Min ||
		position > m.positionBounds.Max {
		return fmt.Errorf("illegal position %v ∉ [%v, %v]", position,
			m.positionBounds.Min, m.positionBounds.Max)
	}
	if speed := s.AtVec(1); speed < m.speedBounds.Min ||
		speed > m.speedBounds.Max {
		return fmt.Errorf("illegal speed %v ∉ [%v, %v]", speed,
			m.speedBounds.Min, m.speedBounds.Max)
	}
	return nil
}
