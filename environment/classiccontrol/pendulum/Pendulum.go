// Package pendulum implements the continuous-action pendulum classic
// control environment
package pendulum

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
	AngleBound  float64 = math.Pi // +/- Angle bounds
	SpeedBound  float64 = 8.0     // +/- Speed bounds
	TorqueBound float64 = 2.0     // +/- Torque bounds

	dt              float64 = 0.05
	Gravity         float64 = 9.8
	Mass            float64 = 1.0
	Length          float64 = 1.0
	ActionDims      int     = 1
	ObservationDims int     = 2
)

// Pendulum implements the classic control environment Pendulum. In this
// environment, a pendulum is attached to a fixed base. An agent can
// swing the pendulum back and forth, but the swinging torque is
// underpowered. In order to be able to swing the pendulum straight up,
// it must first be rocked back and forth, using the momentum to
// gradually climb higher.
//
// State features consist of the angle of the pendulum from the positive
// y-axis and the angular velocity of the pendulum. The angular velocity
// is clipped to [-SpeedBound, SpeedBound] and angles are normalized to
// stay within [-π, π).
//
// Actions are 1-dimensional torques applied at the fixed base. Actions
// outside of [-TorqueBound, TorqueBound] are clipped.
type Pendulum struct {
	environment.Task
	speedBounds  r1.Interval
	torqueBounds r1.Interval
	lastStep     timestep.TimeStep
}

// New creates and returns a new Pendulum with the given Task
func New(t environment.Task) (*Pendulum, timestep.TimeStep, error) {
	p := &Pendulum{
		Task:         t,
		speedBounds:  r1.Interval{Min: -SpeedBound, Max: SpeedBound},
		torqueBounds: r1.Interval{Min: -TorqueBound, Max: TorqueBound},
	}
	first, err := p.Reset()
	if err != nil {
		return nil, timestep.TimeStep{}, fmt.Errorf("new: %v", err)
	}
	return p, first, nil
}

// Reset resets the environment and returns a starting state drawn from
// the Task's Starter
func (p *Pendulum) Reset() (timestep.TimeStep, error) {
	state := p.Start()
	if err := p.validateState(state); err != nil {
		return timestep.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	p.lastStep = timestep.New(timestep.First, 0, state, 0)

	return p.lastStep, nil
}

// Step takes one environmental step given a torque
func (p *Pendulum) Step(action *mat.VecDense) (timestep.TimeStep, bool,
	error) {
	if action.Len() != ActionDims {
		return timestep.TimeStep{}, true, fmt.Errorf("step: actions should "+
			"be 1-dimensional\n\thave(%v)", action.Len())
	}

	torque := floatutils.ClipInterval(action.AtVec(0), p.torqueBounds)
	state := p.lastStep.Observation
	nextState := p.nextState(state, torque)

	reward := p.GetReward(state, mat.NewVecDense(1, []float64{torque}),
		nextState)
	next := timestep.New(timestep.Mid, reward, nextState, p.lastStep.Number+1)
	p.End(&next)

	p.lastStep = next
	return next, next.Last(), nil
}

// nextState computes the next state of the environment given the
// current state and a clipped torque
func (p *Pendulum) nextState(state mat.Vector, torque float64) *mat.VecDense {
	th, thdot := state.AtVec(0), state.AtVec(1)

	newthdot := thdot + (-3*Gravity/(2*Length)*math.Sin(th+math.Pi)+
		3.0/(Mass*Length*Length)*torque)*dt
	newth := th + newthdot*dt

	newthdot = floatutils.ClipInterval(newthdot, p.speedBounds)

	return mat.NewVecDense(ObservationDims, []float64{normalizeAngle(newth),
		newthdot})
}

// ObservationSpec returns the observation specification of the environment
func (p *Pendulum) ObservationSpec() environment.Spec {
	shape := mat.NewVecDense(ObservationDims, nil)
	lowerBound := mat.NewVecDense(ObservationDims,
		[]float64{-AngleBound, p.speedBounds.Min})
	upperBound := mat.NewVecDense(ObservationDims,
		[]float64{AngleBound, p.speedBounds.Max})

	return environment.NewSpec(shape, environment.Observation, lowerBound,
		upperBound, environment.Continuous)
}

// ActionSpec returns the action specification of the environment
func (p *Pendulum) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims, []float64{p.torqueBounds.Min})
	upperBound := mat.NewVecDense(ActionDims, []float64{p.torqueBounds.Max})

	return environment.NewSpec(shape, environment.Action, lowerBound,
		upperBound, environment.Continuous)
}

// Close implements the environment.Environment interface
func (p *Pendulum) Close() error {
	return nil
}

// String converts the environment to a string representation
func (p *Pendulum) String() string {
	str := "Pendulum  |  theta: %v  |  theta dot: %v"
	theta := p.lastStep.Observation.AtVec(0)
	thetadot := p.lastStep.Observation.AtVec(1)

	return fmt.Sprintf(str, theta, thetadot)
}

// validateState ensures that the angle and angular velocity are within
// the environmental limits
func (p *Pendulum) validateState(obs mat.Vector) error {
	if th := obs.AtVec(0); th < -AngleBound || th > AngleBound {
		return fmt.Errorf("theta %v is not within bounds [%v, %v]", th,
			-AngleBound, AngleBound)
	}
	if thdot := obs.AtVec(1); thdot < p.speedBounds.Min ||
		thdot > p.speedBounds.Max {
		return fmt.Errorf("theta dot %v is not within bounds %v", thdot,
			p.speedBounds)
	}
	return nil
}

// normalizeAngle wraps th into [-π, π)
func normalizeAngle(th float64) float64 {
	th = math.Mod(th+math.Pi, 2*math.Pi)
	if th < 0 {
		th += 2 * math.Pi
	}
	return th - math.Pi
}
