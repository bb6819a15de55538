//go:build gym

// Package gym provides access to OpenAI Gym environments through the
// GoGym bindings, found at https://github.com/samuelfneumann/GoGym.
//
// Only environments with Box observation and action spaces can be used.
// Episodes are cut off at the task's default timestep limit.
package gym

import (
	"fmt"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"

	env "github.com/nottombrown/parallel-trpo/environment"
	ts "github.com/nottombrown/parallel-trpo/timestep"
)

// DefaultTimestepLimit is used for tasks missing from TimestepLimits
const DefaultTimestepLimit = 1000

// TimestepLimits holds the default episode cutoffs of Gym tasks
var TimestepLimits = map[string]int{
	"Pendulum-v0":               200,
	"MountainCarContinuous-v0":  999,
	"Reacher-v1":                50,
	"Reacher-v2":                50,
	"InvertedPendulum-v2":       1000,
	"InvertedDoublePendulum-v2": 1000,
	"Hopper-v2":                 1000,
	"Walker2d-v2":               1000,
	"HalfCheetah-v2":            1000,
	"Swimmer-v2":                1000,
	"Ant-v2":                    1000,
	"Humanoid-v2":               1000,
	"LunarLanderContinuous-v2":  1000,
	"BipedalWalker-v3":          1600,
}

// GymEnv implements access to an OpenAI Gym environment using GoGym
type GymEnv struct {
	gogym.Environment

	name        string
	limit       int
	currentStep ts.TimeStep
}

// New returns a new GymEnv with the given name, which must be a legal
// name from the OpenAI Gym suite.
func New(name string, seed uint64) (env.Environment, error) {
	goGymEnv, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}
	goGymEnv.Seed(int(seed))

	limit, ok := TimestepLimits[name]
	if !ok {
		limit = DefaultTimestepLimit
	}

	g := &GymEnv{Environment: goGymEnv, name: name, limit: limit}
	if _, err := g.Reset(); err != nil {
		goGymEnv.Close()
		return nil, fmt.Errorf("new: %v", err)
	}
	return g, nil
}

// Step takes a single environmental step
func (g *GymEnv) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	obs, reward, done, err := g.Environment.Step(a)
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: could not step "+
			"GoGym environment: %v", err)
	}

	t := ts.New(ts.Mid, reward, obs, g.currentStep.Number+1)
	if done || t.Number >= g.limit {
		t.StepType = ts.Last
	}
	g.currentStep = t

	return t, t.Last(), nil
}

// Reset resets the environment to some starting state
func (g *GymEnv) Reset() (ts.TimeStep, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: could not reset "+
			"environment: %v", err)
	}

	g.currentStep = ts.New(ts.First, 0, obs, 0)
	return g.currentStep, nil
}

// ObservationSpec returns the observation spec of the environment
func (g *GymEnv) ObservationSpec() env.Spec {
	return g.spec(g.ObservationSpace(), env.Observation)
}

// ActionSpec returns the action specification of the environment
func (g *GymEnv) ActionSpec() env.Spec {
	return g.spec(g.ActionSpace(), env.Action)
}

func (g *GymEnv) spec(space any, t env.SpecType) env.Spec {
	box, ok := space.(*gogym.BoxSpace)
	if !ok {
		panic(fmt.Sprintf("spec: %v: only Box spaces are supported, "+
			"have %T", g.name, space))
	}
	low, high := box.Low()[0], box.High()[0]
	shape := mat.NewVecDense(low.Len(), nil)

	return env.NewSpec(shape, t, low, high, env.Continuous)
}

// TimestepLimit returns the episode cutoff of the environment
func (g *GymEnv) TimestepLimit() int {
	return g.limit
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *GymEnv) Close() error {
	g.Environment.Close()
	return nil
}
