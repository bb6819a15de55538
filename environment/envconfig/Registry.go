// Package envconfig maps task identifiers to environment factories.
// Built-in tasks are registered by this package; other packages may
// register more tasks, or a fallback that resolves any identifier not
// registered explicitly.
package envconfig

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/environment/classiccontrol/mountaincar"
	"github.com/nottombrown/parallel-trpo/environment/classiccontrol/pendulum"
	"github.com/nottombrown/parallel-trpo/environment/toy"
)

// ErrUnknownTask is returned when no factory is registered for a task
var ErrUnknownTask = errors.New("unknown task")

// Built-in task identifiers
const (
	Pendulum              = "Pendulum-v0"
	PendulumSwingUp       = "PendulumSwingUp-v0"
	MountainCarContinuous = "MountainCarContinuous-v0"
	Constant              = "Constant-v0"
)

// Episode cutoffs of the built-in tasks
const (
	PendulumCutoff    = 200
	MountainCarCutoff = 999
)

// Factory creates a new environment seeded with seed
type Factory func(seed uint64) (env.Environment, error)

// Resolver creates an environment for an arbitrary task identifier
type Resolver func(task string, seed uint64) (env.Environment, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{
		Pendulum: func(seed uint64) (env.Environment, error) {
			return CreatePendulum(Pendulum, PendulumCutoff, seed)
		},
		PendulumSwingUp: func(seed uint64) (env.Environment, error) {
			return CreatePendulum(PendulumSwingUp, PendulumCutoff, seed)
		},
		MountainCarContinuous: func(seed uint64) (env.Environment, error) {
			return CreateMountainCar(MountainCarCutoff, seed)
		},
		Constant: func(uint64) (env.Environment, error) {
			return toy.NewConstant(10, 1, 1)
		},
	}
	fallback Resolver
)

// Register registers a factory for task, replacing any existing one
func Register(task string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[task] = f
}

// SetFallback sets the Resolver used for tasks that have no registered
// factory
func SetFallback(r Resolver) {
	mu.Lock()
	defer mu.Unlock()
	fallback = r
}

// Tasks returns the registered task identifiers in sorted order
func Tasks() []string {
	mu.RLock()
	defer mu.RUnlock()

	tasks := make([]string, 0, len(registry))
	for task := range registry {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)
	return tasks
}

// Create returns a new environment for task
func Create(task string, seed uint64) (env.Environment, error) {
	mu.RLock()
	f, ok := registry[task]
	r := fallback
	mu.RUnlock()

	switch {
	case ok:
		e, err := f(seed)
		if err != nil {
			return nil, fmt.Errorf("create: could not create %v: %w", task, err)
		}
		return e, nil

	case r != nil:
		e, err := r(task, seed)
		if err != nil {
			return nil, fmt.Errorf("create: could not create %v: %w", task, err)
		}
		return e, nil
	}

	return nil, fmt.Errorf("create: %w %q", ErrUnknownTask, task)
}

// FactoryFor returns a Factory for task, checking that the task can be
// created by creating and closing one environment
func FactoryFor(task string) (Factory, error) {
	probe, err := Create(task, 0)
	if err != nil {
		return nil, err
	}
	probe.Close()

	return func(seed uint64) (env.Environment, error) {
		return Create(task, seed)
	}, nil
}

// CreatePendulum is a factory for creating the Pendulum environment
// with default physical parameters. The Pendulum task pays the Gym
// quadratic cost; the PendulumSwingUp task pays the cosine of the angle.
func CreatePendulum(task string, cutoff int, seed uint64) (env.Environment,
	error) {
	angle := r1.Interval{Min: -pendulum.AngleBound, Max: pendulum.AngleBound}
	speed := r1.Interval{Min: -1.0, Max: 1.0}

	s := env.NewUniformStarter([]r1.Interval{angle, speed}, seed)

	var t env.Task
	switch task {
	case Pendulum:
		t = pendulum.NewTorqueCost(s, cutoff)

	case PendulumSwingUp:
		t = pendulum.NewSwingUp(s, cutoff)

	default:
		return nil, fmt.Errorf("createPendulum: %w %q", ErrUnknownTask, task)
	}

	p, _, err := pendulum.New(t)
	if err != nil {
		return nil, fmt.Errorf("createPendulum: %v", err)
	}
	return p, nil
}

// CreateMountainCar is a factory for creating the continuous-action
// Mountain Car environment. Episodes start at rest at a position drawn
// uniformly from [-0.6, -0.4].
func CreateMountainCar(cutoff int, seed uint64) (env.Environment, error) {
	position := r1.Interval{Min: -0.6, Max: -0.4}
	speed := r1.Interval{Min: 0, Max: 0}

	s := env.NewUniformStarter([]r1.Interval{position, speed}, seed)
	t := mountaincar.NewGoal(s, cutoff, mountaincar.GoalPosition)

	m, _, err := mountaincar.New(t)
	if err != nil {
		return nil, fmt.Errorf("createMountainCar: %v", err)
	}
	return m, nil
}
