package rollout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/nottombrown/parallel-trpo/environment"
	"github.com/nottombrown/parallel-trpo/policy"
)

// DefaultWorkers is the default number of rollout workers
const DefaultWorkers = 5

var (
	// ErrCollecting is returned when parameters are broadcast or a
	// collection is started while another collection is running
	ErrCollecting = errors.New("collection in progress")

	// ErrClosed is returned when using a closed Collector
	ErrClosed = errors.New("collector closed")
)

// EnvFactory creates a new environment for a rollout worker
type EnvFactory func(seed uint64) (environment.Environment, error)

// Collector collects complete episodes in parallel. Each worker
// goroutine owns an environment and a private copy of the policy;
// policy parameters are only replaced between collections.
type Collector struct {
	workers []*worker
	rounds  []chan *round
	wg      sync.WaitGroup

	mu         sync.Mutex
	collecting bool
	closed     bool
}

// round is one request to collect episodes
type round struct {
	ctx   context.Context
	paths chan<- *Path
	errs  chan<- error
	done  *sync.WaitGroup
}

// NewCollector returns a Collector with numWorkers workers. Worker i
// creates its environment with seed+i and samples actions from a copy
// of prototype seeded with seed+i.
func NewCollector(factory EnvFactory, prototype *policy.GaussianMLP,
	numWorkers int, seed uint64) (*Collector, error) {
	if numWorkers <= 0 {
		return nil, fmt.Errorf("newCollector: number of workers must be "+
			"positive\n\thave(%v)", numWorkers)
	}

	c := &Collector{}
	for i := 0; i < numWorkers; i++ {
		workerSeed := seed + uint64(i)
		env, err := factory(workerSeed)
		if err != nil {
			c.closeEnvs()
			return nil, fmt.Errorf("newCollector: worker %v: could not "+
				"create environment: %v", i, err)
		}

		obsDims, actDims := env.ObservationSpec().Dims(), env.ActionSpec().Dims()
		if obsDims != prototype.Features() || actDims != prototype.ActionDims() {
			env.Close()
			c.closeEnvs()
			return nil, fmt.Errorf("newCollector: environment and policy "+
				"dimensions differ\n\twant(%v, %v)\n\thave(%v, %v)",
				prototype.Features(), prototype.ActionDims(), obsDims, actDims)
		}

		if env.TimestepLimit() <= 0 {
			env.Close()
			c.closeEnvs()
			return nil, fmt.Errorf("newCollector: timestep limit must be "+
				"positive\n\thave(%v)", env.TimestepLimit())
		}

		c.workers = append(c.workers, &worker{
			id:            i,
			env:           env,
			policy:        prototype.Clone(workerSeed),
			maxPathLength: env.TimestepLimit(),
		})
	}

	c.rounds = make([]chan *round, numWorkers)
	for i, w := range c.workers {
		c.rounds[i] = make(chan *round)
		c.wg.Add(1)
		go func(w *worker, rounds <-chan *round) {
			defer c.wg.Done()
			w.run(rounds)
		}(w, c.rounds[i])
	}

	return c, nil
}

// NumWorkers returns the number of rollout workers
func (c *Collector) NumWorkers() int {
	return len(c.workers)
}

// SetParams broadcasts new policy parameters to every worker. It fails
// with ErrCollecting if a collection is running.
func (c *Collector) SetParams(params []float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return fmt.Errorf("setParams: %w", ErrClosed)
	case c.collecting:
		return fmt.Errorf("setParams: %w", ErrCollecting)
	}

	for _, w := range c.workers {
		if err := w.policy.SetParams(params); err != nil {
			return fmt.Errorf("setParams: worker %v: %v", w.id, err)
		}
	}
	return nil
}

// Collect blocks until at least timesteps timesteps worth of complete
// episodes have been collected and returns them. The total may exceed
// timesteps since episodes are never truncated. All workers are idle
// again when Collect returns.
func (c *Collector) Collect(ctx context.Context, timesteps int) ([]*Path,
	error) {
	if timesteps <= 0 {
		return nil, fmt.Errorf("collect: timesteps must be positive"+
			"\n\thave(%v)", timesteps)
	}

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, fmt.Errorf("collect: %w", ErrClosed)
	case c.collecting:
		c.mu.Unlock()
		return nil, fmt.Errorf("collect: %w", ErrCollecting)
	}
	c.collecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.collecting = false
		c.mu.Unlock()
	}()

	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	paths := make(chan *Path)
	errs := make(chan error, len(c.workers))
	var done sync.WaitGroup
	done.Add(len(c.workers))
	r := &round{ctx: roundCtx, paths: paths, errs: errs, done: &done}
	for _, rounds := range c.rounds {
		rounds <- r
	}

	var (
		collected []*Path
		total     int
		err       error
	)
	for total < timesteps && err == nil {
		select {
		case p := <-paths:
			collected = append(collected, p)
			total += p.Len()

		case err = <-errs:

		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	cancel()
	done.Wait()

	if err != nil {
		return nil, fmt.Errorf("collect: %w", err)
	}
	return collected, nil
}

// Close stops all workers and closes their environments. Close must
// not be called while a collection is running.
func (c *Collector) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.collecting {
		c.mu.Unlock()
		return fmt.Errorf("close: %w", ErrCollecting)
	}
	c.closed = true
	c.mu.Unlock()

	for _, rounds := range c.rounds {
		close(rounds)
	}
	c.wg.Wait()

	return c.closeEnvs()
}

func (c *Collector) closeEnvs() error {
	var firstErr error
	for _, w := range c.workers {
		if err := w.env.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// worker collects episodes with its own environment and policy copy
type worker struct {
	id            int
	env           environment.Environment
	policy        *policy.GaussianMLP
	maxPathLength int
}

// run serves collection rounds until rounds is closed
func (w *worker) run(rounds <-chan *round) {
	for r := range rounds {
		w.collect(r)
		r.done.Done()
	}
}

// collect sends complete episodes until the round is cancelled
func (w *worker) collect(r *round) {
	for r.ctx.Err() == nil {
		path, err := w.episode(r.ctx)
		if err != nil {
			if r.ctx.Err() == nil {
				r.errs <- fmt.Errorf("worker %v: %v", w.id, err)
			}
			return
		}
		if path == nil {
			return
		}

		select {
		case r.paths <- path:
		case <-r.ctx.Done():
			return
		}
	}
}

// episode runs a single episode. A nil path and nil error are returned
// if the context is cancelled before the episode ends; partial episodes
// are discarded.
func (w *worker) episode(ctx context.Context) (path *Path, err error) {
	defer func() {
		if r := recover(); r != nil {
			path, err = nil, fmt.Errorf("episode: panic: %v", r)
		}
	}()

	step, err := w.env.Reset()
	if err != nil {
		return nil, fmt.Errorf("episode: %v", err)
	}

	features, actDims := w.policy.Features(), w.policy.ActionDims()
	logStd := w.policy.LogStd()
	var obs, actions, means, logStds, rewards []float64

	terminated := false
	for t := 0; t < w.maxPathLength; t++ {
		if ctx.Err() != nil {
			return nil, nil
		}

		o := mat.Col(nil, 0, step.Observation)
		action, mean := w.policy.Sample(o)

		var done bool
		step, done, err = w.env.Step(mat.NewVecDense(actDims, action))
		if err != nil {
			return nil, fmt.Errorf("episode: %v", err)
		}

		obs = append(obs, o...)
		actions = append(actions, action...)
		means = append(means, mean...)
		logStds = append(logStds, logStd...)
		rewards = append(rewards, step.Reward)

		if done {
			terminated = true
			break
		}
	}

	n := len(rewards)
	return &Path{
		Obs:         mat.NewDense(n, features, obs),
		Actions:     mat.NewDense(n, actDims, actions),
		MeanDists:   mat.NewDense(n, actDims, means),
		LogStdDists: mat.NewDense(n, actDims, logStds),
		Rewards:     rewards,
		Terminated:  terminated,
	}, nil
}
