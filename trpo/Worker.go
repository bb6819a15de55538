package trpo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nottombrown/parallel-trpo/rollout"
)

var (
	// ErrClosed is returned when using a closed Worker
	ErrClosed = errors.New("learner closed")

	// ErrTimeout is returned when a learner request does not finish
	// within the Worker's timeout
	ErrTimeout = errors.New("learner request timed out")

	// ErrFailed is returned by every request after the learner has
	// panicked, timed out, or been abandoned mid-request
	ErrFailed = errors.New("learner failed")
)

type requestKind int

const (
	paramsRequest requestKind = iota
	learnRequest
)

type request struct {
	kind  requestKind
	paths []*rollout.Path
	state State
}

type response struct {
	params []float64
	stats  Stats
	err    error
	fatal  bool
}

// Worker serves a Learner from its own goroutine, which is the only
// goroutine to touch the policy and baseline. Requests are strictly
// sequential: at most one is in flight at a time.
type Worker struct {
	learner *Learner
	timeout time.Duration

	tasks   chan *request
	results chan response
	done    chan struct{}

	mu     sync.Mutex
	closed bool
	err    error
}

// NewWorker starts a goroutine serving l. If timeout is positive, a
// request taking longer than timeout fails the Worker.
func NewWorker(l *Learner, timeout time.Duration) *Worker {
	w := &Worker{
		learner: l,
		timeout: timeout,
		tasks:   make(chan *request),
		results: make(chan response, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// run serves requests until it receives the nil request or the task
// channel is closed
func (w *Worker) run() {
	defer close(w.done)
	for req := range w.tasks {
		if req == nil {
			return
		}
		w.results <- w.handle(req)
	}
}

func (w *Worker) handle(req *request) (resp response) {
	defer func() {
		if r := recover(); r != nil {
			resp = response{err: fmt.Errorf("panic: %v", r), fatal: true}
		}
	}()

	switch req.kind {
	case paramsRequest:
		return response{params: w.learner.Params()}

	case learnRequest:
		stats, err := w.learner.Learn(req.paths, req.state)
		if err != nil {
			return response{err: err}
		}
		return response{params: w.learner.Params(), stats: stats}
	}
	return response{err: fmt.Errorf("unknown request %v", req.kind)}
}

// Params returns the learner's current flat policy parameters
func (w *Worker) Params(ctx context.Context) ([]float64, error) {
	resp, err := w.do(ctx, &request{kind: paramsRequest})
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	return resp.params, nil
}

// Learn performs a TRPO update on paths with the trust region and
// iteration given by state. The updated flat policy parameters are
// returned along with the update's statistics.
func (w *Worker) Learn(ctx context.Context, paths []*rollout.Path,
	state State) ([]float64, Stats, error) {
	resp, err := w.do(ctx, &request{kind: learnRequest, paths: paths,
		state: state})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("learn: %w", err)
	}
	return resp.params, resp.stats, nil
}

// Phase returns the phase of the update the learner is running
func (w *Worker) Phase() Phase {
	return w.learner.Phase()
}

// do submits req, waits for it to be accepted, then waits for its
// result
func (w *Worker) do(ctx context.Context, req *request) (response, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return response{}, ErrClosed
	}
	if w.err != nil {
		return response{}, w.err
	}

	select {
	case w.tasks <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}

	var timeout <-chan time.Time
	if w.timeout > 0 {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp := <-w.results:
		if resp.fatal {
			w.err = fmt.Errorf("%w: %v", ErrFailed, resp.err)
			return response{}, w.err
		}
		return resp, resp.err

	case <-timeout:
		w.err = fmt.Errorf("%w: %v", ErrFailed, ErrTimeout)
		return response{}, fmt.Errorf("%w after %v", ErrTimeout, w.timeout)

	case <-ctx.Done():
		w.err = fmt.Errorf("%w: request abandoned: %v", ErrFailed, ctx.Err())
		return response{}, ctx.Err()
	}
}

// Close stops the learner goroutine. If the learner failed while
// serving a request, Close does not wait for that request to finish.
func (w *Worker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.err != nil {
		close(w.tasks)
		return nil
	}
	w.tasks <- nil
	<-w.done
	return nil
}
