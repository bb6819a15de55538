package trpo

import "fmt"

// State is the training state shared between the training loop, the
// learner, and the hyperparameter schedule
type State struct {
	Iteration         int
	MaxKL             float64
	TimestepsPerBatch int
	ElapsedSteps      int
}

// Phase is the stage of an update a Learner is in
type Phase int32

const (
	Idle Phase = iota
	CollectingStats
	Solving
	Committing
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case CollectingStats:
		return "CollectingStats"
	case Solving:
		return "Solving"
	case Committing:
		return "Committing"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}
