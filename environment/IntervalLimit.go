package environment

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/nottombrown/parallel-trpo/timestep"
)

// IntervalLimit implements the Ender interface to end episodes
// whenever a single feature in a feature vector leaves some interval
type IntervalLimit struct {
	intervals []r1.Interval
	indices   []int
}

// NewIntervalLimit creates and returns a new interval limit which ends
// an episode once observation feature obsIndices[i] leaves limits[i]
func NewIntervalLimit(limits []r1.Interval, obsIndices []int) (IntervalLimit,
	error) {
	if len(limits) != len(obsIndices) {
		return IntervalLimit{}, fmt.Errorf("newIntervalLimit: limits "+
			"should have the same length as observation indices"+
			"\n\twant(%v)\n\thave(%v)", len(obsIndices), len(limits))
	}
	return IntervalLimit{limits, obsIndices}, nil
}

// End determines whether or not the current episode should be ended.
// If so, End modifies the timestep so that its StepType is
// timestep.Last.
func (i IntervalLimit) End(t *timestep.TimeStep) bool {
	for index, feature := range i.indices {
		interval := i.intervals[index]
		if v := t.Observation.AtVec(feature); v > interval.Max ||
			v < interval.Min {
			t.StepType = timestep.Last
			return true
		}
	}
	return false
}
