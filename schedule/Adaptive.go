package schedule

import (
	"fmt"
	"math"

	"github.com/nottombrown/parallel-trpo/trpo"
)

// Bounds of the adaptive schedules
const (
	DefaultPeriod       = 10
	InitialLastReward   = -1e6
	MaxTimesteps        = 20000
	MarginMaxTimesteps  = 10000
	MinTimesteps        = 1200
	MinKL               = 0.001
	MaxKL               = 0.01
	DefaultRewardMargin = 0.05
)

// AdaptiveConfig configures the adaptive schedules. Every Period
// iterations the reward summed over the window is compared with the
// previous window's. If it did not improve, batches grow and the trust
// region shrinks; otherwise batches shrink and the trust region grows.
type AdaptiveConfig struct {
	Period        int
	TimestepAdapt int
	KLAdapt       float64

	MinTimesteps, MaxTimesteps int
	MinKL, MaxKL               float64

	// Margin is the fraction of the previous window's reward by which
	// the window must improve. Only used by the adaptive-margin type.
	Margin float64
}

// DefaultAdaptiveConfig returns the default bounds with no adaptation
// step
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Period:       DefaultPeriod,
		MinTimesteps: MinTimesteps,
		MaxTimesteps: MaxTimesteps,
		MinKL:        MinKL,
		MaxKL:        MaxKL,
		Margin:       DefaultRewardMargin,
	}
}

// Validate checks an AdaptiveConfig for errors
func (a AdaptiveConfig) Validate() error {
	switch {
	case a.Period <= 0:
		return fmt.Errorf("validate: period must be positive\n\thave(%v)",
			a.Period)
	case a.TimestepAdapt < 0 || a.KLAdapt < 0:
		return fmt.Errorf("validate: adaptation steps must be "+
			"non-negative\n\thave(%v, %v)", a.TimestepAdapt, a.KLAdapt)
	case a.MinKL <= 0:
		return fmt.Errorf("validate: minimum KL must be positive\n\thave(%v)",
			a.MinKL)
	case a.MinTimesteps > a.MaxTimesteps || a.MinKL > a.MaxKL:
		return fmt.Errorf("validate: invalid bounds")
	}
	return nil
}

// Create implements the Config interface
func (a AdaptiveConfig) Create(t Type) Schedule {
	return &adaptive{
		AdaptiveConfig: a,
		useMargin:      t == AdaptiveMargin,
		lastReward:     InitialLastReward,
	}
}

// ValidType implements the Config interface
func (a AdaptiveConfig) ValidType(t Type) bool {
	return t == AdaptiveReward || t == AdaptiveMargin
}

type adaptive struct {
	AdaptiveConfig
	useMargin bool

	lastReward   float64
	recentReward float64
}

// Adapt implements the Schedule interface
func (a *adaptive) Adapt(meanReward float64, s *trpo.State) bool {
	a.recentReward += meanReward
	if s.Iteration%a.Period != 0 {
		return false
	}

	threshold := a.lastReward
	if a.useMargin {
		threshold += math.Abs(a.lastReward * a.Margin)
	}

	// A step never crosses a bound, so MaxKL stays positive
	before := *s
	if a.recentReward < threshold {
		if s.TimestepsPerBatch < a.MaxTimesteps {
			s.TimestepsPerBatch = min(s.TimestepsPerBatch+a.TimestepAdapt,
				a.MaxTimesteps)
		}
		if s.MaxKL > a.MinKL {
			s.MaxKL = math.Max(s.MaxKL-a.KLAdapt, a.MinKL)
		}
	} else {
		if s.TimestepsPerBatch > a.MinTimesteps {
			s.TimestepsPerBatch = max(s.TimestepsPerBatch-a.TimestepAdapt,
				a.MinTimesteps)
		}
		if s.MaxKL < a.MaxKL {
			s.MaxKL = math.Min(s.MaxKL+a.KLAdapt, a.MaxKL)
		}
	}

	a.lastReward = a.recentReward
	a.recentReward = 0
	return *s != before
}
