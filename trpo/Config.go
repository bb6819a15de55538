// Package trpo implements the Trust Region Policy Optimization update
// of a Gaussian MLP policy and the goroutine that serves it.
package trpo

import (
	"fmt"

	"github.com/nottombrown/parallel-trpo/optimize"
)

// MinSHS lower-bounds the quadratic form ½ sᵀFs before the step length
// is computed from it
const MinSHS = 1e-12

// Config configures a Learner
type Config struct {
	Gamma         float64
	CGDamping     float64
	CGIters       int
	CGResidualTol float64
	MaxBacktracks int
	AcceptRatio   float64

	// CommitLineSearchResult commits the point accepted by the line
	// search. When false the full step is always committed and the line
	// search result is only reported.
	CommitLineSearchResult bool
}

// DefaultConfig returns the default Learner configuration
func DefaultConfig() Config {
	return Config{
		Gamma:         0.99,
		CGDamping:     1e-3,
		CGIters:       optimize.DefaultCGIters,
		CGResidualTol: optimize.DefaultResidualTol,
		MaxBacktracks: optimize.DefaultMaxBacktracks,
		AcceptRatio:   optimize.DefaultAcceptRatio,
	}
}

// Validate checks a Config for errors
func (c Config) Validate() error {
	switch {
	case c.Gamma <= 0 || c.Gamma > 1:
		return fmt.Errorf("validate: gamma must be in (0, 1]\n\thave(%v)",
			c.Gamma)
	case c.CGDamping < 0:
		return fmt.Errorf("validate: damping must be non-negative"+
			"\n\thave(%v)", c.CGDamping)
	case c.CGIters <= 0:
		return fmt.Errorf("validate: conjugate gradient iterations must "+
			"be positive\n\thave(%v)", c.CGIters)
	case c.CGResidualTol < 0:
		return fmt.Errorf("validate: residual tolerance must be "+
			"non-negative\n\thave(%v)", c.CGResidualTol)
	case c.MaxBacktracks <= 0:
		return fmt.Errorf("validate: backtracks must be positive"+
			"\n\thave(%v)", c.MaxBacktracks)
	}
	return nil
}
