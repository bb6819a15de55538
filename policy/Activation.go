package policy

import (
	"fmt"
	"math"
)

// Activation names a hidden-layer nonlinearity of a GaussianMLP
type Activation string

const (
	ReLU Activation = "relu"
	Tanh Activation = "tanh"
)

// validate returns an error if the Activation is unknown
func (a Activation) validate() error {
	switch a {
	case ReLU, Tanh:
		return nil
	}
	return fmt.Errorf("activation: unknown activation %q", string(a))
}

// apply applies the activation element-wise, in place
func (a Activation) apply(x []float64) {
	switch a {
	case ReLU:
		for i, v := range x {
			if v < 0 {
				x[i] = 0
			}
		}
	case Tanh:
		for i, v := range x {
			x[i] = math.Tanh(v)
		}
	}
}

// deriv returns the derivative of the activation with respect to its
// input, given the input pre and the output post of the activation.
func (a Activation) deriv(pre, post float64) float64 {
	switch a {
	case ReLU:
		if pre > 0 {
			return 1
		}
		return 0
	case Tanh:
		return 1 - post*post
	}
	panic(fmt.Sprintf("deriv: unknown activation %q", string(a)))
}
