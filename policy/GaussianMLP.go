// Package policy implements the diagonal Gaussian MLP policy that TRPO
// optimizes, together with the derivatives TRPO needs from it.
//
// All parameters of a policy live in a single flat []float64. Weight
// matrices, biases, and the log standard deviation are views into that
// vector, so reading or overwriting the flat parameters never requires
// copying layer by layer.
package policy

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Config describes the architecture and initialization of a
// GaussianMLP
type Config struct {
	HiddenSizes []int
	Activation  Activation

	// Weights are drawn from U[-InitBound, InitBound], biases are zero
	InitBound float64

	// The log standard deviation is drawn from N(0, LogStdScale²)
	LogStdScale float64
}

// DefaultConfig returns a two hidden layer, 64 unit, ReLU policy
// configuration.
func DefaultConfig() Config {
	return Config{
		HiddenSizes: []int{64, 64},
		Activation:  ReLU,
		InitBound:   0.05,
		LogStdScale: 0.01,
	}
}

// GaussianMLP is a diagonal Gaussian policy. The mean of the action
// distribution is an MLP of the observation with a linear output layer.
// The log standard deviation is a free parameter vector which is shared
// by all observations.
type GaussianMLP struct {
	features   int
	actionDims int
	activation Activation

	layout Layout
	params []float64

	// Views into params
	weights []*mat.Dense
	biases  [][]float64
	logStd  []float64

	normal distuv.Normal
}

// NewGaussianMLP returns a new GaussianMLP for observations with
// features dimensions and actions with actionDims dimensions.
func NewGaussianMLP(features, actionDims int, c Config,
	seed uint64) (*GaussianMLP, error) {
	if features <= 0 || actionDims <= 0 {
		return nil, fmt.Errorf("newGaussianMLP: features and action "+
			"dimensions must be positive\n\thave(%v, %v)", features,
			actionDims)
	}
	for _, size := range c.HiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newGaussianMLP: hidden sizes must be "+
				"positive\n\thave(%v)", c.HiddenSizes)
		}
	}
	if err := c.Activation.validate(); err != nil {
		return nil, fmt.Errorf("newGaussianMLP: %v", err)
	}
	if c.InitBound < 0 {
		return nil, fmt.Errorf("newGaussianMLP: negative init bound %v",
			c.InitBound)
	}

	layout := newLayout(features, c.HiddenSizes, actionDims)
	p := &GaussianMLP{
		features:   features,
		actionDims: actionDims,
		activation: c.Activation,
		layout:     layout,
		params:     make([]float64, layout.Len()),
	}
	p.bind()

	src := rand.NewSource(seed)
	uniform := distuv.Uniform{Min: -c.InitBound, Max: c.InitBound, Src: src}
	for _, w := range p.weights {
		data := w.RawMatrix().Data
		for i := range data {
			data[i] = uniform.Rand()
		}
	}
	init := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := range p.logStd {
		p.logStd[i] = c.LogStdScale * init.Rand()
	}

	p.normal = distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed + 1)}
	return p, nil
}

// bind creates the layer views into the flat parameter vector
func (p *GaussianMLP) bind() {
	layers := (len(p.layout) - 1) / 2
	p.weights = make([]*mat.Dense, layers)
	p.biases = make([][]float64, layers)

	for i := 0; i < layers; i++ {
		w := p.layout[2*i]
		p.weights[i] = mat.NewDense(w.Rows, w.Cols, p.layout.Slice(p.params, 2*i))
		p.biases[i] = p.layout.Slice(p.params, 2*i+1)
	}
	p.logStd = p.layout.Slice(p.params, len(p.layout)-1)
}

// Clone returns a deep copy of the policy. The copy samples actions
// using its own random source seeded with seed.
func (p *GaussianMLP) Clone(seed uint64) *GaussianMLP {
	clone := &GaussianMLP{
		features:   p.features,
		actionDims: p.actionDims,
		activation: p.activation,
		layout:     p.Layout(),
		params:     p.Params(),
		normal:     distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}
	clone.bind()
	return clone
}

// Features returns the number of observation features
func (p *GaussianMLP) Features() int {
	return p.features
}

// ActionDims returns the number of action dimensions
func (p *GaussianMLP) ActionDims() int {
	return p.actionDims
}

// HiddenSizes returns the number of units in each hidden layer
func (p *GaussianMLP) HiddenSizes() []int {
	layers := (len(p.layout) - 1) / 2
	sizes := make([]int, 0, layers-1)
	for i := 0; i < layers-1; i++ {
		sizes = append(sizes, p.layout[2*i].Cols)
	}
	return sizes
}

// Activation returns the hidden-layer activation of the policy
func (p *GaussianMLP) Activation() Activation {
	return p.activation
}

// Layout returns a copy of the parameter layout of the policy
func (p *GaussianMLP) Layout() Layout {
	return append(Layout(nil), p.layout...)
}

// NumParams returns the length of the flat parameter vector
func (p *GaussianMLP) NumParams() int {
	return len(p.params)
}

// Params returns a copy of the flat parameter vector
func (p *GaussianMLP) Params() []float64 {
	return append([]float64(nil), p.params...)
}

// SetParams overwrites all parameters of the policy with theta
func (p *GaussianMLP) SetParams(theta []float64) error {
	if len(theta) != len(p.params) {
		return fmt.Errorf("setParams: invalid number of parameters"+
			"\n\twant(%v)\n\thave(%v)", len(p.params), len(theta))
	}
	copy(p.params, theta)
	return nil
}

// LogStd returns a copy of the log standard deviation vector
func (p *GaussianMLP) LogStd() []float64 {
	return append([]float64(nil), p.logStd...)
}

// Sample samples an action for a single observation. The mean of the
// action distribution is also returned.
func (p *GaussianMLP) Sample(obs []float64) (action, mean []float64) {
	tape := p.Forward(mat.NewDense(1, p.features, obs))
	mean = tape.Mean.RawRowView(0)

	action = make([]float64, p.actionDims)
	for i := range action {
		action[i] = mean[i] + math.Exp(p.logStd[i])*p.normal.Rand()
	}
	return action, mean
}

// Tape records the forward pass of a batch of observations through the
// policy so that it can later be differentiated.
type Tape struct {
	input mat.Matrix
	pre   []*mat.Dense
	post  []*mat.Dense

	// Mean is the batch of action means, one row per observation
	Mean *mat.Dense

	// LogStd is the log standard deviation shared by all rows
	LogStd []float64
}

// Len returns the number of observations on the tape
func (t *Tape) Len() int {
	r, _ := t.Mean.Dims()
	return r
}

// Forward computes the action distribution of a batch of observations,
// one observation per row.
func (p *GaussianMLP) Forward(obs mat.Matrix) *Tape {
	n, f := obs.Dims()
	if f != p.features {
		panic(fmt.Sprintf("forward: invalid number of features"+
			"\n\twant(%v)\n\thave(%v)", p.features, f))
	}

	tape := &Tape{input: obs, LogStd: p.LogStd()}
	var h mat.Matrix = obs
	last := len(p.weights) - 1
	for i, w := range p.weights {
		_, out := w.Dims()
		z := mat.NewDense(n, out, nil)
		z.Mul(h, w)
		addBias(z, p.biases[i])

		if i == last {
			tape.Mean = z
			break
		}
		a := mat.DenseCopyOf(z)
		p.activation.apply(a.RawMatrix().Data)
		tape.pre = append(tape.pre, z)
		tape.post = append(tape.post, a)
		h = a
	}
	return tape
}

// Backward returns the gradient with respect to the flat parameters of
// a scalar loss, given the partial derivatives of the loss with respect
// to the action means on the tape (gMean, one row per observation) and
// with respect to the shared log standard deviation (gLogStd).
func (p *GaussianMLP) Backward(tape *Tape, gMean *mat.Dense,
	gLogStd []float64) []float64 {
	grad := make([]float64, p.layout.Len())

	delta := gMean
	for i := len(p.weights) - 1; i >= 0; i-- {
		var in mat.Matrix = tape.input
		if i > 0 {
			in = tape.post[i-1]
		}

		w := p.layout[2*i]
		gW := mat.NewDense(w.Rows, w.Cols, p.layout.Slice(grad, 2*i))
		gW.Mul(in.T(), delta)

		gb := p.layout.Slice(grad, 2*i+1)
		n, _ := delta.Dims()
		for r := 0; r < n; r++ {
			floats.Add(gb, delta.RawRowView(r))
		}

		if i == 0 {
			break
		}
		var dh mat.Dense
		dh.Mul(delta, p.weights[i].T())
		p.mulDeriv(&dh, tape.pre[i-1], tape.post[i-1])
		delta = &dh
	}

	copy(p.layout.Slice(grad, len(p.layout)-1), gLogStd)
	return grad
}

// Tangent returns the directional derivative of the action means and
// the log standard deviation on the tape along the parameter direction
// t (a Jacobian-vector product).
func (p *GaussianMLP) Tangent(tape *Tape, t []float64) (*mat.Dense,
	[]float64) {
	if len(t) != len(p.params) {
		panic(fmt.Sprintf("tangent: invalid tangent length"+
			"\n\twant(%v)\n\thave(%v)", len(p.params), len(t)))
	}

	n := tape.Len()
	var dh *mat.Dense
	last := len(p.weights) - 1
	for i, w := range p.weights {
		wp := p.layout[2*i]
		tW := mat.NewDense(wp.Rows, wp.Cols, p.layout.Slice(t, 2*i))

		var in mat.Matrix = tape.input
		if i > 0 {
			in = tape.post[i-1]
		}

		dz := mat.NewDense(n, wp.Cols, nil)
		dz.Mul(in, tW)
		if dh != nil {
			var tmp mat.Dense
			tmp.Mul(dh, w)
			dz.Add(dz, &tmp)
		}
		addBias(dz, p.layout.Slice(t, 2*i+1))

		if i == last {
			dLogStd := append([]float64(nil),
				p.layout.Slice(t, len(p.layout)-1)...)
			return dz, dLogStd
		}
		p.mulDeriv(dz, tape.pre[i], tape.post[i])
		dh = dz
	}
	panic("tangent: policy has no layers")
}

// mulDeriv multiplies d element-wise by the derivative of the hidden
// activation evaluated at pre
func (p *GaussianMLP) mulDeriv(d, pre, post *mat.Dense) {
	n, _ := d.Dims()
	for r := 0; r < n; r++ {
		row := d.RawRowView(r)
		preRow, postRow := pre.RawRowView(r), post.RawRowView(r)
		for c := range row {
			row[c] *= p.activation.deriv(preRow[c], postRow[c])
		}
	}
}

// addBias adds b to every row of z
func addBias(z *mat.Dense, b []float64) {
	n, _ := z.Dims()
	for r := 0; r < n; r++ {
		floats.Add(z.RawRowView(r), b)
	}
}
