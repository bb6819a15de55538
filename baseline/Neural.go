package baseline

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/nottombrown/parallel-trpo/initwfn"
	"github.com/nottombrown/parallel-trpo/network"
	"github.com/nottombrown/parallel-trpo/rollout"
	"github.com/nottombrown/parallel-trpo/solver"
)

// NeuralConfig configures a neural network baseline
type NeuralConfig struct {
	HiddenSizes []int
	Biases      []bool
	Activations []*network.Activation
	InitWFn     *initwfn.InitWFn
	Solver      *solver.Solver

	// BatchSize is the number of samples in each gradient step and in
	// each forward pass when predicting
	BatchSize int

	// GradSteps is the number of gradient steps taken per Fit
	GradSteps int
}

// DefaultNeuralConfig returns a two hidden layer ReLU network trained
// with Adam
func DefaultNeuralConfig() NeuralConfig {
	initFn, err := initwfn.NewGlorotU(math.Sqrt2)
	if err != nil {
		panic(err)
	}
	// The loss is already a mean over the batch
	adam, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		panic(err)
	}
	return NeuralConfig{
		HiddenSizes: []int{64, 64},
		Biases:      []bool{true, true},
		Activations: []*network.Activation{network.ReLU(), network.ReLU()},
		InitWFn:     initFn,
		Solver:      adam,
		BatchSize:   64,
		GradSteps:   25,
	}
}

// Validate checks a NeuralConfig for errors
func (c NeuralConfig) Validate() error {
	switch {
	case len(c.HiddenSizes) != len(c.Biases):
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	case len(c.HiddenSizes) != len(c.Activations):
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.HiddenSizes),
			len(c.Activations))
	case c.InitWFn == nil:
		return fmt.Errorf("validate: no weight initializer")
	case c.Solver == nil:
		return fmt.Errorf("validate: no solver")
	case c.BatchSize <= 0:
		return fmt.Errorf("validate: batch size must be positive"+
			"\n\thave(%v)", c.BatchSize)
	case c.GradSteps < 0:
		return fmt.Errorf("validate: gradient steps must be non-negative"+
			"\n\thave(%v)", c.GradSteps)
	}
	return nil
}

// Neural is a neural network value function over the features
// [o, t/100]. A training network takes minibatch gradient steps on the
// mean squared error to the returns; its weights are then copied to a
// prediction network of the same batch size. It predicts zero before it
// is first fit.
type Neural struct {
	obsDims   int
	batchSize int
	gradSteps int
	solver    *solver.Solver
	rng       *rand.Rand
	fitted    bool

	predNet network.NeuralNet
	predVM  G.VM

	trainNet     network.NeuralNet
	trainTargets *G.Node
	trainVM      G.VM
}

// NewNeural returns a new neural network baseline for observations
// with obsDims dimensions
func NewNeural(obsDims int, c NeuralConfig, seed uint64) (*Neural, error) {
	if obsDims <= 0 {
		return nil, fmt.Errorf("newNeural: observation dimensions must be "+
			"positive\n\thave(%v)", obsDims)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newNeural: %v", err)
	}

	trainNet, err := network.NewSingleHeadMLP(obsDims+1, c.BatchSize,
		G.NewGraph(), c.HiddenSizes, c.Biases, c.InitWFn.InitWFn(),
		c.Activations)
	if err != nil {
		return nil, fmt.Errorf("newNeural: could not create training "+
			"network: %v", err)
	}

	predNet, err := trainNet.Clone()
	if err != nil {
		return nil, fmt.Errorf("newNeural: could not create prediction "+
			"network: %v", err)
	}

	trainTargets := G.NewMatrix(
		trainNet.Graph(),
		tensor.Float64,
		G.WithShape(trainNet.Prediction().Shape()...),
		G.WithName("targets"),
		G.WithInit(G.Zeroes()),
	)
	loss := G.Must(G.Sub(trainNet.Prediction(), trainTargets))
	loss = G.Must(G.Square(loss))
	loss = G.Must(G.Mean(loss))

	if _, err := G.Grad(loss, trainNet.Learnables()...); err != nil {
		return nil, fmt.Errorf("newNeural: could not compute gradient: %v",
			err)
	}

	// Each baseline owns its solver state
	s := *c.Solver
	s.Reset()

	return &Neural{
		obsDims:   obsDims,
		batchSize: c.BatchSize,
		gradSteps: c.GradSteps,
		solver:    &s,
		rng:       rand.New(rand.NewSource(seed)),

		predNet: predNet,
		predVM:  G.NewTapeMachine(predNet.Graph()),

		trainNet:     trainNet,
		trainTargets: trainTargets,
		trainVM: G.NewTapeMachine(trainNet.Graph(),
			G.BindDualValues(trainNet.Learnables()...)),
	}, nil
}

// neuralFeatures returns the feature matrix of p, one row per timestep
func neuralFeatures(p *rollout.Path) *mat.Dense {
	n, obsDims := p.Obs.Dims()
	x := mat.NewDense(n, obsDims+1, nil)
	for t := 0; t < n; t++ {
		row := x.RawRowView(t)
		copy(row, p.Obs.RawRowView(t))
		row[obsDims] = timeFeature(t)
	}
	return x
}

// Predict implements the Baseline interface. The path is fed through
// the prediction network in batches, with the final batch padded with
// zero rows.
func (n *Neural) Predict(p *rollout.Path) []float64 {
	pred := make([]float64, p.Len())
	if !n.fitted {
		return pred
	}

	x := neuralFeatures(p)
	rows, cols := x.Dims()
	if cols != n.obsDims+1 {
		return pred
	}

	for start := 0; start < rows; start += n.batchSize {
		end := start + n.batchSize
		if end > rows {
			end = rows
		}

		input := make([]float64, n.batchSize*cols)
		for i := start; i < end; i++ {
			copy(input[(i-start)*cols:], x.RawRowView(i))
		}
		if err := n.predNet.SetInput(input); err != nil {
			panic(fmt.Sprintf("predict: %v", err))
		}
		if err := n.predVM.RunAll(); err != nil {
			panic(fmt.Sprintf("predict: %v", err))
		}
		out := n.predNet.Output().Data().([]float64)
		copy(pred[start:end], out[:end-start])
		n.predVM.Reset()
	}
	return pred
}

// Fit implements the Baseline interface. Each gradient step uses a
// minibatch sampled uniformly with replacement from all timesteps.
func (n *Neural) Fit(paths []*rollout.Path) error {
	y, err := targets(paths)
	if err != nil {
		return fmt.Errorf("fit: %v", err)
	}
	x := stackRows(paths, neuralFeatures)
	_, cols := x.Dims()
	if cols != n.obsDims+1 {
		return fmt.Errorf("fit: invalid observation dimensions\n\twant(%v)"+
			"\n\thave(%v)", n.obsDims, cols-1)
	}

	for step := 0; step < n.gradSteps; step++ {
		input := make([]float64, n.batchSize*cols)
		batchTargets := make([]float64, n.batchSize)
		for i := 0; i < n.batchSize; i++ {
			row := n.rng.Intn(len(y))
			copy(input[i*cols:], x.RawRowView(row))
			batchTargets[i] = y[row]
		}

		if err := n.trainNet.SetInput(input); err != nil {
			return fmt.Errorf("fit: %v", err)
		}
		targetsTensor := tensor.NewDense(
			tensor.Float64,
			n.trainTargets.Shape(),
			tensor.WithBacking(batchTargets),
		)
		if err := G.Let(n.trainTargets, targetsTensor); err != nil {
			return fmt.Errorf("fit: %v", err)
		}

		if err := n.trainVM.RunAll(); err != nil {
			return fmt.Errorf("fit: %v", err)
		}
		if err := n.solver.Step(n.trainNet.Model()); err != nil {
			return fmt.Errorf("fit: %v", err)
		}
		n.trainVM.Reset()
	}

	if err := n.predNet.Set(n.trainNet); err != nil {
		return fmt.Errorf("fit: could not copy weights: %v", err)
	}
	n.fitted = true
	return nil
}

// Close releases the resources of the baseline's tape machines
func (n *Neural) Close() error {
	if err := n.predVM.Close(); err != nil {
		return err
	}
	return n.trainVM.Close()
}
