package trpo

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/nottombrown/parallel-trpo/network"
	"github.com/nottombrown/parallel-trpo/policy"
	"github.com/nottombrown/parallel-trpo/rollout"
)

// objective evaluates the TRPO surrogate and KL of a policy on a batch.
// The batch's recorded action distributions are the old policy.
//
// The surrogate -mean(exp(logp_new - logp_old) * A) and its gradient
// are computed on a computational graph holding the policy's mean
// network and its log standard deviation as learnables. Each
// evaluation binds a flat parameter vector to the learnables and runs
// the graph.
type objective struct {
	batch  *rollout.Batch
	layout policy.Layout

	// Learnables in the order of the policy's flat parameter vector
	params G.Nodes

	lossVal G.Value
	vm      G.VM
}

func newObjective(p *policy.GaussianMLP, b *rollout.Batch) (*objective,
	error) {
	n, actDims := b.Len(), p.ActionDims()
	if n == 0 {
		return nil, fmt.Errorf("newObjective: %w", ErrEmptyBatch)
	}

	hidden := p.HiddenSizes()
	biases := make([]bool, len(hidden))
	acts := make([]*network.Activation, len(hidden))
	for i := range hidden {
		biases[i] = true
		act, err := graphActivation(p.Activation())
		if err != nil {
			return nil, fmt.Errorf("newObjective: %v", err)
		}
		acts[i] = act
	}

	g := G.NewGraph()
	net, err := network.NewMultiHeadMLP(p.Features(), n, actDims, g, hidden,
		biases, G.Zeroes(), acts)
	if err != nil {
		return nil, fmt.Errorf("newObjective: could not create mean "+
			"network: %v", err)
	}
	if err := net.SetInput(append([]float64(nil),
		b.Obs.RawMatrix().Data...)); err != nil {
		return nil, fmt.Errorf("newObjective: %v", err)
	}

	logStd := G.NewMatrix(g, tensor.Float64, G.WithShape(1, actDims),
		G.WithName("logStd"), G.WithInit(G.Zeroes()))

	// Batch inputs
	actions := G.NewMatrix(g, tensor.Float64, G.WithShape(n, actDims),
		G.WithName("actions"), G.WithInit(G.Zeroes()))
	oldLogProb := G.NewVector(g, tensor.Float64, G.WithShape(n),
		G.WithName("oldLogProb"), G.WithInit(G.Zeroes()))
	advantages := G.NewVector(g, tensor.Float64, G.WithShape(n),
		G.WithName("advantages"), G.WithInit(G.Zeroes()))

	oldLogp := make([]float64, n)
	for i := range oldLogp {
		oldLogp[i] = policy.LogProb(b.MeanDists.RawRowView(i),
			b.LogStdDists.RawRowView(i), b.Actions.RawRowView(i))
	}
	inputs := []struct {
		node *G.Node
		data []float64
	}{
		{actions, b.Actions.RawMatrix().Data},
		{oldLogProb, oldLogp},
		{advantages, b.Advantages},
	}
	for _, in := range inputs {
		val := tensor.New(
			tensor.WithBacking(append([]float64(nil), in.data...)),
			tensor.WithShape(in.node.Shape()...),
		)
		if err := G.Let(in.node, val); err != nil {
			return nil, fmt.Errorf("newObjective: could not set %v: %v",
				in.node.Name(), err)
		}
	}

	// Log probability of the actions under the diagonal Gaussian with
	// the network's means and std = exp(logStd)
	invStd := G.Must(G.Exp(G.Must(G.Neg(logStd))))
	diff := G.Must(G.Sub(actions, net.Prediction()))
	z := G.Must(G.BroadcastHadamardProd(diff, invStd, nil, []byte{0}))
	exponent := G.Must(G.Sum(G.Must(G.Square(z)), 1))
	negativeHalf := G.NewConstant(-0.5)
	logProb := G.Must(G.Mul(exponent, negativeHalf))

	normalizer := G.NewConstant(0.5 * float64(actDims) * math.Log(2*math.Pi))
	logNorm := G.Must(G.Add(G.Must(G.Sum(logStd)), normalizer))
	logProb = G.Must(G.Sub(logProb, logNorm))

	ratio := G.Must(G.Exp(G.Must(G.Sub(logProb, oldLogProb))))
	loss := G.Must(G.HadamardProd(ratio, advantages))
	loss = G.Must(G.Mean(loss))
	loss = G.Must(G.Neg(loss))

	params := append(append(G.Nodes{}, net.Learnables()...), logStd)
	layout := p.Layout()
	if len(params) != len(layout) {
		return nil, fmt.Errorf("newObjective: graph does not match policy "+
			"layout\n\twant(%v learnables)\n\thave(%v)", len(layout),
			len(params))
	}
	if _, err := G.Grad(loss, params...); err != nil {
		return nil, fmt.Errorf("newObjective: could not compute "+
			"gradient: %v", err)
	}

	o := &objective{
		batch:  b,
		layout: layout,
		params: params,
	}
	G.Read(loss, &o.lossVal)
	o.vm = G.NewTapeMachine(g, G.BindDualValues(params...))
	return o, nil
}

// graphActivation returns the network activation matching a
// policy activation
func graphActivation(a policy.Activation) (*network.Activation, error) {
	switch a {
	case policy.ReLU:
		return network.ReLU(), nil
	case policy.Tanh:
		return network.TanH(), nil
	}
	return nil, fmt.Errorf("graphActivation: unknown activation %q",
		string(a))
}

// run binds theta to the learnables and runs the graph. If grad is not
// nil, the gradient of the surrogate is written to it.
func (o *objective) run(theta, grad []float64) (float64, error) {
	if len(theta) != o.layout.Len() {
		return 0, fmt.Errorf("run: invalid number of parameters"+
			"\n\twant(%v)\n\thave(%v)", o.layout.Len(), len(theta))
	}
	for i, node := range o.params {
		val := tensor.New(
			tensor.WithBacking(append([]float64(nil),
				o.layout.Slice(theta, i)...)),
			tensor.WithShape(node.Shape()...),
		)
		if err := G.Let(node, val); err != nil {
			return 0, fmt.Errorf("run: could not set %v: %v",
				o.layout[i].Name, err)
		}
	}

	defer o.vm.Reset()
	if err := o.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("run: %v", err)
	}

	// Gradients accumulate in the learnables' dual values across runs
	for i, node := range o.params {
		g, err := node.Grad()
		if err != nil {
			return 0, fmt.Errorf("run: could not get gradient of %v: %v",
				o.layout[i].Name, err)
		}
		if grad != nil {
			copy(o.layout.Slice(grad, i), g.Data().([]float64))
		}
		if zeroer, ok := g.(tensor.Zeroer); ok {
			zeroer.Zero()
		}
	}
	return o.lossVal.Data().(float64), nil
}

// surrogate returns -mean(ratio * advantage) at parameters theta
func (o *objective) surrogate(theta []float64) (float64, error) {
	return o.run(theta, nil)
}

// surrogateGrad returns the surrogate and its gradient with respect to
// the flat parameters at theta
func (o *objective) surrogateGrad(theta []float64) (float64, []float64,
	error) {
	grad := make([]float64, len(theta))
	surr, err := o.run(theta, grad)
	if err != nil {
		return 0, nil, err
	}
	return surr, grad, nil
}

// meanKL returns the mean over the batch of KL(old || tape)
func (o *objective) meanKL(tape *policy.Tape) float64 {
	var sum float64
	for i := 0; i < o.batch.Len(); i++ {
		sum += policy.KL(o.batch.MeanDists.RawRowView(i),
			o.batch.LogStdDists.RawRowView(i), tape.Mean.RawRowView(i),
			tape.LogStd)
	}
	return sum / float64(o.batch.Len())
}
