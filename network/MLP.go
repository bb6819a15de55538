package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// mlp implements a multi-layered perceptron with a linear output layer
type mlp struct {
	g          *G.ExprGraph
	layers     []*fcLayer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewSingleHeadMLP returns an MLP with a single output node. This
// function is a convenience function for calling NewMultiHeadMLP with
// an output size of 1.
func NewSingleHeadMLP(features, batch int, g *G.ExprGraph, hiddenSizes []int,
	biases []bool, init G.InitWFn, activations []*Activation) (NeuralNet,
	error) {
	return NewMultiHeadMLP(features, batch, 1, g, hiddenSizes, biases, init,
		activations)
}

// NewMultiHeadMLP creates and returns a new multi-layered perceptron
// with outputs output nodes. The graph parameter g is populated with
// the MLP.
//
// For index i, hiddenSizes[i] is the number of nodes in hidden layer i;
// biases[i] is true if the hidden layer will contain a bias unit; and
// activations[i] is the activation function for hidden layer i. A final
// linear layer with a bias unit is always added so that the network
// predicts outputs values per sample.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, init G.InitWFn,
	activations []*Activation) (NeuralNet, error) {
	if len(hiddenSizes) != len(activations) {
		return nil, fmt.Errorf("newMultiHeadMLP: invalid number of "+
			"activations\n\twant(%d)\n\thave(%d)", len(hiddenSizes),
			len(activations))
	}
	if len(hiddenSizes) != len(biases) {
		return nil, fmt.Errorf("newMultiHeadMLP: invalid number of biases"+
			"\n\twant(%d)\n\thave(%d)", len(hiddenSizes), len(biases))
	}
	if features <= 0 || batch <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newMultiHeadMLP: features, batch and "+
			"outputs must be positive\n\thave(%v, %v, %v)", features, batch,
			outputs)
	}

	sizes := append(append([]int{}, hiddenSizes...), outputs)
	useBias := append(append([]bool{}, biases...), true)
	acts := append(append([]*Activation{}, activations...), Identity())

	input := G.NewMatrix(g, tensor.Float64, G.WithShape(batch, features),
		G.WithName("input"), G.WithInit(G.Zeroes()))

	net := &mlp{
		g:          g,
		layers:     addfcLayers(g, sizes, useBias, acts, init, features),
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("newMultiHeadMLP: could not compute forward "+
			"pass: %v", err)
	}
	return net, nil
}

// Graph returns the computational graph of the mlp.
func (m *mlp) Graph() *G.ExprGraph {
	return m.g
}

// Clone clones an mlp
func (m *mlp) Clone() (NeuralNet, error) {
	return m.CloneWithBatch(m.batchSize)
}

// CloneWithBatch clones an mlp to a new graph with a new input batch
// size. The clone starts with the same weights as m.
func (m *mlp) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("cloneWithBatch: batch size must be positive"+
			"\n\thave(%v)", batchSize)
	}
	g := G.NewGraph()
	input := G.NewMatrix(g, tensor.Float64,
		G.WithShape(batchSize, m.numInputs), G.WithName("input"),
		G.WithInit(G.Zeroes()))

	layers := make([]*fcLayer, len(m.layers))
	for i := range m.layers {
		layers[i] = m.layers[i].cloneTo(g)
	}

	net := &mlp{
		g:          g,
		layers:     layers,
		input:      input,
		numOutputs: m.numOutputs,
		numInputs:  m.numInputs,
		batchSize:  batchSize,
	}
	if _, err := net.fwd(input); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: could not compute forward "+
			"pass: %v", err)
	}
	return net, nil
}

// BatchSize returns the batch size of inputs to the network
func (m *mlp) BatchSize() int {
	return m.batchSize
}

// Features returns the number of features in a single input sample
func (m *mlp) Features() int {
	return m.numInputs
}

// Outputs returns the number of outputs per sample
func (m *mlp) Outputs() int {
	return m.numOutputs
}

// SetInput sets the value of the input node before running the forward
// pass. The input is a row-major batch of samples.
func (m *mlp) SetInput(input []float64) error {
	if len(input) != m.numInputs*m.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs\n\twant(%v)"+
			"\n\thave(%v)", m.numInputs*m.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(m.input.Shape()...),
	)
	return G.Let(m.input, inputTensor)
}

// Set sets the weights of dest to be equal to the weights of source
func (dest *mlp) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := dest.Learnables()
	if len(sourceNodes) != len(nodes) {
		return fmt.Errorf("set: incompatible networks\n\twant(%v "+
			"learnables)\n\thave(%v learnables)", len(nodes), len(sourceNodes))
	}
	for i, destLearnable := range nodes {
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(destLearnable, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return fmt.Errorf("set: %v", err)
		}
	}
	return nil
}

// Learnables returns the learnable nodes in an mlp
func (m *mlp) Learnables() G.Nodes {
	if m.learnables == nil {
		learnables := make([]*G.Node, 0, 2*len(m.layers))
		for _, l := range m.layers {
			learnables = append(learnables, l.weights)
			if l.bias != nil {
				learnables = append(learnables, l.bias)
			}
		}
		m.learnables = G.Nodes(learnables)
	}
	return m.learnables
}

// Model returns the learnables nodes with their gradients.
func (m *mlp) Model() []G.ValueGrad {
	if m.model == nil {
		m.model = make([]G.ValueGrad, 0, len(m.Learnables()))
		for _, node := range m.Learnables() {
			m.model = append(m.model, node)
		}
	}
	return m.model
}

// fwd adds the forward pass of the mlp on the input node to the graph
func (m *mlp) fwd(input *G.Node) (*G.Node, error) {
	pred := input
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(pred); err != nil {
			return nil, fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %v: %v", i, err)
		}
	}

	m.prediction = pred
	G.Read(m.prediction, &m.predVal)
	return pred, nil
}

// Output returns the output of the mlp after the graph has been run
func (m *mlp) Output() G.Value {
	return m.predVal
}

// Prediction returns the node of the computational graph that stores
// the output of the mlp
func (m *mlp) Prediction() *G.Node {
	return m.prediction
}
