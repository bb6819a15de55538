package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// addfcLayers adds one fully connected layer per element of
// layerSizes to the graph g. The first layer takes features inputs.
func addfcLayers(g *G.ExprGraph, layerSizes []int, biases []bool,
	activations []*Activation, init G.InitWFn, features int) []*fcLayer {
	layers := make([]*fcLayer, 0, len(layerSizes))

	in := features
	for i, out := range layerSizes {
		weights := G.NewMatrix(g, tensor.Float64, G.WithShape(in, out),
			G.WithName(fmt.Sprintf("L%dW", i)), G.WithInit(init))

		var bias *G.Node
		if biases[i] {
			bias = G.NewMatrix(g, tensor.Float64, G.WithShape(1, out),
				G.WithName(fmt.Sprintf("L%dB", i)), G.WithInit(G.Zeroes()))
		}

		layers = append(layers, &fcLayer{
			weights: weights,
			bias:    bias,
			act:     activations[i],
		})
		in = out
	}
	return layers
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, err
	}
	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		if x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0}); err != nil {
			return nil, err
		}
	}
	if f.act == nil {
		return x, nil
	}
	return f.act.fwd(x)
}

// cloneTo clones an fcLayer to a new computational graph
func (f *fcLayer) cloneTo(g *G.ExprGraph) *fcLayer {
	var bias *G.Node
	if f.bias != nil {
		bias = f.bias.CloneTo(g)
	}
	return &fcLayer{
		weights: f.weights.CloneTo(g),
		bias:    bias,
		act:     f.act,
	}
}
