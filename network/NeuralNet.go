// Package network implements feed forward neural networks built on
// Gorgonia computational graphs.
package network

import (
	G "gorgonia.org/gorgonia"
)

// NeuralNet is a neural network whose forward pass has been added to a
// computational graph
type NeuralNet interface {
	Graph() *G.ExprGraph
	Clone() (NeuralNet, error)
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Output() G.Value
	Prediction() *G.Node
}
