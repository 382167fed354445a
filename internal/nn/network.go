// Package nn implements the fixed-topology feedforward network used as the
// snake's brain. Training happens in the genetic algorithm; this package only
// does inference, weight access and persistence.
package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Layer is one fully connected layer. The input layer only carries its size.
type Layer struct {
	Activation        Activation
	Size              int
	InputCount        int
	WeightsMultiplier float64

	Weights *mat.Dense    // Size x InputCount, nil for the input layer
	Bias    *mat.VecDense // Size, nil for the input layer
}

func newLayer(size, inputCount int, act Activation, multiplier float64, rng *rand.Rand) *Layer {
	l := &Layer{
		Activation:        act,
		Size:              size,
		InputCount:        inputCount,
		WeightsMultiplier: multiplier,
	}
	if act == Input {
		return l
	}
	w := make([]float64, size*inputCount)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * multiplier
	}
	b := make([]float64, size)
	for i := range b {
		b[i] = (rng.Float64()*2 - 1) * multiplier
	}
	l.Weights = mat.NewDense(size, inputCount, w)
	l.Bias = mat.NewVecDense(size, b)
	return l
}

func (l *Layer) clone() *Layer {
	c := *l
	if l.Weights != nil {
		c.Weights = mat.DenseCopyOf(l.Weights)
		c.Bias = mat.VecDenseCopyOf(l.Bias)
	}
	return &c
}

// Topology describes a network to build
type Topology struct {
	Sizes             []int // input first, output last
	Hidden            Activation
	Output            Activation
	WeightsMultiplier float64
}

// Network is a multi-layer perceptron
type Network struct {
	layers []*Layer
}

// New creates a network with weights and biases drawn uniformly from [-1, 1]
// and scaled by the topology's multiplier.
func New(t Topology, rng *rand.Rand) (*Network, error) {
	if len(t.Sizes) < 2 {
		return nil, fmt.Errorf("network needs at least an input and an output layer, got %d layers", len(t.Sizes))
	}
	for i, s := range t.Sizes {
		if s < 1 {
			return nil, fmt.Errorf("layer %d has size %d", i, s)
		}
	}
	if t.Hidden == Input || t.Output == Input {
		return nil, ErrInputActivation
	}

	n := &Network{layers: make([]*Layer, 0, len(t.Sizes))}
	n.layers = append(n.layers, newLayer(t.Sizes[0], 0, Input, t.WeightsMultiplier, rng))
	for i := 1; i < len(t.Sizes); i++ {
		act := t.Hidden
		if i == len(t.Sizes)-1 {
			act = t.Output
		}
		n.layers = append(n.layers, newLayer(t.Sizes[i], t.Sizes[i-1], act, t.WeightsMultiplier, rng))
	}
	return n, nil
}

// Layers returns the network's layers. Callers must not modify them.
func (n *Network) Layers() []*Layer {
	return n.layers
}

// Sizes returns the number of neurons of every layer, input first.
func (n *Network) Sizes() []int {
	sizes := make([]int, len(n.layers))
	for i, l := range n.layers {
		sizes[i] = l.Size
	}
	return sizes
}

// InputSize is the expected length of the feature vector.
func (n *Network) InputSize() int {
	return n.layers[0].Size
}

// Predict feeds x forward and returns the activations of the output layer.
func (n *Network) Predict(x []float64) ([]float64, error) {
	if len(x) != n.InputSize() {
		return nil, fmt.Errorf("predict: got %d features, network expects %d", len(x), n.InputSize())
	}
	a := mat.NewVecDense(len(x), append([]float64(nil), x...))
	for _, l := range n.layers[1:] {
		z := mat.NewVecDense(l.Size, nil)
		z.MulVec(l.Weights, a)
		z.AddVec(z, l.Bias)
		if err := l.Activation.apply(z.RawVector().Data); err != nil {
			return nil, err
		}
		a = z
	}
	return a.RawVector().Data, nil
}

// Weights returns copies of the weight matrices of every non-input layer.
// Biases are not included.
func (n *Network) Weights() []*mat.Dense {
	ws := make([]*mat.Dense, 0, len(n.layers)-1)
	for _, l := range n.layers[1:] {
		ws = append(ws, mat.DenseCopyOf(l.Weights))
	}
	return ws
}

// SetWeights replaces the weight matrices with copies of ws. Biases are left
// untouched.
func (n *Network) SetWeights(ws []*mat.Dense) error {
	if len(ws) != len(n.layers)-1 {
		return fmt.Errorf("set weights: got %d matrices, network has %d weighted layers", len(ws), len(n.layers)-1)
	}
	for i, w := range ws {
		l := n.layers[i+1]
		r, c := w.Dims()
		if r != l.Size || c != l.InputCount {
			return fmt.Errorf("set weights: layer %d expects %dx%d, got %dx%d", i+1, l.Size, l.InputCount, r, c)
		}
	}
	for i, w := range ws {
		n.layers[i+1].Weights = mat.DenseCopyOf(w)
	}
	return nil
}

// Clone returns a deep copy of the network
func (n *Network) Clone() *Network {
	c := &Network{layers: make([]*Layer, len(n.layers))}
	for i, l := range n.layers {
		c.layers[i] = l.clone()
	}
	return c
}

// Topology describes the network's shape, so fresh networks of the same kind
// can be built. Activations and multiplier come from the first and last
// weighted layers.
func (n *Network) Topology() Topology {
	first, last := n.layers[1], n.layers[len(n.layers)-1]
	return Topology{
		Sizes:             n.Sizes(),
		Hidden:            first.Activation,
		Output:            last.Activation,
		WeightsMultiplier: first.WeightsMultiplier,
	}
}
