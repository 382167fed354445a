package nn

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testTopology() Topology {
	return Topology{Sizes: []int{5, 4, 4}, Hidden: ReLU, Output: Sigmoid, WeightsMultiplier: 1}
}

func newTestNetwork(t *testing.T, seed int64) *Network {
	t.Helper()
	n, err := New(testTopology(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return n
}

func TestNewShapes(t *testing.T) {
	n := newTestNetwork(t, 1)
	assert.Equal(t, []int{5, 4, 4}, n.Sizes())
	assert.Equal(t, 5, n.InputSize())

	layers := n.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, Input, layers[0].Activation)
	assert.Nil(t, layers[0].Weights)
	r, c := layers[1].Weights.Dims()
	assert.Equal(t, [2]int{4, 5}, [2]int{r, c})
	assert.Equal(t, Sigmoid, layers[2].Activation)

	for _, l := range layers[1:] {
		for _, v := range l.Weights.RawMatrix().Data {
			assert.True(t, v >= -1 && v <= 1)
		}
	}
}

func TestNewRejectsBadTopology(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	_, err := New(Topology{Sizes: []int{3}, Hidden: ReLU, Output: Sigmoid}, rng)
	assert.Error(t, err)
	_, err = New(Topology{Sizes: []int{3, 0, 4}, Hidden: ReLU, Output: Sigmoid}, rng)
	assert.Error(t, err)
	_, err = New(Topology{Sizes: []int{3, 4}, Hidden: ReLU, Output: Input}, rng)
	assert.ErrorIs(t, err, ErrInputActivation)
}

func TestZeroMultiplierPredictsHalf(t *testing.T) {
	top := testTopology()
	top.WeightsMultiplier = 0
	n, err := New(top, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	out, err := n.Predict([]float64{1, -2, 3, 0.5, 9})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5, 0.5, 0.5}, out)
}

func TestPredict(t *testing.T) {
	n, err := New(Topology{Sizes: []int{2, 2, 1}, Hidden: ReLU, Output: Linear, WeightsMultiplier: 1}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	l1, l2 := n.Layers()[1], n.Layers()[2]
	l1.Weights = mat.NewDense(2, 2, []float64{1, 2, -1, -1})
	l1.Bias = mat.NewVecDense(2, []float64{0, 0.5})
	l2.Weights = mat.NewDense(1, 2, []float64{2, 3})
	l2.Bias = mat.NewVecDense(1, []float64{1})

	// hidden = relu([1+4, -1-2+0.5]) = [5, 0]; out = 2*5 + 1
	out, err := n.Predict([]float64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{11}, out)

	_, err = n.Predict([]float64{1})
	assert.Error(t, err)
}

func TestWeightsAreCopies(t *testing.T) {
	n := newTestNetwork(t, 2)
	ws := n.Weights()
	require.Len(t, ws, 2)
	before := n.Layers()[1].Weights.At(0, 0)
	ws[0].Set(0, 0, before+10)
	assert.Equal(t, before, n.Layers()[1].Weights.At(0, 0))
}

func TestSetWeights(t *testing.T) {
	a := newTestNetwork(t, 1)
	b := newTestNetwork(t, 2)
	biases := mat.VecDenseCopyOf(b.Layers()[1].Bias)

	require.NoError(t, b.SetWeights(a.Weights()))
	assert.True(t, mat.Equal(a.Layers()[1].Weights, b.Layers()[1].Weights))
	assert.True(t, mat.Equal(a.Layers()[2].Weights, b.Layers()[2].Weights))
	assert.True(t, mat.Equal(biases, b.Layers()[1].Bias), "biases are untouched")

	assert.Error(t, b.SetWeights(a.Weights()[:1]))
	assert.Error(t, b.SetWeights([]*mat.Dense{mat.NewDense(4, 4, nil), mat.NewDense(4, 4, nil)}))
}

func TestCloneIsDeep(t *testing.T) {
	n := newTestNetwork(t, 3)
	c := n.Clone()
	c.Layers()[1].Weights.Set(0, 0, 42)
	c.Layers()[1].Bias.SetVec(0, 42)
	assert.NotEqual(t, 42.0, n.Layers()[1].Weights.At(0, 0))
	assert.NotEqual(t, 42.0, n.Layers()[1].Bias.AtVec(0))
}

func TestTopologyOfNetwork(t *testing.T) {
	n := newTestNetwork(t, 1)
	assert.Equal(t, testTopology(), n.Topology())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	n := newTestNetwork(t, 4)
	var buf bytes.Buffer
	require.NoError(t, n.Save(&buf))

	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "LAYER_ACTIVATION input_layer\nSIZE 5\nINPUT_COUNT 0\n"))
	assert.Contains(t, text, "\n\nLAYER_ACTIVATION relu\nSIZE 4\nINPUT_COUNT 5\n")

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, n.Sizes(), loaded.Sizes())
	for i, l := range n.Layers()[1:] {
		ll := loaded.Layers()[i+1]
		assert.Equal(t, l.Activation, ll.Activation)
		assert.True(t, mat.Equal(l.Weights, ll.Weights), "layer %d weights", i+1)
		assert.True(t, mat.Equal(l.Bias, ll.Bias), "layer %d bias", i+1)
	}

	x := []float64{0.1, -3, 2, 7, 0}
	want, err := n.Predict(x)
	require.NoError(t, err)
	got, err := loaded.Predict(x)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLoadFile(t *testing.T) {
	n := newTestNetwork(t, 5)
	path := filepath.Join(t.TempDir(), "gen_0")
	require.NoError(t, n.SaveFile(path))
	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, n.Topology(), loaded.Topology())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformed(t *testing.T) {
	input := "LAYER_ACTIVATION input_layer\nSIZE 2\nINPUT_COUNT 0\nWEIGHTS_MULTIPLIER 1\n\n"
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"input only", input},
		{"missing header", input + "LAYER_ACTIVATION relu\nSIZE 1\nWEIGHTS_MULTIPLIER 1\n1 2\n0\n"},
		{"unknown activation", input + "LAYER_ACTIVATION tanh\nSIZE 1\nINPUT_COUNT 2\nWEIGHTS_MULTIPLIER 1\n1 2\n0\n"},
		{"short row", input + "LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 2\nWEIGHTS_MULTIPLIER 1\n1\n0\n"},
		{"missing bias", input + "LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 2\nWEIGHTS_MULTIPLIER 1\n1 2\n"},
		{"not a number", input + "LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 2\nWEIGHTS_MULTIPLIER 1\n1 x\n0\n"},
		{"count mismatch", input + "LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 3\nWEIGHTS_MULTIPLIER 1\n1 2 3\n0\n"},
		{"hidden input layer", input + input},
		{"no input layer", "LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 2\nWEIGHTS_MULTIPLIER 1\n1 2\n0\n\n" +
			"LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 1\nWEIGHTS_MULTIPLIER 1\n1\n0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.text))
			assert.Error(t, err)
		})
	}

	valid := input + "LAYER_ACTIVATION relu\nSIZE 1\nINPUT_COUNT 2\nWEIGHTS_MULTIPLIER 1\n1 2\n0.5\n"
	n, err := Load(strings.NewReader(valid))
	require.NoError(t, err)
	out, err := n.Predict([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{3.5}, out)
}

func TestParseActivation(t *testing.T) {
	for _, a := range []Activation{Input, Sigmoid, ReLU, Linear} {
		got, err := ParseActivation(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseActivation("softmax")
	assert.Error(t, err)
	assert.ErrorIs(t, Input.apply([]float64{1}), ErrInputActivation)
}
