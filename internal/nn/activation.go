package nn

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInputActivation is returned when the input layer is asked to activate.
var ErrInputActivation = errors.New("tried to activate the neurons of the input layer")

// Activation is the transfer function of a layer
type Activation int

const (
	Input Activation = iota // marker for the input layer, has no transfer function
	Sigmoid
	ReLU
	Linear
)

func (a Activation) String() string {
	switch a {
	case Input:
		return "input_layer"
	case Sigmoid:
		return "sigmoid"
	case ReLU:
		return "relu"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("activation(%d)", int(a))
	}
}

// ParseActivation maps a name as written in model files and configs.
func ParseActivation(name string) (Activation, error) {
	switch strings.ToLower(name) {
	case "input_layer":
		return Input, nil
	case "sigmoid":
		return Sigmoid, nil
	case "relu":
		return ReLU, nil
	case "linear":
		return Linear, nil
	}
	return 0, fmt.Errorf("activation function of type %q is not defined", name)
}

// apply maps z in place.
func (a Activation) apply(z []float64) error {
	switch a {
	case Sigmoid:
		for i, v := range z {
			z[i] = 1 / (1 + math.Exp(-v))
		}
	case ReLU:
		for i, v := range z {
			z[i] = math.Max(v, 0)
		}
	case Linear:
	case Input:
		return ErrInputActivation
	default:
		return fmt.Errorf("activation function %v is not defined", a)
	}
	return nil
}
