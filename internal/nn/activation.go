package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Activation is a fused activation applied by Conv2D and Dense.
type Activation int

const (
	// ActivationLinear leaves the output unchanged.
	ActivationLinear Activation = iota
	// ActivationReLU applies max(0, x).
	ActivationReLU
	// ActivationSoftmax normalizes the last axis (Dense classifiers).
	ActivationSoftmax
)

// String returns "linear" or "relu".
func (a Activation) String() string {
	switch a {
	case ActivationLinear:
		return "linear"
	case ActivationReLU:
		return "relu"
	case ActivationSoftmax:
		return "softmax"
	default:
		return fmt.Sprintf("Activation(%d)", int(a))
	}
}

// ParseActivation parses "linear" (or ""), "relu" and "softmax".
func ParseActivation(s string) (Activation, error) {
	switch s {
	case "", "linear":
		return ActivationLinear, nil
	case "relu":
		return ActivationReLU, nil
	case "softmax":
		return ActivationSoftmax, nil
	default:
		return 0, fmt.Errorf("unknown activation %q", s)
	}
}

func (a Activation) apply(backend tensor.Backend, x *tensor.Tensor) *tensor.Tensor {
	switch a {
	case ActivationReLU:
		return backend.ReLU(x)
	case ActivationSoftmax:
		return backend.Softmax(x)
	default:
		return x
	}
}

// ReLU is a Rectified Linear Unit activation layer.
//
// Applies the element-wise function: f(x) = max(0, x)
//
// Example:
//
//	relu := nn.NewReLU("relu1", backend)
//	output := relu.Forward(input)  // All negative values become 0
type ReLU struct {
	base
	backend tensor.Backend
}

// NewReLU creates a new ReLU activation layer.
func NewReLU(name string, backend tensor.Backend) *ReLU {
	return &ReLU{base: base{name: name}, backend: backend}
}

// Build records the input shape; the output shape is identical.
func (r *ReLU) Build(input tensor.Shape) (tensor.Shape, error) {
	if ok, err := r.built(input); ok || err != nil {
		return r.outShape, err
	}
	if err := input.Validate(); err != nil || len(input) == 0 {
		return nil, fmt.Errorf("%w: %s: invalid input shape %v", ErrShapeMismatch, r.name, input)
	}
	r.setBuilt(input, input)
	return r.outShape, nil
}

// Forward applies ReLU activation: f(x) = max(0, x).
func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	mustBuild(r, input)
	return r.backend.ReLU(input)
}

// Parameters returns nil (ReLU has no trainable parameters).
func (r *ReLU) Parameters() []*Parameter {
	return nil
}
