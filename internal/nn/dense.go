package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: y = activation(x @ W + b)
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the kernel with shape [in_features, units]
//   - b is the bias vector with shape [units]
//   - y is the output tensor with shape [batch_size, units]
//
// The kernel is stored input-major, the layout pretrained VGG fc weights
// ship in. Weights are initialized using Xavier/Glorot initialization when
// the layer is built; biases are initialized to zeros.
//
// Example:
//
//	fc := nn.NewDense("fc1", 4096, nn.ActivationReLU, backend)
//	output := fc.Forward(input) // [32, 25088] -> [32, 4096]
type Dense struct {
	base
	units      int
	activation Activation
	weight     *Parameter // [in_features, units]
	bias       *Parameter // [units]
	backend    tensor.Backend
}

// NewDense creates a new, unbuilt Dense layer.
func NewDense(name string, units int, activation Activation, backend tensor.Backend) *Dense {
	if units <= 0 {
		panic(fmt.Sprintf("dense %s: invalid units %d", name, units))
	}
	return &Dense{base: base{name: name}, units: units, activation: activation, backend: backend}
}

// Build allocates the kernel for input [in_features].
func (d *Dense) Build(input tensor.Shape) (tensor.Shape, error) {
	if ok, err := d.built(input); ok || err != nil {
		return d.outShape, err
	}
	if len(input) != 1 || input.Validate() != nil {
		return nil, fmt.Errorf("%w: %s expects [features], got %v", ErrShapeMismatch, d.name, input)
	}
	in := input[0]
	d.weight = NewParameter("weight", Xavier(in, d.units, tensor.Shape{in, d.units}))
	d.bias = NewParameter("bias", tensor.Zeros(tensor.Shape{d.units}))
	d.setBuilt(input, tensor.Shape{d.units})
	return d.outShape, nil
}

// Forward computes the output of the dense layer.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, units].
func (d *Dense) Forward(input *tensor.Tensor) *tensor.Tensor {
	if len(input.Shape()) != 2 {
		panic(fmt.Sprintf("dense %s: expected 2D input [batch, features], got %v", d.name, input.Shape()))
	}
	mustBuild(d, input)
	output := d.backend.MatMul(input, d.weight.Tensor())
	output = d.backend.AddBias(output, d.bias.Tensor())
	return d.activation.apply(d.backend, output)
}

// Parameters returns the kernel and bias (nil before Build).
func (d *Dense) Parameters() []*Parameter {
	if d.weight == nil {
		return nil
	}
	return []*Parameter{d.weight, d.bias}
}

// Units returns the number of output features.
func (d *Dense) Units() int {
	return d.units
}

// String returns a string representation of the layer.
func (d *Dense) String() string {
	return fmt.Sprintf("Dense(units=%d, activation=%s)", d.units, d.activation)
}
