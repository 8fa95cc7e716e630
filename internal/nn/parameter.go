package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Parameter represents a learnable tensor of a layer.
//
// Parameters typically represent weights and biases of layers. The name is
// local to the owning layer ("weight", "bias"); weight sources address it
// as "<layer>.<name>".
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
type Parameter struct {
	name   string
	tensor *tensor.Tensor
}

// NewParameter creates a new parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Set copies t's values into the parameter. Shapes must match exactly.
func (p *Parameter) Set(t *tensor.Tensor) error {
	if t == nil {
		return fmt.Errorf("%w: parameter %s: nil tensor", ErrShapeMismatch, p.name)
	}
	if !p.tensor.Shape().Equal(t.Shape()) {
		return fmt.Errorf("%w: parameter %s has shape %v, got %v", ErrShapeMismatch, p.name, p.tensor.Shape(), t.Shape())
	}
	copy(p.tensor.Data(), t.Data())
	return nil
}
