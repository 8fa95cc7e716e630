package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Flatten reshapes [batch, d1, d2, ...] into [batch, d1*d2*...].
//
// The output shares the input's data.
type Flatten struct {
	base
}

// NewFlatten creates a Flatten layer.
func NewFlatten(name string) *Flatten {
	return &Flatten{base: base{name: name}}
}

// Build returns [NumElements(input)].
func (f *Flatten) Build(input tensor.Shape) (tensor.Shape, error) {
	if ok, err := f.built(input); ok || err != nil {
		return f.outShape, err
	}
	if len(input) == 0 || input.Validate() != nil {
		return nil, fmt.Errorf("%w: %s: invalid input shape %v", ErrShapeMismatch, f.name, input)
	}
	f.setBuilt(input, tensor.Shape{input.NumElements()})
	return f.outShape, nil
}

// Forward flattens every sample of the batch.
func (f *Flatten) Forward(input *tensor.Tensor) *tensor.Tensor {
	mustBuild(f, input)
	return input.Reshape(input.Shape()[0], f.outShape[0])
}

// Parameters returns nil.
func (f *Flatten) Parameters() []*Parameter {
	return nil
}
