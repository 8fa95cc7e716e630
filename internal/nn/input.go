package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Input is a pass-through layer that pins the per-sample shape entering a
// model. Composites use it to build their layers eagerly.
//
// Example:
//
//	in := nn.NewInput("input_1", tensor.Shape{3, 300, 300})
type Input struct {
	base
}

// NewInput creates an input layer for the given per-sample shape.
// A nil shape accepts any input and fixes it on first use.
func NewInput(name string, shape tensor.Shape) *Input {
	in := &Input{base: base{name: name}}
	if shape != nil {
		in.setBuilt(shape, shape)
	}
	return in
}

// Build checks input against the pinned shape.
func (in *Input) Build(input tensor.Shape) (tensor.Shape, error) {
	if ok, err := in.built(input); ok || err != nil {
		return in.outShape, err
	}
	if input.Validate() != nil {
		return nil, fmt.Errorf("%w: %s: invalid input shape %v", ErrShapeMismatch, in.name, input)
	}
	in.setBuilt(input, input)
	return in.outShape, nil
}

// Forward returns input unchanged after checking its shape.
func (in *Input) Forward(input *tensor.Tensor) *tensor.Tensor {
	mustBuild(in, input)
	return input
}

// Parameters returns nil.
func (in *Input) Parameters() []*Parameter {
	return nil
}
