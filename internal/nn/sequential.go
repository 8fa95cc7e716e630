package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Sequence is an indexable container that chains layers together.
//
// Each layer's output becomes the next layer's input. A Sequence is itself
// a Layer, so sequences nest, and any contiguous part of one can be run on
// its own with Call options or cut out with a slice key.
//
// Example:
//
//	seq := nn.NewSequence("features",
//	    nn.NewConv2D("conv1", nn.Conv2DConfig{Filters: 64, KernelSize: 3, Padding: nn.PaddingSame}, backend),
//	    nn.NewMaxPool2D("pool1", nn.MaxPool2DConfig{Size: 2}, backend),
//	    nn.NewConv2D("conv2", nn.Conv2DConfig{Filters: 128, KernelSize: 3, Padding: nn.PaddingSame}, backend),
//	)
//
//	out := seq.Forward(x)                                      // all layers
//	mid, err := seq.Call(x, nn.Through(nn.Named("pool1")))     // conv1, pool1
//	tail, err := seq.Item(nn.Slice(nn.Named("pool1"), nn.Key{})) // pool1, conv2
type Sequence struct {
	*LayerSet
}

// NewSequence creates a sequence owning the given layers, in order.
//
// Names are not validated here; lookups by a duplicated name fail with
// ErrAmbiguousLayerName.
func NewSequence(name string, layers ...Layer) *Sequence {
	return &Sequence{LayerSet: newLayerSet(name, layers)}
}

// Call runs x through the sequence, optionally restricted with From and
// Through.
func (s *Sequence) Call(x *tensor.Tensor, opts ...CallOption) (*tensor.Tensor, error) {
	return s.Execute(x, opts...)
}

// Build chains Build through every layer and returns the final output shape.
func (s *Sequence) Build(input tensor.Shape) (tensor.Shape, error) {
	shape := input
	for i, l := range s.layers {
		out, err := l.Build(shape)
		if err != nil {
			return nil, fmt.Errorf("%s: layer %d: %w", s.name, i, err)
		}
		shape = out
	}
	return shape.Clone(), nil
}

// OutputShape returns the output shape of the last layer.
func (s *Sequence) OutputShape() tensor.Shape {
	if len(s.layers) == 0 {
		return nil
	}
	return s.layers[len(s.layers)-1].OutputShape()
}

// Forward applies all layers in order. An empty sequence returns its input.
func (s *Sequence) Forward(input *tensor.Tensor) *tensor.Tensor {
	if len(s.layers) == 0 {
		return input
	}
	out, err := s.Execute(input)
	if err != nil {
		panic(err.Error())
	}
	return out
}

// Parameters returns the parameters of every layer, in layer order.
func (s *Sequence) Parameters() []*Parameter {
	return s.parameters()
}

// String returns a layer-by-layer summary.
func (s *Sequence) String() string {
	return s.summary("Sequence")
}

var _ Layer = (*Sequence)(nil)
