// Package nn implements the layer contract and the indexable composites
// the SSD model is assembled from.
//
// This package provides:
//   - Layer: the contract every unit of computation satisfies
//   - Parameter: named learnable tensors owned by a layer
//   - Layers: Input, Conv2D, MaxPool2D, ReLU, Dense, Flatten
//   - Key: position / name / slice addressing of layers
//   - LayerSet: key resolution and partial execution over an ordered layer list
//   - Sequence: a linear chain of layers (itself a Layer)
//   - Graph: layers wired from named inputs to named outputs
//
// Shapes handed to Build and returned by OutputShape are per-sample
// ([C, H, W] or [F]). Tensors passed to Forward carry a leading batch
// dimension.
package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Layer is the contract for every unit of computation in a model.
//
// Layers are named (names are unique within their owning composite, not
// globally), shape-aware and callable:
//
//	conv := nn.NewConv2D("block1_conv1", nn.Conv2DConfig{Filters: 64, KernelSize: 3, Padding: nn.PaddingSame}, backend)
//	out, err := conv.Build(tensor.Shape{3, 300, 300}) // allocates [64, 3, 3, 3] weights
//	y := conv.Forward(x)                               // x: [N, 3, 300, 300]
type Layer interface {
	// Name returns the layer name.
	Name() string

	// Build fixes the layer's per-sample input shape, allocates its
	// parameters and returns the per-sample output shape.
	//
	// Building twice with the same shape is a no-op; building with a
	// different shape fails with ErrShapeMismatch.
	Build(input tensor.Shape) (tensor.Shape, error)

	// OutputShape returns the per-sample output shape, or nil before Build.
	OutputShape() tensor.Shape

	// Forward computes the output for a batched input.
	//
	// An unbuilt layer builds itself from the input shape first. Shape
	// violations panic, like any other programming error in a forward pass.
	Forward(input *tensor.Tensor) *tensor.Tensor

	// Parameters returns the layer's learnable parameters in a fixed order
	// (weight before bias). Layers without parameters return nil.
	Parameters() []*Parameter
}

// base carries the name and build state shared by the concrete layers.
type base struct {
	name     string
	inShape  tensor.Shape
	outShape tensor.Shape
}

// Name returns the layer name.
func (b *base) Name() string {
	return b.name
}

// OutputShape returns the per-sample output shape, or nil before Build.
func (b *base) OutputShape() tensor.Shape {
	return b.outShape
}

// built reports whether the layer was already built for in.
// It fails if the layer was built for a different shape.
func (b *base) built(in tensor.Shape) (bool, error) {
	if b.outShape == nil {
		return false, nil
	}
	if !b.inShape.Equal(in) {
		return false, fmt.Errorf("%w: %s was built for input %v, got %v", ErrShapeMismatch, b.name, b.inShape, in)
	}
	return true, nil
}

// setBuilt records the build result.
func (b *base) setBuilt(in, out tensor.Shape) {
	b.inShape = in.Clone()
	b.outShape = out.Clone()
}

// mustBuild builds l for the per-sample shape of x, panicking on failure.
func mustBuild(l Layer, x *tensor.Tensor) {
	if _, err := l.Build(x.Shape().Sample()); err != nil {
		panic(fmt.Sprintf("%s: %v", l.Name(), err))
	}
}

// Weights returns copies of the layer's parameter tensors, in Parameters order.
func Weights(l Layer) []*tensor.Tensor {
	params := l.Parameters()
	out := make([]*tensor.Tensor, len(params))
	for i, p := range params {
		out[i] = p.Tensor().Clone()
	}
	return out
}

// SetWeights copies ws into the layer's parameters.
//
// The layer must be built; ws must match Parameters in count and shapes.
func SetWeights(l Layer, ws []*tensor.Tensor) error {
	params := l.Parameters()
	if l.OutputShape() == nil && len(params) == 0 && len(ws) > 0 {
		return fmt.Errorf("%w: %s", ErrNotBuilt, l.Name())
	}
	if len(params) != len(ws) {
		return fmt.Errorf("%w: %s expects %d tensors, got %d", ErrWeightCount, l.Name(), len(params), len(ws))
	}
	for i, p := range params {
		if err := p.Set(ws[i]); err != nil {
			return fmt.Errorf("%s: %w", l.Name(), err)
		}
	}
	return nil
}

// CountParameters returns the number of scalar parameters of l.
func CountParameters(l Layer) int {
	n := 0
	for _, p := range l.Parameters() {
		n += p.Tensor().NumElements()
	}
	return n
}
