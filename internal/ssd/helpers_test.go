package ssd

import (
	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
	"github.com/born-ml/ssd/internal/vgg"
)

var tinyInput = tensor.Shape{3, 32, 32}

// tinyOptions shrink both VGG instances and the new head so tests run fast.
func tinyOptions(extra ...Option) []Option {
	return append([]Option{
		WithBackboneWidths([5]int{2, 2, 4, 4, 4}),
		WithClassifier(8, 5),
		WithHeadInputShape(tensor.Shape{3, 32, 32}),
		WithHeadFilters(8),
	}, extra...)
}

func tinyVGG(top bool) vgg.Config {
	return vgg.Config{
		IncludeTop: top,
		InputShape: tinyInput,
		Widths:     [5]int{2, 2, 4, 4, 4},
		FCUnits:    8,
		Classes:    5,
	}
}

// spySource records the layers it is asked for.
type spySource struct {
	requested []string
}

func (s *spySource) LayerWeights(layer string) ([]*tensor.Tensor, error) {
	s.requested = append(s.requested, layer)
	return nil, nil
}

// affine computes x*mul + add and counts invocations.
type affine struct {
	name     string
	mul, add float32
	calls    int
	shape    tensor.Shape
}

func newAffine(name string, mul, add float32) *affine {
	return &affine{name: name, mul: mul, add: add}
}

func (a *affine) Name() string { return a.name }

func (a *affine) Build(in tensor.Shape) (tensor.Shape, error) {
	a.shape = in.Clone()
	return in, nil
}

func (a *affine) OutputShape() tensor.Shape { return a.shape }

func (a *affine) Forward(x *tensor.Tensor) *tensor.Tensor {
	a.calls++
	out := x.Clone()
	for i, v := range out.Data() {
		out.Data()[i] = v*a.mul + a.add
	}
	return out
}

func (a *affine) Parameters() []*nn.Parameter { return nil }

func vec(vs ...float32) *tensor.Tensor {
	return tensor.New(tensor.Shape{1, len(vs)}, vs)
}
