package nn

import (
	"github.com/born-ml/ssd/internal/tensor"
)

// countingLayer adds a constant to its input and counts invocations.
type countingLayer struct {
	name  string
	add   float32
	calls int
	shape tensor.Shape
}

func newCounting(name string, add float32) *countingLayer {
	return &countingLayer{name: name, add: add}
}

func (c *countingLayer) Name() string { return c.name }

func (c *countingLayer) Build(input tensor.Shape) (tensor.Shape, error) {
	c.shape = input.Clone()
	return input, nil
}

func (c *countingLayer) OutputShape() tensor.Shape { return c.shape }

func (c *countingLayer) Forward(x *tensor.Tensor) *tensor.Tensor {
	c.calls++
	out := x.Clone()
	for i := range out.Data() {
		out.Data()[i] += c.add
	}
	return out
}

func (c *countingLayer) Parameters() []*Parameter { return nil }

// chain returns n counting layers named l0..l(n-1), layer i adding 10^i.
func chain(n int) ([]Layer, []*countingLayer) {
	layers := make([]Layer, n)
	counters := make([]*countingLayer, n)
	add := float32(1)
	for i := range layers {
		counters[i] = newCounting(string(rune('a'+i)), add)
		layers[i] = counters[i]
		add *= 10
	}
	return layers, counters
}

func scalar(v float32) *tensor.Tensor {
	return tensor.New(tensor.Shape{1, 1}, []float32{v})
}
