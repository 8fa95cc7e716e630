// Package tensor provides the dense tensor type and the backend contract
// used by the SSD layers.
//
// The package is intentionally small: a row-major float32 buffer with a
// shape, plus the Backend interface through which layers reach the
// numeric kernels. Everything numeric lives behind Backend.
package tensor

import "fmt"

// Tensor is a dense, row-major float32 tensor.
//
// Example:
//
//	t := tensor.Zeros(tensor.Shape{1, 3, 32, 32})
//	data := t.Data() // len == 3072
type Tensor struct {
	shape Shape
	data  []float32
}

// New wraps data in a Tensor without copying.
//
// Panics if len(data) does not match the shape.
func New(shape Shape, data []float32) *Tensor {
	if shape.NumElements() != len(data) {
		panic(fmt.Sprintf("tensor: shape %v requires %d elements, got %d", shape, shape.NumElements(), len(data)))
	}
	return &Tensor{
		shape: shape.Clone(),
		data:  data,
	}
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	buf := make([]float32, len(data))
	copy(buf, data)
	return &Tensor{shape: shape.Clone(), data: buf}, nil
}

// Shape returns the tensor's shape.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying buffer (no copy).
func (t *Tensor) Data() []float32 {
	return t.data
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Reshape returns a tensor sharing the same buffer with a new shape.
//
// Panics if the number of elements differs.
func (t *Tensor) Reshape(dims ...int) *Tensor {
	shape := Shape(dims)
	if shape.NumElements() != len(t.data) {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v", t.shape, len(t.data), shape))
	}
	return &Tensor{shape: shape.Clone(), data: t.data}
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	buf := make([]float32, len(t.data))
	copy(buf, t.data)
	return &Tensor{shape: t.shape.Clone(), data: buf}
}

// At returns the element at the given indices.
func (t *Tensor) At(indices ...int) float32 {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("at: expected %d indices, got %d", len(t.shape), len(indices)))
	}
	strides := t.shape.ComputeStrides()
	idx := 0
	for i, v := range indices {
		if v < 0 || v >= t.shape[i] {
			panic(fmt.Sprintf("at: index %d out of bounds for dimension %d (shape: %v)", v, i, t.shape))
		}
		idx += v * strides[i]
	}
	return t.data[idx]
}

// Float64 returns the elements converted to float64.
//
// Used where float64-only libraries (statistics, encoders) consume tensors.
func (t *Tensor) Float64() []float64 {
	out := make([]float64, len(t.data))
	for i, v := range t.data {
		out[i] = float64(v)
	}
	return out
}

// String returns a short description, not the data.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}
