package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/born-ml/ssd/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Parameters:
//   - fanIn: Number of input units
//   - fanOut: Number of output units
//   - shape: Shape of the weight tensor
//
// Returns a tensor initialized with Xavier distribution.
func Xavier(fanIn, fanOut int, shape tensor.Shape) *tensor.Tensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros(shape)
	data := t.Data()
	for i := range data {
		//nolint:gosec // Using math/rand for weight initialization (not security-critical)
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// Resample builds a tensor of the given shape whose elements are drawn
// uniformly, with replacement, from the flattened values of src.
//
// It transfers the value distribution of pretrained weights into a layer
// whose shape has no structural correspondence with the source (for
// example a dense kernel feeding a convolution kernel).
//
// Example:
//
//	rng := rand.New(rand.NewSource(42))
//	k := nn.Resample(fc1Kernel, tensor.Shape{1024, 512, 3, 3}, rng)
func Resample(src *tensor.Tensor, shape tensor.Shape, rng *rand.Rand) (*tensor.Tensor, error) {
	if src == nil || src.NumElements() == 0 {
		return nil, fmt.Errorf("resample: empty source tensor")
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	values := src.Data()
	out := tensor.Zeros(shape)
	data := out.Data()
	for i := range data {
		data[i] = values[rng.Intn(len(values))]
	}
	return out, nil
}
