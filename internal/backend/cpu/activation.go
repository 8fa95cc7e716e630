package cpu

import (
	"math"

	"github.com/born-ml/ssd/internal/tensor"
)

// ReLU applies max(0, x) element-wise and returns a new tensor.
func (cpu *CPUBackend) ReLU(x *tensor.Tensor) *tensor.Tensor {
	out := tensor.Zeros(x.Shape())
	dst := out.Data()
	for i, v := range x.Data() {
		if v > 0 {
			dst[i] = v
		}
	}
	return out
}

// Softmax normalizes the last axis of x into probabilities.
//
// Uses the max-subtraction trick for numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) == 0 {
		panic("softmax: scalar input")
	}
	n := shape[len(shape)-1]
	out := tensor.Zeros(shape)
	src, dst := x.Data(), out.Data()
	for off := 0; off < len(src); off += n {
		row, res := src[off:off+n], dst[off:off+n]
		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sum float64
		for i, v := range row {
			e := math.Exp(float64(v - maxVal))
			res[i] = float32(e)
			sum += e
		}
		for i := range res {
			res[i] = float32(float64(res[i]) / sum)
		}
	}
	return out
}
