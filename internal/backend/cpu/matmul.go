package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/ssd/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.Tensor) *tensor.Tensor {
	as, bs := a.Shape(), b.Shape()
	if len(as) != 2 || len(bs) != 2 {
		panic(fmt.Sprintf("matmul: requires 2D tensors, got %v and %v", as, bs))
	}
	if as[1] != bs[0] {
		panic(fmt.Sprintf("matmul: inner dimensions must match: %v @ %v", as, bs))
	}

	M, K, N := as[0], as[1], bs[1]
	out := tensor.Zeros(tensor.Shape{M, N})
	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1,
		blas32.General{Rows: M, Cols: K, Stride: K, Data: a.Data()},
		blas32.General{Rows: K, Cols: N, Stride: N, Data: b.Data()},
		0,
		blas32.General{Rows: M, Cols: N, Stride: N, Data: out.Data()},
	)
	return out
}

// AddBias adds bias [C] along axis 1 of x ([N, C, ...]) and returns a new tensor.
func (cpu *CPUBackend) AddBias(x, bias *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("add_bias: input must have at least 2 dims, got %v", shape))
	}
	C := shape[1]
	if bias.NumElements() != C {
		panic(fmt.Sprintf("add_bias: bias has %d elements, input has %d channels", bias.NumElements(), C))
	}

	inner := 1
	for _, d := range shape[2:] {
		inner *= d
	}

	out := x.Clone()
	data := out.Data()
	b := bias.Data()
	for i := range data {
		data[i] += b[(i/inner)%C]
	}
	return out
}
