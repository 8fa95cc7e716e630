package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/ssd/internal/parallel"
	"github.com/born-ml/ssd/internal/tensor"
)

// Conv2D performs 2D convolution using the im2col algorithm.
//
// Input shape: [batch, in_channels, height, width]
// Kernel shape: [out_channels, in_channels, kernel_h, kernel_w]
// Output shape: [batch, out_channels, out_h, out_w]
//
// With dilation d the kernel covers d*(k-1)+1 input pixels per axis:
//
//	out_h = (H + pad_top + pad_bottom - (d*(K_h-1)+1)) / stride + 1
//
// Algorithm: Im2col
//  1. Transform input patches into columns (im2col)
//  2. Kernel is already a [C_out, C_in*K_h*K_w] row-major matrix
//  3. GEMM (gonum BLAS): kernel @ colsᵀ -> [C_out, N*H_out*W_out]
//  4. Rearrange to [N, C_out, H_out, W_out]
func (cpu *CPUBackend) Conv2D(input, kernel *tensor.Tensor, p tensor.Conv2DParams) *tensor.Tensor {
	inputShape := input.Shape()
	kernelShape := kernel.Shape()

	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: input must be 4D [N,C,H,W], got %dD", len(inputShape)))
	}
	if len(kernelShape) != 4 {
		panic(fmt.Sprintf("conv2d: kernel must be 4D [C_out,C_in,K_h,K_w], got %dD", len(kernelShape)))
	}

	stride, dilation := p.Stride, p.Dilation
	if stride <= 0 {
		stride = 1
	}
	if dilation <= 0 {
		dilation = 1
	}

	N, CIn, H, W := inputShape[0], inputShape[1], inputShape[2], inputShape[3]
	COut, CInK, KH, KW := kernelShape[0], kernelShape[1], kernelShape[2], kernelShape[3]

	if CIn != CInK {
		panic(fmt.Sprintf("conv2d: input channels %d != kernel channels %d", CIn, CInK))
	}

	effKH := dilation*(KH-1) + 1
	effKW := dilation*(KW-1) + 1
	HOut := (H+p.Padding.Top+p.Padding.Bottom-effKH)/stride + 1
	WOut := (W+p.Padding.Left+p.Padding.Right-effKW)/stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("conv2d: invalid output dimensions: out_h=%d, out_w=%d (check stride/padding/dilation)", HOut, WOut))
	}

	colWidth := CIn * KH * KW
	colHeight := N * HOut * WOut
	colBuf := make([]float32, colHeight*colWidth)
	parallel.Range(colHeight, cpu.par, func(start, end int) {
		im2col(colBuf, input.Data(), start, end, CIn, H, W, KH, KW, HOut, WOut, stride, dilation, p.Padding)
	})

	// result[i, j] = sum_k kernel[i, k] * col[j, k]
	result := make([]float32, COut*colHeight)
	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		blas32.General{Rows: COut, Cols: colWidth, Stride: colWidth, Data: kernel.Data()},
		blas32.General{Rows: colHeight, Cols: colWidth, Stride: colWidth, Data: colBuf},
		0,
		blas32.General{Rows: COut, Cols: colHeight, Stride: colHeight, Data: result},
	)

	// [C_out, N*H_out*W_out] -> [N, C_out, H_out, W_out]
	out := tensor.Zeros(tensor.Shape{N, COut, HOut, WOut})
	outData := out.Data()
	plane := HOut * WOut
	for n := 0; n < N; n++ {
		for c := 0; c < COut; c++ {
			src := result[c*colHeight+n*plane : c*colHeight+(n+1)*plane]
			copy(outData[(n*COut+c)*plane:], src)
		}
	}
	return out
}

// im2col fills rows [start, end) of colBuf [N*H_out*W_out, C*K_h*K_w]
// from input [N, C, H, W].
//
// Each row corresponds to one output position; out-of-bounds (padded) taps
// are zero.
func im2col(colBuf, inputData []float32, start, end, C, H, W, KH, KW, HOut, WOut, stride, dilation int, pad tensor.Padding) {
	colWidth := C * KH * KW
	plane := HOut * WOut

	for row := start; row < end; row++ {
		n, pos := row/plane, row%plane
		hStart := (pos/WOut)*stride - pad.Top
		wStart := (pos%WOut)*stride - pad.Left
		bufIdx := row * colWidth

		for c := 0; c < C; c++ {
			base := (n*C + c) * H * W
			for kh := 0; kh < KH; kh++ {
				h := hStart + kh*dilation
				for kw := 0; kw < KW; kw++ {
					w := wStart + kw*dilation
					if h >= 0 && h < H && w >= 0 && w < W {
						colBuf[bufIdx] = inputData[base+h*W+w]
					}
					bufIdx++
				}
			}
		}
	}
}
