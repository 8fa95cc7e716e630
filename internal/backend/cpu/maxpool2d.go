package cpu

import (
	"fmt"
	"math"

	"github.com/born-ml/ssd/internal/parallel"
	"github.com/born-ml/ssd/internal/tensor"
)

// MaxPool2D performs 2D max pooling.
//
// Input: [N, C, H, W]
// Output: [N, C, H_out, W_out], where
//
//	H_out = (H + pad_top + pad_bottom - size) / stride + 1
//
// Padded positions are ignored rather than treated as zeros, so "same"
// pooling over negative activations keeps the true window maximum.
func (cpu *CPUBackend) MaxPool2D(input *tensor.Tensor, p tensor.Pool2DParams) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("maxpool2d: input must be 4D [N,C,H,W], got %dD", len(shape)))
	}
	if p.Size <= 0 || p.Stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid size=%d stride=%d", p.Size, p.Stride))
	}

	N, C, H, W := shape[0], shape[1], shape[2], shape[3]
	HOut := (H+p.Padding.Top+p.Padding.Bottom-p.Size)/p.Stride + 1
	WOut := (W+p.Padding.Left+p.Padding.Right-p.Size)/p.Stride + 1
	if HOut <= 0 || WOut <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid output dimensions: out_h=%d, out_w=%d", HOut, WOut))
	}

	out := tensor.Zeros(tensor.Shape{N, C, HOut, WOut})
	in := input.Data()
	dst := out.Data()

	outPlane := HOut * WOut
	parallel.For(N*C, cpu.par, func(nc int) {
		base := nc * H * W
		idx := nc * outPlane
		for oh := 0; oh < HOut; oh++ {
			hStart := oh*p.Stride - p.Padding.Top
			for ow := 0; ow < WOut; ow++ {
				wStart := ow*p.Stride - p.Padding.Left
				best := float32(math.Inf(-1))
				for kh := 0; kh < p.Size; kh++ {
					h := hStart + kh
					if h < 0 || h >= H {
						continue
					}
					for kw := 0; kw < p.Size; kw++ {
						w := wStart + kw
						if w < 0 || w >= W {
							continue
						}
						if v := in[base+h*W+w]; v > best {
							best = v
						}
					}
				}
				dst[idx] = best
				idx++
			}
		}
	})
	return out
}
