// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public tensor types of the SSD module.
//
// The package exposes:
//   - Tensor: dense float32 tensor in row-major (NCHW) layout
//   - Shape: tensor dimensions, per-sample or batched
//   - Backend: the compute interface layers run on
//
// Example:
//
//	x := tensor.Zeros(tensor.Shape{1, 3, 300, 300})
//	fmt.Println(x.Shape()) // (1, 3, 300, 300)
package tensor

import (
	"math/rand"

	"github.com/born-ml/ssd/internal/tensor"
)

// Tensor is a dense float32 tensor.
type Tensor = tensor.Tensor

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Backend is the compute interface used by layers.
type Backend = tensor.Backend

// Padding, Conv2DParams and Pool2DParams configure backend operations.
type (
	Padding      = tensor.Padding
	Conv2DParams = tensor.Conv2DParams
	Pool2DParams = tensor.Pool2DParams
)

// New wraps data without copying. It panics on a size mismatch.
func New(shape Shape, data []float32) *Tensor {
	return tensor.New(shape, data)
}

// FromSlice copies data into a new tensor.
func FromSlice(data []float32, shape Shape) (*Tensor, error) {
	return tensor.FromSlice(data, shape)
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape Shape) *Tensor {
	return tensor.Zeros(shape)
}

// Full creates a tensor filled with value.
func Full(shape Shape, value float32) *Tensor {
	return tensor.Full(shape, value)
}

// Randn creates a tensor with standard normal values drawn from rng.
func Randn(shape Shape, rng *rand.Rand) *Tensor {
	return tensor.Randn(shape, rng)
}

// Uniform creates a tensor with values drawn uniformly from [low, high).
func Uniform(shape Shape, low, high float64, rng *rand.Rand) *Tensor {
	return tensor.Uniform(shape, low, high, rng)
}
