// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend.
//
// Convolutions use im2col followed by a gonum BLAS matrix multiply.
package cpu

import (
	internalcpu "github.com/born-ml/ssd/internal/backend/cpu"
	"github.com/born-ml/ssd/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
//
// Example:
//
//	backend := cpu.New()
//	conv := nn.NewConv2D("conv1", nn.Conv2DConfig{Filters: 64, KernelSize: 3}, backend)
func New() *Backend {
	return internalcpu.New()
}
