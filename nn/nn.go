// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the layer contract, concrete layers and the
// indexable composites used to assemble SSD models.
//
// # Addressing layers
//
// Sequence and Graph expose the same indexing contract. A Key selects a
// layer by position (negative positions count from the end), by name, or
// a slice of either:
//
//	seq.Item(nn.At(-1))
//	seq.Item(nn.Named("block4_conv3"))
//	seq.Item(nn.Slice(nn.Named("block4_conv1"), nn.Named("block4_conv3"))) // inclusive by name
//
// # Partial execution
//
// Call with From and Through runs only the layers in between, inclusive.
// Layers outside the range are never invoked:
//
//	pool3, err := base.Call(x, nn.Through(nn.Named("block3_pool")))
//	conv4, err := base.Call(pool3, nn.From(nn.Named("block4_conv1")), nn.Through(nn.Named("block4_conv3")))
//
// # Errors
//
// Lookups fail with ErrIndexOutOfRange, ErrUnknownLayerName,
// ErrAmbiguousLayerName or ErrInvalidKeyType; an inverted range fails with
// ErrInvalidExecutionRange. Use errors.Is to test for them.
package nn

import (
	"github.com/born-ml/ssd/internal/nn"
)

// Layer is the contract every unit of computation satisfies.
type Layer = nn.Layer

// Parameter is a named learnable tensor owned by a layer.
type Parameter = nn.Parameter

// Composites.
type (
	Key        = nn.Key
	LayerSet   = nn.LayerSet
	Sequence   = nn.Sequence
	Graph      = nn.Graph
	Node       = nn.Node
	Wiring     = nn.Wiring
	CallOption = nn.CallOption
)

// Layers and their configuration.
type (
	Input           = nn.Input
	Conv2D          = nn.Conv2D
	Conv2DConfig    = nn.Conv2DConfig
	MaxPool2D       = nn.MaxPool2D
	MaxPool2DConfig = nn.MaxPool2DConfig
	Dense           = nn.Dense
	Flatten         = nn.Flatten
	ReLU            = nn.ReLU
	PaddingMode     = nn.PaddingMode
	Activation      = nn.Activation
)

// Padding modes and activations.
const (
	PaddingValid      = nn.PaddingValid
	PaddingSame       = nn.PaddingSame
	ActivationLinear  = nn.ActivationLinear
	ActivationReLU    = nn.ActivationReLU
	ActivationSoftmax = nn.ActivationSoftmax
)

// Errors.
var (
	ErrIndexOutOfRange       = nn.ErrIndexOutOfRange
	ErrUnknownLayerName      = nn.ErrUnknownLayerName
	ErrAmbiguousLayerName    = nn.ErrAmbiguousLayerName
	ErrInvalidKeyType        = nn.ErrInvalidKeyType
	ErrInvalidExecutionRange = nn.ErrInvalidExecutionRange
	ErrDuplicateLayerName    = nn.ErrDuplicateLayerName
	ErrInvalidWiring         = nn.ErrInvalidWiring
	ErrCyclicWiring          = nn.ErrCyclicWiring
	ErrInputArity            = nn.ErrInputArity
	ErrShapeMismatch         = nn.ErrShapeMismatch
	ErrWeightCount           = nn.ErrWeightCount
	ErrNotBuilt              = nn.ErrNotBuilt
)

// Keys and call options.
var (
	At      = nn.At
	Named   = nn.Named
	Slice   = nn.Slice
	From    = nn.From
	Through = nn.Through
)

// Constructors.
var (
	NewSequence  = nn.NewSequence
	NewGraph     = nn.NewGraph
	NewInput     = nn.NewInput
	NewConv2D    = nn.NewConv2D
	NewMaxPool2D = nn.NewMaxPool2D
	NewDense     = nn.NewDense
	NewFlatten   = nn.NewFlatten
	NewReLU      = nn.NewReLU
)

// Weight access.
var (
	Weights         = nn.Weights
	SetWeights      = nn.SetWeights
	CountParameters = nn.CountParameters
)
