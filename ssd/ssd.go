// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ssd assembles Single Shot Detector models on a VGG16 backbone.
//
// A model is a BaseNet (truncated VGG16 plus a dilated head), an ExtraNet
// of additional feature layers, and a DetectorNet with one predictor per
// tapped feature map.
//
// Example:
//
//	features, err := ssd.OpenWeights("vgg16_notop.safetensors")
//	...
//	head, err := ssd.OpenWeights("vgg16.safetensors")
//	...
//	model, err := ssd.Build(ssd.DefaultConfig(), features, head, ssd.WithSeed(1))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	outputs, err := model.Forward(images) // one tensor per feature map
package ssd

import (
	"github.com/born-ml/ssd/internal/loader"
	"github.com/born-ml/ssd/internal/ssd"
)

// Model and its parts.
type (
	Model          = ssd.Model
	Detector       = ssd.Detector
	Config         = ssd.Config
	BackboneConfig = ssd.BackboneConfig
	TapConfig      = ssd.TapConfig
	LayerSpec      = ssd.LayerSpec
	Option         = ssd.Option
)

// WeightSource provides pretrained tensors by layer name.
type WeightSource = loader.WeightSource

// Errors.
var (
	ErrUnsupportedArchitecture = ssd.ErrUnsupportedArchitecture
	ErrBranchMismatch          = ssd.ErrBranchMismatch
	ErrInvalidTap              = ssd.ErrInvalidTap
	ErrInvalidConfig           = ssd.ErrInvalidConfig
	ErrTensorNotFound          = loader.ErrTensorNotFound
)

// Assembly.
var (
	Build          = ssd.Build
	NewBaseNet     = ssd.NewBaseNet
	NewExtraNet    = ssd.NewExtraNet
	NewDetectorNet = ssd.NewDetectorNet
	NewModel       = ssd.NewModel
)

// Configuration.
var (
	DefaultConfig = ssd.DefaultConfig
	LoadConfig    = ssd.LoadConfig
	ParseConfig   = ssd.ParseConfig
)

// Options.
var (
	WithSeed           = ssd.WithSeed
	WithLogger         = ssd.WithLogger
	WithBackend        = ssd.WithBackend
	WithBackboneWidths = ssd.WithBackboneWidths
	WithClassifier     = ssd.WithClassifier
	WithHeadInputShape = ssd.WithHeadInputShape
	WithHeadFilters    = ssd.WithHeadFilters
)

// OpenWeights opens a SafeTensors weight file. Close it when the model is
// built.
func OpenWeights(path string) (*loader.SafeTensorsSource, error) {
	return loader.OpenSafeTensors(path)
}
