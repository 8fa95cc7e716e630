package ssd

import "github.com/born-ml/ssd/internal/nn"

// ExtraNetName is the default name of the extra feature layers.
const ExtraNetName = "ExtraNet"

// NewExtraNet chains the extra feature layers that follow the backbone.
// An empty name defaults to ExtraNetName.
func NewExtraNet(name string, layers ...nn.Layer) *nn.Sequence {
	if name == "" {
		name = ExtraNetName
	}
	return nn.NewSequence(name, layers...)
}
