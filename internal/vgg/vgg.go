// Package vgg builds the VGG16 architecture with Keras layer names, with
// or without its classifier head.
package vgg

import (
	"fmt"

	"github.com/born-ml/ssd/internal/loader"
	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
)

// Name is the name of the sequences built by New.
const Name = "vgg16"

// blockDepth is the number of convolutions in each of the five blocks.
var blockDepth = [5]int{2, 2, 3, 3, 3}

// Config describes a VGG16 instance.
type Config struct {
	// IncludeTop appends flatten, fc1, fc2 and predictions.
	IncludeTop bool
	// InputShape is the per-sample input shape [C, H, W].
	InputShape tensor.Shape
	// Widths holds the filter count of each block.
	Widths [5]int
	// FCUnits is the width of fc1 and fc2.
	FCUnits int
	// Classes is the width of the predictions layer.
	Classes int
}

// DefaultConfig returns the ImageNet VGG16 configuration.
func DefaultConfig() Config {
	return Config{
		IncludeTop: true,
		InputShape: tensor.Shape{3, 224, 224},
		Widths:     [5]int{64, 128, 256, 512, 512},
		FCUnits:    4096,
		Classes:    1000,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.InputShape == nil {
		c.InputShape = def.InputShape
	}
	if c.Widths == [5]int{} {
		c.Widths = def.Widths
	}
	if c.FCUnits == 0 {
		c.FCUnits = def.FCUnits
	}
	if c.Classes == 0 {
		c.Classes = def.Classes
	}
	return c
}

// New builds a VGG16 sequence and allocates its parameters.
//
// The layer list is input_1, block1_conv1 ... block5_pool and, with
// IncludeTop, flatten, fc1, fc2 and predictions. Zero fields take their
// DefaultConfig values.
func New(cfg Config, backend tensor.Backend) (*nn.Sequence, error) {
	cfg = cfg.withDefaults()
	if len(cfg.InputShape) != 3 {
		return nil, fmt.Errorf("%w: vgg16 expects an input shape [C, H, W], got %v", nn.ErrShapeMismatch, cfg.InputShape)
	}

	layers := []nn.Layer{nn.NewInput("input_1", cfg.InputShape)}
	for b, depth := range blockDepth {
		for c := 1; c <= depth; c++ {
			layers = append(layers, nn.NewConv2D(fmt.Sprintf("block%d_conv%d", b+1, c), nn.Conv2DConfig{
				Filters:    cfg.Widths[b],
				KernelSize: 3,
				Padding:    nn.PaddingSame,
				Activation: nn.ActivationReLU,
			}, backend))
		}
		layers = append(layers, nn.NewMaxPool2D(fmt.Sprintf("block%d_pool", b+1), nn.MaxPool2DConfig{Size: 2}, backend))
	}
	if cfg.IncludeTop {
		layers = append(layers,
			nn.NewFlatten("flatten"),
			nn.NewDense("fc1", cfg.FCUnits, nn.ActivationReLU, backend),
			nn.NewDense("fc2", cfg.FCUnits, nn.ActivationReLU, backend),
			nn.NewDense("predictions", cfg.Classes, nn.ActivationSoftmax, backend),
		)
	}

	seq := nn.NewSequence(Name, layers...)
	if _, err := seq.Build(cfg.InputShape); err != nil {
		return nil, err
	}
	return seq, nil
}

// LoadWeights copies pretrained weights from src into every layer of seq
// that has parameters. It returns the number of layers loaded.
func LoadWeights(seq *nn.Sequence, src loader.WeightSource) (int, error) {
	loaded := 0
	for _, l := range seq.Layers() {
		if len(l.Parameters()) == 0 {
			continue
		}
		ws, err := src.LayerWeights(l.Name())
		if err != nil {
			return loaded, fmt.Errorf("%s: %w", seq.Name(), err)
		}
		if err := nn.SetWeights(l, ws); err != nil {
			return loaded, fmt.Errorf("%s: %w", seq.Name(), err)
		}
		loaded++
	}
	return loaded, nil
}

// Weights exports the parameters of every layer of seq as a MapSource,
// keyed the way LoadWeights expects them.
func Weights(seq *nn.Sequence) loader.MapSource {
	m := loader.MapSource{}
	for _, l := range seq.Layers() {
		for _, p := range l.Parameters() {
			m[loader.WeightName(l.Name(), p.Name())] = p.Tensor().Clone()
		}
	}
	return m
}
