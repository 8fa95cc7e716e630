package ssd

import (
	"fmt"
	"log/slog"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/ssd/internal/loader"
	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
	"github.com/born-ml/ssd/internal/vgg"
)

// BaseNetName is the default name of the backbone sequence.
const BaseNetName = "BaseNet"

// Names of the layers appended to the truncated feature extractor.
const (
	HeadConv6 = "head_conv6"
	HeadConv7 = "head_conv7"
)

var vgg16Aliases = map[string]bool{
	"VGG16":  true,
	"VGG-16": true,
	"VGG_16": true,
}

// NewBaseNet builds the SSD backbone.
//
// The VGG16 feature extractor loses its last pooling layer, which is
// replaced by a 3x3 stride-1 pool of the same name, followed by
// head_conv6 (3x3, dilation 6) and head_conv7 (1x1). Both convolutions
// are seeded by resampling, with replacement, the kernels and biases of
// fc1 and fc2 of a second VGG16 instance built with its classifier.
//
// features and head supply pretrained weights for the two instances. A
// nil source leaves that instance with its initial weights.
//
// An unknown architecture fails with ErrUnsupportedArchitecture before
// any layer is constructed.
func NewBaseNet(arch string, inputShape tensor.Shape, features, head loader.WeightSource, opts ...Option) (*nn.Sequence, error) {
	if !vgg16Aliases[arch] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, arch)
	}
	o := buildOptions(opts)
	log := o.logger.With("net", BaseNetName)

	featCfg := o.vgg
	featCfg.IncludeTop = false
	featCfg.InputShape = inputShape
	extractor, err := vgg.New(featCfg, o.backend)
	if err != nil {
		return nil, fmt.Errorf("feature extractor: %w", err)
	}
	if err := loadPretrained(log, extractor, features, "features"); err != nil {
		return nil, err
	}

	headCfg := o.vgg
	headCfg.IncludeTop = true
	headCfg.InputShape = o.headInput
	full, err := vgg.New(headCfg, o.backend)
	if err != nil {
		return nil, fmt.Errorf("head instance: %w", err)
	}
	if err := loadPretrained(log, full, head, "head"); err != nil {
		return nil, err
	}
	fc, err := full.Item(nn.Slice(nn.At(-3), nn.Key{}))
	if err != nil {
		return nil, err
	}
	fcLayers := fc.(*nn.Sequence).Layers() // fc1, fc2, predictions

	layers := extractor.Layers()
	last := layers[len(layers)-1]
	layers = append(layers[:len(layers)-1],
		nn.NewMaxPool2D(last.Name(), nn.MaxPool2DConfig{Size: 3, Stride: 1, Padding: nn.PaddingSame}, o.backend),
		nn.NewConv2D(HeadConv6, nn.Conv2DConfig{
			Filters:    o.headFilters,
			KernelSize: 3,
			Dilation:   6,
			Padding:    nn.PaddingSame,
			Activation: nn.ActivationReLU,
		}, o.backend),
		nn.NewConv2D(HeadConv7, nn.Conv2DConfig{
			Filters:    o.headFilters,
			KernelSize: 1,
			Padding:    nn.PaddingSame,
			Activation: nn.ActivationReLU,
		}, o.backend),
	)

	base := nn.NewSequence(BaseNetName, layers...)
	if _, err := base.Build(inputShape); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(o.seed)) //nolint:gosec // reproducible sampling, not security-critical
	n := len(layers)
	if err := transplant(log, layers[n-2], fcLayers[0], rng); err != nil {
		return nil, err
	}
	if err := transplant(log, layers[n-1], fcLayers[1], rng); err != nil {
		return nil, err
	}
	return base, nil
}

func loadPretrained(log *slog.Logger, seq *nn.Sequence, src loader.WeightSource, role string) error {
	if src == nil {
		log.Debug("no pretrained weights, keeping initial values", "instance", role)
		return nil
	}
	n, err := vgg.LoadWeights(seq, src)
	if err != nil {
		return fmt.Errorf("load %s weights: %w", role, err)
	}
	log.Debug("pretrained weights loaded", "instance", role, "layers", n)
	return nil
}

// transplant resamples the kernel and bias of src into dst, keeping dst's
// shapes.
func transplant(log *slog.Logger, dst, src nn.Layer, rng *rand.Rand) error {
	from, to := nn.Weights(src), dst.Parameters()
	if len(from) != 2 || len(to) != 2 {
		return fmt.Errorf("%w: transplant %s -> %s needs kernel and bias on both sides", nn.ErrWeightCount, src.Name(), dst.Name())
	}

	ws := make([]*tensor.Tensor, 2)
	for i := range ws {
		t, err := nn.Resample(from[i], to[i].Tensor().Shape(), rng)
		if err != nil {
			return fmt.Errorf("transplant %s -> %s: %w", src.Name(), dst.Name(), err)
		}
		ws[i] = t
	}
	if err := nn.SetWeights(dst, ws); err != nil {
		return err
	}

	srcMean, srcStd := stat.MeanStdDev(from[0].Float64(), nil)
	dstMean, dstStd := stat.MeanStdDev(ws[0].Float64(), nil)
	log.Debug("head weights transplanted",
		"layer", dst.Name(), "source", src.Name(),
		"kernel", ws[0].Shape().String(),
		"source_mean", srcMean, "source_std", srcStd,
		"mean", dstMean, "std", dstStd)
	return nil
}
