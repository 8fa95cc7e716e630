package loader

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/ssd/internal/tensor"
)

// Loader errors.
var (
	ErrTensorNotFound   = errors.New("tensor not found")
	ErrUnsupportedDType = errors.New("unsupported dtype")
)

// WeightSource provides pretrained parameter tensors by layer name.
type WeightSource interface {
	// LayerWeights returns the layer's tensors in declaration order
	// (weight, then bias when present).
	LayerWeights(layer string) ([]*tensor.Tensor, error)
}

// WeightName returns the tensor name of a layer parameter, e.g.
// "block1_conv1.weight".
func WeightName(layer, param string) string {
	return layer + "." + param
}

// MapSource is an in-memory WeightSource keyed by tensor name
// ("<layer>.weight", "<layer>.bias").
type MapSource map[string]*tensor.Tensor

// LayerWeights implements WeightSource.
func (m MapSource) LayerWeights(layer string) ([]*tensor.Tensor, error) {
	return layerWeights(layer, func(name string) (*tensor.Tensor, bool, error) {
		t, ok := m[name]
		return t, ok, nil
	})
}

// Names returns the tensor names in sorted order.
func (m MapSource) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// layerWeights collects "<layer>.weight" (required) and "<layer>.bias"
// (optional) through lookup.
func layerWeights(layer string, lookup func(name string) (*tensor.Tensor, bool, error)) ([]*tensor.Tensor, error) {
	weight, ok, err := lookup(WeightName(layer, "weight"))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrTensorNotFound, "layer %s: %s", layer, WeightName(layer, "weight"))
	}
	bias, ok, err := lookup(WeightName(layer, "bias"))
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*tensor.Tensor{weight}, nil
	}
	return []*tensor.Tensor{weight, bias}, nil
}
