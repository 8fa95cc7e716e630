package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// MaxPool2DConfig configures a MaxPool2D layer.
type MaxPool2DConfig struct {
	Size    int         // square window side
	Stride  int         // defaults to Size
	Padding PaddingMode // valid or same
}

// MaxPool2D is a 2D max pooling layer.
//
// Max pooling reduces spatial dimensions by taking the maximum value
// in each window. It has no learnable parameters.
//
// Input shape:  [batch, channels, height, width]
// Output shape: [batch, channels, out_height, out_width]
//
// Common configurations:
//   - 2x2 pool, stride=2, valid: halves the spatial dimensions (VGG blocks)
//   - 3x3 pool, stride=1, same: keeps the spatial dimensions (SSD pool5)
//
// Example:
//
//	pool := nn.NewMaxPool2D("block1_pool", nn.MaxPool2DConfig{Size: 2}, backend)
//	output := pool.Forward(input) // [32, 64, 28, 28] -> [32, 64, 14, 14]
type MaxPool2D struct {
	base
	cfg     MaxPool2DConfig
	padding tensor.Padding
	backend tensor.Backend
}

// NewMaxPool2D creates a new 2D max pooling layer.
//
// Panics on a non-positive window size.
func NewMaxPool2D(name string, cfg MaxPool2DConfig, backend tensor.Backend) *MaxPool2D {
	if cfg.Size <= 0 {
		panic(fmt.Sprintf("maxpool2d %s: invalid pool size %d", name, cfg.Size))
	}
	if cfg.Stride <= 0 {
		cfg.Stride = cfg.Size
	}
	return &MaxPool2D{base: base{name: name}, cfg: cfg, backend: backend}
}

// Build computes the output shape for input [C, H, W].
func (m *MaxPool2D) Build(input tensor.Shape) (tensor.Shape, error) {
	if ok, err := m.built(input); ok || err != nil {
		return m.outShape, err
	}
	if len(input) != 3 || input.Validate() != nil {
		return nil, fmt.Errorf("%w: %s expects [C, H, W], got %v", ErrShapeMismatch, m.name, input)
	}
	pad, outH, outW, err := spatialPadding(m.cfg.Padding, input, m.cfg.Size, m.cfg.Stride, 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.name, err)
	}
	m.padding = pad
	m.setBuilt(input, tensor.Shape{input[0], outH, outW})
	return m.outShape, nil
}

// Forward applies max pooling to the input.
//
// Input: [batch, channels, height, width]
// Output: [batch, channels, out_height, out_width].
func (m *MaxPool2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("maxpool2d %s: expected 4D input [N,C,H,W], got %dD", m.name, len(input.Shape())))
	}
	mustBuild(m, input)
	return m.backend.MaxPool2D(input, tensor.Pool2DParams{
		Size:    m.cfg.Size,
		Stride:  m.cfg.Stride,
		Padding: m.padding,
	})
}

// Parameters returns nil (max pooling has no learnable parameters).
func (m *MaxPool2D) Parameters() []*Parameter {
	return nil
}

// Config returns the layer configuration with defaults applied.
func (m *MaxPool2D) Config() MaxPool2DConfig {
	return m.cfg
}

// String returns a string representation of the layer.
func (m *MaxPool2D) String() string {
	return fmt.Sprintf("MaxPool2D(pool_size=%d, stride=%d, padding=%s)", m.cfg.Size, m.cfg.Stride, m.cfg.Padding)
}
