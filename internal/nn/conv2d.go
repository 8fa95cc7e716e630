package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// Conv2DConfig configures a Conv2D layer.
type Conv2DConfig struct {
	Filters    int         // number of output channels
	KernelSize int         // square kernel side
	Stride     int         // defaults to 1
	Dilation   int         // defaults to 1
	Padding    PaddingMode // valid or same
	Activation Activation  // fused activation
	NoBias     bool        // drop the bias term
}

// Conv2D is a 2D convolutional layer.
//
// Performs convolution: output = activation(Conv2D(input, weight) + bias)
//
// Input shape:  [batch, in_channels, height, width]
// Weight shape: [filters, in_channels, kernel, kernel]
// Bias shape:   [filters]
// Output shape: [batch, filters, out_h, out_w]
//
// Weights are allocated by Build, once the number of input channels is
// known. With PaddingSame, out_h = ceil(height / stride); with
// PaddingValid, out_h = (height - dilation*(kernel-1) - 1) / stride + 1.
//
// Example:
//
//	conv := nn.NewConv2D("head_conv6", nn.Conv2DConfig{
//		Filters: 1024, KernelSize: 3, Dilation: 6,
//		Padding: nn.PaddingSame, Activation: nn.ActivationReLU,
//	}, backend)
//	output := conv.Forward(input) // [N, 512, 19, 19] -> [N, 1024, 19, 19]
type Conv2D struct {
	base
	cfg     Conv2DConfig
	padding tensor.Padding

	weight *Parameter // [filters, in_channels, kernel, kernel]
	bias   *Parameter // [filters] or nil

	backend tensor.Backend
}

// NewConv2D creates a new, unbuilt 2D convolutional layer.
//
// Panics on a non-positive filter count or kernel size.
func NewConv2D(name string, cfg Conv2DConfig, backend tensor.Backend) *Conv2D {
	if cfg.Filters <= 0 {
		panic(fmt.Sprintf("conv2d %s: invalid filters %d", name, cfg.Filters))
	}
	if cfg.KernelSize <= 0 {
		panic(fmt.Sprintf("conv2d %s: invalid kernel size %d", name, cfg.KernelSize))
	}
	if cfg.Stride <= 0 {
		cfg.Stride = 1
	}
	if cfg.Dilation <= 0 {
		cfg.Dilation = 1
	}
	return &Conv2D{base: base{name: name}, cfg: cfg, backend: backend}
}

// Build allocates the kernel for input [C, H, W] with Xavier initialization
// and a zero bias.
func (c *Conv2D) Build(input tensor.Shape) (tensor.Shape, error) {
	if ok, err := c.built(input); ok || err != nil {
		return c.outShape, err
	}
	if len(input) != 3 || input.Validate() != nil {
		return nil, fmt.Errorf("%w: %s expects [C, H, W], got %v", ErrShapeMismatch, c.name, input)
	}

	pad, outH, outW, err := spatialPadding(c.cfg.Padding, input, c.cfg.KernelSize, c.cfg.Stride, c.cfg.Dilation)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	c.padding = pad

	k := c.cfg.KernelSize
	inChannels := input[0]
	// fan_in = in_channels * k * k, fan_out = filters * k * k
	weight := Xavier(inChannels*k*k, c.cfg.Filters*k*k, tensor.Shape{c.cfg.Filters, inChannels, k, k})
	c.weight = NewParameter("weight", weight)
	if !c.cfg.NoBias {
		c.bias = NewParameter("bias", tensor.Zeros(tensor.Shape{c.cfg.Filters}))
	}

	c.setBuilt(input, tensor.Shape{c.cfg.Filters, outH, outW})
	return c.outShape, nil
}

// Forward performs the forward pass.
//
// Input: [batch, in_channels, height, width]
// Output: [batch, filters, out_h, out_w].
func (c *Conv2D) Forward(input *tensor.Tensor) *tensor.Tensor {
	if len(input.Shape()) != 4 {
		panic(fmt.Sprintf("conv2d %s: expected 4D input [N,C,H,W], got %dD", c.name, len(input.Shape())))
	}
	mustBuild(c, input)

	output := c.backend.Conv2D(input, c.weight.Tensor(), tensor.Conv2DParams{
		Stride:   c.cfg.Stride,
		Dilation: c.cfg.Dilation,
		Padding:  c.padding,
	})
	if c.bias != nil {
		output = c.backend.AddBias(output, c.bias.Tensor())
	}
	return c.cfg.Activation.apply(c.backend, output)
}

// Parameters returns the kernel and, unless disabled, the bias.
func (c *Conv2D) Parameters() []*Parameter {
	if c.weight == nil {
		return nil
	}
	if c.bias != nil {
		return []*Parameter{c.weight, c.bias}
	}
	return []*Parameter{c.weight}
}

// Config returns the layer configuration with defaults applied.
func (c *Conv2D) Config() Conv2DConfig {
	return c.cfg
}

// String returns a string representation of the layer.
func (c *Conv2D) String() string {
	return fmt.Sprintf("Conv2D(filters=%d, kernel_size=%d, stride=%d, dilation=%d, padding=%s, activation=%s, bias=%v)",
		c.cfg.Filters, c.cfg.KernelSize, c.cfg.Stride, c.cfg.Dilation,
		c.cfg.Padding, c.cfg.Activation, !c.cfg.NoBias)
}
