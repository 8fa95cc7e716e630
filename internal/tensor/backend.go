package tensor

// Padding holds explicit zero padding for the two spatial axes.
type Padding struct {
	Top, Bottom, Left, Right int
}

// Conv2DParams configures a 2D convolution.
type Conv2DParams struct {
	Stride   int
	Dilation int
	Padding  Padding
}

// Pool2DParams configures a 2D pooling window.
//
// Padded positions never win the max: they are skipped, not treated as zero.
type Pool2DParams struct {
	Size    int
	Stride  int
	Padding Padding
}

// Backend defines the interface that compute backends must implement.
// Backends handle the actual computation for the layer operations.
//
// All image tensors use NCHW layout; kernels are [C_out, C_in, K_h, K_w].
// Implementations panic on malformed shapes, mirroring how layers report
// programming errors.
type Backend interface {
	// Name returns a short backend identifier, e.g. "CPU".
	Name() string

	// Conv2D convolves input [N, C_in, H, W] with kernel [C_out, C_in, K_h, K_w].
	Conv2D(input, kernel *Tensor, p Conv2DParams) *Tensor

	// MaxPool2D applies max pooling to [N, C, H, W].
	MaxPool2D(input *Tensor, p Pool2DParams) *Tensor

	// MatMul multiplies 2D tensors: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *Tensor) *Tensor

	// AddBias adds bias [C] along axis 1 of x ([N, C, ...]).
	AddBias(x, bias *Tensor) *Tensor

	// ReLU applies max(0, x) element-wise.
	ReLU(x *Tensor) *Tensor

	// Softmax normalizes the last axis into probabilities.
	Softmax(x *Tensor) *Tensor
}
