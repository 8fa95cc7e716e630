package nn

import (
	"fmt"

	"github.com/born-ml/ssd/internal/tensor"
)

// PaddingMode selects how spatial layers pad their input.
type PaddingMode int

const (
	// PaddingValid applies no padding; windows must fit inside the input.
	PaddingValid PaddingMode = iota
	// PaddingSame pads so that the output size is ceil(input / stride).
	PaddingSame
)

// String returns "valid" or "same".
func (m PaddingMode) String() string {
	switch m {
	case PaddingValid:
		return "valid"
	case PaddingSame:
		return "same"
	default:
		return fmt.Sprintf("PaddingMode(%d)", int(m))
	}
}

// ParsePaddingMode parses "valid" or "same".
func ParsePaddingMode(s string) (PaddingMode, error) {
	switch s {
	case "valid", "":
		return PaddingValid, nil
	case "same":
		return PaddingSame, nil
	default:
		return 0, fmt.Errorf("unknown padding mode %q", s)
	}
}

// spatial computes the padding and output length along one axis.
//
// Same padding splits the total as evenly as possible, placing the odd
// element after the input.
func spatial(mode PaddingMode, in, kernel, stride, dilation int) (before, after, out int) {
	eff := dilation*(kernel-1) + 1
	if mode == PaddingSame {
		out = (in + stride - 1) / stride
		total := (out-1)*stride + eff - in
		if total < 0 {
			total = 0
		}
		before = total / 2
		return before, total - before, out
	}
	if in < eff {
		return 0, 0, 0
	}
	return 0, 0, (in-eff)/stride + 1
}

// spatialPadding resolves padding and output size for an [C, H, W] input.
func spatialPadding(mode PaddingMode, in tensor.Shape, kernel, stride, dilation int) (tensor.Padding, int, int, error) {
	top, bottom, outH := spatial(mode, in[1], kernel, stride, dilation)
	left, right, outW := spatial(mode, in[2], kernel, stride, dilation)
	if outH <= 0 || outW <= 0 {
		return tensor.Padding{}, 0, 0, fmt.Errorf("%w: window %d (dilation %d) does not fit input %v", ErrShapeMismatch, kernel, dilation, in)
	}
	return tensor.Padding{Top: top, Bottom: bottom, Left: left, Right: right}, outH, outW, nil
}
