package nn

import "errors"

// Key resolution and execution errors.
var (
	ErrIndexOutOfRange       = errors.New("layer index out of range")
	ErrUnknownLayerName      = errors.New("unknown layer name")
	ErrAmbiguousLayerName    = errors.New("ambiguous layer name")
	ErrInvalidKeyType        = errors.New("invalid layer key")
	ErrInvalidExecutionRange = errors.New("invalid execution range")
)

// Construction errors.
var (
	ErrDuplicateLayerName = errors.New("duplicate layer name")
	ErrInvalidWiring      = errors.New("invalid graph wiring")
	ErrCyclicWiring       = errors.New("graph wiring contains a cycle")
	ErrInputArity         = errors.New("wrong number of inputs")
	ErrShapeMismatch      = errors.New("shape mismatch")
	ErrWeightCount        = errors.New("wrong number of weight tensors")
	ErrNotBuilt           = errors.New("layer is not built")
)
