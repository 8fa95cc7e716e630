package ssd

import (
	"io"
	"log/slog"

	"github.com/born-ml/ssd/internal/backend/cpu"
	"github.com/born-ml/ssd/internal/tensor"
	"github.com/born-ml/ssd/internal/vgg"
)

// Option configures BaseNet and model assembly.
type Option func(*options)

type options struct {
	seed        int64
	logger      *slog.Logger
	backend     tensor.Backend
	vgg         vgg.Config // widths and classifier of both VGG instances
	headInput   tensor.Shape
	headFilters int
}

func defaultOptions() options {
	return options{
		seed:        42,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		backend:     cpu.New(),
		vgg:         vgg.DefaultConfig(),
		headInput:   vgg.DefaultConfig().InputShape,
		headFilters: 1024,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSeed seeds the weight transplant sampling.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithLogger sets the logger for assembly steps. Nil keeps the default
// discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBackend sets the compute backend. Defaults to the CPU backend.
func WithBackend(backend tensor.Backend) Option {
	return func(o *options) {
		if backend != nil {
			o.backend = backend
		}
	}
}

// WithBackboneWidths sets the filter counts of the five VGG blocks.
func WithBackboneWidths(widths [5]int) Option {
	return func(o *options) {
		o.vgg.Widths = widths
	}
}

// WithClassifier sets the fc1/fc2 width and class count of the full-head
// VGG instance whose fc layers seed the new head.
func WithClassifier(fcUnits, classes int) Option {
	return func(o *options) {
		o.vgg.FCUnits = fcUnits
		o.vgg.Classes = classes
	}
}

// WithHeadInputShape sets the input shape of the full-head VGG instance.
func WithHeadInputShape(shape tensor.Shape) Option {
	return func(o *options) {
		o.headInput = shape.Clone()
	}
}

// WithHeadFilters sets the filter count of head_conv6 and head_conv7.
func WithHeadFilters(n int) Option {
	return func(o *options) {
		o.headFilters = n
	}
}
