package ssd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/ssd/internal/loader"
	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
)

// Config describes an SSD model.
//
// Example:
//
//	name: ssd300
//	classes: 21
//	backbone:
//	  architecture: VGG16
//	  input_shape: [3, 300, 300]
//	extras:
//	  - {name: conv8_1, type: conv2d, filters: 256, kernel_size: 1, padding: same, activation: relu}
//	  - {name: conv8_2, type: conv2d, filters: 512, kernel_size: 3, stride: 2, padding: same, activation: relu}
//	taps:
//	  - {layer: block4_conv3, anchors: 4}
//	  - {layer: head_conv7, anchors: 6}
//	  - {layer: conv8_2, anchors: 6}
type Config struct {
	Name     string         `yaml:"name"`
	Classes  int            `yaml:"classes"`
	Backbone BackboneConfig `yaml:"backbone"`
	Extras   []LayerSpec    `yaml:"extras"`
	Taps     []TapConfig    `yaml:"taps"`
}

// BackboneConfig configures the BaseNet.
type BackboneConfig struct {
	Architecture string `yaml:"architecture"`
	InputShape   []int  `yaml:"input_shape"`
	Seed         int64  `yaml:"seed"`

	// Optional overrides, mostly for small test models.
	Widths          []int `yaml:"widths,omitempty"`
	FCUnits         int   `yaml:"fc_units,omitempty"`
	ImageNetClasses int   `yaml:"imagenet_classes,omitempty"`
	HeadInputShape  []int `yaml:"head_input_shape,omitempty"`
	HeadFilters     int   `yaml:"head_filters,omitempty"`
}

// TapConfig selects a feature map and its predictor.
//
// With Predictor unset, the predictor is a 3x3 same-padded convolution
// with Anchors*(Classes+4) filters named "<layer>_pred".
type TapConfig struct {
	Layer     string     `yaml:"layer"`
	Anchors   int        `yaml:"anchors,omitempty"`
	Predictor *LayerSpec `yaml:"predictor,omitempty"`
}

// LayerSpec describes a single layer.
type LayerSpec struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"` // conv2d, maxpool2d, relu, flatten, dense
	Filters    int    `yaml:"filters,omitempty"`
	KernelSize int    `yaml:"kernel_size,omitempty"`
	Stride     int    `yaml:"stride,omitempty"`
	Dilation   int    `yaml:"dilation,omitempty"`
	Padding    string `yaml:"padding,omitempty"`
	Activation string `yaml:"activation,omitempty"`
	PoolSize   int    `yaml:"pool_size,omitempty"`
	Units      int    `yaml:"units,omitempty"`
}

// DefaultConfig returns the SSD300 layout on VGG16 with 21 classes.
func DefaultConfig() Config {
	conv := func(name string, filters, kernel, stride int, padding string) LayerSpec {
		return LayerSpec{Name: name, Type: "conv2d", Filters: filters, KernelSize: kernel, Stride: stride, Padding: padding, Activation: "relu"}
	}
	return Config{
		Name:    "ssd300",
		Classes: 21,
		Backbone: BackboneConfig{
			Architecture: "VGG16",
			InputShape:   []int{3, 300, 300},
			Seed:         42,
		},
		Extras: []LayerSpec{
			conv("conv8_1", 256, 1, 1, "same"),
			conv("conv8_2", 512, 3, 2, "same"),
			conv("conv9_1", 128, 1, 1, "same"),
			conv("conv9_2", 256, 3, 2, "same"),
			conv("conv10_1", 128, 1, 1, "same"),
			conv("conv10_2", 256, 3, 1, "valid"),
			conv("conv11_1", 128, 1, 1, "same"),
			conv("conv11_2", 256, 3, 1, "valid"),
		},
		Taps: []TapConfig{
			{Layer: "block4_conv3", Anchors: 4},
			{Layer: HeadConv7, Anchors: 6},
			{Layer: "conv8_2", Anchors: 6},
			{Layer: "conv9_2", Anchors: 6},
			{Layer: "conv10_2", Anchors: 4},
			{Layer: "conv11_2", Anchors: 4},
		},
	}
}

// LoadConfig reads a YAML model config from path.
func LoadConfig(path string) (Config, error) {
	//nolint:gosec // G304: config path is user supplied
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates a YAML model config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks the parts of the config that do not need the model.
func (c Config) Validate() error {
	if c.Backbone.Architecture == "" {
		return fmt.Errorf("%w: backbone.architecture is required", ErrInvalidConfig)
	}
	if len(c.Backbone.InputShape) != 3 {
		return fmt.Errorf("%w: backbone.input_shape must be [C, H, W], got %v", ErrInvalidConfig, c.Backbone.InputShape)
	}
	if w := c.Backbone.Widths; len(w) != 0 && len(w) != 5 {
		return fmt.Errorf("%w: backbone.widths needs 5 entries, got %d", ErrInvalidConfig, len(w))
	}
	if len(c.Taps) == 0 {
		return fmt.Errorf("%w: at least one tap is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Extras))
	for i, s := range c.Extras {
		if s.Name == "" {
			return fmt.Errorf("%w: extras[%d] has no name", ErrInvalidConfig, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: extras[%d]: duplicate name %q", ErrInvalidConfig, i, s.Name)
		}
		seen[s.Name] = true
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: extras[%d]: %v", ErrInvalidConfig, i, err)
		}
	}
	for i, t := range c.Taps {
		if t.Layer == "" {
			return fmt.Errorf("%w: taps[%d] has no layer", ErrInvalidConfig, i)
		}
		if t.Predictor != nil {
			if err := t.Predictor.validate(); err != nil {
				return fmt.Errorf("%w: taps[%d].predictor: %v", ErrInvalidConfig, i, err)
			}
			continue
		}
		if t.Anchors <= 0 || c.Classes <= 0 {
			return fmt.Errorf("%w: taps[%d] needs a predictor, or anchors and classes", ErrInvalidConfig, i)
		}
	}
	return nil
}

func (s LayerSpec) validate() error {
	if _, err := nn.ParsePaddingMode(s.Padding); err != nil {
		return err
	}
	if _, err := nn.ParseActivation(s.Activation); err != nil {
		return err
	}
	switch s.Type {
	case "conv2d":
		if s.Filters <= 0 || s.KernelSize <= 0 {
			return fmt.Errorf("conv2d %q needs filters and kernel_size", s.Name)
		}
	case "maxpool2d":
		if s.PoolSize <= 0 {
			return fmt.Errorf("maxpool2d %q needs pool_size", s.Name)
		}
	case "dense":
		if s.Units <= 0 {
			return fmt.Errorf("dense %q needs units", s.Name)
		}
	case "relu", "flatten":
	default:
		return fmt.Errorf("unknown layer type %q", s.Type)
	}
	return nil
}

// Layer constructs the described layer.
func (s LayerSpec) Layer(backend tensor.Backend) (nn.Layer, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	padding, _ := nn.ParsePaddingMode(s.Padding)
	activation, _ := nn.ParseActivation(s.Activation)

	switch s.Type {
	case "conv2d":
		return nn.NewConv2D(s.Name, nn.Conv2DConfig{
			Filters:    s.Filters,
			KernelSize: s.KernelSize,
			Stride:     s.Stride,
			Dilation:   s.Dilation,
			Padding:    padding,
			Activation: activation,
		}, backend), nil
	case "maxpool2d":
		return nn.NewMaxPool2D(s.Name, nn.MaxPool2DConfig{Size: s.PoolSize, Stride: s.Stride, Padding: padding}, backend), nil
	case "dense":
		return nn.NewDense(s.Name, s.Units, activation, backend), nil
	case "relu":
		return nn.NewReLU(s.Name, backend), nil
	default:
		return nn.NewFlatten(s.Name), nil
	}
}

// options returns the assembly options implied by the backbone section,
// ahead of caller options.
func (c Config) options() []Option {
	b := c.Backbone
	opts := []Option{WithSeed(b.Seed)}
	if len(b.Widths) == 5 {
		opts = append(opts, WithBackboneWidths([5]int{b.Widths[0], b.Widths[1], b.Widths[2], b.Widths[3], b.Widths[4]}))
	}
	if b.FCUnits > 0 || b.ImageNetClasses > 0 {
		def := defaultOptions().vgg
		fc, classes := def.FCUnits, def.Classes
		if b.FCUnits > 0 {
			fc = b.FCUnits
		}
		if b.ImageNetClasses > 0 {
			classes = b.ImageNetClasses
		}
		opts = append(opts, WithClassifier(fc, classes))
	}
	if len(b.HeadInputShape) > 0 {
		opts = append(opts, WithHeadInputShape(b.HeadInputShape))
	}
	if b.HeadFilters > 0 {
		opts = append(opts, WithHeadFilters(b.HeadFilters))
	}
	return opts
}

// Build assembles the model described by cfg.
//
// features and head are the pretrained weight sources of the backbone (see
// NewBaseNet); either may be nil. opts are applied after the options
// derived from cfg.
func Build(cfg Config, features, head loader.WeightSource, opts ...Option) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	all := append(cfg.options(), opts...)
	o := buildOptions(all)

	base, err := NewBaseNet(cfg.Backbone.Architecture, tensor.Shape(cfg.Backbone.InputShape), features, head, all...)
	if err != nil {
		return nil, err
	}

	var extra *nn.Sequence
	if len(cfg.Extras) > 0 {
		layers := make([]nn.Layer, len(cfg.Extras))
		for i, s := range cfg.Extras {
			if layers[i], err = s.Layer(o.backend); err != nil {
				return nil, err
			}
		}
		extra = NewExtraNet(ExtraNetName, layers...)
	}

	taps := make([]string, len(cfg.Taps))
	predictors := make([]nn.Layer, len(cfg.Taps))
	for i, t := range cfg.Taps {
		taps[i] = t.Layer
		def := LayerSpec{
			Name:       t.Layer + "_pred",
			Type:       "conv2d",
			Filters:    t.Anchors * (cfg.Classes + 4),
			KernelSize: 3,
			Padding:    "same",
		}
		if t.Predictor != nil {
			def = *t.Predictor
		}
		if predictors[i], err = def.Layer(o.backend); err != nil {
			return nil, err
		}
	}

	name := cfg.Name
	if name == "" {
		name = "ssd"
	}
	m, err := NewModel(name, base, extra, taps, predictors)
	if err != nil {
		return nil, err
	}
	o.logger.Info("model assembled",
		"model", name,
		"layers", base.Len()+m.extraLen(),
		"branches", m.detector.NumBranches(),
		"params", countParams(m.Parameters()))
	return m, nil
}

func (m *Model) extraLen() int {
	if e := m.Extra(); e != nil {
		return e.Len()
	}
	return 0
}

func countParams(params []*nn.Parameter) int {
	n := 0
	for _, p := range params {
		n += p.Tensor().NumElements()
	}
	return n
}
