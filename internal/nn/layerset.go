package nn

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/born-ml/ssd/internal/tensor"
)

// LayerSet is an immutable, ordered list of named layers with key
// resolution and partial execution.
//
// It is embedded by Sequence and Graph, which share its Len, Item, Index
// and Execute methods.
type LayerSet struct {
	name   string
	layers []Layer
}

func newLayerSet(name string, layers []Layer) *LayerSet {
	owned := make([]Layer, len(layers))
	copy(owned, layers)
	return &LayerSet{name: name, layers: owned}
}

// Name returns the composite name.
func (s *LayerSet) Name() string {
	return s.name
}

// Len returns the number of owned layers.
func (s *LayerSet) Len() int {
	return len(s.layers)
}

// Layers returns a copy of the owned layer list.
func (s *LayerSet) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Index resolves a position or name key to a layer position.
//
// Negative positions count from the end. Names must match exactly one
// layer; slices and the absent key are rejected with ErrInvalidKeyType.
func (s *LayerSet) Index(key Key) (int, error) {
	switch key.kind {
	case keyPosition:
		i := key.pos
		if i < 0 {
			i += len(s.layers)
		}
		if i < 0 || i >= len(s.layers) {
			return 0, fmt.Errorf("%w: %s has %d layers, got %d", ErrIndexOutOfRange, s.name, len(s.layers), key.pos)
		}
		return i, nil
	case keyName:
		index, matches := -1, 0
		for i, l := range s.layers {
			if l.Name() == key.name {
				index = i
				matches++
			}
		}
		switch matches {
		case 0:
			return 0, fmt.Errorf("%w: %q in %s", ErrUnknownLayerName, key.name, s.name)
		case 1:
			return index, nil
		default:
			return 0, fmt.Errorf("%w: %q matches %d layers in %s", ErrAmbiguousLayerName, key.name, matches, s.name)
		}
	default:
		return 0, fmt.Errorf("%w: %s cannot address a single layer", ErrInvalidKeyType, key)
	}
}

// Item returns the layer addressed by key.
//
// Position and name keys return the layer itself. A slice returns the bare
// layer when it selects exactly one, and a new Sequence sharing the
// selected layers when it selects more. Empty slices fail with
// ErrIndexOutOfRange.
func (s *LayerSet) Item(key Key) (Layer, error) {
	if key.kind != keySlice {
		i, err := s.Index(key)
		if err != nil {
			return nil, err
		}
		return s.layers[i], nil
	}

	start, stop, err := s.sliceBounds(key)
	if err != nil {
		return nil, err
	}
	switch stop - start {
	case 1:
		return s.layers[start], nil
	default:
		return NewSequence(fmt.Sprintf("%s[%d:%d]", s.name, start, stop), s.layers[start:stop]...), nil
	}
}

// sliceBounds resolves a slice key to [start, stop).
func (s *LayerSet) sliceBounds(key Key) (start, stop int, err error) {
	n := len(s.layers)
	start, err = s.bound(key.bounds[0], 0, false)
	if err != nil {
		return 0, 0, err
	}
	stop, err = s.bound(key.bounds[1], n, true)
	if err != nil {
		return 0, 0, err
	}
	if start >= stop {
		return 0, 0, fmt.Errorf("%w: empty slice [%s] of %s", ErrIndexOutOfRange, key, s.name)
	}
	return start, stop, nil
}

func (s *LayerSet) bound(key Key, def int, isStop bool) (int, error) {
	n := len(s.layers)
	switch key.kind {
	case keyAbsent:
		return def, nil
	case keyPosition:
		i := key.pos
		if i < 0 {
			i += n
		}
		if i < 0 || i > n {
			return 0, fmt.Errorf("%w: slice bound %d for %s of %d layers", ErrIndexOutOfRange, key.pos, s.name, n)
		}
		return i, nil
	case keyName:
		i, err := s.Index(key)
		if err != nil {
			return 0, err
		}
		if isStop {
			i++ // inclusive of the named layer
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: nested slice %s", ErrInvalidKeyType, key)
	}
}

// CallOption restricts Execute to a sub-range of the layer list.
type CallOption func(*callConfig)

type callConfig struct {
	from    Key
	through Key
}

// From starts execution at the layer addressed by key. Layers before it
// are not invoked.
func From(key Key) CallOption {
	return func(c *callConfig) {
		c.from = key
	}
}

// Through stops execution after the layer addressed by key. Layers after
// it are not invoked.
func Through(key Key) CallOption {
	return func(c *callConfig) {
		c.through = key
	}
}

// Execute chains x through the layers in [start, last].
//
// start defaults to the first layer and last to the final one. Only the
// layers inside the range are invoked. A range with start after last fails
// with ErrInvalidExecutionRange.
//
// Example:
//
//	// run block4_conv1 .. block4_conv3 on a pool3 feature map
//	y, err := seq.Execute(x, nn.From(nn.Named("block4_conv1")), nn.Through(nn.Named("block4_conv3")))
func (s *LayerSet) Execute(x *tensor.Tensor, opts ...CallOption) (*tensor.Tensor, error) {
	var cfg callConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	start, last := 0, len(s.layers)-1
	var err error
	if !cfg.from.IsZero() {
		if start, err = s.Index(cfg.from); err != nil {
			return nil, fmt.Errorf("start layer: %w", err)
		}
	}
	if !cfg.through.IsZero() {
		if last, err = s.Index(cfg.through); err != nil {
			return nil, fmt.Errorf("last layer: %w", err)
		}
	}
	if start > last {
		return nil, fmt.Errorf("%w: %s: start %d is after last %d", ErrInvalidExecutionRange, s.name, start, last)
	}

	for i := start; i <= last; i++ {
		x = s.layers[i].Forward(x)
	}
	return x, nil
}

// parameters concatenates the parameters of every owned layer.
func (s *LayerSet) parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// summary renders a table of the owned layers, their output shapes and
// parameter counts.
func (s *LayerSet) summary(kind string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %q\n", kind, s.name)

	w := tabwriter.NewWriter(&sb, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Layer (type)\tOutput Shape\tParam #")
	total := 0
	for _, l := range s.layers {
		n := CountParameters(l)
		total += n
		fmt.Fprintf(w, "%s (%s)\t%s\t%d\n", l.Name(), layerType(l), batchShape(l.OutputShape()), n)
	}
	_ = w.Flush()

	fmt.Fprintf(&sb, "Total params: %d\n", total)
	return sb.String()
}

func layerType(l Layer) string {
	t := fmt.Sprintf("%T", l)
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimPrefix(t, "*")
}

func batchShape(s tensor.Shape) string {
	if s == nil {
		return "?"
	}
	return "(None, " + strings.TrimPrefix(s.String(), "(")
}
