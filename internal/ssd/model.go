package ssd

import (
	"fmt"
	"strings"

	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
)

// tap is a feature map taken from the output of one layer of the chain.
type tap struct {
	name  string
	net   int // 0: base, 1: extra
	index int
}

// Model is an SSD detector: a backbone, extra feature layers chained after
// it, and a Detector fed by feature maps tapped along that chain.
type Model struct {
	name     string
	nets     []*nn.Sequence
	detector *Detector
	taps     []tap
}

// NewModel assembles a model from its parts.
//
// taps name the layers (of base, then extra) whose outputs feed the
// predictors; they must be given in execution order, one predictor per
// tap. extra may be nil. When base is built, extra and the predictors are
// built from the resulting shapes.
func NewModel(name string, base, extra *nn.Sequence, taps []string, predictors []nn.Layer) (*Model, error) {
	if base == nil {
		return nil, fmt.Errorf("%w: nil base network", ErrInvalidConfig)
	}
	if len(taps) == 0 {
		return nil, fmt.Errorf("%w: no feature taps", ErrInvalidTap)
	}
	if len(taps) != len(predictors) {
		return nil, fmt.Errorf("%w: %d taps, %d predictors", ErrBranchMismatch, len(taps), len(predictors))
	}

	m := &Model{name: name, nets: []*nn.Sequence{base}}
	if extra != nil {
		m.nets = append(m.nets, extra)
		if shape := base.OutputShape(); shape != nil {
			if _, err := extra.Build(shape); err != nil {
				return nil, err
			}
		}
	}

	stages := make([]nn.Layer, len(taps))
	for i, name := range taps {
		t, err := m.resolveTap(name)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			prev := m.taps[i-1]
			if t.net < prev.net || (t.net == prev.net && t.index <= prev.index) {
				return nil, fmt.Errorf("%w: %q does not come after %q", ErrInvalidTap, name, prev.name)
			}
		}
		m.taps = append(m.taps, t)

		layer := m.nets[t.net].Layers()[t.index]
		stages[i] = nn.NewInput(name+"_features", layer.OutputShape())
	}

	det, err := NewDetectorNet(DetectorNetName, stages, predictors)
	if err != nil {
		return nil, err
	}
	m.detector = det
	return m, nil
}

func (m *Model) resolveTap(name string) (tap, error) {
	for k, net := range m.nets {
		i, err := net.Index(nn.Named(name))
		if err == nil {
			return tap{name: name, net: k, index: i}, nil
		}
	}
	return tap{}, fmt.Errorf("%w: no layer named %q in %s", ErrInvalidTap, name, m.chainNames())
}

func (m *Model) chainNames() string {
	names := make([]string, len(m.nets))
	for i, net := range m.nets {
		names[i] = net.Name()
	}
	return strings.Join(names, " or ")
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.name
}

// Base returns the backbone sequence.
func (m *Model) Base() *nn.Sequence {
	return m.nets[0]
}

// Extra returns the extra feature layers, or nil.
func (m *Model) Extra() *nn.Sequence {
	if len(m.nets) < 2 {
		return nil
	}
	return m.nets[1]
}

// Detector returns the multi-branch detector.
func (m *Model) Detector() *Detector {
	return m.detector
}

// Taps returns the tapped layer names, in branch order.
func (m *Model) Taps() []string {
	names := make([]string, len(m.taps))
	for i, t := range m.taps {
		names[i] = t.name
	}
	return names
}

// Features runs the chain up to the last tap and returns the tapped
// feature maps. Layers after the last tap are not executed.
func (m *Model) Features(x *tensor.Tensor) ([]*tensor.Tensor, error) {
	features := make([]*tensor.Tensor, 0, len(m.taps))
	next := 0
	for k, net := range m.nets {
		if next == len(m.taps) {
			break
		}
		start := 0
		for next < len(m.taps) && m.taps[next].net == k {
			t := m.taps[next]
			out, err := net.Call(x, nn.From(nn.At(start)), nn.Through(nn.At(t.index)))
			if err != nil {
				return nil, fmt.Errorf("%s: tap %s: %w", m.name, t.name, err)
			}
			features = append(features, out)
			x, start = out, t.index+1
			next++
		}
		if next < len(m.taps) && start < net.Len() {
			out, err := net.Call(x, nn.From(nn.At(start)))
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", m.name, net.Name(), err)
			}
			x = out
		}
	}
	return features, nil
}

// Forward returns one detector output per tap.
func (m *Model) Forward(x *tensor.Tensor) ([]*tensor.Tensor, error) {
	features, err := m.Features(x)
	if err != nil {
		return nil, err
	}
	return m.detector.Call(features)
}

// OutputShape returns the per-branch output shapes.
func (m *Model) OutputShape() []tensor.Shape {
	return m.detector.OutputShape()
}

// Parameters returns the parameters of the chain and the predictors.
func (m *Model) Parameters() []*nn.Parameter {
	var params []*nn.Parameter
	for _, net := range m.nets {
		params = append(params, net.Parameters()...)
	}
	return append(params, m.detector.Parameters()...)
}

// String returns the summaries of every part of the model.
func (m *Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %q\n\n", m.name)
	for _, net := range m.nets {
		sb.WriteString(net.String())
		sb.WriteString("\n")
	}
	sb.WriteString(m.detector.String())
	return sb.String()
}
