package ssd

import (
	"fmt"

	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
)

// DetectorNetName is the default name of the multi-branch detector.
const DetectorNetName = "DetectorNet"

// Detector runs one predictor per feature map.
//
// Its flattened layer list is the input stages followed by the
// predictors, so branch i is stage i and layer NumBranches()+i.
type Detector struct {
	*nn.Graph
	stages     []nn.Layer
	predictors []nn.Layer
}

// NewDetectorNet wires stages[i] into predictors[i].
//
// Both lists must have the same, non-zero length and all layer names must
// be distinct. An empty name defaults to DetectorNetName.
func NewDetectorNet(name string, stages, predictors []nn.Layer) (*Detector, error) {
	if name == "" {
		name = DetectorNetName
	}
	if len(stages) != len(predictors) {
		return nil, fmt.Errorf("%w: %d stages, %d predictors", ErrBranchMismatch, len(stages), len(predictors))
	}

	w := nn.Wiring{Inputs: stages}
	for i, p := range predictors {
		if p == nil || stages[i] == nil {
			return nil, fmt.Errorf("%w: branch %d has a nil layer", nn.ErrInvalidWiring, i)
		}
		w.Nodes = append(w.Nodes, nn.Node{Layer: p, From: stages[i].Name()})
		w.Outputs = append(w.Outputs, p.Name())
	}
	g, err := nn.NewGraph(name, w)
	if err != nil {
		return nil, err
	}

	return &Detector{
		Graph:      g,
		stages:     append([]nn.Layer(nil), stages...),
		predictors: append([]nn.Layer(nil), predictors...),
	}, nil
}

// NumBranches returns the number of stage/predictor pairs.
func (d *Detector) NumBranches() int {
	return len(d.stages)
}

// OutputShape returns each predictor's output shape, in branch order.
func (d *Detector) OutputShape() []tensor.Shape {
	shapes := make([]tensor.Shape, len(d.predictors))
	for i, p := range d.predictors {
		shapes[i] = p.OutputShape()
	}
	return shapes
}

// Call runs every branch on its input and returns one output per branch.
//
// Branch i feeds inputs[i] through stage i and then executes only
// predictor i of the flattened layer list.
func (d *Detector) Call(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	n := len(d.stages)
	if len(inputs) != n {
		return nil, fmt.Errorf("%w: %s expects %d inputs, got %d", nn.ErrInputArity, d.Name(), n, len(inputs))
	}

	layers := d.Layers()
	outputs := make([]*tensor.Tensor, 0, n)
	for i, x := range inputs {
		mid := layers[i].Forward(x)
		out, err := d.Execute(mid, nn.From(nn.At(n+i)), nn.Through(nn.At(n+i)))
		if err != nil {
			return nil, fmt.Errorf("branch %d: %w", i, err)
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}
