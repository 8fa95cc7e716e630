package nn

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"

	"github.com/born-ml/ssd/internal/tensor"
)

// Node is a graph layer fed by the output of the layer named From.
type Node struct {
	Layer Layer
	From  string
}

// Wiring describes the connections of a Graph.
type Wiring struct {
	// Inputs receive the graph inputs, one tensor each, in order.
	Inputs []Layer
	// Nodes consume the output of another input or node.
	Nodes []Node
	// Outputs name the layers whose outputs the graph returns, in order.
	Outputs []string
}

// Graph is an indexable composite built from an explicit wiring instead of
// a linear chain.
//
// Its layer list is Inputs followed by the node layers, in construction
// order. Call evaluates the whole wiring; Execute (from the embedded
// LayerSet) chains a contiguous part of the flattened list, which is how a
// single node can be run in isolation.
//
// Example:
//
//	g, err := nn.NewGraph("heads", nn.Wiring{
//	    Inputs:  []nn.Layer{nn.NewInput("in", tensor.Shape{512, 38, 38})},
//	    Nodes:   []nn.Node{{Layer: conf, From: "in"}, {Layer: loc, From: "in"}},
//	    Outputs: []string{conf.Name(), loc.Name()},
//	})
//	outs, err := g.Call([]*tensor.Tensor{x})
type Graph struct {
	*LayerSet
	inputs  int
	from    []int // source position per layer, -1 for inputs
	order   []int // evaluation order (topological)
	outputs []int
}

// NewGraph validates the wiring and creates the graph.
//
// Layer names must be unique, every reference must name a layer of the
// graph, and the wiring must be acyclic. Layers reachable from inputs with
// a known shape are built immediately.
func NewGraph(name string, w Wiring) (*Graph, error) {
	if len(w.Inputs) == 0 {
		return nil, fmt.Errorf("%w: %s has no inputs", ErrInvalidWiring, name)
	}
	if len(w.Outputs) == 0 {
		return nil, fmt.Errorf("%w: %s has no outputs", ErrInvalidWiring, name)
	}

	layers := make([]Layer, 0, len(w.Inputs)+len(w.Nodes))
	layers = append(layers, w.Inputs...)
	for _, n := range w.Nodes {
		layers = append(layers, n.Layer)
	}

	positions := make(map[string]int, len(layers))
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("%w: %s: layer %d is nil", ErrInvalidWiring, name, i)
		}
		if l.Name() == "" {
			return nil, fmt.Errorf("%w: %s: layer %d has no name", ErrInvalidWiring, name, i)
		}
		if _, dup := positions[l.Name()]; dup {
			return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateLayerName, l.Name(), name)
		}
		positions[l.Name()] = i
	}

	g := &Graph{
		LayerSet: newLayerSet(name, layers),
		inputs:   len(w.Inputs),
		from:     make([]int, len(layers)),
	}

	dag := core.NewGraph(core.WithDirected(true), core.WithLoops())
	for i, l := range layers {
		g.from[i] = -1
		if err := dag.AddVertex(l.Name()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWiring, name, err)
		}
	}
	for i, n := range w.Nodes {
		src, ok := positions[n.From]
		if !ok {
			return nil, fmt.Errorf("%w: %q feeding %q in %s", ErrUnknownLayerName, n.From, n.Layer.Name(), name)
		}
		g.from[len(w.Inputs)+i] = src
		if _, err := dag.AddEdge(n.From, n.Layer.Name(), 0); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWiring, name, err)
		}
	}
	for _, out := range w.Outputs {
		pos, ok := positions[out]
		if !ok {
			return nil, fmt.Errorf("%w: output %q in %s", ErrUnknownLayerName, out, name)
		}
		g.outputs = append(g.outputs, pos)
	}

	order, err := dfs.TopologicalSort(dag)
	if err != nil {
		if errors.Is(err, dfs.ErrCycleDetected) {
			return nil, fmt.Errorf("%w: %s", ErrCyclicWiring, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidWiring, name, err)
	}
	g.order = make([]int, len(order))
	for i, id := range order {
		g.order[i] = positions[id]
	}

	if err := g.build(); err != nil {
		return nil, err
	}
	return g, nil
}

// build propagates known shapes from the inputs through the wiring.
func (g *Graph) build() error {
	for _, i := range g.order {
		src := g.from[i]
		if src < 0 {
			continue
		}
		shape := g.layers[src].OutputShape()
		if shape == nil {
			continue
		}
		if _, err := g.layers[i].Build(shape); err != nil {
			return fmt.Errorf("%s: %w", g.name, err)
		}
	}
	return nil
}

// InputCount returns the number of graph inputs.
func (g *Graph) InputCount() int {
	return g.inputs
}

// Call evaluates the full wiring and returns one tensor per output.
func (g *Graph) Call(inputs []*tensor.Tensor) ([]*tensor.Tensor, error) {
	if len(inputs) != g.inputs {
		return nil, fmt.Errorf("%w: %s expects %d inputs, got %d", ErrInputArity, g.name, g.inputs, len(inputs))
	}

	values := make([]*tensor.Tensor, len(g.layers))
	for _, i := range g.order {
		if src := g.from[i]; src >= 0 {
			values[i] = g.layers[i].Forward(values[src])
		} else {
			values[i] = g.layers[i].Forward(inputs[i])
		}
	}

	outs := make([]*tensor.Tensor, len(g.outputs))
	for k, pos := range g.outputs {
		outs[k] = values[pos]
	}
	return outs, nil
}

// OutputShapes returns the output shapes of the output layers, nil where a
// layer is not built yet.
func (g *Graph) OutputShapes() []tensor.Shape {
	shapes := make([]tensor.Shape, len(g.outputs))
	for k, pos := range g.outputs {
		shapes[k] = g.layers[pos].OutputShape()
	}
	return shapes
}

// Parameters returns the parameters of every layer, in layer order.
func (g *Graph) Parameters() []*Parameter {
	return g.parameters()
}

// String returns a layer-by-layer summary.
func (g *Graph) String() string {
	return g.summary("Graph")
}
