package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ssd/internal/backend/cpu"
	"github.com/born-ml/ssd/internal/tensor"
)

func TestGraphCall(t *testing.T) {
	in0, in1 := newCounting("in0", 1), newCounting("in1", 2)
	p0, p1 := newCounting("p0", 10), newCounting("p1", 20)
	shared := newCounting("shared", 100)

	g, err := NewGraph("g", Wiring{
		Inputs: []Layer{in0, in1},
		Nodes: []Node{
			{Layer: p0, From: "in0"},
			{Layer: p1, From: "in1"},
			{Layer: shared, From: "p0"},
		},
		Outputs: []string{"shared", "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 2, g.InputCount())

	outs, err := g.Call([]*tensor.Tensor{scalar(0), scalar(0)})
	require.NoError(t, err)
	require.Len(t, outs, 2)
	assert.Equal(t, []float32{111}, outs[0].Data())
	assert.Equal(t, []float32{22}, outs[1].Data())

	_, err = g.Call([]*tensor.Tensor{scalar(0)})
	assert.ErrorIs(t, err, ErrInputArity)
}

func TestGraphFlattenedOrder(t *testing.T) {
	in := newCounting("in", 0)
	a, b := newCounting("a", 1), newCounting("b", 2)
	g, err := NewGraph("g", Wiring{
		Inputs:  []Layer{in},
		Nodes:   []Node{{Layer: b, From: "a"}, {Layer: a, From: "in"}},
		Outputs: []string{"b"},
	})
	require.NoError(t, err)

	// construction order, not evaluation order
	names := make([]string, 0, g.Len())
	for _, l := range g.Layers() {
		names = append(names, l.Name())
	}
	assert.Equal(t, []string{"in", "b", "a"}, names)

	outs, err := g.Call([]*tensor.Tensor{scalar(0)})
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, outs[0].Data())

	// a single node can be run in isolation through the flattened list
	out, err := g.Execute(scalar(0), From(Named("a")), Through(Named("a")))
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, out.Data())
	assert.Equal(t, 1, b.calls)
}

func TestGraphWiringErrors(t *testing.T) {
	tests := []struct {
		name string
		w    func() Wiring
		want error
	}{
		{"no inputs", func() Wiring {
			return Wiring{Outputs: []string{"x"}}
		}, ErrInvalidWiring},
		{"no outputs", func() Wiring {
			return Wiring{Inputs: []Layer{newCounting("in", 0)}}
		}, ErrInvalidWiring},
		{"duplicate name", func() Wiring {
			return Wiring{
				Inputs:  []Layer{newCounting("in", 0)},
				Nodes:   []Node{{Layer: newCounting("in", 0), From: "in"}},
				Outputs: []string{"in"},
			}
		}, ErrDuplicateLayerName},
		{"dangling source", func() Wiring {
			return Wiring{
				Inputs:  []Layer{newCounting("in", 0)},
				Nodes:   []Node{{Layer: newCounting("a", 0), From: "ghost"}},
				Outputs: []string{"a"},
			}
		}, ErrUnknownLayerName},
		{"dangling output", func() Wiring {
			return Wiring{
				Inputs:  []Layer{newCounting("in", 0)},
				Outputs: []string{"ghost"},
			}
		}, ErrUnknownLayerName},
		{"cycle", func() Wiring {
			return Wiring{
				Inputs: []Layer{newCounting("in", 0)},
				Nodes: []Node{
					{Layer: newCounting("a", 0), From: "b"},
					{Layer: newCounting("b", 0), From: "a"},
				},
				Outputs: []string{"in"},
			}
		}, ErrCyclicWiring},
		{"self loop", func() Wiring {
			return Wiring{
				Inputs:  []Layer{newCounting("in", 0)},
				Nodes:   []Node{{Layer: newCounting("a", 0), From: "a"}},
				Outputs: []string{"a"},
			}
		}, ErrCyclicWiring},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph("g", tt.w())
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, g)
		})
	}
}

func TestGraphEagerBuild(t *testing.T) {
	backend := cpu.New()
	conf := NewConv2D("conf", Conv2DConfig{Filters: 6, KernelSize: 3, Padding: PaddingSame}, backend)
	loc := NewConv2D("loc", Conv2DConfig{Filters: 4, KernelSize: 3, Padding: PaddingSame}, backend)

	g, err := NewGraph("heads", Wiring{
		Inputs:  []Layer{NewInput("in", tensor.Shape{8, 5, 5})},
		Nodes:   []Node{{Layer: conf, From: "in"}, {Layer: loc, From: "in"}},
		Outputs: []string{"conf", "loc"},
	})
	require.NoError(t, err)
	assert.Equal(t, []tensor.Shape{{6, 5, 5}, {4, 5, 5}}, g.OutputShapes())
	assert.Len(t, g.Parameters(), 4)
	assert.Contains(t, g.String(), `Graph: "heads"`)

	outs, err := g.Call([]*tensor.Tensor{tensor.Zeros(tensor.Shape{1, 8, 5, 5})})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 6, 5, 5}, outs[0].Shape())
	assert.Equal(t, tensor.Shape{1, 4, 5, 5}, outs[1].Shape())
}

func TestGraphEagerBuildShapeError(t *testing.T) {
	pool := NewMaxPool2D("pool", MaxPool2DConfig{Size: 4}, cpu.New())
	_, err := NewGraph("g", Wiring{
		Inputs:  []Layer{NewInput("in", tensor.Shape{1, 2, 2})},
		Nodes:   []Node{{Layer: pool, From: "in"}},
		Outputs: []string{"pool"},
	})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
