package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ssd/internal/backend/cpu"
	"github.com/born-ml/ssd/internal/tensor"
)

func smallFeatures() *Sequence {
	backend := cpu.New()
	return NewSequence("features",
		NewConv2D("conv1", Conv2DConfig{Filters: 4, KernelSize: 3, Padding: PaddingSame, Activation: ActivationReLU}, backend),
		NewMaxPool2D("pool1", MaxPool2DConfig{Size: 2}, backend),
		NewConv2D("conv2", Conv2DConfig{Filters: 8, KernelSize: 3, Padding: PaddingSame, Activation: ActivationReLU}, backend),
		NewMaxPool2D("pool2", MaxPool2DConfig{Size: 2}, backend),
	)
}

func TestSequenceBuild(t *testing.T) {
	seq := smallFeatures()
	assert.Nil(t, seq.OutputShape())

	out, err := seq.Build(tensor.Shape{3, 16, 16})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{8, 4, 4}, out)
	assert.Equal(t, out, seq.OutputShape())

	// weight + bias for both convolutions
	assert.Len(t, seq.Parameters(), 4)
	assert.Equal(t, 4*3*9+4+8*4*9+8, CountParameters(seq))

	_, err = seq.Build(tensor.Shape{1, 16, 16})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSequencePartialMatchesFull(t *testing.T) {
	seq := smallFeatures()
	x := tensor.Uniform(tensor.Shape{2, 3, 16, 16}, -1, 1, rand.New(rand.NewSource(3)))

	full := seq.Forward(x)

	mid, err := seq.Call(x, Through(Named("pool1")))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 4, 8, 8}, mid.Shape())

	rest, err := seq.Call(mid, From(Named("conv2")))
	require.NoError(t, err)
	assert.Equal(t, full.Data(), rest.Data())

	tail, err := seq.Item(Slice(Named("conv2"), Key{}))
	require.NoError(t, err)
	assert.Equal(t, full.Data(), tail.Forward(mid).Data())
}

func TestSequenceNesting(t *testing.T) {
	inner, counters := chain(3)
	outer := NewSequence("outer", newCounting("pre", 1000), NewSequence("inner", inner...))

	out, err := outer.Call(scalar(0))
	require.NoError(t, err)
	assert.Equal(t, []float32{1111}, out.Data())

	nested, err := outer.Item(At(1))
	require.NoError(t, err)
	seq, ok := nested.(*Sequence)
	require.True(t, ok)
	_, err = seq.Call(scalar(0), From(At(2)))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2}, []int{counters[0].calls, counters[1].calls, counters[2].calls})
}

func TestSequenceEmpty(t *testing.T) {
	seq := NewSequence("empty")
	x := scalar(3)
	assert.Same(t, x, seq.Forward(x))
	assert.Nil(t, seq.OutputShape())
	assert.Equal(t, 0, seq.Len())
}

func TestSequenceOwnsItsList(t *testing.T) {
	layers, _ := chain(3)
	seq := NewSequence("s", layers...)
	layers[0] = newCounting("replaced", 0)

	l, err := seq.Item(At(0))
	require.NoError(t, err)
	assert.Equal(t, "a", l.Name())

	got := seq.Layers()
	got[1] = nil
	l, err = seq.Item(At(1))
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestSequenceString(t *testing.T) {
	seq := smallFeatures()
	_, err := seq.Build(tensor.Shape{3, 16, 16})
	require.NoError(t, err)

	s := seq.String()
	assert.Contains(t, s, `Sequence: "features"`)
	assert.Contains(t, s, "conv1 (Conv2D)")
	assert.Contains(t, s, "(None, 8, 4, 4)")
	assert.Contains(t, s, "Total params: 408")
}
