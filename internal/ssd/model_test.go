package ssd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ssd/internal/nn"
	"github.com/born-ml/ssd/internal/tensor"
)

func countingChain(prefix string, n int) (*nn.Sequence, []*affine) {
	layers := make([]nn.Layer, n)
	counters := make([]*affine, n)
	for i := range layers {
		counters[i] = newAffine(prefix+string(rune('0'+i)), 1, 1)
		layers[i] = counters[i]
	}
	return nn.NewSequence(prefix, layers...), counters
}

func TestModelFeaturesStopAtLastTap(t *testing.T) {
	base, baseCounters := countingChain("b", 4)
	extra, extraCounters := countingChain("e", 4)
	preds := []nn.Layer{newAffine("p0", 1, 0), newAffine("p1", 1, 0), newAffine("p2", 1, 0)}

	m, err := NewModel("m", base, extra, []string{"b1", "e0", "e2"}, preds)
	require.NoError(t, err)

	outs, err := m.Forward(vec(0))
	require.NoError(t, err)
	require.Len(t, outs, 3)

	// every layer adds one: b1 is the 2nd layer, e0 the 5th, e2 the 7th
	assert.Equal(t, []float32{2}, outs[0].Data())
	assert.Equal(t, []float32{5}, outs[1].Data())
	assert.Equal(t, []float32{7}, outs[2].Data())

	for _, c := range baseCounters {
		assert.Equal(t, 1, c.calls, c.name)
	}
	assert.Equal(t, []int{1, 1, 1, 0}, []int{
		extraCounters[0].calls, extraCounters[1].calls, extraCounters[2].calls, extraCounters[3].calls,
	})
	assert.Equal(t, []string{"b1", "e0", "e2"}, m.Taps())
}

func TestModelTapErrors(t *testing.T) {
	preds := func(n int) []nn.Layer {
		out := make([]nn.Layer, n)
		for i := range out {
			out[i] = newAffine("p"+string(rune('0'+i)), 1, 0)
		}
		return out
	}
	base, _ := countingChain("b", 3)
	extra, _ := countingChain("e", 3)

	_, err := NewModel("m", base, extra, []string{"ghost"}, preds(1))
	assert.ErrorIs(t, err, ErrInvalidTap)

	_, err = NewModel("m", base, extra, []string{"e1", "b2"}, preds(2))
	assert.ErrorIs(t, err, ErrInvalidTap)

	_, err = NewModel("m", base, extra, []string{"b1", "b1"}, preds(2))
	assert.ErrorIs(t, err, ErrInvalidTap)

	_, err = NewModel("m", base, extra, []string{"b1"}, preds(2))
	assert.ErrorIs(t, err, ErrBranchMismatch)

	_, err = NewModel("m", base, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTap)
}

func tinyConfig() Config {
	return Config{
		Name:    "tiny",
		Classes: 3,
		Backbone: BackboneConfig{
			Architecture:    "VGG_16",
			InputShape:      []int{3, 32, 32},
			Seed:            1,
			Widths:          []int{2, 2, 4, 4, 4},
			FCUnits:         8,
			ImageNetClasses: 5,
			HeadInputShape:  []int{3, 32, 32},
			HeadFilters:     8,
		},
		Extras: []LayerSpec{
			{Name: "conv8_1", Type: "conv2d", Filters: 4, KernelSize: 1, Padding: "same", Activation: "relu"},
			{Name: "conv8_2", Type: "conv2d", Filters: 4, KernelSize: 3, Stride: 2, Padding: "same", Activation: "relu"},
		},
		Taps: []TapConfig{
			{Layer: "block4_conv3", Anchors: 2},
			{Layer: HeadConv7, Anchors: 2},
			{Layer: "conv8_2", Predictor: &LayerSpec{Name: "last_pred", Type: "conv2d", Filters: 6, KernelSize: 1}},
		},
	}
}

func TestBuildModel(t *testing.T) {
	features, head := pretrained(t)

	m, err := Build(tinyConfig(), features, head)
	require.NoError(t, err)
	assert.Equal(t, "tiny", m.Name())
	assert.Equal(t, 21, m.Base().Len())
	assert.Equal(t, 2, m.Extra().Len())

	want := []tensor.Shape{{14, 4, 4}, {14, 2, 2}, {6, 1, 1}}
	assert.Equal(t, want, m.OutputShape())

	x := tensor.Full(tensor.Shape{2, 3, 32, 32}, 0.1)
	outs, err := m.Forward(x)
	require.NoError(t, err)
	require.Len(t, outs, 3)
	for i, out := range outs {
		assert.Equal(t, want[i].WithBatch(2), out.Shape())
	}

	// the first feature map is the backbone run through block4_conv3
	features0, err := m.Base().Call(x, nn.Through(nn.Named("block4_conv3")))
	require.NoError(t, err)
	feats, err := m.Features(x)
	require.NoError(t, err)
	assert.Equal(t, features0.Data(), feats[0].Data())

	s := m.String()
	assert.Contains(t, s, `Model: "tiny"`)
	assert.Contains(t, s, `Sequence: "BaseNet"`)
	assert.Contains(t, s, `Sequence: "ExtraNet"`)
	assert.Contains(t, s, `Graph: "DetectorNet"`)
	assert.NotEmpty(t, m.Parameters())
}

func TestBuildUnsupportedArchitecture(t *testing.T) {
	cfg := tinyConfig()
	cfg.Backbone.Architecture = "MobileNet"

	m, err := Build(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedArchitecture)
	assert.Nil(t, m)
}
