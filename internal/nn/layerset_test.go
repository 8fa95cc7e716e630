package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexNegativePositiveEquivalence(t *testing.T) {
	layers, _ := chain(5)
	seq := NewSequence("s", layers...)

	for i := 0; i < seq.Len(); i++ {
		pos, err := seq.Item(At(i))
		require.NoError(t, err)
		neg, err := seq.Item(At(-(seq.Len() - i)))
		require.NoError(t, err)
		assert.Same(t, pos, neg, "index %d", i)
	}
}

func TestIndexErrors(t *testing.T) {
	layers, _ := chain(3)
	seq := NewSequence("s", layers...)

	tests := []struct {
		name string
		key  Key
		want error
	}{
		{"past end", At(5), ErrIndexOutOfRange},
		{"at len", At(3), ErrIndexOutOfRange},
		{"before start", At(-4), ErrIndexOutOfRange},
		{"unknown name", Named("ghost"), ErrUnknownLayerName},
		{"absent key", Key{}, ErrInvalidKeyType},
		{"nested slice", Slice(Slice(At(0), At(1)), Key{}), ErrInvalidKeyType},
		{"empty slice", Slice(At(2), At(1)), ErrIndexOutOfRange},
		{"slice bound past end", Slice(At(0), At(4)), ErrIndexOutOfRange},
		{"slice unknown name", Slice(Named("ghost"), Key{}), ErrUnknownLayerName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := seq.Item(tt.key)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, item)
		})
	}

	_, err := seq.Index(Slice(At(0), At(1)))
	assert.ErrorIs(t, err, ErrInvalidKeyType)
}

func TestIndexByName(t *testing.T) {
	layers, _ := chain(4)
	seq := NewSequence("s", layers...)

	i, err := seq.Index(Named("c"))
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	l, err := seq.Item(Named("d"))
	require.NoError(t, err)
	assert.Same(t, layers[3], l)
}

func TestIndexDuplicateName(t *testing.T) {
	seq := NewSequence("s", newCounting("x", 1), newCounting("y", 1), newCounting("x", 1))

	_, err := seq.Index(Named("x"))
	assert.ErrorIs(t, err, ErrAmbiguousLayerName)

	i, err := seq.Index(Named("y"))
	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestSliceByNameIsInclusive(t *testing.T) {
	layers, _ := chain(5)
	seq := NewSequence("s", layers...)

	byName, err := seq.Item(Slice(Named("b"), Named("d")))
	require.NoError(t, err)
	byPos, err := seq.Item(Slice(At(1), At(4)))
	require.NoError(t, err)

	named, ok := byName.(*Sequence)
	require.True(t, ok)
	positional, ok := byPos.(*Sequence)
	require.True(t, ok)

	assert.Equal(t, 3, named.Len())
	assert.Equal(t, positional.Layers(), named.Layers())
	assert.Equal(t, "d", named.Layers()[2].Name())
	assert.Equal(t, "s[1:4]", named.Name())
}

func TestSliceShapes(t *testing.T) {
	layers, _ := chain(5)
	seq := NewSequence("s", layers...)

	t.Run("single element returns bare layer", func(t *testing.T) {
		l, err := seq.Item(Slice(At(2), At(3)))
		require.NoError(t, err)
		assert.Same(t, layers[2], l)

		l, err = seq.Item(Slice(Named("c"), Named("c")))
		require.NoError(t, err)
		assert.Same(t, layers[2], l)
	})

	t.Run("open bounds", func(t *testing.T) {
		l, err := seq.Item(Slice(Key{}, Key{}))
		require.NoError(t, err)
		assert.Equal(t, 5, l.(*Sequence).Len())

		l, err = seq.Item(Slice(At(-2), Key{}))
		require.NoError(t, err)
		assert.Equal(t, []Layer{layers[3], layers[4]}, l.(*Sequence).Layers())
	})

	t.Run("slice is callable", func(t *testing.T) {
		l, err := seq.Item(Slice(At(1), At(3)))
		require.NoError(t, err)
		out := l.Forward(scalar(0))
		assert.Equal(t, []float32{110}, out.Data())
	})
}

func TestExecuteFullRange(t *testing.T) {
	layers, _ := chain(4)
	seq := NewSequence("s", layers...)

	full, err := seq.Call(scalar(0))
	require.NoError(t, err)
	explicit, err := seq.Call(scalar(0), From(At(0)), Through(At(seq.Len()-1)))
	require.NoError(t, err)

	assert.Equal(t, []float32{1111}, full.Data())
	assert.Equal(t, full.Data(), explicit.Data())
}

func TestExecuteInvokesOnlyRange(t *testing.T) {
	const n = 6
	for k1 := 0; k1 < n; k1++ {
		for k2 := k1; k2 < n; k2++ {
			layers, counters := chain(n)
			seq := NewSequence("s", layers...)

			_, err := seq.Call(scalar(0), From(At(k1)), Through(At(k2)))
			require.NoError(t, err)

			for i, c := range counters {
				want := 0
				if i >= k1 && i <= k2 {
					want = 1
				}
				assert.Equal(t, want, c.calls, "range [%d, %d], layer %d", k1, k2, i)
			}
		}
	}
}

func TestExecuteByName(t *testing.T) {
	layers, counters := chain(5)
	seq := NewSequence("s", layers...)

	out, err := seq.Call(scalar(0), From(Named("b")), Through(Named("c")))
	require.NoError(t, err)
	assert.Equal(t, []float32{110}, out.Data())
	assert.Equal(t, 0, counters[0].calls)
	assert.Equal(t, 0, counters[3].calls)

	out, err = seq.Call(scalar(0), From(At(-1)))
	require.NoError(t, err)
	assert.Equal(t, []float32{10000}, out.Data())
}

func TestExecuteInvalidRange(t *testing.T) {
	layers, counters := chain(5)
	seq := NewSequence("s", layers...)

	out, err := seq.Call(scalar(0), From(At(4)), Through(At(1)))
	require.ErrorIs(t, err, ErrInvalidExecutionRange)
	assert.Nil(t, out)
	for _, c := range counters {
		assert.Zero(t, c.calls)
	}

	_, err = seq.Call(scalar(0), From(At(7)))
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = seq.Call(scalar(0), Through(Named("ghost")))
	assert.ErrorIs(t, err, ErrUnknownLayerName)

	_, err = NewSequence("empty").Call(scalar(0))
	assert.ErrorIs(t, err, ErrInvalidExecutionRange)
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "-1", At(-1).String())
	assert.Equal(t, `"fc1"`, Named("fc1").String())
	assert.Equal(t, `1:"fc2"`, Slice(At(1), Named("fc2")).String())
	assert.Equal(t, ":3", Slice(Key{}, At(3)).String())
	assert.True(t, Key{}.IsZero())
	assert.False(t, At(0).IsZero())
}
