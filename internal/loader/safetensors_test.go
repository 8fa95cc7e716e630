package loader

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/ssd/internal/tensor"
)

// createTestSafeTensorsFile writes a layer "conv" with an F32 kernel and an
// F64 bias, plus an F16 tensor that cannot be loaded.
func createTestSafeTensorsFile(t *testing.T, path string) {
	t.Helper()

	header := map[string]any{
		"__metadata__": map[string]string{"format": "keras"},
		"conv.weight": SafeTensorInfo{
			DType:       SafeTensorsF32,
			Shape:       []int{2, 3},
			DataOffsets: [2]int64{0, 24}, // 2*3*4 = 24 bytes
		},
		"conv.bias": SafeTensorInfo{
			DType:       SafeTensorsF64,
			Shape:       []int{2},
			DataOffsets: [2]int64{24, 40}, // 2*8 = 16 bytes
		},
		"half.weight": SafeTensorInfo{
			DType:       SafeTensorsF16,
			Shape:       []int{1},
			DataOffsets: [2]int64{40, 42},
		},
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		t.Fatalf("Failed to marshal header: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	defer file.Close()

	if err := binary.Write(file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		t.Fatalf("Failed to write header size: %v", err)
	}
	if _, err := file.Write(headerJSON); err != nil {
		t.Fatalf("Failed to write header: %v", err)
	}
	for _, v := range []float32{1, 2, 3, 4, 5, 6} {
		if err := binary.Write(file, binary.LittleEndian, v); err != nil {
			t.Fatalf("Failed to write weight data: %v", err)
		}
	}
	for _, v := range []float64{0.5, -0.25} {
		if err := binary.Write(file, binary.LittleEndian, v); err != nil {
			t.Fatalf("Failed to write bias data: %v", err)
		}
	}
	if _, err := file.Write([]byte{0, 0}); err != nil {
		t.Fatalf("Failed to write half data: %v", err)
	}
}

func openFixture(t *testing.T) *SafeTensorsSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.safetensors")
	createTestSafeTensorsFile(t, path)

	src, err := OpenSafeTensors(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestOpenSafeTensors(t *testing.T) {
	src := openFixture(t)

	assert.Equal(t, "keras", src.Metadata()["format"])
	assert.Equal(t, []string{"conv.bias", "conv.weight", "half.weight"}, src.TensorNames())

	info, err := src.TensorInfo("conv.weight")
	require.NoError(t, err)
	assert.Equal(t, SafeTensorsF32, info.DType)
	assert.Equal(t, []int{2, 3}, info.Shape)

	_, err = src.TensorInfo("nonexistent")
	assert.ErrorIs(t, err, ErrTensorNotFound)
}

func TestSafeTensorsLayerWeights(t *testing.T) {
	src := openFixture(t)

	ws, err := src.LayerWeights("conv")
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, tensor.Shape{2, 3}, ws[0].Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, ws[0].Data())
	assert.Equal(t, []float32{0.5, -0.25}, ws[1].Data())

	_, err = src.LayerWeights("ghost")
	assert.ErrorIs(t, err, ErrTensorNotFound)

	_, err = src.LayerWeights("half")
	assert.ErrorIs(t, err, ErrUnsupportedDType)
}

func TestOpenSafeTensorsErrors(t *testing.T) {
	_, err := OpenSafeTensors(filepath.Join(t.TempDir(), "missing.safetensors"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	short := filepath.Join(t.TempDir(), "short.safetensors")
	require.NoError(t, os.WriteFile(short, []byte{1, 2, 3}, 0o600))
	_, err = OpenSafeTensors(short)
	assert.Error(t, err)

	huge := filepath.Join(t.TempDir(), "huge.safetensors")
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, maxHeaderSize+1)
	require.NoError(t, os.WriteFile(huge, buf, 0o600))
	_, err = OpenSafeTensors(huge)
	assert.Error(t, err)
}

func TestWriteSafeTensorsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.safetensors")
	weights := MapSource{
		"fc1.weight": tensor.Arange(tensor.Shape{3, 2}),
		"fc1.bias":   tensor.Full(tensor.Shape{2}, 0.5),
		"pool.other": tensor.Zeros(tensor.Shape{1}),
	}
	require.NoError(t, WriteSafeTensors(path, weights, map[string]string{"arch": "vgg16"}))

	src, err := OpenSafeTensors(path)
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, weights.Names(), src.TensorNames())
	assert.Equal(t, "vgg16", src.Metadata()["arch"])

	got, err := src.LayerWeights("fc1")
	require.NoError(t, err)
	want, err := weights.LayerWeights("fc1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.Equal(t, want[i].Shape(), got[i].Shape())
		assert.Equal(t, want[i].Data(), got[i].Data())
	}
}

func TestMapSource(t *testing.T) {
	m := MapSource{"conv.weight": tensor.Zeros(tensor.Shape{1})}

	ws, err := m.LayerWeights("conv")
	require.NoError(t, err)
	assert.Len(t, ws, 1, "bias is optional")

	_, err = m.LayerWeights("dense")
	assert.ErrorIs(t, err, ErrTensorNotFound)
	assert.Equal(t, "conv.weight", WeightName("conv", "weight"))
}
