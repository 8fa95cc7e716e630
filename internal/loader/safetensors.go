package loader

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"

	"github.com/born-ml/ssd/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// SafeTensorsDType represents a SafeTensors data type.
type SafeTensorsDType string

// SafeTensors dtypes. Only F32 and F64 can be loaded.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
)

const maxHeaderSize = 100 * 1024 * 1024

// SafeTensorInfo describes a tensor in SafeTensors format.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end]
}

// SafeTensorsHeader is the JSON header in SafeTensors format.
type SafeTensorsHeader struct {
	Metadata map[string]string
	Tensors  map[string]SafeTensorInfo
}

// UnmarshalJSON splits the flat header object into metadata and tensors.
func (h *SafeTensorsHeader) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return errors.Wrap(err, "failed to unmarshal metadata")
		}
	}

	h.Tensors = make(map[string]SafeTensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return errors.Wrapf(err, "failed to unmarshal tensor %s", key)
		}
		h.Tensors[key] = info
	}
	return nil
}

// SafeTensorsSource reads pretrained weights from a SafeTensors file.
//
// Tensors are read lazily, one layer at a time.
type SafeTensorsSource struct {
	path       string
	file       *os.File
	header     SafeTensorsHeader
	dataOffset int64 // offset where tensor data starts
}

var _ WeightSource = (*SafeTensorsSource)(nil)

// OpenSafeTensors opens a SafeTensors file and parses its header.
func OpenSafeTensors(path string) (*SafeTensorsSource, error) {
	//nolint:gosec // G304: path comes from the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "%s: read header size", path)
	}
	if headerSize > maxHeaderSize {
		_ = file.Close()
		return nil, errors.Errorf("%s: invalid header size %d (too large)", path, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "%s: read header", path)
	}

	var header SafeTensorsHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "%s: parse header JSON", path)
	}

	return &SafeTensorsSource{
		path:       path,
		file:       file,
		header:     header,
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by maxHeaderSize
	}, nil
}

// Close closes the underlying file.
func (s *SafeTensorsSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (s *SafeTensorsSource) Metadata() map[string]string {
	return s.header.Metadata
}

// TensorNames returns all tensor names in sorted order.
func (s *SafeTensorsSource) TensorNames() []string {
	names := make([]string, 0, len(s.header.Tensors))
	for name := range s.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns information about a specific tensor.
func (s *SafeTensorsSource) TensorInfo(name string) (*SafeTensorInfo, error) {
	info, ok := s.header.Tensors[name]
	if !ok {
		return nil, errors.Wrapf(ErrTensorNotFound, "%s: %s", s.path, name)
	}
	return &info, nil
}

// LoadTensor reads one tensor, converting F64 data to float32.
func (s *SafeTensorsSource) LoadTensor(name string) (*tensor.Tensor, error) {
	info, err := s.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	var width int
	switch info.DType {
	case SafeTensorsF32:
		width = 4
	case SafeTensorsF64:
		width = 8
	default:
		return nil, errors.Wrapf(ErrUnsupportedDType, "tensor %s has dtype %s", name, info.DType)
	}

	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid shape for tensor %s", name)
	}

	size := info.DataOffsets[1] - info.DataOffsets[0]
	if size < 0 || size != int64(shape.NumElements()*width) {
		return nil, errors.Errorf("invalid data offsets for tensor %s: [%d, %d] for shape %v %s",
			name, info.DataOffsets[0], info.DataOffsets[1], shape, info.DType)
	}

	raw := make([]byte, size)
	if _, err := s.file.ReadAt(raw, s.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, errors.Wrapf(err, "read tensor %s", name)
	}

	data := make([]float32, shape.NumElements())
	for i := range data {
		if width == 4 {
			data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		} else {
			data[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:])))
		}
	}
	return tensor.New(shape, data), nil
}

// LayerWeights implements WeightSource.
func (s *SafeTensorsSource) LayerWeights(layer string) ([]*tensor.Tensor, error) {
	return layerWeights(layer, func(name string) (*tensor.Tensor, bool, error) {
		if _, ok := s.header.Tensors[name]; !ok {
			return nil, false, nil
		}
		t, err := s.LoadTensor(name)
		return t, err == nil, err
	})
}

// WriteSafeTensors writes tensors as F32 to a SafeTensors file, in sorted
// name order.
func WriteSafeTensors(path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(tensors)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}
	var offset int64
	for _, name := range names {
		n := int64(tensors[name].NumElements()) * 4
		header[name] = SafeTensorInfo{
			DType:       SafeTensorsF32,
			Shape:       tensors[name].Shape(),
			DataOffsets: [2]int64{offset, offset + n},
		}
		offset += n
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "marshal header")
	}

	//nolint:gosec // G304: output path is user supplied
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer file.Close()
	w := bufio.NewWriter(file)

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrapf(err, "%s: write header size", path)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return errors.Wrapf(err, "%s: write header", path)
	}
	buf := make([]byte, 4)
	for _, name := range names {
		for _, v := range tensors[name].Data() {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			if _, err := w.Write(buf); err != nil {
				return errors.Wrapf(err, "%s: write tensor %s", path, name)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "%s: flush", path)
	}
	return file.Close()
}
