package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/probelab/saeprobe/internal/metrics"
)

// Dense is a tensor as stored on disk: an explicit shape plus flat row-major
// float32 data.
type Dense struct {
	Shape []int
	Data  []float32
}

func FromMatrix(m *Matrix) Dense {
	return Dense{Shape: []int{m.Rows, m.Cols}, Data: m.Data}
}

func FromVector(v *Vector) Dense {
	return Dense{Shape: []int{len(v.Data)}, Data: v.Data}
}

// Matrix reinterprets a 2-D dense tensor.
func (d Dense) Matrix() (*Matrix, error) {
	if len(d.Shape) != 2 {
		return nil, &ShapeMismatchError{What: fmt.Sprintf("want 2-D tensor, got shape %v", d.Shape)}
	}
	m := &Matrix{Rows: d.Shape[0], Cols: d.Shape[1], Data: d.Data}
	if err := m.CheckShape(); err != nil {
		return nil, err
	}
	return m, nil
}

// Vector reinterprets a 1-D dense tensor.
func (d Dense) Vector() (*Vector, error) {
	if len(d.Shape) != 1 {
		return nil, &ShapeMismatchError{What: fmt.Sprintf("want 1-D tensor, got shape %v", d.Shape)}
	}
	if len(d.Data) != d.Shape[0] {
		return nil, &ShapeMismatchError{What: fmt.Sprintf("vector declared %d but holds %d elements", d.Shape[0], len(d.Data))}
	}
	return &Vector{Data: d.Data}, nil
}

// headerEntry is one tensor record in the safetensors JSON header.
type headerEntry struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Marshal serializes named tensors into the safetensors byte layout: an 8-byte
// little-endian header length, a JSON tensor index, then the raw F32 payload.
// Keys are laid out in sorted order so the encoding is deterministic.
func Marshal(tensors map[string]Dense) ([]byte, error) {
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]headerEntry, len(tensors))
	offset := 0
	for _, name := range names {
		d := tensors[name]
		n := 1
		for _, s := range d.Shape {
			if s < 0 {
				return nil, &ShapeMismatchError{What: fmt.Sprintf("tensor %q has negative dimension in shape %v", name, d.Shape)}
			}
			n *= s
		}
		if n != len(d.Data) {
			return nil, &ShapeMismatchError{What: fmt.Sprintf("tensor %q declared shape %v but holds %d elements", name, d.Shape, len(d.Data))}
		}
		nbytes := 4 * n
		header[name] = headerEntry{
			DType:       "F32",
			Shape:       d.Shape,
			DataOffsets: [2]int{offset, offset + nbytes},
		}
		offset += nbytes
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("encoding header: %w", err)
	}

	out := make([]byte, 8+len(headerBytes)+offset)
	binary.LittleEndian.PutUint64(out[:8], uint64(len(headerBytes)))
	copy(out[8:], headerBytes)

	pos := 8 + len(headerBytes)
	for _, name := range names {
		for _, f := range tensors[name].Data {
			binary.LittleEndian.PutUint32(out[pos:], math.Float32bits(f))
			pos += 4
		}
	}
	return out, nil
}

// Unmarshal parses the safetensors byte layout produced by Marshal (or by any
// other safetensors writer restricted to F32 tensors).
func Unmarshal(data []byte) (map[string]Dense, error) {
	if len(data) < 8 {
		return nil, ErrBadHeader{Reason: "file shorter than header length field"}
	}
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if headerLen > uint64(len(data)-8) {
		return nil, ErrBadHeader{Reason: fmt.Sprintf("header length %d exceeds file size %d", headerLen, len(data))}
	}
	headerBytes := data[8 : 8+headerLen]
	payload := data[8+headerLen:]

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, ErrBadHeader{Reason: err.Error()}
	}

	out := make(map[string]Dense, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var entry headerEntry
		if err := json.Unmarshal(msg, &entry); err != nil {
			return nil, ErrBadHeader{Reason: fmt.Sprintf("tensor %q: %v", name, err)}
		}
		if entry.DType != "F32" {
			return nil, ErrUnsupportedDType{Name: name, DType: entry.DType}
		}
		start, end := entry.DataOffsets[0], entry.DataOffsets[1]
		if start < 0 || end < start || end > len(payload) {
			return nil, ErrBadHeader{Reason: fmt.Sprintf("tensor %q has data offsets [%d,%d) outside payload of %d bytes", name, start, end, len(payload))}
		}
		n := 1
		for _, s := range entry.Shape {
			n *= s
		}
		if end-start != 4*n {
			return nil, &ShapeMismatchError{What: fmt.Sprintf("tensor %q shape %v wants %d bytes, offsets give %d", name, entry.Shape, 4*n, end-start)}
		}
		vals := make([]float32, n)
		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[start+4*i:]))
		}
		out[name] = Dense{Shape: entry.Shape, Data: vals}
	}
	return out, nil
}

// Save writes tensors to path. Paths ending in .zst are wrapped in a zstd
// frame, matching how the measurement pipeline persists its archives.
func Save(path string, tensors map[string]Dense) error {
	start := time.Now()
	data, err := Marshal(tensors)
	if err != nil {
		return err
	}

	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("creating zstd writer: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		if err := enc.Close(); err != nil {
			return fmt.Errorf("closing zstd writer: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	metrics.RecordArchiveSave(time.Since(start))
	return nil
}

// Load reads tensors from path, transparently decompressing .zst files.
func Load(path string) (map[string]Dense, error) {
	start := time.Now()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	compressed := int64(len(data))

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", path, err)
		}
	}

	tensors, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	metrics.RecordArchiveLoad(compressed, time.Since(start))
	return tensors, nil
}
