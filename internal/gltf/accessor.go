package gltf

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrAccessor = errors.New("invalid accessor")

// Component types.
const (
	UnsignedByte  = 5121
	UnsignedShort = 5123
	UnsignedInt   = 5125
	Float         = 5126
)

// ModeTriangles is the default primitive topology.
const ModeTriangles = 4

type Accessor struct {
	BufferView    *int      `json:"bufferView,omitempty"`
	ByteOffset    int       `json:"byteOffset,omitempty"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Min           []float32 `json:"min,omitempty"`
	Max           []float32 `json:"max,omitempty"`
}

type BufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset,omitempty"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride,omitempty"`
}

// ReadURI resolves an external buffer URI relative to the document.
type ReadURI func(uri string) ([]byte, error)

// Geometry is the triangle list of one mesh: xyz triples and indices into
// them, plus the bounds of the positions.
type Geometry struct {
	Positions []float32
	Indices   []uint32
	Min, Max  mgl32.Vec3
}

// Empty reports whether g holds no triangles.
func (g Geometry) Empty() bool { return len(g.Indices) == 0 }

// LoadBuffers resolves every buffer of d. The first buffer of a GLB without a
// URI is the binary chunk; data URIs are decoded inline and anything else
// goes through read, which may be nil.
func (d *Document) LoadBuffers(bin []byte, read ReadURI) ([][]byte, error) {
	out := make([][]byte, len(d.Buffers))
	for i, b := range d.Buffers {
		var data []byte
		var err error
		switch {
		case b.URI == "" && i == 0:
			data = bin
		case strings.HasPrefix(b.URI, "data:"):
			comma := strings.IndexByte(b.URI, ',')
			if comma < 0 || !strings.Contains(b.URI[:comma], ";base64") {
				return nil, fmt.Errorf("buffer %d: unsupported data uri", i)
			}
			data, err = base64.StdEncoding.DecodeString(b.URI[comma+1:])
		case b.URI != "" && read != nil:
			data, err = read(b.URI)
		default:
			return nil, fmt.Errorf("buffer %d: no data", i)
		}
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(data) < b.ByteLength {
			return nil, fmt.Errorf("buffer %d: %d bytes, want %d", i, len(data), b.ByteLength)
		}
		out[i] = data
	}
	return out, nil
}

// MeshGeometry merges the triangle primitives of a mesh into one list.
// Primitives with another topology are skipped.
func (d *Document) MeshGeometry(mesh int, buffers [][]byte) (Geometry, error) {
	var g Geometry
	if mesh < 0 || mesh >= len(d.Meshes) {
		return g, fmt.Errorf("mesh %d out of range", mesh)
	}
	for pi, prim := range d.Meshes[mesh].Primitives {
		if prim.Mode != nil && *prim.Mode != ModeTriangles {
			continue
		}
		pos, ok := prim.Attributes["POSITION"]
		if !ok {
			continue
		}
		positions, err := d.readFloats(pos, "VEC3", buffers)
		if err != nil {
			return g, fmt.Errorf("mesh %d primitive %d positions: %w", mesh, pi, err)
		}
		count := uint32(len(positions) / 3)
		var indices []uint32
		if prim.Indices != nil {
			indices, err = d.readIndices(*prim.Indices, buffers)
			if err != nil {
				return g, fmt.Errorf("mesh %d primitive %d indices: %w", mesh, pi, err)
			}
		} else {
			indices = make([]uint32, count)
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		base := uint32(len(g.Positions) / 3)
		for _, idx := range indices[:len(indices)-len(indices)%3] {
			if idx >= count {
				return g, fmt.Errorf("mesh %d primitive %d: %w: index %d past %d vertices", mesh, pi, ErrAccessor, idx, count)
			}
			g.Indices = append(g.Indices, base+idx)
		}
		g.Positions = append(g.Positions, positions...)
	}
	g.Min, g.Max = Bounds(g.Positions)
	return g, nil
}

// Bounds returns the box around xyz triples, or two zero vectors for none.
func Bounds(positions []float32) (mgl32.Vec3, mgl32.Vec3) {
	if len(positions) < 3 {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	lo := mgl32.Vec3{positions[0], positions[1], positions[2]}
	hi := lo
	for i := 3; i+2 < len(positions); i += 3 {
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], positions[i+a])
			hi[a] = max(hi[a], positions[i+a])
		}
	}
	return lo, hi
}

func (d *Document) view(acc Accessor, elem int, buffers [][]byte) ([]byte, int, error) {
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(d.BufferViews) {
		return nil, 0, fmt.Errorf("%w: missing buffer view", ErrAccessor)
	}
	bv := d.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(buffers) {
		return nil, 0, fmt.Errorf("%w: buffer %d out of range", ErrAccessor, bv.Buffer)
	}
	buf := buffers[bv.Buffer]
	if bv.ByteOffset+bv.ByteLength > len(buf) {
		return nil, 0, fmt.Errorf("%w: view past end of buffer", ErrAccessor)
	}
	data := buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength]
	stride := bv.ByteStride
	if stride == 0 {
		stride = elem
	}
	if acc.Count > 0 && acc.ByteOffset+(acc.Count-1)*stride+elem > len(data) {
		return nil, 0, fmt.Errorf("%w: %d elements do not fit the view", ErrAccessor, acc.Count)
	}
	return data[acc.ByteOffset:], stride, nil
}

func (d *Document) accessor(i int) (Accessor, error) {
	if i < 0 || i >= len(d.Accessors) {
		return Accessor{}, fmt.Errorf("%w: accessor %d out of range", ErrAccessor, i)
	}
	return d.Accessors[i], nil
}

func (d *Document) readFloats(i int, kind string, buffers [][]byte) ([]float32, error) {
	acc, err := d.accessor(i)
	if err != nil {
		return nil, err
	}
	if acc.Type != kind || acc.ComponentType != Float {
		return nil, fmt.Errorf("%w: want float %s, got %d %s", ErrAccessor, kind, acc.ComponentType, acc.Type)
	}
	const elem = 12
	data, stride, err := d.view(acc, elem, buffers)
	if err != nil {
		return nil, err
	}
	out := make([]float32, 0, acc.Count*3)
	for e := 0; e < acc.Count; e++ {
		off := e * stride
		for c := 0; c < 3; c++ {
			out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(data[off+c*4:])))
		}
	}
	return out, nil
}

func (d *Document) readIndices(i int, buffers [][]byte) ([]uint32, error) {
	acc, err := d.accessor(i)
	if err != nil {
		return nil, err
	}
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("%w: indices must be SCALAR, got %s", ErrAccessor, acc.Type)
	}
	var elem int
	switch acc.ComponentType {
	case UnsignedByte:
		elem = 1
	case UnsignedShort:
		elem = 2
	case UnsignedInt:
		elem = 4
	default:
		return nil, fmt.Errorf("%w: index component type %d", ErrAccessor, acc.ComponentType)
	}
	data, stride, err := d.view(acc, elem, buffers)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, acc.Count)
	for e := range out {
		off := e * stride
		switch elem {
		case 1:
			out[e] = uint32(data[off])
		case 2:
			out[e] = uint32(binary.LittleEndian.Uint16(data[off:]))
		default:
			out[e] = binary.LittleEndian.Uint32(data[off:])
		}
	}
	return out, nil
}
