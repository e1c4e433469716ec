package gltf

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(i int) *int { return &i }

func sampleDoc() *Document {
	return &Document{
		Asset:  Asset{Version: "2.0", Generator: "test"},
		Scene:  intp(0),
		Scenes: []Scene{{Nodes: []int{0}}},
		Nodes: []Node{
			{Name: "root", Children: []int{1}, Translation: &[3]float32{1, 0, 0}},
			{Name: "child", Mesh: intp(0), Translation: &[3]float32{0, 2, 0}, Scale: &[3]float32{2, 2, 2}},
		},
		Meshes: []Mesh{{Name: "cube", Primitives: []Primitive{{Attributes: map[string]int{"POSITION": 0}}}}},
	}
}

func TestWriteReadGLB(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGLB(&buf, sampleDoc(), []byte{1, 2, 3}))

	data := buf.Bytes()
	assert.True(t, IsGLB(data))
	assert.Equal(t, uint32(len(data)), binary.LittleEndian.Uint32(data[8:12]))
	assert.Zero(t, len(data)%4)

	doc, bin, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, sampleDoc(), doc)
	assert.Equal(t, []byte{1, 2, 3, 0}, bin)
}

func TestParsePlainJSON(t *testing.T) {
	doc, bin, err := Parse([]byte(`{"asset":{"version":"2.0"},"nodes":[{"name":"a"}]}`))
	require.NoError(t, err)
	assert.Nil(t, bin)
	assert.Equal(t, []int{0}, doc.RootNodes())
}

func TestReadGLBErrors(t *testing.T) {
	_, _, err := ReadGLB([]byte{1, 2})
	assert.ErrorIs(t, err, ErrTooSmall)

	bad := make([]byte, 12)
	_, _, err = ReadGLB(bad)
	assert.ErrorIs(t, err, ErrInvalidMagic)

	_, _, err = Parse([]byte(`{"asset":{"version":"1.0"}}`))
	assert.ErrorIs(t, err, ErrInvalidVersion)

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, glbHeader{Magic: glbMagic, Version: glbVersion, Length: 12})
	_, _, err = ReadGLB(buf.Bytes())
	assert.ErrorIs(t, err, ErrMissingJSON)
}

func TestWalkComposesWorld(t *testing.T) {
	var names []string
	var childWorld mgl32.Mat4

	sampleDoc().Walk(func(_ int, n *Node, world mgl32.Mat4) {
		names = append(names, n.Name)
		if n.Name == "child" {
			childWorld = world
		}
	})

	assert.Equal(t, []string{"root", "child"}, names)
	assert.InDelta(t, 1, childWorld.At(0, 3), 1e-6)
	assert.InDelta(t, 2, childWorld.At(1, 3), 1e-6)
	assert.InDelta(t, 2, childWorld.At(0, 0), 1e-6)
}

func TestWalkSkipsCycles(t *testing.T) {
	doc := &Document{
		Asset:  Asset{Version: "2.0"},
		Scenes: []Scene{{Nodes: []int{0}}},
		Nodes:  []Node{{Name: "a", Children: []int{1}}, {Name: "b", Children: []int{0, 7}}},
	}
	count := 0
	doc.Walk(func(int, *Node, mgl32.Mat4) { count++ })
	assert.Equal(t, 2, count)
}

func TestLocalMatrixPrefersMatrix(t *testing.T) {
	m := mgl32.Translate3D(4, 5, 6)
	arr := [16]float32(m)
	n := Node{Matrix: &arr, Translation: &[3]float32{1, 1, 1}}

	assert.True(t, n.LocalMatrix().ApproxEqual(m))
}

// triangle returns a one-mesh document whose positions and u16 indices
// live in bin.
func triangle() (*Document, []byte) {
	var bin bytes.Buffer
	for _, f := range []float32{0, 0, 0, 2, 0, 0, 0, 3, -1} {
		_ = binary.Write(&bin, binary.LittleEndian, f)
	}
	for _, i := range []uint16{0, 1, 2, 0} {
		_ = binary.Write(&bin, binary.LittleEndian, i)
	}
	doc := &Document{
		Asset:  Asset{Version: "2.0"},
		Nodes:  []Node{{Name: "tri", Mesh: intp(0)}},
		Meshes: []Mesh{{Primitives: []Primitive{{Attributes: map[string]int{"POSITION": 0}, Indices: intp(1)}}}},
		Accessors: []Accessor{
			{BufferView: intp(0), ComponentType: Float, Count: 3, Type: "VEC3"},
			{BufferView: intp(1), ComponentType: UnsignedShort, Count: 3, Type: "SCALAR"},
		},
		BufferViews: []BufferView{{Buffer: 0, ByteLength: 36}, {Buffer: 0, ByteOffset: 36, ByteLength: 6}},
		Buffers:     []Buffer{{ByteLength: bin.Len()}},
	}
	return doc, bin.Bytes()
}

func TestMeshGeometryFromBinaryChunk(t *testing.T) {
	doc, bin := triangle()
	var buf bytes.Buffer
	require.NoError(t, WriteGLB(&buf, doc, bin))

	back, chunk, err := Parse(buf.Bytes())
	require.NoError(t, err)
	buffers, err := back.LoadBuffers(chunk, nil)
	require.NoError(t, err)

	g, err := back.MeshGeometry(0, buffers)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0, 2, 0, 0, 0, 3, -1}, g.Positions)
	assert.Equal(t, []uint32{0, 1, 2}, g.Indices)
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, g.Min)
	assert.Equal(t, mgl32.Vec3{2, 3, 0}, g.Max)
	assert.False(t, g.Empty())
}

func TestLoadBuffersDataURI(t *testing.T) {
	doc, bin := triangle()
	doc.Buffers[0].URI = "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(bin)

	buffers, err := doc.LoadBuffers(nil, nil)
	require.NoError(t, err)
	g, err := doc.MeshGeometry(0, buffers)
	require.NoError(t, err)
	assert.Len(t, g.Indices, 3)

	doc.Buffers[0].URI = "rock.bin"
	_, err = doc.LoadBuffers(nil, nil)
	assert.Error(t, err)
	buffers, err = doc.LoadBuffers(nil, func(uri string) ([]byte, error) { return bin, nil })
	require.NoError(t, err)
	assert.Equal(t, bin, buffers[0])
}

func TestMeshGeometryRejectsBadAccessors(t *testing.T) {
	doc, bin := triangle()
	doc.Accessors[0].Count = 10
	_, err := doc.MeshGeometry(0, [][]byte{bin})
	assert.ErrorIs(t, err, ErrAccessor)

	doc, bin = triangle()
	doc.Accessors[1].ComponentType = Float
	_, err = doc.MeshGeometry(0, [][]byte{bin})
	assert.ErrorIs(t, err, ErrAccessor)

	_, err = doc.MeshGeometry(3, [][]byte{bin})
	assert.Error(t, err)
}
