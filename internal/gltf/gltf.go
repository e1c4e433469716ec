// Package gltf reads and writes the subset of glTF 2.0 the editor needs:
// the node hierarchy with transforms, mesh references and extras.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html
package gltf

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Document is the root of a glTF JSON document.
type Document struct {
	Asset   Asset    `json:"asset"`
	Scene   *int     `json:"scene,omitempty"`
	Scenes  []Scene  `json:"scenes,omitempty"`
	Nodes   []Node   `json:"nodes,omitempty"`
	Meshes      []Mesh       `json:"meshes,omitempty"`
	Accessors   []Accessor   `json:"accessors,omitempty"`
	BufferViews []BufferView `json:"bufferViews,omitempty"`
	Buffers     []Buffer     `json:"buffers,omitempty"`

	ExtensionsUsed []string `json:"extensionsUsed,omitempty"`
}

// Asset must carry Version "2.0".
type Asset struct {
	Version   string `json:"version"`
	Generator string `json:"generator,omitempty"`
}

type Scene struct {
	Name  string `json:"name,omitempty"`
	Nodes []int  `json:"nodes,omitempty"`
}

// Node is one entry of the transform hierarchy. Either Matrix or the TRS
// triple is set. Rotation is a quaternion (x, y, z, w).
type Node struct {
	Name        string         `json:"name,omitempty"`
	Children    []int          `json:"children,omitempty"`
	Mesh        *int           `json:"mesh,omitempty"`
	Matrix      *[16]float32   `json:"matrix,omitempty"`
	Translation *[3]float32    `json:"translation,omitempty"`
	Rotation    *[4]float32    `json:"rotation,omitempty"`
	Scale       *[3]float32    `json:"scale,omitempty"`
	Extras      map[string]any `json:"extras,omitempty"`
}

// Mesh groups the primitives drawn for one node. Only triangle positions
// are read back; normals are rebuilt per face by the consumer.
type Mesh struct {
	Name       string      `json:"name,omitempty"`
	Primitives []Primitive `json:"primitives"`
}

type Primitive struct {
	Attributes map[string]int `json:"attributes"`
	Indices    *int           `json:"indices,omitempty"`
	Material   *int           `json:"material,omitempty"`
	Mode       *int           `json:"mode,omitempty"`
}

type Buffer struct {
	URI        string `json:"uri,omitempty"`
	ByteLength int    `json:"byteLength"`
}

// LocalMatrix returns the node's local transform. A matrix, when present,
// wins over TRS as the format requires.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	if n.Matrix != nil {
		return mgl32.Mat4(*n.Matrix)
	}
	m := mgl32.Ident4()
	if n.Translation != nil {
		t := n.Translation
		m = m.Mul4(mgl32.Translate3D(t[0], t[1], t[2]))
	}
	if n.Rotation != nil {
		r := n.Rotation
		q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
		m = m.Mul4(q.Normalize().Mat4())
	}
	if n.Scale != nil {
		s := n.Scale
		m = m.Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	}
	return m
}

// RootNodes returns the node indices of the default scene, or every node
// that is nobody's child when no scene is declared.
func (d *Document) RootNodes() []int {
	if len(d.Scenes) > 0 {
		idx := 0
		if d.Scene != nil && *d.Scene >= 0 && *d.Scene < len(d.Scenes) {
			idx = *d.Scene
		}
		return d.Scenes[idx].Nodes
	}
	isChild := make([]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range d.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// Walk visits every node reachable from the root nodes depth-first,
// passing the world matrix relative to the document root. Cycles and
// out-of-range indices are skipped.
func (d *Document) Walk(fn func(index int, node *Node, world mgl32.Mat4)) {
	visited := make([]bool, len(d.Nodes))
	var visit func(i int, parent mgl32.Mat4)
	visit = func(i int, parent mgl32.Mat4) {
		if i < 0 || i >= len(d.Nodes) || visited[i] {
			return
		}
		visited[i] = true
		n := &d.Nodes[i]
		world := parent.Mul4(n.LocalMatrix())
		fn(i, n, world)
		for _, c := range n.Children {
			visit(c, world)
		}
	}
	for _, r := range d.RootNodes() {
		visit(r, mgl32.Ident4())
	}
}
