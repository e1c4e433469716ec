// Package export writes a prefab as a glTF binary scene. Only the node
// hierarchy is written; geometry stays with the source assets, which are
// referenced from each node's extras.
package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/gltf"
	"prefabforge/internal/prefab"
	"prefabforge/internal/transform"
)

const Generator = "prefabforge"

// Document converts the enabled part of the tree into a glTF document with
// one node per GameObject.
func Document(p *prefab.Prefab) (*gltf.Document, error) {
	if p == nil || p.Root == nil {
		return nil, fmt.Errorf("export: %w", prefab.ErrMalformed)
	}
	doc := &gltf.Document{Asset: gltf.Asset{Version: "2.0", Generator: Generator}}
	scene := 0
	doc.Scene = &scene
	root, ok := addNode(doc, p.Root)
	s := gltf.Scene{Name: p.Name}
	if ok {
		s.Nodes = []int{root}
	}
	doc.Scenes = []gltf.Scene{s}
	return doc, nil
}

// GLB writes the document as a GLB container with a JSON chunk only.
func GLB(w io.Writer, p *prefab.Prefab) error {
	doc, err := Document(p)
	if err != nil {
		return err
	}
	return gltf.WriteGLB(w, doc, nil)
}

// Bytes is GLB into memory.
func Bytes(p *prefab.Prefab) ([]byte, error) {
	var buf bytes.Buffer
	if err := GLB(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addNode(doc *gltf.Document, g *prefab.GameObject) (int, bool) {
	if g.Disabled {
		return 0, false
	}
	pose := transform.FromComponent(g.Component(prefab.KeyTransform))
	rot := transform.Pose{Rotation: pose.Rotation, Scale: mgl32.Vec3{1, 1, 1}}.Matrix()
	q := mgl32.Mat4ToQuat(rot).Normalize()

	n := gltf.Node{
		Name:        g.DisplayName(),
		Translation: &[3]float32{pose.Position[0], pose.Position[1], pose.Position[2]},
		Rotation:    &[4]float32{q.V[0], q.V[1], q.V[2], q.W},
		Scale:       &[3]float32{pose.Scale[0], pose.Scale[1], pose.Scale[2]},
		Extras:      extras(g),
	}
	index := len(doc.Nodes)
	doc.Nodes = append(doc.Nodes, n)

	var children []int
	for _, c := range g.Children {
		if ci, ok := addNode(doc, c); ok {
			children = append(children, ci)
		}
	}
	doc.Nodes[index].Children = children
	return index, true
}

func extras(g *prefab.GameObject) map[string]any {
	out := map[string]any{"id": g.ID}
	types := make([]string, 0, len(g.Components))
	for _, c := range g.Components {
		if c != nil {
			types = append(types, c.Type)
		}
	}
	if len(types) > 0 {
		sort.Strings(types)
		out["components"] = types
	}
	if m := g.Component(prefab.KeyModel); m != nil {
		if f := m.String("filename"); f != "" {
			out["model"] = f
		}
	}
	if g.Hidden {
		out["hidden"] = true
	}
	return out
}
