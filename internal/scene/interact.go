package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/logging"
	"prefabforge/internal/prefab"
	"prefabforge/internal/transform"
)

// ApplyGizmo writes a dragged world matrix back into the tree as the node's
// local transform and fires OnPrefabChange. The parent's world matrix is
// recomputed from the tree rather than taken from the render cache. Nodes
// without a transform component are left alone.
func (r *Renderer) ApplyGizmo(id string, world mgl32.Mat4) bool {
	if r.prefab == nil || r.prefab.Root == nil {
		return false
	}
	node := prefab.FindNode(r.prefab.Root, id)
	if node == nil {
		return false
	}
	tc := node.Component(prefab.KeyTransform)
	if tc == nil {
		return false
	}
	parent, _ := transform.ParentWorld(r.prefab.Root, id)
	if parent.Det() == 0 {
		r.log.Warn("gizmo ignored under degenerate parent", logging.String("node", id))
		return false
	}
	pose := transform.Decompose(parent.Inv().Mul4(world))
	root := prefab.UpdateNode(r.prefab.Root, id, func(g *prefab.GameObject) *prefab.GameObject {
		return g.WithComponent(prefab.KeyTransform, pose.Apply(tc))
	})
	r.prefab = r.prefab.WithRoot(root)
	r.render()
	r.OnPrefabChange.Invoke(r.prefab)
	return true
}

// PointerDown starts a potential click on node id at screen position x, y.
func (r *Renderer) PointerDown(id string, x, y float32) {
	if !r.opts.EditMode {
		return
	}
	r.ptr = pointer{down: true, id: id, x: x, y: y}
}

// PointerMove marks the gesture as a drag once it leaves the click
// tolerance, typically because the camera is being orbited.
func (r *Renderer) PointerMove(x, y float32) {
	if !r.ptr.down || r.ptr.moved {
		return
	}
	if r.beyondTolerance(x, y) {
		r.ptr.moved = true
	}
}

// PointerUp selects id when the gesture was a click on the same node.
func (r *Renderer) PointerUp(id string, x, y float32) {
	p := r.ptr
	r.ptr = pointer{}
	if !p.down || p.moved || p.id != id || r.beyondToleranceFrom(p, x, y) {
		return
	}
	r.setSelection(id, true)
}

// PointerMissed clears the selection after a click on empty space. Drags
// that end off any object keep it.
func (r *Renderer) PointerMissed() {
	p := r.ptr
	r.ptr = pointer{}
	if !r.opts.EditMode || p.moved {
		return
	}
	r.setSelection("", true)
}

func (r *Renderer) beyondTolerance(x, y float32) bool {
	return r.beyondToleranceFrom(r.ptr, x, y)
}

func (r *Renderer) beyondToleranceFrom(p pointer, x, y float32) bool {
	d := mgl32.Vec2{x - p.x, y - p.y}.Len()
	return d > r.opts.ClickTolerance
}
