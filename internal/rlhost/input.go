package rlhost

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/scene"
)

type pointerState struct {
	down bool
}

// Pick returns the nearest mounted object or instance proxy under r.
func (h *Host) Pick(r Ray) (string, bool) {
	return nearest(r, targets(h.objects, h.proxies))
}

// MouseRay is the world ray under the mouse cursor.
func MouseRay(cam *OrbitCamera) Ray {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), cam.Camera3D())
	return Ray{Origin: fromVec3(ray.Position), Dir: fromVec3(ray.Direction)}
}

// HandleInput routes this frame's left-button input. A press on the
// selected node's gizmo starts a drag that writes back through
// ApplyGizmo; anything else feeds the renderer's click protocol. blocked
// is set while the pointer is over UI and suppresses new presses.
func (h *Host) HandleInput(r *scene.Renderer, cam *OrbitCamera, blocked bool) {
	if !r.EditMode() {
		h.gizmo.End()
		h.pointer = pointerState{}
		return
	}
	ray := MouseRay(cam)
	mouse := rl.GetMousePosition()
	sel := r.Selected()

	if h.gizmo.Dragging() {
		if !rl.IsMouseButtonDown(rl.MouseLeftButton) {
			h.gizmo.End()
			return
		}
		if world, ok := h.gizmo.Drag(ray); ok {
			r.ApplyGizmo(sel, world)
		}
		return
	}

	var center mgl32.Vec3
	world, hasSel := r.WorldMatrix(sel)
	if sel != "" && hasSel {
		center = world.Col(3).Vec3()
		h.gizmo.Hovered = h.gizmo.AxisAt(ray, center)
	} else {
		h.gizmo.Hovered = -1
	}

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) && !blocked {
		if h.gizmo.Hovered >= 0 && h.gizmo.Begin(h.gizmo.Hovered, world, ray, cam.Position()) {
			return
		}
		id, _ := h.Pick(ray)
		r.PointerDown(id, mouse.X, mouse.Y)
		h.pointer.down = true
		return
	}
	if !h.pointer.down {
		return
	}
	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		r.PointerMove(mouse.X, mouse.Y)
		return
	}
	h.pointer.down = false
	if id, ok := h.Pick(ray); ok {
		r.PointerUp(id, mouse.X, mouse.Y)
	} else {
		r.PointerMissed()
	}
}
