package rlhost

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	gizmoLength  float32 = 2.0
	gizmoTipSize float32 = 0.2
	gizmoHitDist float32 = 0.3
)

var gizmoAxes = [3]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

var gizmoColors = [3]rl.Color{rl.Red, rl.Green, rl.Blue}

// Gizmo is a world-axis translate handle for the selected node. A drag
// produces a new world matrix; the caller writes it back to the tree.
type Gizmo struct {
	dragging    bool
	axis        mgl32.Vec3
	start       float32
	origin      mgl32.Vec3
	planeNormal mgl32.Vec3
	initial     mgl32.Mat4

	Hovered int
}

func NewGizmo() *Gizmo { return &Gizmo{Hovered: -1} }

func (g *Gizmo) Dragging() bool { return g.dragging }

// AxisAt returns the index of the axis handle under r, or -1.
func (g *Gizmo) AxisAt(r Ray, center mgl32.Vec3) int {
	best, bestDist := -1, gizmoHitDist
	for i, axis := range gizmoAxes {
		_, t2, dist := closestPointBetweenRays(r.Origin, r.Dir, center, axis)
		if t2 > 0 && t2 < gizmoLength && dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// Begin starts dragging axis i of the node at world. eye is the camera
// position and orients the drag plane toward the viewer.
func (g *Gizmo) Begin(i int, world mgl32.Mat4, r Ray, eye mgl32.Vec3) bool {
	if i < 0 || i >= len(gizmoAxes) {
		return false
	}
	origin := world.Col(3).Vec3()
	axis := gizmoAxes[i]
	view := origin.Sub(eye)
	if view.Len() < 1e-6 {
		return false
	}
	normal := axis.Cross(view.Normalize().Cross(axis))
	if normal.Len() < 1e-6 {
		return false
	}
	normal = normal.Normalize()
	pt, ok := rayPlaneIntersect(r, origin, normal)
	if !ok {
		return false
	}
	*g = Gizmo{
		dragging:    true,
		axis:        axis,
		start:       pt.Sub(origin).Dot(axis),
		origin:      origin,
		planeNormal: normal,
		initial:     world,
		Hovered:     i,
	}
	return true
}

// Drag returns the world matrix for the current pointer ray.
func (g *Gizmo) Drag(r Ray) (mgl32.Mat4, bool) {
	if !g.dragging {
		return mgl32.Mat4{}, false
	}
	pt, ok := rayPlaneIntersect(r, g.origin, g.planeNormal)
	if !ok {
		return mgl32.Mat4{}, false
	}
	delta := pt.Sub(g.origin).Dot(g.axis) - g.start
	offset := g.axis.Mul(delta)
	return mgl32.Translate3D(offset.X(), offset.Y(), offset.Z()).Mul4(g.initial), true
}

func (g *Gizmo) End() {
	g.dragging = false
}

func (g *Gizmo) draw(center mgl32.Vec3) {
	c := toVec3(center)
	for i, axis := range gizmoAxes {
		color := gizmoColors[i]
		if i == g.Hovered {
			color = rl.Yellow
		}
		tip := toVec3(center.Add(axis.Mul(gizmoLength)))
		rl.DrawLine3D(c, tip, color)
		rl.DrawCubeV(tip, rl.Vector3{X: gizmoTipSize, Y: gizmoTipSize, Z: gizmoTipSize}, color)
	}
}
