// Package transform converts between the persisted pose of a node
// (position, Euler XYZ rotation in radians, scale) and 4x4 matrices.
package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/prefab"
)

// Pose is a decomposed local or world transform.
type Pose struct {
	Position mgl32.Vec3
	Rotation mgl32.Vec3 // Euler XYZ, radians
	Scale    mgl32.Vec3
}

// Identity is the pose of a node without a transform component.
func Identity() Pose {
	return Pose{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix composes T * Rx * Ry * Rz * S.
func (p Pose) Matrix() mgl32.Mat4 {
	t := mgl32.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z())
	r := mgl32.HomogRotate3DX(p.Rotation.X()).
		Mul4(mgl32.HomogRotate3DY(p.Rotation.Y())).
		Mul4(mgl32.HomogRotate3DZ(p.Rotation.Z()))
	s := mgl32.Scale3D(p.Scale.X(), p.Scale.Y(), p.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Decompose splits an affine matrix into a Pose using the same Euler order
// as Matrix. Shear is discarded.
func Decompose(m mgl32.Mat4) Pose {
	var c [3][3]float64
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			c[col][row] = float64(m.At(row, col))
		}
	}
	sx := math.Sqrt(c[0][0]*c[0][0] + c[0][1]*c[0][1] + c[0][2]*c[0][2])
	sy := math.Sqrt(c[1][0]*c[1][0] + c[1][1]*c[1][1] + c[1][2]*c[1][2])
	sz := math.Sqrt(c[2][0]*c[2][0] + c[2][1]*c[2][1] + c[2][2]*c[2][2])
	if m.Det() < 0 {
		sx = -sx
	}

	// r(row, col) of the pure rotation
	r := func(row, col int) float64 {
		s := [3]float64{sx, sy, sz}[col]
		if s == 0 {
			return 0
		}
		return c[col][row] / s
	}

	var x, y, z float64
	y = math.Asin(clamp(r(0, 2), -1, 1))
	if math.Abs(r(0, 2)) < 0.9999999 {
		x = math.Atan2(-r(1, 2), r(2, 2))
		z = math.Atan2(-r(0, 1), r(0, 0))
	} else {
		x = math.Atan2(r(2, 1), r(1, 1))
		z = 0
	}

	return Pose{
		Position: mgl32.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)},
		Rotation: mgl32.Vec3{float32(x), float32(y), float32(z)},
		Scale:    mgl32.Vec3{float32(sx), float32(sy), float32(sz)},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FromComponent reads a transform component. Missing or malformed vectors
// fall back to the identity value for that vector.
func FromComponent(c *prefab.ComponentData) Pose {
	p := Identity()
	if c == nil {
		return p
	}
	if v, ok := c.Vec3("position"); ok {
		p.Position = vec(v)
	}
	if v, ok := c.Vec3("rotation"); ok {
		p.Rotation = vec(v)
	}
	if v, ok := c.Vec3("scale"); ok {
		p.Scale = vec(v)
	}
	return p
}

// Local returns the local matrix of a node.
func Local(g *prefab.GameObject) mgl32.Mat4 {
	return FromComponent(g.Component(prefab.KeyTransform)).Matrix()
}

// Properties renders the pose as JSON-friendly transform properties.
func (p Pose) Properties() map[string]any {
	return map[string]any{
		"position": list(p.Position),
		"rotation": list(p.Rotation),
		"scale":    list(p.Scale),
	}
}

// Apply writes the pose into c, keeping any other properties it carries.
func (p Pose) Apply(c *prefab.ComponentData) *prefab.ComponentData {
	out := &prefab.ComponentData{Type: "Transform", Properties: map[string]any{}}
	if c != nil {
		out.Type = c.Type
		for k, v := range c.Properties {
			out.Properties[k] = v
		}
	}
	for k, v := range p.Properties() {
		out.Properties[k] = v
	}
	return out
}

// ApproxEqual compares two poses component-wise within an absolute eps.
func (p Pose) ApproxEqual(o Pose, eps float32) bool {
	return near(p.Position, o.Position, eps) &&
		near(p.Rotation, o.Rotation, eps) &&
		near(p.Scale, o.Scale, eps)
}

func near(a, b mgl32.Vec3, eps float32) bool {
	for i := range a {
		if d := a[i] - b[i]; d > eps || d < -eps {
			return false
		}
	}
	return true
}

// World walks the chain from root to id and returns the composed world
// matrix, or false when id is not in the tree.
func World(root *prefab.GameObject, id string) (mgl32.Mat4, bool) {
	path := prefab.Path(root, id)
	if path == nil {
		return mgl32.Ident4(), false
	}
	m := mgl32.Ident4()
	for _, n := range path {
		m = m.Mul4(Local(n))
	}
	return m, true
}

// ParentWorld is World of the parent of id; identity for the root.
func ParentWorld(root *prefab.GameObject, id string) (mgl32.Mat4, bool) {
	path := prefab.Path(root, id)
	if path == nil {
		return mgl32.Ident4(), false
	}
	m := mgl32.Ident4()
	for _, n := range path[:len(path)-1] {
		m = m.Mul4(Local(n))
	}
	return m, true
}

func vec(v [3]float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func list(v mgl32.Vec3) []any {
	return []any{float64(v[0]), float64(v[1]), float64(v[2])}
}
