package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/transform"
)

type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABBFromCenter creates an AABB from a center point and half extents.
func NewAABBFromCenter(center, half mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

// BoundsOf returns the world AABB of a box with local half extents placed
// at pose. Rotation is folded in so the box always fits.
func BoundsOf(pose transform.Pose, half mgl32.Vec3) AABB {
	scaled := mgl32.Vec3{
		half.X() * abs(pose.Scale.X()),
		half.Y() * abs(pose.Scale.Y()),
		half.Z() * abs(pose.Scale.Z()),
	}
	r := mgl32.Rotate3DX(pose.Rotation.X()).
		Mul3(mgl32.Rotate3DY(pose.Rotation.Y())).
		Mul3(mgl32.Rotate3DZ(pose.Rotation.Z()))
	var world mgl32.Vec3
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			world[row] += abs(r.At(row, col)) * scaled[col]
		}
	}
	return NewAABBFromCenter(pose.Position, world)
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min.X() <= b.Max.X() && a.Max.X() >= b.Min.X() &&
		a.Min.Y() <= b.Max.Y() && a.Max.Y() >= b.Min.Y() &&
		a.Min.Z() <= b.Max.Z() && a.Max.Z() >= b.Min.Z()
}

// Resolve returns the minimum translation vector to push a out of b, or the
// zero vector when they do not overlap.
func (a AABB) Resolve(b AABB) mgl32.Vec3 {
	if !a.Intersects(b) {
		return mgl32.Vec3{}
	}

	// penetration depth per direction
	depths := [6]float32{
		b.Max.X() - a.Min.X(), // +X
		a.Max.X() - b.Min.X(), // -X
		b.Max.Y() - a.Min.Y(), // +Y
		a.Max.Y() - b.Min.Y(), // -Y
		b.Max.Z() - a.Min.Z(), // +Z
		a.Max.Z() - b.Min.Z(), // -Z
	}
	best := 0
	for i := 1; i < len(depths); i++ {
		if depths[i] < depths[best] {
			best = i
		}
	}
	var out mgl32.Vec3
	axis := best / 2
	if best%2 == 0 {
		out[axis] = depths[best]
	} else {
		out[axis] = -depths[best]
	}
	return out
}

func abs(x float32) float32 {
	return float32(math.Abs(float64(x)))
}
