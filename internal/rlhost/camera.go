package rlhost

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitCamera circles a target point. Right drag orbits, middle drag pans
// and the wheel zooms.
type OrbitCamera struct {
	Target    mgl32.Vec3
	Distance  float32
	Yaw       float32
	Pitch     float32
	LookSpeed float32
	PanSpeed  float32
	ZoomSpeed float32
}

func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:  12,
		Yaw:       -135.0,
		Pitch:     -30.0,
		LookSpeed: 0.3,
		PanSpeed:  0.01,
		ZoomSpeed: 1.0,
	}
}

// Update applies this frame's mouse input unless the pointer is over UI.
func (c *OrbitCamera) Update(blocked bool) {
	if blocked {
		return
	}
	delta := rl.GetMouseDelta()
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		c.Orbit(delta.X*c.LookSpeed, -delta.Y*c.LookSpeed)
	}
	if rl.IsMouseButtonDown(rl.MouseMiddleButton) {
		c.Pan(-delta.X*c.PanSpeed*c.Distance, delta.Y*c.PanSpeed*c.Distance)
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		c.Zoom(-wheel * c.ZoomSpeed)
	}
}

func (c *OrbitCamera) Orbit(dyaw, dpitch float32) {
	c.Yaw += dyaw
	c.Pitch += dpitch
	if c.Pitch > 89 {
		c.Pitch = 89
	}
	if c.Pitch < -89 {
		c.Pitch = -89
	}
}

// Pan moves the target in the camera's screen plane.
func (c *OrbitCamera) Pan(dx, dy float32) {
	forward := c.forward()
	right := forward.Cross(mgl32.Vec3{0, 1, 0})
	if right.Len() < 1e-6 {
		right = mgl32.Vec3{1, 0, 0}
	}
	up := right.Normalize().Cross(forward)
	c.Target = c.Target.Add(right.Normalize().Mul(dx)).Add(up.Mul(dy))
}

func (c *OrbitCamera) Zoom(d float32) {
	c.Distance += d
	if c.Distance < 1 {
		c.Distance = 1
	}
}

// Focus centers the orbit on p at a distance that fits radius.
func (c *OrbitCamera) Focus(p mgl32.Vec3, radius float32) {
	c.Target = p
	c.Distance = radius * 3
	if c.Distance < 3 {
		c.Distance = 3
	}
}

// forward points from the eye toward the target.
func (c *OrbitCamera) forward() mgl32.Vec3 {
	yaw := float64(c.Yaw) * math.Pi / 180
	pitch := float64(c.Pitch) * math.Pi / 180
	return mgl32.Vec3{
		float32(math.Cos(yaw) * math.Cos(pitch)),
		float32(math.Sin(pitch)),
		float32(math.Sin(yaw) * math.Cos(pitch)),
	}
}

func (c *OrbitCamera) Position() mgl32.Vec3 {
	return c.Target.Sub(c.forward().Mul(c.Distance))
}

func (c *OrbitCamera) Camera3D() rl.Camera3D {
	return rl.Camera3D{
		Position:   toVec3(c.Position()),
		Target:     toVec3(c.Target),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
}
