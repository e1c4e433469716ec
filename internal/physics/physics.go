// Package physics is the rigid-body collaborator of the renderer: bodies of
// type fixed, dynamic or kinematic with a collider shape, batched body sets
// for instanced nodes, and contact events carrying node ids.
package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/transform"
)

type BodyType string

const (
	Fixed     BodyType = "fixed"
	Dynamic   BodyType = "dynamic"
	Kinematic BodyType = "kinematic"
)

// ParseBodyType accepts the persisted spellings of a body type.
func ParseBodyType(s string) (BodyType, bool) {
	switch BodyType(s) {
	case Fixed, Dynamic, Kinematic:
		return BodyType(s), true
	case "kinematicPosition", "kinematicVelocity":
		return Kinematic, true
	}
	return "", false
}

type ColliderShape string

const (
	Trimesh ColliderShape = "trimesh"
	Hull    ColliderShape = "hull"
	Cuboid  ColliderShape = "cuboid"
	Ball    ColliderShape = "ball"
)

// DefaultCollider is exact geometry for fixed bodies and a convex hull for
// everything that moves.
func DefaultCollider(t BodyType) ColliderShape {
	if t == Fixed {
		return Trimesh
	}
	return Hull
}

// ParseCollider returns the collider for s, falling back to the default
// for t when s is empty or unknown.
func ParseCollider(s string, t BodyType) ColliderShape {
	switch ColliderShape(s) {
	case Trimesh, Hull, Cuboid, Ball:
		return ColliderShape(s)
	}
	return DefaultCollider(t)
}

type BodyHandle int

type BatchHandle int

// BodySpec describes a single body. HalfExtents are the local bounds of the
// collision geometry before scaling.
type BodySpec struct {
	ID          string
	Type        BodyType
	Collider    ColliderShape
	Pose        transform.Pose
	HalfExtents mgl32.Vec3
	Mass        float32
	Restitution float32
	Friction    float32
	Sensor      bool
}

// BatchInstance is one member of a batched body set.
type BatchInstance struct {
	ID   string
	Pose transform.Pose
}

// BatchSpec creates one collider per instance sharing type, shape and
// geometry.
type BatchSpec struct {
	Key         string
	Type        BodyType
	Collider    ColliderShape
	HalfExtents mgl32.Vec3
	Instances   []BatchInstance
}

type EventKind int

const (
	CollisionEnter EventKind = iota
	CollisionExit
	IntersectionEnter
	IntersectionExit
)

func (k EventKind) String() string {
	switch k {
	case CollisionEnter:
		return "collision-enter"
	case CollisionExit:
		return "collision-exit"
	case IntersectionEnter:
		return "intersection-enter"
	default:
		return "intersection-exit"
	}
}

// ContactEvent names the two participating nodes.
type ContactEvent struct {
	Kind EventKind
	A, B string
}

// World is what the renderer and batching provider consume.
type World interface {
	CreateBody(spec BodySpec) BodyHandle
	RemoveBody(h BodyHandle)
	SetPose(h BodyHandle, pose transform.Pose)
	Pose(h BodyHandle) (transform.Pose, bool)
	CreateBatch(spec BatchSpec) BatchHandle
	RemoveBatch(h BatchHandle)
	// BatchPoses reports the members of a batch with their current poses,
	// in the order they were created.
	BatchPoses(h BatchHandle) []BatchInstance
	Step(dt float32)
	// Events drains the contact events produced since the last call.
	Events() []ContactEvent
}
