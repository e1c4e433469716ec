package physics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prefabforge/internal/transform"
)

func at(x, y, z float32) transform.Pose {
	p := transform.Identity()
	p.Position = mgl32.Vec3{x, y, z}
	return p
}

func TestDefaultCollider(t *testing.T) {
	assert.Equal(t, Trimesh, DefaultCollider(Fixed))
	assert.Equal(t, Hull, DefaultCollider(Dynamic))
	assert.Equal(t, Hull, DefaultCollider(Kinematic))
	assert.Equal(t, Ball, ParseCollider("ball", Fixed))
	assert.Equal(t, Trimesh, ParseCollider("", Fixed))
	assert.Equal(t, Hull, ParseCollider("spline", Dynamic))

	bt, ok := ParseBodyType("kinematicPosition")
	assert.True(t, ok)
	assert.Equal(t, Kinematic, bt)
	_, ok = ParseBodyType("ghost")
	assert.False(t, ok)
}

func TestDynamicBodyLandsOnFloor(t *testing.T) {
	s := NewSim(mgl32.Vec3{0, -9.81, 0}, 0, nil)
	floorPose := at(0, 0, 0)
	floorPose.Scale = mgl32.Vec3{10, 1, 10}
	s.CreateBody(BodySpec{ID: "floor", Type: Fixed, Pose: floorPose})
	box := s.CreateBody(BodySpec{ID: "box", Type: Dynamic, Pose: at(0, 2, 0)})

	var events []ContactEvent
	for i := 0; i < 120; i++ {
		s.Step(1.0 / 60)
		events = append(events, s.Events()...)
	}

	require.Len(t, events, 1)
	assert.Equal(t, ContactEvent{Kind: CollisionEnter, A: "floor", B: "box"}, events[0])
	pose, ok := s.Pose(box)
	require.True(t, ok)
	assert.InDelta(t, 1.0, pose.Position.Y(), 0.05)
}

func TestSensorEmitsIntersectionEvents(t *testing.T) {
	s := NewSim(mgl32.Vec3{}, 1, nil)
	s.CreateBody(BodySpec{ID: "trigger", Type: Fixed, Sensor: true, Pose: at(0, 0, 0)})
	mover := s.CreateBody(BodySpec{ID: "mover", Type: Kinematic, Pose: at(10, 0, 0)})

	s.Step(0.016)
	assert.Empty(t, s.Events())

	s.SetPose(mover, at(0.2, 0, 0))
	s.Step(0.016)
	assert.Equal(t, []ContactEvent{{Kind: IntersectionEnter, A: "trigger", B: "mover"}}, s.Events())

	s.Step(0.016)
	assert.Empty(t, s.Events(), "persisting contact is not re-reported")

	s.SetPose(mover, at(10, 0, 0))
	s.Step(0.016)
	assert.Equal(t, []ContactEvent{{Kind: IntersectionExit, A: "trigger", B: "mover"}}, s.Events())

	pose, _ := s.Pose(mover)
	assert.Equal(t, float32(10), pose.Position.X(), "kinematic bodies are not pushed")
}

func TestFixedBodiesIgnoreEachOther(t *testing.T) {
	s := NewSim(mgl32.Vec3{}, 0, nil)
	s.CreateBody(BodySpec{ID: "a", Type: Fixed, Pose: at(0, 0, 0)})
	s.CreateBody(BodySpec{ID: "b", Type: Fixed, Pose: at(0.1, 0, 0)})

	s.Step(0.016)

	assert.Empty(t, s.Events())
}

func TestBatchLifecycle(t *testing.T) {
	s := NewSim(mgl32.Vec3{}, 0, nil)
	h := s.CreateBatch(BatchSpec{
		Key:      "rock.glb|fixed",
		Type:     Fixed,
		Collider: Trimesh,
		Instances: []BatchInstance{
			{ID: "r1", Pose: at(0, 0, 0)},
			{ID: "r2", Pose: at(3, 0, 0)},
			{ID: "r3", Pose: at(6, 0, 0)},
		},
	})
	assert.Equal(t, 3, s.BodyCount())
	poses := s.BatchPoses(h)
	require.Len(t, poses, 3)
	assert.Equal(t, "r2", poses[1].ID)
	assert.Equal(t, mgl32.Vec3{3, 0, 0}, poses[1].Pose.Position)

	s.RemoveBatch(h)
	assert.Zero(t, s.BodyCount())
	assert.Empty(t, s.BatchPoses(h))
}

func TestDynamicBatchMembersFall(t *testing.T) {
	s := NewSim(mgl32.Vec3{0, -9.81, 0}, 0, nil)
	s.CreateBody(BodySpec{ID: "floor", Type: Fixed, Pose: at(0, 0, 0), HalfExtents: mgl32.Vec3{5, 0.5, 5}})
	h := s.CreateBatch(BatchSpec{Key: "rock.glb|dynamic", Type: Dynamic, Collider: Hull,
		Instances: []BatchInstance{{ID: "rock", Pose: at(0, 3, 0)}}})

	for i := 0; i < 180; i++ {
		s.Step(1.0 / 60)
	}

	poses := s.BatchPoses(h)
	require.Len(t, poses, 1)
	assert.InDelta(t, 1.0, poses[0].Pose.Position.Y(), 0.05)
}

func TestRemoveBodyDropsContacts(t *testing.T) {
	s := NewSim(mgl32.Vec3{}, 0, nil)
	s.CreateBody(BodySpec{ID: "trigger", Type: Fixed, Sensor: true, Pose: at(0, 0, 0)})
	mover := s.CreateBody(BodySpec{ID: "mover", Type: Kinematic, Pose: at(0, 0, 0)})
	s.Step(0.016)
	require.Len(t, s.Events(), 1)

	s.RemoveBody(mover)
	s.Step(0.016)

	assert.Empty(t, s.Events())
	_, ok := s.Pose(mover)
	assert.False(t, ok)
}

func TestAABBResolve(t *testing.T) {
	a := NewAABBFromCenter(mgl32.Vec3{0, 0.9, 0}, mgl32.Vec3{0.5, 0.5, 0.5})
	b := NewAABBFromCenter(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{5, 0.5, 5})

	push := a.Resolve(b)

	assert.InDelta(t, 0.1, push.Y(), 1e-5)
	assert.Zero(t, push.X())
	assert.Equal(t, mgl32.Vec3{}, a.Resolve(NewAABBFromCenter(mgl32.Vec3{9, 9, 9}, mgl32.Vec3{1, 1, 1})))
}

func TestBoundsOfRotatedBox(t *testing.T) {
	p := transform.Identity()
	p.Rotation = mgl32.Vec3{0, 0, mgl32.DegToRad(90)}
	p.Scale = mgl32.Vec3{2, 1, 1}

	box := BoundsOf(p, mgl32.Vec3{0.5, 0.5, 0.5})

	assert.InDelta(t, 0.5, box.Max.X(), 1e-5)
	assert.InDelta(t, 1.0, box.Max.Y(), 1e-5)
}
