package transform

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prefabforge/internal/prefab"
)

const eps = 1e-4

func translated(id string, x float64, children ...*prefab.GameObject) *prefab.GameObject {
	return &prefab.GameObject{
		ID: id,
		Components: map[string]*prefab.ComponentData{
			prefab.KeyTransform: {Type: "Transform", Properties: map[string]any{
				"position": []any{x, 0.0, 0.0},
				"rotation": []any{0.0, 0.0, 0.0},
				"scale":    []any{1.0, 1.0, 1.0},
			}},
		},
		Children: children,
	}
}

func TestIdentityMatrix(t *testing.T) {
	assert.True(t, Identity().Matrix().ApproxEqual(mgl32.Ident4()))
	assert.True(t, FromComponent(nil).ApproxEqual(Identity(), eps))
}

func TestRoundTripSingleAxis(t *testing.T) {
	angles := []float32{-3.0, -2.0, -1.0, -0.3, 0, 0.5, 1.2, 2.5, 3.0}
	for axis := 0; axis < 3; axis++ {
		for _, a := range angles {
			if axis == 1 && math.Abs(float64(a)) > 1.5 {
				// y beyond +-pi/2 decomposes to an equivalent (x+pi, pi-y, z+pi)
				continue
			}
			p := Pose{Position: mgl32.Vec3{1, -2, 3}, Scale: mgl32.Vec3{1, 2, 0.5}}
			p.Rotation[axis] = a

			got := Decompose(p.Matrix())

			assert.True(t, got.ApproxEqual(p, eps), "axis %d angle %v: got %+v", axis, a, got)
		}
	}
}

func TestRoundTripCombined(t *testing.T) {
	rots := []mgl32.Vec3{
		{0.3, -0.7, 1.1},
		{-2.9, 0.4, 2.2},
		{1.5, 1.3, -3.0},
		{-0.1, -1.4, 0.2},
	}
	for _, r := range rots {
		p := Pose{Position: mgl32.Vec3{-4, 0.25, 7}, Rotation: r, Scale: mgl32.Vec3{2, 3, 4}}

		got := Decompose(p.Matrix())

		assert.True(t, got.ApproxEqual(p, eps), "rotation %v: got %+v", r, got)
	}
}

func TestRoundTripEquivalentMatrix(t *testing.T) {
	// Angles on the +-pi seam may come back with the other sign; the
	// recomposed matrix must still match.
	for _, r := range []mgl32.Vec3{{math.Pi, 0, 0}, {0, 0, -math.Pi}, {3.1, 1.9, -2.8}} {
		p := Pose{Rotation: r, Scale: mgl32.Vec3{1, 1, 1}}
		m := p.Matrix()

		back := Decompose(m).Matrix()

		for i := range m {
			assert.InDelta(t, m[i], back[i], eps, "rotation %v element %d", r, i)
		}
	}
}

func TestApproxEqualToleratesNoiseAroundZero(t *testing.T) {
	a := Pose{Rotation: mgl32.Vec3{-math.Pi, 0, 8.7e-8}, Scale: mgl32.Vec3{1, 1, 1}}
	b := Pose{Rotation: mgl32.Vec3{-math.Pi, -6e-8, -8.7e-8}, Scale: mgl32.Vec3{1, 1, 1}}
	assert.True(t, a.ApproxEqual(b, eps))

	b.Rotation[1] = 0.01
	assert.False(t, a.ApproxEqual(b, eps))
}

func TestDecomposeNegativeScale(t *testing.T) {
	p := Pose{Scale: mgl32.Vec3{-2, 1, 1}}

	got := Decompose(p.Matrix())

	assert.True(t, got.ApproxEqual(p, eps), "got %+v", got)
}

func TestWorldCompositionChain(t *testing.T) {
	root := translated("root", 1, translated("A", 1, translated("B", 1)))

	world, ok := World(root, "B")
	require.True(t, ok)
	pos := Decompose(world).Position

	assert.InDelta(t, 3, pos.X(), eps)
	assert.InDelta(t, 0, pos.Y(), eps)
	assert.InDelta(t, 0, pos.Z(), eps)

	parent, ok := ParentWorld(root, "B")
	require.True(t, ok)
	assert.InDelta(t, 2, parent.Col(3).X(), eps)

	_, ok = World(root, "missing")
	assert.False(t, ok)
}

func TestMissingTransformIsIdentity(t *testing.T) {
	root := &prefab.GameObject{ID: "root", Children: []*prefab.GameObject{translated("A", 5)}}

	world, ok := World(root, "A")
	require.True(t, ok)
	assert.InDelta(t, 5, world.At(0, 3), eps)
}

func TestApplyKeepsExtraProperties(t *testing.T) {
	c := &prefab.ComponentData{Type: "Transform", Properties: map[string]any{"locked": true}}
	p := Pose{Position: mgl32.Vec3{1, 2, 3}, Scale: mgl32.Vec3{1, 1, 1}}

	out := p.Apply(c)

	assert.Equal(t, true, out.Properties["locked"])
	v, ok := out.Vec3("position")
	require.True(t, ok)
	assert.Equal(t, [3]float64{1, 2, 3}, v)
	assert.NotContains(t, c.Properties, "position", "input untouched")
}
