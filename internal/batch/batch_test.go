package batch

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prefabforge/internal/assets"
	"prefabforge/internal/gltf"
	"prefabforge/internal/physics"
)

type fakeModels map[string]assets.Entry

func (f fakeModels) Request(path string) assets.State {
	if e, ok := f[path]; ok {
		return e.State
	}
	f[path] = assets.Entry{Path: path, State: assets.Loading}
	return assets.Loading
}

func (f fakeModels) Get(path string) assets.Entry { return f[path] }

func (f fakeModels) ready(path string, parts ...string) {
	m := &assets.Model{Path: path}
	for i, name := range parts {
		m.Parts = append(m.Parts, assets.Part{Name: name, Mesh: i, Local: mgl32.Ident4()})
	}
	f[path] = assets.Entry{Path: path, State: assets.Ready, Model: m}
}

func rock(id string, x float32, phys physics.BodyType) Instance {
	return Instance{ID: id, World: mgl32.Translate3D(x, 0, 0), Asset: "rock.glb", Physics: phys}
}

func newProvider() (*Provider, fakeModels, *physics.Sim) {
	models := fakeModels{}
	models.ready("rock.glb", "body", "moss")
	sim := physics.NewSim(mgl32.Vec3{}, 0, nil)
	return NewProvider(models, sim, nil), models, sim
}

func TestGroupingByAssetAndPhysics(t *testing.T) {
	p, _, sim := newProvider()
	for i := 0; i < 5; i++ {
		p.Register(rock(fmt.Sprintf("fixed-%d", i), float32(i*3), physics.Fixed))
	}
	for i := 0; i < 3; i++ {
		p.Register(rock(fmt.Sprintf("loose-%d", i), float32(i*3), ""))
	}

	changed := p.Sync()

	require.Len(t, changed, 2)
	groups := p.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, GroupKey{Asset: "rock.glb", Physics: "fixed"}, groups[0].Key)
	assert.Len(t, groups[0].Instances, 5)
	assert.Len(t, groups[0].Matrices, 5)
	assert.NotZero(t, groups[0].Batch)
	assert.Equal(t, GroupKey{Asset: "rock.glb", Physics: NoPhysics}, groups[1].Key)
	assert.Len(t, groups[1].Instances, 3)
	assert.Zero(t, groups[1].Batch)
	assert.Equal(t, 5, sim.BodyCount(), "one collider per physics instance")
	assert.Len(t, groups[0].Parts, 2)
	assert.Same(t, groups[0].Parts[0], groups[1].Parts[0], "baked once per asset")
}

func TestRegisterIsIdempotent(t *testing.T) {
	p, _, _ := newProvider()
	assert.True(t, p.Register(rock("a", 0, "")))
	p.Sync()

	assert.False(t, p.Register(rock("a", 0, "")))
	assert.Empty(t, p.Sync())

	g, ok := p.Group(GroupKey{Asset: "rock.glb", Physics: NoPhysics})
	require.True(t, ok)
	assert.Equal(t, 1, g.Revision)

	assert.True(t, p.Register(rock("a", 1, "")))
	require.Len(t, p.Sync(), 1)
	assert.Equal(t, 2, g.Revision)
	assert.Equal(t, mgl32.Translate3D(1, 0, 0), g.Matrices[0])
}

func TestUnchangedDigestSkipsRebuild(t *testing.T) {
	p, _, _ := newProvider()
	p.Register(rock("a", 0, ""))
	p.Sync()

	// move away and back before syncing
	p.Register(rock("a", 5, ""))
	p.Register(rock("a", 0, ""))

	assert.Empty(t, p.Sync())
}

func TestPhysicsChangeMovesBetweenGroups(t *testing.T) {
	p, _, sim := newProvider()
	p.Register(rock("a", 0, physics.Fixed))
	p.Register(rock("b", 3, physics.Fixed))
	p.Sync()
	require.Equal(t, 2, sim.BodyCount())

	p.Register(rock("a", 0, ""))
	changed := p.Sync()

	assert.Len(t, changed, 2)
	fixed, _ := p.Group(GroupKey{Asset: "rock.glb", Physics: "fixed"})
	assert.Len(t, fixed.Instances, 1)
	assert.Equal(t, 1, sim.BodyCount(), "batch recreated without the moved instance")
}

func TestPendingAssetRebuildsWhenReady(t *testing.T) {
	models := fakeModels{}
	p := NewProvider(models, nil, nil)
	p.Register(Instance{ID: "a", World: mgl32.Ident4(), Asset: "tree.glb"})

	changed := p.Sync()
	require.Len(t, changed, 1)
	assert.Nil(t, changed[0].Parts)
	assert.Equal(t, assets.Loading, models["tree.glb"].State, "register requests the asset")

	assert.Empty(t, p.Sync(), "still loading")

	models.ready("tree.glb", "trunk")
	changed = p.Sync()
	require.Len(t, changed, 1)
	assert.Len(t, changed[0].Parts, 1)
}

func TestBakedGeometryDisposedWhenUnused(t *testing.T) {
	p, models, _ := newProvider()
	models.ready("tree.glb", "trunk", "leaves")
	var released []string
	p.Release = func(part *BakedPart) { released = append(released, part.Asset+"/"+part.Name) }

	p.Register(rock("a", 0, ""))
	p.Register(Instance{ID: "t", World: mgl32.Ident4(), Asset: "tree.glb"})
	p.Sync()
	rockParts := p.Groups()[0].Parts

	p.Unregister("a")
	changed := p.Sync()

	require.Len(t, changed, 1)
	assert.Empty(t, changed[0].Instances)
	assert.Equal(t, []string{"rock.glb/body", "rock.glb/moss"}, released)
	assert.True(t, rockParts[0].Disposed)
	assert.Len(t, p.Groups(), 1)

	p.Dispose()
	assert.Len(t, released, 4)
	assert.Empty(t, p.Groups())
	assert.False(t, p.Unregister("t"))
}

func TestProxies(t *testing.T) {
	p, _, _ := newProvider()
	p.Register(rock("b", 4, ""))
	p.Register(rock("a", 0, physics.Fixed))

	proxies := p.Proxies()

	require.Len(t, proxies, 2)
	assert.Equal(t, "a", proxies[0].ID)
	assert.InDelta(t, 4, proxies[1].Bounds.Center().X(), 1e-5)
	assert.True(t, p.Has("b"))
}

func TestBakeFlattensTriangles(t *testing.T) {
	m := &assets.Model{Path: "wedge.glb", Parts: []assets.Part{
		{Name: "face", Local: mgl32.Translate3D(0, 1, 0), Geometry: gltf.Geometry{
			Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 0, 1},
			Indices:   []uint32{0, 1, 2, 0, 2, 3},
		}},
		{Name: "empty", Local: mgl32.Ident4()},
	}}

	parts := Bake(m)

	require.Len(t, parts, 2)
	assert.Equal(t, 2, parts[0].TriangleCount())
	assert.Len(t, parts[0].Vertices, 18)
	assert.Equal(t, []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, parts[0].Vertices[:9])
	assert.Equal(t, []float32{0, 0, 1}, parts[0].Normals[:3], "counter-clockwise face points at +z")
	assert.Equal(t, mgl32.Translate3D(0, 1, 0), parts[0].Local)
	assert.Zero(t, parts[1].TriangleCount())
}

func TestExtentsFollowModelBounds(t *testing.T) {
	p, models, sim := newProvider()
	models["boulder.glb"] = assets.Entry{Path: "boulder.glb", State: assets.Ready, Model: &assets.Model{
		Path: "boulder.glb",
		Parts: []assets.Part{{Local: mgl32.Translate3D(0, 1, 0), Geometry: gltf.Geometry{
			Positions: []float32{-2, -1, -0.5, 2, 1, 0.5, 0, 0, 0},
			Indices:   []uint32{0, 1, 2},
			Min:       mgl32.Vec3{-2, -1, -0.5},
			Max:       mgl32.Vec3{2, 1, 0.5},
		}}},
	}}
	p.Register(Instance{ID: "b", World: mgl32.Ident4(), Asset: "boulder.glb", Physics: physics.Fixed})
	p.Register(rock("r", 10, ""))
	p.Sync()

	g, ok := p.Group(GroupKey{Asset: "boulder.glb", Physics: "fixed"})
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{2, 2, 0.5}, g.HalfExtents)
	assert.Equal(t, 1, sim.BodyCount())

	proxies := p.Proxies()
	require.Len(t, proxies, 2)
	assert.InDelta(t, 2, proxies[0].Bounds.Max.X(), 1e-5)
	assert.InDelta(t, 2, proxies[0].Bounds.Max.Y(), 1e-5)
	assert.InDelta(t, 10.5, proxies[1].Bounds.Max.X(), 1e-5, "no geometry falls back to the default box")
}

func TestRefreshCopiesSimulatedPoses(t *testing.T) {
	models := fakeModels{}
	models.ready("rock.glb", "body")
	sim := physics.NewSim(mgl32.Vec3{0, -10, 0}, 0, nil)
	p := NewProvider(models, sim, nil)
	p.Register(rock("falling", 0, physics.Dynamic))
	p.Register(rock("resting", 5, physics.Fixed))
	p.Sync()

	sim.Step(0.5)
	moved := p.Refresh()

	require.Len(t, moved, 1)
	assert.Equal(t, "dynamic", moved[0].Key.Physics)
	w, ok := p.World("falling")
	require.True(t, ok)
	assert.Less(t, w.Col(3).Y(), float32(0))
	w, _ = p.World("resting")
	assert.Equal(t, mgl32.Translate3D(5, 0, 0), w)
	inst, _ := p.Instance("falling")
	assert.Equal(t, mgl32.Translate3D(0, 0, 0), inst.World, "registered record stays canonical")

	p.Invalidate()
	p.Sync()
	w, _ = p.World("falling")
	assert.Equal(t, mgl32.Translate3D(0, 0, 0), w)
	_, ok = p.World("nobody")
	assert.False(t, ok)
}
