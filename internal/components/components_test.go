package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prefabforge/internal/assets"
	"prefabforge/internal/engine"
)

type fakeAssets map[string]assets.State

func (f fakeAssets) State(path string) assets.State { return f[path] }

func (f fakeAssets) Request(path string) assets.State {
	if _, ok := f[path]; !ok {
		f[path] = assets.Loading
	}
	return f[path]
}

func view(t *testing.T, name string, ctx engine.ViewContext, props map[string]any, inner []engine.Visual) []engine.Visual {
	t.Helper()
	d, ok := NewRegistry().Get(name)
	require.True(t, ok, name)
	require.NotNil(t, d.View, name)
	return d.View(ctx, props, inner)
}

func TestBuiltinRegistry(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{
		"AmbientLight", "DirectionalLight", "Geometry", "Material", "Model",
		"Physics", "PointLight", "SpotLight", "Text", "Transform",
	}, r.Names())

	for _, name := range r.Names() {
		d, _ := r.Get(name)
		assert.NotNil(t, d.Editor, name)
		assert.NotEmpty(t, d.Editor(d.DefaultProperties), name)
	}

	assert.Panics(t, func() { NewRegistry(Geometry()) })
}

func TestNonComposableFlags(t *testing.T) {
	r := NewRegistry()
	for name, want := range map[string]bool{"Physics": true, "Text": true, "Geometry": false, "Model": false} {
		d, _ := r.Get(name)
		assert.Equal(t, want, d.NonComposable, name)
	}
}

func TestPhysicsViewDefaultsCollider(t *testing.T) {
	inner := []engine.Visual{{Kind: engine.KindMesh}}

	out := view(t, "Physics", engine.ViewContext{Key: "physics"}, map[string]any{"type": "fixed"}, inner)
	require.Len(t, out, 1)
	assert.Equal(t, engine.KindBody, out[0].Kind)
	assert.Equal(t, "trimesh", out[0].Props["collider"])
	assert.Equal(t, inner, out[0].Children)

	out = view(t, "Physics", engine.ViewContext{}, map[string]any{"type": "dynamic"}, nil)
	assert.Equal(t, "hull", out[0].Props["collider"])

	out = view(t, "Physics", engine.ViewContext{}, map[string]any{"type": "kinematic", "collider": "ball"}, nil)
	assert.Equal(t, "ball", out[0].Props["collider"])

	body := ReadBody(map[string]any{"type": "fixed", "mass": 3})
	assert.Equal(t, float32(3), body.Mass)
	assert.Equal(t, "trimesh", string(body.Collider))
}

func TestModelViewFollowsAssetState(t *testing.T) {
	src := fakeAssets{}
	ctx := engine.ViewContext{Key: "model", Assets: src}
	props := map[string]any{"filename": "rock.glb"}

	assert.Empty(t, view(t, "Model", ctx, props, nil), "loading renders nothing")
	assert.Equal(t, assets.Loading, src["rock.glb"])

	src["rock.glb"] = assets.Failed
	assert.Empty(t, view(t, "Model", ctx, props, nil))

	src["rock.glb"] = assets.Ready
	out := view(t, "Model", ctx, props, nil)
	require.Len(t, out, 1)
	assert.Equal(t, engine.KindModel, out[0].Kind)
	assert.Equal(t, false, out[0].Props["instanced"])

	assert.Empty(t, view(t, "Model", ctx, map[string]any{}, nil))
}

func TestLightView(t *testing.T) {
	out := view(t, "PointLight", engine.ViewContext{}, map[string]any{"color": "red"}, nil)
	require.Len(t, out, 1)
	assert.Equal(t, "PointLight", out[0].Props["light"])
	assert.Equal(t, "#e62937", out[0].Props["color"])
	assert.Equal(t, 10.0, out[0].Props["radius"])
}

func TestParseColor(t *testing.T) {
	cases := map[string]struct {
		in   any
		want Color
		ok   bool
	}{
		"short hex": {"#f00", Color{255, 0, 0, 255}, true},
		"long hex":  {"#00ff0080", Color{0, 255, 0, 128}, true},
		"name":      {"SkyBlue", Color{102, 191, 255, 255}, true},
		"array":     {[]any{10.0, 20.0, 30.0}, Color{10, 20, 30, 255}, true},
		"bad hex":   {"#zzz", White, false},
		"bad array": {[]any{300.0, 0.0, 0.0}, White, false},
		"number":    {42.0, White, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseColor(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "#0a141e", Color{10, 20, 30, 255}.Hex())
	assert.Equal(t, "#0a141e80", Color{10, 20, 30, 128}.Hex())
}

func TestHalfExtents(t *testing.T) {
	assert.Equal(t, mgl32.Vec3{1, 0.5, 1.5}, HalfExtents(map[string]any{"size": []any{2.0, 1.0, 3.0}}))
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, HalfExtents(map[string]any{"shape": "sphere", "radius": 2.0}))
	assert.Equal(t, mgl32.Vec3{0.5, 0.01, 0.5}, HalfExtents(map[string]any{"shape": "plane"}))
}
