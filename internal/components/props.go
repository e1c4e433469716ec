package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/prefab"
)

// resolve overlays props on a copy of defaults so views never see a
// missing key.
func resolve(defaults, props map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(props))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range props {
		out[k] = v
	}
	return out
}

func num(props map[string]any, key string, def float64) float64 {
	if f, ok := prefab.ToFloat(props[key]); ok {
		return f
	}
	return def
}

func str(props map[string]any, key, def string) string {
	if s, ok := props[key].(string); ok && s != "" {
		return s
	}
	return def
}

func flag(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

func vec3(props map[string]any, key string, def mgl32.Vec3) mgl32.Vec3 {
	if v, ok := prefab.ToVec3(props[key]); ok {
		return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
	}
	return def
}

func list3(x, y, z float64) []any {
	return []any{x, y, z}
}
