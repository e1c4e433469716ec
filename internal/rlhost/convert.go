package rlhost

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/components"
)

// toMatrix converts a column-major mgl32 matrix. raylib names its fields
// by column-major index as well, so M12..M14 carry the translation.
func toMatrix(m mgl32.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}

func toVec3(v mgl32.Vec3) rl.Vector3 {
	return rl.Vector3{X: v.X(), Y: v.Y(), Z: v.Z()}
}

func fromVec3(v rl.Vector3) mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

// toColor parses a hex or named color, scaling alpha by opacity.
func toColor(v any, opacity float64) rl.Color {
	c := components.ColorOr(v, components.White)
	a := float64(c.A) * opacity
	if a < 0 {
		a = 0
	}
	if a > 255 {
		a = 255
	}
	return rl.NewColor(c.R, c.G, c.B, uint8(a))
}

func number(props map[string]any, key string, def float64) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

func text(props map[string]any, key, def string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return def
}

func flag(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}
