package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/engine"
)

// Geometry shapes understood by the render host.
const (
	ShapeBox      = "box"
	ShapeSphere   = "sphere"
	ShapePlane    = "plane"
	ShapeCylinder = "cylinder"
)

var geometryDefaults = map[string]any{
	"shape":  ShapeBox,
	"size":   list3(1, 1, 1),
	"radius": 0.5,
}

func Geometry() engine.Descriptor {
	return engine.Descriptor{
		Name:              "Geometry",
		DefaultProperties: geometryDefaults,
		View: func(ctx engine.ViewContext, props map[string]any, _ []engine.Visual) []engine.Visual {
			return []engine.Visual{{Kind: engine.KindMesh, Key: ctx.Key, Props: resolve(geometryDefaults, props)}}
		},
		Editor: func(props map[string]any) []engine.Field {
			return []engine.Field{
				{Name: "shape", Label: "Shape", Kind: engine.FieldEnum, Value: str(props, "shape", ShapeBox),
					Options: []string{ShapeBox, ShapeSphere, ShapePlane, ShapeCylinder}},
				{Name: "size", Label: "Size", Kind: engine.FieldVec3, Value: props["size"], Step: 0.1},
				{Name: "radius", Label: "Radius", Kind: engine.FieldNumber, Value: num(props, "radius", 0.5), Min: 0, Max: 100, Step: 0.05},
			}
		},
	}
}

// HalfExtents returns the unscaled local half size of a geometry visual,
// used to size colliders.
func HalfExtents(props map[string]any) mgl32.Vec3 {
	props = resolve(geometryDefaults, props)
	size := vec3(props, "size", mgl32.Vec3{1, 1, 1})
	r := float32(num(props, "radius", 0.5))
	switch str(props, "shape", ShapeBox) {
	case ShapeSphere:
		return mgl32.Vec3{r, r, r}
	case ShapeCylinder:
		return mgl32.Vec3{r, size.Y() / 2, r}
	case ShapePlane:
		return mgl32.Vec3{size.X() / 2, 0.01, size.Z() / 2}
	default:
		return size.Mul(0.5)
	}
}
