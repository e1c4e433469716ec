package components

import "prefabforge/internal/engine"

func lightDescriptor(name string, defaults map[string]any, extra func(props map[string]any) []engine.Field) engine.Descriptor {
	return engine.Descriptor{
		Name:              name,
		DefaultProperties: defaults,
		View: func(ctx engine.ViewContext, props map[string]any, _ []engine.Visual) []engine.Visual {
			resolved := resolve(defaults, props)
			resolved["light"] = name
			resolved["color"] = ColorOr(resolved["color"], White).Hex()
			return []engine.Visual{{Kind: engine.KindLight, Key: ctx.Key, Props: resolved}}
		},
		Editor: func(props map[string]any) []engine.Field {
			fields := []engine.Field{
				{Name: "color", Label: "Color", Kind: engine.FieldColor, Value: ColorOr(props["color"], White).Hex()},
				{Name: "intensity", Label: "Intensity", Kind: engine.FieldNumber, Value: num(props, "intensity", 1), Min: 0, Max: 20, Step: 0.05},
			}
			if extra != nil {
				fields = append(fields, extra(props)...)
			}
			return fields
		},
	}
}

func AmbientLight() engine.Descriptor {
	return lightDescriptor("AmbientLight", map[string]any{
		"color":     "#ffffff",
		"intensity": 0.5,
	}, nil)
}

func DirectionalLight() engine.Descriptor {
	return lightDescriptor("DirectionalLight", map[string]any{
		"color":      "#ffffff",
		"intensity":  1.0,
		"direction":  list3(0.35, -1, -0.35),
		"castShadow": true,
	}, func(props map[string]any) []engine.Field {
		return []engine.Field{
			{Name: "direction", Label: "Direction", Kind: engine.FieldVec3, Value: props["direction"], Step: 0.05},
			{Name: "castShadow", Label: "Shadows", Kind: engine.FieldBool, Value: flag(props, "castShadow")},
		}
	})
}

func PointLight() engine.Descriptor {
	return lightDescriptor("PointLight", map[string]any{
		"color":     "#ffffff",
		"intensity": 1.0,
		"radius":    10.0,
	}, func(props map[string]any) []engine.Field {
		return []engine.Field{
			{Name: "radius", Label: "Radius", Kind: engine.FieldNumber, Value: num(props, "radius", 10), Min: 0, Max: 500, Step: 0.5},
		}
	})
}

func SpotLight() engine.Descriptor {
	return lightDescriptor("SpotLight", map[string]any{
		"color":     "#ffffff",
		"intensity": 1.0,
		"angle":     0.5,
		"penumbra":  0.2,
		"distance":  20.0,
	}, func(props map[string]any) []engine.Field {
		return []engine.Field{
			{Name: "angle", Label: "Angle", Kind: engine.FieldNumber, Value: num(props, "angle", 0.5), Min: 0, Max: 1.57, Step: 0.01},
			{Name: "penumbra", Label: "Penumbra", Kind: engine.FieldNumber, Value: num(props, "penumbra", 0.2), Min: 0, Max: 1, Step: 0.01},
			{Name: "distance", Label: "Distance", Kind: engine.FieldNumber, Value: num(props, "distance", 20), Min: 0, Max: 500, Step: 0.5},
		}
	})
}
