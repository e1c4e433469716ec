package components

import "prefabforge/internal/engine"

var materialDefaults = map[string]any{
	"color":     "#ffffff",
	"metalness": 0.0,
	"roughness": 0.5,
	"emissive":  0.0,
	"opacity":   1.0,
	"wireframe": false,
}

func Material() engine.Descriptor {
	return engine.Descriptor{
		Name:              "Material",
		DefaultProperties: materialDefaults,
		View: func(ctx engine.ViewContext, props map[string]any, _ []engine.Visual) []engine.Visual {
			resolved := resolve(materialDefaults, props)
			resolved["color"] = ColorOr(resolved["color"], White).Hex()
			return []engine.Visual{{Kind: engine.KindMaterial, Key: ctx.Key, Props: resolved}}
		},
		Editor: func(props map[string]any) []engine.Field {
			return []engine.Field{
				{Name: "color", Label: "Color", Kind: engine.FieldColor, Value: ColorOr(props["color"], White).Hex()},
				{Name: "metalness", Label: "Metalness", Kind: engine.FieldNumber, Value: num(props, "metalness", 0), Min: 0, Max: 1, Step: 0.01},
				{Name: "roughness", Label: "Roughness", Kind: engine.FieldNumber, Value: num(props, "roughness", 0.5), Min: 0, Max: 1, Step: 0.01},
				{Name: "emissive", Label: "Emissive", Kind: engine.FieldNumber, Value: num(props, "emissive", 0), Min: 0, Max: 10, Step: 0.1},
				{Name: "opacity", Label: "Opacity", Kind: engine.FieldNumber, Value: num(props, "opacity", 1), Min: 0, Max: 1, Step: 0.01},
				{Name: "wireframe", Label: "Wireframe", Kind: engine.FieldBool, Value: flag(props, "wireframe")},
			}
		},
	}
}
