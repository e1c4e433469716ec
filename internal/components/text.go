package components

import "prefabforge/internal/engine"

var textDefaults = map[string]any{
	"text":     "Text",
	"fontSize": 1.0,
	"color":    "#ffffff",
}

// Text replaces the node's mesh output with a text mesh; the wrapped
// visuals are kept as children so materials still apply.
func Text() engine.Descriptor {
	return engine.Descriptor{
		Name:              "Text",
		DefaultProperties: textDefaults,
		NonComposable:     true,
		View: func(ctx engine.ViewContext, props map[string]any, inner []engine.Visual) []engine.Visual {
			resolved := resolve(textDefaults, props)
			resolved["color"] = ColorOr(resolved["color"], White).Hex()
			return []engine.Visual{{Kind: engine.KindText, Key: ctx.Key, Props: resolved, Children: inner}}
		},
		Editor: func(props map[string]any) []engine.Field {
			return []engine.Field{
				{Name: "text", Label: "Text", Kind: engine.FieldText, Value: str(props, "text", "")},
				{Name: "fontSize", Label: "Size", Kind: engine.FieldNumber, Value: num(props, "fontSize", 1), Min: 0.1, Max: 20, Step: 0.1},
				{Name: "color", Label: "Color", Kind: engine.FieldColor, Value: ColorOr(props["color"], White).Hex()},
			}
		},
	}
}
