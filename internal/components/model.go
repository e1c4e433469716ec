package components

import (
	"prefabforge/internal/assets"
	"prefabforge/internal/engine"
)

var modelDefaults = map[string]any{
	"filename":  "",
	"instanced": false,
}

// Model draws a loaded asset. While the asset is loading, or after it
// failed, the view renders nothing so the rest of the node still shows.
func Model() engine.Descriptor {
	return engine.Descriptor{
		Name:              "Model",
		DefaultProperties: modelDefaults,
		View: func(ctx engine.ViewContext, props map[string]any, _ []engine.Visual) []engine.Visual {
			resolved := resolve(modelDefaults, props)
			file := str(resolved, "filename", "")
			if file == "" {
				return nil
			}
			if ctx.Assets == nil {
				return []engine.Visual{{Kind: engine.KindModel, Key: ctx.Key, Props: resolved}}
			}
			if ctx.Assets.Request(file) != assets.Ready {
				return nil
			}
			return []engine.Visual{{Kind: engine.KindModel, Key: ctx.Key, Props: resolved}}
		},
		Editor: func(props map[string]any) []engine.Field {
			return []engine.Field{
				{Name: "filename", Label: "File", Kind: engine.FieldAsset, Value: str(props, "filename", "")},
				{Name: "instanced", Label: "Instanced", Kind: engine.FieldBool, Value: flag(props, "instanced")},
			}
		},
	}
}
