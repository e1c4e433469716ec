package components

import "prefabforge/internal/engine"

// Transform has no view of its own; the renderer reads it directly to
// build the node matrix.
func Transform() engine.Descriptor {
	return engine.Descriptor{
		Name: "Transform",
		DefaultProperties: map[string]any{
			"position": list3(0, 0, 0),
			"rotation": list3(0, 0, 0),
			"scale":    list3(1, 1, 1),
		},
		Editor: func(props map[string]any) []engine.Field {
			return []engine.Field{
				{Name: "position", Label: "Position", Kind: engine.FieldVec3, Value: props["position"], Step: 0.1},
				{Name: "rotation", Label: "Rotation (rad)", Kind: engine.FieldVec3, Value: props["rotation"], Step: 0.05},
				{Name: "scale", Label: "Scale", Kind: engine.FieldVec3, Value: props["scale"], Step: 0.1},
			}
		},
	}
}
