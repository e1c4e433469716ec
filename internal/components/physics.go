package components

import (
	"prefabforge/internal/engine"
	"prefabforge/internal/physics"
)

var physicsDefaults = map[string]any{
	"type":           string(physics.Dynamic),
	"collider":       "",
	"mass":           1.0,
	"restitution":    0.0,
	"friction":       0.5,
	"sensor":         false,
	"collisionSound": "",
}

// Physics wraps the node's visuals in a body. The collider is filled in
// from the body type when left empty.
func Physics() engine.Descriptor {
	return engine.Descriptor{
		Name:              "Physics",
		DefaultProperties: physicsDefaults,
		NonComposable:     true,
		View: func(ctx engine.ViewContext, props map[string]any, inner []engine.Visual) []engine.Visual {
			resolved := resolve(physicsDefaults, props)
			bt, ok := physics.ParseBodyType(str(resolved, "type", ""))
			if !ok {
				bt = physics.Dynamic
			}
			resolved["type"] = string(bt)
			resolved["collider"] = string(physics.ParseCollider(str(resolved, "collider", ""), bt))
			return []engine.Visual{{Kind: engine.KindBody, Key: ctx.Key, Props: resolved, Children: inner}}
		},
		Editor: func(props map[string]any) []engine.Field {
			return []engine.Field{
				{Name: "type", Label: "Body", Kind: engine.FieldEnum, Value: str(props, "type", string(physics.Dynamic)),
					Options: []string{string(physics.Fixed), string(physics.Dynamic), string(physics.Kinematic)}},
				{Name: "collider", Label: "Collider", Kind: engine.FieldEnum, Value: str(props, "collider", ""),
					Options: []string{"", string(physics.Trimesh), string(physics.Hull), string(physics.Cuboid), string(physics.Ball)}},
				{Name: "mass", Label: "Mass", Kind: engine.FieldNumber, Value: num(props, "mass", 1), Min: 0, Max: 1000, Step: 0.1},
				{Name: "restitution", Label: "Bounce", Kind: engine.FieldNumber, Value: num(props, "restitution", 0), Min: 0, Max: 1, Step: 0.05},
				{Name: "friction", Label: "Friction", Kind: engine.FieldNumber, Value: num(props, "friction", 0.5), Min: 0, Max: 1, Step: 0.05},
				{Name: "sensor", Label: "Sensor", Kind: engine.FieldBool, Value: flag(props, "sensor")},
				{Name: "collisionSound", Label: "Hit sound", Kind: engine.FieldAsset, Value: str(props, "collisionSound", "")},
			}
		},
	}
}

// BodyProps reads a resolved body visual.
type BodyProps struct {
	Type           physics.BodyType
	Collider       physics.ColliderShape
	Mass           float32
	Restitution    float32
	Friction       float32
	Sensor         bool
	CollisionSound string
}

func ReadBody(props map[string]any) BodyProps {
	props = resolve(physicsDefaults, props)
	bt, ok := physics.ParseBodyType(str(props, "type", ""))
	if !ok {
		bt = physics.Dynamic
	}
	return BodyProps{
		Type:           bt,
		Collider:       physics.ParseCollider(str(props, "collider", ""), bt),
		Mass:           float32(num(props, "mass", 1)),
		Restitution:    float32(num(props, "restitution", 0)),
		Friction:       float32(num(props, "friction", 0.5)),
		Sensor:         flag(props, "sensor"),
		CollisionSound: str(props, "collisionSound", ""),
	}
}
