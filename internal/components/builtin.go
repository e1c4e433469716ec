// Package components holds the built-in component descriptors: their
// default properties, views and inspector fields.
package components

import "prefabforge/internal/engine"

// Builtin lists every built-in descriptor in registration order.
func Builtin() []engine.Descriptor {
	return []engine.Descriptor{
		Transform(),
		Geometry(),
		Material(),
		Physics(),
		Model(),
		Text(),
		AmbientLight(),
		DirectionalLight(),
		PointLight(),
		SpotLight(),
	}
}

// NewRegistry returns a registry with the built-ins plus extra descriptors.
func NewRegistry(extra ...engine.Descriptor) *engine.Registry {
	return engine.NewRegistry(append(Builtin(), extra...)...)
}
