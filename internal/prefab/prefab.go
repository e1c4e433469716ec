// Package prefab holds the serializable scene tree and the copy-on-write
// utilities every editing path goes through. Values in this package are
// treated as immutable once built: edits produce new nodes along the path to
// the change and share everything else.
package prefab

import "github.com/google/uuid"

// Well-known component keys.
const (
	KeyTransform = "transform"
	KeyGeometry  = "geometry"
	KeyMaterial  = "material"
	KeyPhysics   = "physics"
	KeyModel     = "model"
	KeyText      = "text"
)

type Prefab struct {
	ID   string      `json:"id,omitempty"`
	Name string      `json:"name,omitempty"`
	Root *GameObject `json:"root"`
}

type GameObject struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name,omitempty"`
	Disabled   bool                      `json:"disabled,omitempty"`
	Hidden     bool                      `json:"hidden,omitempty"`
	Components map[string]*ComponentData `json:"components,omitempty"`
	Children   []*GameObject             `json:"children,omitempty"`
}

// ComponentData is a typed, duck-typed property bag. Properties are validated
// by the component's own view/editor code, never by a shared schema.
type ComponentData struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// NewID returns a fresh node id.
func NewID() string {
	return uuid.NewString()
}

// WithRoot returns a copy of p carrying a different root.
func (p *Prefab) WithRoot(root *GameObject) *Prefab {
	return &Prefab{ID: p.ID, Name: p.Name, Root: root}
}

// Component returns the component stored under key, or nil.
func (g *GameObject) Component(key string) *ComponentData {
	if g == nil || g.Components == nil {
		return nil
	}
	return g.Components[key]
}

// DisplayName is the name shown in hierarchy views.
func (g *GameObject) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return g.ID
}

// ShallowCopy returns a new node sharing components and children with g.
// The children slice itself is copied so it can be edited independently.
func (g *GameObject) ShallowCopy() *GameObject {
	c := *g
	if g.Children != nil {
		c.Children = append([]*GameObject(nil), g.Children...)
	}
	if g.Components != nil {
		c.Components = make(map[string]*ComponentData, len(g.Components))
		for k, v := range g.Components {
			c.Components[k] = v
		}
	}
	return &c
}

// WithComponent returns a shallow copy of g with key set to data.
// A nil data removes the component.
func (g *GameObject) WithComponent(key string, data *ComponentData) *GameObject {
	c := g.ShallowCopy()
	if c.Components == nil {
		c.Components = make(map[string]*ComponentData)
	}
	if data == nil {
		delete(c.Components, key)
	} else {
		c.Components[key] = data
	}
	return c
}

// WithProperty returns a copy of the component with one property replaced.
func (c *ComponentData) WithProperty(name string, value any) *ComponentData {
	props := make(map[string]any, len(c.Properties)+1)
	for k, v := range c.Properties {
		props[k] = v
	}
	props[name] = value
	return &ComponentData{Type: c.Type, Properties: props}
}

// Bool reads a boolean property, false when missing or mistyped.
func (c *ComponentData) Bool(name string) bool {
	if c == nil {
		return false
	}
	b, _ := c.Properties[name].(bool)
	return b
}

// String reads a string property, "" when missing or mistyped.
func (c *ComponentData) String(name string) string {
	if c == nil {
		return ""
	}
	s, _ := c.Properties[name].(string)
	return s
}

// Number reads a numeric property. JSON numbers decode as float64, values
// written by Go code may be any of the common numeric kinds.
func (c *ComponentData) Number(name string) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return ToFloat(c.Properties[name])
}

// ToFloat converts a loosely typed numeric value.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Vec3 reads a 3-element numeric array property.
func (c *ComponentData) Vec3(name string) ([3]float64, bool) {
	if c == nil {
		return [3]float64{}, false
	}
	return ToVec3(c.Properties[name])
}

// ToVec3 converts a loosely typed 3-element array.
func ToVec3(v any) ([3]float64, bool) {
	var out [3]float64
	switch arr := v.(type) {
	case []any:
		if len(arr) != 3 {
			return out, false
		}
		for i, e := range arr {
			f, ok := ToFloat(e)
			if !ok {
				return out, false
			}
			out[i] = f
		}
		return out, true
	case []float64:
		if len(arr) != 3 {
			return out, false
		}
		copy(out[:], arr)
		return out, true
	case [3]float64:
		return arr, true
	default:
		return out, false
	}
}
