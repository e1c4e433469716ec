package engine

import (
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/assets"
)

// VisualKind tags what a Visual asks the render host to draw.
type VisualKind string

const (
	KindMesh        VisualKind = "mesh"
	KindMaterial    VisualKind = "material"
	KindModel       VisualKind = "model"
	KindLight       VisualKind = "light"
	KindText        VisualKind = "text"
	KindBody        VisualKind = "body"
	KindSelection   VisualKind = "selection"
	KindPlaceholder VisualKind = "placeholder"
)

// Visual is the declarative output of a component view. Props are the
// component's resolved properties; Children are visuals wrapped by a
// nonComposable component.
type Visual struct {
	Kind     VisualKind
	Key      string
	Props    map[string]any
	Children []Visual
}

// Find returns the first visual of kind in the list, searching wrappers.
func Find(vs []Visual, kind VisualKind) (Visual, bool) {
	for _, v := range vs {
		if v.Kind == kind {
			return v, true
		}
		if found, ok := Find(v.Children, kind); ok {
			return found, true
		}
	}
	return Visual{}, false
}

// AssetSource is the asset state a view may consult.
type AssetSource interface {
	State(path string) assets.State
	Request(path string) assets.State
}

// ViewContext is what a component view knows about the node it renders.
type ViewContext struct {
	NodeID   string
	Key      string
	World    mgl32.Mat4
	EditMode bool
	Assets   AssetSource
}

// ViewFunc renders one component. inner holds the node's other visuals and
// is only non-nil for nonComposable components.
type ViewFunc func(ctx ViewContext, props map[string]any, inner []Visual) []Visual

// FieldKind selects the inspector widget for a property.
type FieldKind string

const (
	FieldNumber FieldKind = "number"
	FieldVec3   FieldKind = "vec3"
	FieldColor  FieldKind = "color"
	FieldBool   FieldKind = "bool"
	FieldText   FieldKind = "text"
	FieldEnum   FieldKind = "enum"
	FieldAsset  FieldKind = "asset"
)

// Field describes one editable property.
type Field struct {
	Name    string
	Label   string
	Kind    FieldKind
	Value   any
	Options []string
	Min     float64
	Max     float64
	Step    float64
}

// EditorFunc lists the editable fields of a component given its
// current properties.
type EditorFunc func(props map[string]any) []Field
