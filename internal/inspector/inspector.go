// Package inspector builds the data behind the inspector panel: one section
// per component of the selected node, with the transform first, and the
// list of components that can still be added.
package inspector

import (
	"fmt"
	"sort"

	"prefabforge/internal/engine"
	"prefabforge/internal/prefab"
)

// Section is one component block. Unknown sections carry no fields and
// their title reads "Unknown: <type>".
type Section struct {
	Key     string
	Type    string
	Title   string
	Unknown bool
	Err     string
	Fields  []engine.Field
}

// Header is the node-level part of the panel.
type Header struct {
	ID       string
	Name     string
	Disabled bool
	Hidden   bool
}

type View struct {
	Header   Header
	Sections []Section
}

// Build describes node. Unknown component types become placeholders and
// never hide the node's other components.
func Build(node *prefab.GameObject, reg *engine.Registry) View {
	if node == nil {
		return View{}
	}
	v := View{Header: Header{ID: node.ID, Name: node.Name, Disabled: node.Disabled, Hidden: node.Hidden}}
	for _, key := range orderedKeys(node) {
		v.Sections = append(v.Sections, section(key, node.Components[key], reg))
	}
	return v
}

func orderedKeys(node *prefab.GameObject) []string {
	keys := make([]string, 0, len(node.Components))
	for k, c := range node.Components {
		if c != nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == prefab.KeyTransform) != (keys[j] == prefab.KeyTransform) {
			return keys[i] == prefab.KeyTransform
		}
		return keys[i] < keys[j]
	})
	return keys
}

func section(key string, c *prefab.ComponentData, reg *engine.Registry) (s Section) {
	s = Section{Key: key, Type: c.Type, Title: c.Type}
	d, ok := reg.Get(c.Type)
	if !ok {
		s.Unknown = true
		s.Title = "Unknown: " + c.Type
		return s
	}
	if d.Editor == nil {
		return s
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.Fields = nil
			s.Err = fmt.Sprint(rec)
		}
	}()
	s.Fields = d.Editor(c.Properties)
	return s
}

// AddableComponents lists registered types the node does not carry yet,
// sorted by name.
func AddableComponents(node *prefab.GameObject, reg *engine.Registry) []string {
	have := make(map[string]bool)
	if node != nil {
		for _, c := range node.Components {
			if c != nil {
				have[c.Type] = true
			}
		}
	}
	var out []string
	for _, name := range reg.Names() {
		if !have[name] {
			out = append(out, name)
		}
	}
	return out
}
