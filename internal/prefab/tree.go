package prefab

import "errors"

var (
	// ErrInvalidMove is returned by MoveNode when the move would break the
	// hierarchy (unknown ids, moving the root, or moving under a descendant).
	ErrInvalidMove = errors.New("invalid move")
	// ErrRootDelete is what editing layers report when DeleteNode is asked
	// for the root.
	ErrRootDelete = errors.New("root node cannot be deleted")
)

// FindNode returns the first node with the given id in depth-first,
// parent-before-children order, or nil.
func FindNode(root *GameObject, id string) *GameObject {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return root
	}
	for _, child := range root.Children {
		if found := FindNode(child, id); found != nil {
			return found
		}
	}
	return nil
}

// FindParent returns the direct parent of id, or nil when id is the root or
// not present.
func FindParent(root *GameObject, id string) *GameObject {
	if root == nil {
		return nil
	}
	for _, child := range root.Children {
		if child.ID == id {
			return root
		}
		if found := FindParent(child, id); found != nil {
			return found
		}
	}
	return nil
}

// Path returns the chain of nodes from root down to id inclusive, or nil when
// id is not in the tree.
func Path(root *GameObject, id string) []*GameObject {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return []*GameObject{root}
	}
	for _, child := range root.Children {
		if sub := Path(child, id); sub != nil {
			return append([]*GameObject{root}, sub...)
		}
	}
	return nil
}

// Flatten lists every node of the subtree in pre-order.
func Flatten(node *GameObject) []*GameObject {
	if node == nil {
		return nil
	}
	out := []*GameObject{node}
	for _, child := range node.Children {
		out = append(out, Flatten(child)...)
	}
	return out
}

// UpdateNode replaces the node with the given id by updater(node). Every
// ancestor on the path is shallow-copied; untouched subtrees keep their
// identity. When id is not found the original root is returned as is.
func UpdateNode(root *GameObject, id string, updater func(*GameObject) *GameObject) *GameObject {
	out, _ := updateNode(root, id, updater)
	return out
}

func updateNode(node *GameObject, id string, updater func(*GameObject) *GameObject) (*GameObject, bool) {
	if node == nil {
		return nil, false
	}
	if node.ID == id {
		return updater(node), true
	}
	for i, child := range node.Children {
		updated, found := updateNode(child, id, updater)
		if !found {
			continue
		}
		c := *node
		c.Children = append([]*GameObject(nil), node.Children...)
		c.Children[i] = updated
		return &c, true
	}
	return node, false
}

// DeleteNode removes the node with the given id. The root cannot be deleted:
// asking for it returns nil. Unknown ids return root unchanged.
func DeleteNode(root *GameObject, id string) *GameObject {
	if root == nil || root.ID == id {
		return nil
	}
	out, _ := deleteNode(root, id)
	return out
}

func deleteNode(node *GameObject, id string) (*GameObject, bool) {
	for i, child := range node.Children {
		if child.ID == id {
			c := *node
			c.Children = make([]*GameObject, 0, len(node.Children)-1)
			c.Children = append(c.Children, node.Children[:i]...)
			c.Children = append(c.Children, node.Children[i+1:]...)
			return &c, true
		}
		updated, found := deleteNode(child, id)
		if !found {
			continue
		}
		c := *node
		c.Children = append([]*GameObject(nil), node.Children...)
		c.Children[i] = updated
		return &c, true
	}
	return node, false
}

// InsertChild appends child under parentID. Unknown parents leave the tree
// unchanged.
func InsertChild(root *GameObject, parentID string, child *GameObject) *GameObject {
	return UpdateNode(root, parentID, func(parent *GameObject) *GameObject {
		c := *parent
		c.Children = append(append([]*GameObject(nil), parent.Children...), child)
		return &c
	})
}

// MoveNode reparents id under newParentID, appending it as the last child.
func MoveNode(root *GameObject, id, newParentID string) (*GameObject, error) {
	if root == nil || root.ID == id {
		return nil, ErrInvalidMove
	}
	node := FindNode(root, id)
	if node == nil || FindNode(root, newParentID) == nil {
		return nil, ErrInvalidMove
	}
	if FindNode(node, newParentID) != nil {
		return nil, ErrInvalidMove
	}
	return InsertChild(DeleteNode(root, id), newParentID, node), nil
}

// CloneNode deep-copies node with fresh ids throughout and marks the top
// clone's name as a copy.
func CloneNode(node *GameObject) *GameObject {
	if node == nil {
		return nil
	}
	c := deepCopy(node, true)
	c.Name = node.DisplayName() + " Copy"
	return c
}

// RegenerateIDs deep-copies node with fresh ids throughout, keeping names.
// Used when merging an externally loaded subtree into a live scene.
func RegenerateIDs(node *GameObject) *GameObject {
	if node == nil {
		return nil
	}
	return deepCopy(node, true)
}

// DeepCopy duplicates node without touching ids.
func DeepCopy(node *GameObject) *GameObject {
	if node == nil {
		return nil
	}
	return deepCopy(node, false)
}

func deepCopy(node *GameObject, freshIDs bool) *GameObject {
	c := &GameObject{
		ID:       node.ID,
		Name:     node.Name,
		Disabled: node.Disabled,
		Hidden:   node.Hidden,
	}
	if freshIDs {
		c.ID = NewID()
	}
	if node.Components != nil {
		c.Components = make(map[string]*ComponentData, len(node.Components))
		for key, comp := range node.Components {
			c.Components[key] = comp.Clone()
		}
	}
	if node.Children != nil {
		c.Children = make([]*GameObject, len(node.Children))
		for i, child := range node.Children {
			c.Children[i] = deepCopy(child, freshIDs)
		}
	}
	return c
}

// Clone deep-copies a component, including nested property values.
func (c *ComponentData) Clone() *ComponentData {
	if c == nil {
		return nil
	}
	out := &ComponentData{Type: c.Type}
	if c.Properties != nil {
		out.Properties = CloneProperties(c.Properties)
	}
	return out
}

// CloneProperties deep-copies a JSON-like property bag.
func CloneProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneProperties(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []float64:
		return append([]float64(nil), t...)
	default:
		return v
	}
}
