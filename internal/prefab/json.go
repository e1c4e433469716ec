package prefab

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned for prefab documents that fail to parse or
// violate a structural invariant.
var ErrMalformed = errors.New("malformed prefab")

var transformVectors = []string{"position", "rotation", "scale"}

// Parse decodes and validates a prefab document. Nothing partial is ever
// returned: either the whole tree is valid or an error wrapping ErrMalformed.
func Parse(data []byte) (*Prefab, error) {
	var p Prefab
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(&p); err != nil {
		return nil, err
	}
	normalize(p.Root)
	return &p, nil
}

// ParseNode decodes a bare GameObject subtree, as produced by copying a node
// out of another scene.
func ParseNode(data []byte) (*GameObject, error) {
	var g GameObject
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := validateTree(&g, make(map[string]bool)); err != nil {
		return nil, err
	}
	normalize(&g)
	return &g, nil
}

// normalize turns empty child lists and component maps into nil, the form
// Marshal omits, so a parsed document survives a round trip unchanged.
func normalize(g *GameObject) {
	if len(g.Children) == 0 {
		g.Children = nil
	}
	if len(g.Components) == 0 {
		g.Components = nil
	}
	for _, c := range g.Children {
		normalize(c)
	}
}

// Marshal encodes p using the persisted layout.
func Marshal(p *Prefab) ([]byte, error) {
	if err := Validate(p); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal prefab: %w", err)
	}
	return data, nil
}

// Validate checks the structural invariants of a prefab: a root exists,
// every node has an id, ids are unique, and transform vectors are
// 3-element numeric arrays.
func Validate(p *Prefab) error {
	if p == nil || p.Root == nil {
		return fmt.Errorf("%w: missing root", ErrMalformed)
	}
	return validateTree(p.Root, make(map[string]bool))
}

func validateTree(g *GameObject, seen map[string]bool) error {
	if g.ID == "" {
		return fmt.Errorf("%w: node without id", ErrMalformed)
	}
	if seen[g.ID] {
		return fmt.Errorf("%w: duplicate id %q", ErrMalformed, g.ID)
	}
	seen[g.ID] = true

	for key, c := range g.Components {
		if c == nil {
			continue
		}
		if c.Type == "" {
			return fmt.Errorf("%w: node %q component %q has no type", ErrMalformed, g.ID, key)
		}
		if key == KeyTransform {
			for _, name := range transformVectors {
				v, present := c.Properties[name]
				if !present {
					continue
				}
				if _, ok := ToVec3(v); !ok {
					return fmt.Errorf("%w: node %q transform.%s must be 3 numbers", ErrMalformed, g.ID, name)
				}
			}
		}
	}

	for _, child := range g.Children {
		if child == nil {
			return fmt.Errorf("%w: node %q has a null child", ErrMalformed, g.ID)
		}
		if err := validateTree(child, seen); err != nil {
			return err
		}
	}
	return nil
}
