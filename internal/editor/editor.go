// Package editor is the shell around a prefab document: it owns the
// canonical tree, applies edits copy-on-write, keeps the debounced undo
// history and the selection, and keeps an attached renderer in sync.
package editor

import (
	"errors"
	"fmt"
	"io"
	"time"
	"unicode"

	"prefabforge/internal/components"
	"prefabforge/internal/engine"
	"prefabforge/internal/logging"
	"prefabforge/internal/prefab"
	"prefabforge/internal/scene"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrRootNode         = errors.New("operation not allowed on the root node")
	ErrUnknownComponent = errors.New("unknown component type")
	ErrComponentExists  = errors.New("component key already in use")
	ErrNoComponent      = errors.New("node has no such component")
)

type Options struct {
	DebounceWindow time.Duration
	HistoryDepth   int
}

func DefaultOptions() Options {
	return Options{DebounceWindow: DefaultDebounceWindow, HistoryDepth: DefaultHistoryDepth}
}

type Editor struct {
	reg      *engine.Registry
	log      logging.Log
	now      func() time.Time
	prefab   *prefab.Prefab
	history  *History
	selected string
	renderer *scene.Renderer

	// OnPrefabChange fires after every committed edit, undo and redo.
	OnPrefabChange engine.EventWithArg[*prefab.Prefab]
	OnSelect       engine.EventWithArg[string]
}

// New opens p for editing. A nil p starts from an empty root.
func New(p *prefab.Prefab, reg *engine.Registry, opts Options, log logging.Log) *Editor {
	if p == nil {
		p = Empty()
	}
	if reg == nil {
		reg = components.NewRegistry()
	}
	return &Editor{
		reg:     reg,
		log:     logging.OrNop(log),
		now:     time.Now,
		prefab:  p,
		history: NewHistory(p, opts.HistoryDepth, opts.DebounceWindow),
	}
}

// Empty is a new document with a single root.
func Empty() *prefab.Prefab {
	return &prefab.Prefab{Root: &prefab.GameObject{ID: "root", Name: "Root"}}
}

// WithClock replaces the time source used for debouncing.
func (e *Editor) WithClock(now func() time.Time) *Editor {
	e.now = now
	return e
}

// Attach connects a renderer: it shows the current prefab, its gizmo
// write-backs become edits and its click selections become the selection.
func (e *Editor) Attach(r *scene.Renderer) {
	e.renderer = r
	r.OnPrefabChange.AddListener(e.apply)
	r.OnSelect.AddListener(e.Select)
	r.SetPrefab(e.prefab)
	r.SetSelected(e.selected)
}

func (e *Editor) Prefab() *prefab.Prefab { return e.prefab }

func (e *Editor) Registry() *engine.Registry { return e.reg }

func (e *Editor) History() *History { return e.history }

func (e *Editor) Selected() string { return e.selected }

// SelectedNode returns the selected node in the current tree, or nil.
func (e *Editor) SelectedNode() *prefab.GameObject {
	if e.selected == "" {
		return nil
	}
	return prefab.FindNode(e.prefab.Root, e.selected)
}

// SetPrefab replaces the whole document as one edit.
func (e *Editor) SetPrefab(p *prefab.Prefab) error {
	if err := prefab.Validate(p); err != nil {
		return err
	}
	e.apply(p)
	return nil
}

// Edit runs fn over the root. Returning the same root is a no-op.
func (e *Editor) Edit(fn func(root *prefab.GameObject) (*prefab.GameObject, error)) error {
	root, err := fn(e.prefab.Root)
	if err != nil {
		return err
	}
	if root == e.prefab.Root {
		return nil
	}
	e.apply(e.prefab.WithRoot(root))
	return nil
}

// apply makes p the canonical tree and records it for history.
func (e *Editor) apply(p *prefab.Prefab) {
	if p == e.prefab {
		return
	}
	e.prefab = p
	e.history.Record(p, e.now())
	e.publish()
}

func (e *Editor) publish() {
	if e.selected != "" && prefab.FindNode(e.prefab.Root, e.selected) == nil {
		e.selected = ""
		e.OnSelect.Invoke("")
	}
	if e.renderer != nil && e.renderer.Prefab() != e.prefab {
		e.renderer.SetPrefab(e.prefab)
	}
	e.OnPrefabChange.Invoke(e.prefab)
}

// Tick commits a pending edit once the debounce window has passed. Hosts
// call it once per frame.
func (e *Editor) Tick() bool {
	return e.history.Tick(e.now())
}

func (e *Editor) Undo() bool {
	p, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.prefab = p
	e.publish()
	return true
}

func (e *Editor) Redo() bool {
	p, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.prefab = p
	e.publish()
	return true
}

func (e *Editor) Select(id string) {
	if id == e.selected {
		return
	}
	if id != "" && prefab.FindNode(e.prefab.Root, id) == nil {
		return
	}
	e.selected = id
	if e.renderer != nil {
		e.renderer.SetSelected(id)
	}
	e.OnSelect.Invoke(id)
}

// UpdateNode replaces node id with fn's result.
func (e *Editor) UpdateNode(id string, fn func(*prefab.GameObject) *prefab.GameObject) error {
	if prefab.FindNode(e.prefab.Root, id) == nil {
		return fmt.Errorf("update %q: %w", id, ErrNodeNotFound)
	}
	return e.Edit(func(root *prefab.GameObject) (*prefab.GameObject, error) {
		return prefab.UpdateNode(root, id, fn), nil
	})
}

func (e *Editor) DeleteNode(id string) error {
	if id == e.prefab.Root.ID {
		return prefab.ErrRootDelete
	}
	if prefab.FindNode(e.prefab.Root, id) == nil {
		return fmt.Errorf("delete %q: %w", id, ErrNodeNotFound)
	}
	return e.Edit(func(root *prefab.GameObject) (*prefab.GameObject, error) {
		return prefab.DeleteNode(root, id), nil
	})
}

// DuplicateNode inserts a fresh-id copy of id right after it and selects
// the copy.
func (e *Editor) DuplicateNode(id string) (string, error) {
	if id == e.prefab.Root.ID {
		return "", fmt.Errorf("duplicate: %w", ErrRootNode)
	}
	node := prefab.FindNode(e.prefab.Root, id)
	if node == nil {
		return "", fmt.Errorf("duplicate %q: %w", id, ErrNodeNotFound)
	}
	parent := prefab.FindParent(e.prefab.Root, id)
	clone := prefab.CloneNode(node)
	err := e.Edit(func(root *prefab.GameObject) (*prefab.GameObject, error) {
		return prefab.UpdateNode(root, parent.ID, func(p *prefab.GameObject) *prefab.GameObject {
			c := *p
			c.Children = make([]*prefab.GameObject, 0, len(p.Children)+1)
			for _, child := range p.Children {
				c.Children = append(c.Children, child)
				if child.ID == id {
					c.Children = append(c.Children, clone)
				}
			}
			return &c
		}), nil
	})
	if err != nil {
		return "", err
	}
	e.Select(clone.ID)
	return clone.ID, nil
}

// AddChild appends a new node with an identity transform under parentID.
func (e *Editor) AddChild(parentID, name string) (string, error) {
	if prefab.FindNode(e.prefab.Root, parentID) == nil {
		return "", fmt.Errorf("add child to %q: %w", parentID, ErrNodeNotFound)
	}
	child := &prefab.GameObject{ID: prefab.NewID(), Name: name}
	if tc, ok := e.reg.NewComponent("Transform"); ok {
		child.Components = map[string]*prefab.ComponentData{prefab.KeyTransform: tc}
	}
	err := e.Edit(func(root *prefab.GameObject) (*prefab.GameObject, error) {
		return prefab.InsertChild(root, parentID, child), nil
	})
	if err != nil {
		return "", err
	}
	return child.ID, nil
}

func (e *Editor) MoveNode(id, newParentID string) error {
	return e.Edit(func(root *prefab.GameObject) (*prefab.GameObject, error) {
		return prefab.MoveNode(root, id, newParentID)
	})
}

// AddComponent attaches a registry-default component of typeName under
// key. An empty key derives one from the type name ("PointLight" becomes
// "pointLight").
func (e *Editor) AddComponent(id, key, typeName string) (string, error) {
	data, ok := e.reg.NewComponent(typeName)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownComponent, typeName)
	}
	if key == "" {
		key = ComponentKey(typeName)
	}
	node := prefab.FindNode(e.prefab.Root, id)
	if node == nil {
		return "", fmt.Errorf("add component to %q: %w", id, ErrNodeNotFound)
	}
	if node.Component(key) != nil {
		return "", fmt.Errorf("%w: %s", ErrComponentExists, key)
	}
	return key, e.UpdateNode(id, func(g *prefab.GameObject) *prefab.GameObject {
		return g.WithComponent(key, data)
	})
}

func (e *Editor) RemoveComponent(id, key string) error {
	node := prefab.FindNode(e.prefab.Root, id)
	if node == nil {
		return fmt.Errorf("remove component from %q: %w", id, ErrNodeNotFound)
	}
	if node.Component(key) == nil {
		return fmt.Errorf("%w: %s", ErrNoComponent, key)
	}
	return e.UpdateNode(id, func(g *prefab.GameObject) *prefab.GameObject {
		return g.WithComponent(key, nil)
	})
}

// SetProperty sets one property of one component.
func (e *Editor) SetProperty(id, key, name string, value any) error {
	node := prefab.FindNode(e.prefab.Root, id)
	if node == nil {
		return fmt.Errorf("set %s.%s on %q: %w", key, name, id, ErrNodeNotFound)
	}
	c := node.Component(key)
	if c == nil {
		return fmt.Errorf("%w: %s", ErrNoComponent, key)
	}
	return e.UpdateNode(id, func(g *prefab.GameObject) *prefab.GameObject {
		return g.WithComponent(key, c.WithProperty(name, value))
	})
}

func (e *Editor) SetDisabled(id string, disabled bool) error {
	return e.setFlag(id, func(g *prefab.GameObject) { g.Disabled = disabled })
}

func (e *Editor) SetHidden(id string, hidden bool) error {
	return e.setFlag(id, func(g *prefab.GameObject) { g.Hidden = hidden })
}

func (e *Editor) Rename(id, name string) error {
	return e.setFlag(id, func(g *prefab.GameObject) { g.Name = name })
}

func (e *Editor) setFlag(id string, set func(*prefab.GameObject)) error {
	return e.UpdateNode(id, func(g *prefab.GameObject) *prefab.GameObject {
		c := *g
		set(&c)
		return &c
	})
}

// Load replaces the document with the one read from r and starts a new
// history. On any error the current document is kept.
func (e *Editor) Load(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read prefab: %w", err)
	}
	p, err := prefab.Parse(data)
	if err != nil {
		e.log.Warn("prefab not loaded", logging.Err(err))
		return err
	}
	e.prefab = p
	e.history.Reset(p)
	e.publish()
	return nil
}

// Save writes the current document, committing any pending edit first.
func (e *Editor) Save(w io.Writer) error {
	e.history.Flush()
	data, err := prefab.Marshal(e.prefab)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write prefab: %w", err)
	}
	return nil
}

// Import merges the root of the document read from r under parentID with
// every id regenerated, and returns the new subtree's id.
func (e *Editor) Import(r io.Reader, parentID string) (string, error) {
	if parentID == "" {
		parentID = e.prefab.Root.ID
	}
	if prefab.FindNode(e.prefab.Root, parentID) == nil {
		return "", fmt.Errorf("import under %q: %w", parentID, ErrNodeNotFound)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read prefab: %w", err)
	}
	p, err := prefab.Parse(data)
	if err != nil {
		e.log.Warn("prefab not imported", logging.Err(err))
		return "", err
	}
	sub := prefab.RegenerateIDs(p.Root)
	if sub.Name == "" && p.Name != "" {
		sub.Name = p.Name
	}
	err = e.Edit(func(root *prefab.GameObject) (*prefab.GameObject, error) {
		return prefab.InsertChild(root, parentID, sub), nil
	})
	if err != nil {
		return "", err
	}
	return sub.ID, nil
}

// ComponentKey is the default map key for a component type.
func ComponentKey(typeName string) string {
	if typeName == "" {
		return ""
	}
	r := []rune(typeName)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
