package scene

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/batch"
	"prefabforge/internal/components"
	"prefabforge/internal/engine"
	"prefabforge/internal/logging"
	"prefabforge/internal/physics"
	"prefabforge/internal/prefab"
	"prefabforge/internal/transform"
)

// render runs one reconciliation pass over the whole tree.
func (r *Renderer) render() {
	for _, m := range r.mounted {
		m.seen = false
	}
	r.worlds = make(map[string]mgl32.Mat4, len(r.worlds))
	visited := make(map[string]bool, len(r.toggles))
	instances := make(map[string]bool, len(r.instanced))

	if r.prefab != nil && r.prefab.Root != nil {
		r.visit(r.prefab.Root, mgl32.Ident4(), visited, instances)
	}

	for _, id := range r.mountedIDs() {
		if m := r.mounted[id]; !m.seen {
			r.unmount(id, m)
		}
	}
	for id := range r.instanced {
		if !instances[id] {
			r.batches.Unregister(id)
		}
	}
	r.instanced = instances
	for id := range r.toggles {
		if !visited[id] {
			delete(r.toggles, id)
			delete(r.settling, id)
		}
	}
	r.syncBatches(false)
}

// visit renders n and recurses. Hidden and disabled nodes are skipped with
// their whole subtree, bodies included.
func (r *Renderer) visit(n *prefab.GameObject, parent mgl32.Mat4, visited, instances map[string]bool) {
	if n == nil || n.Disabled || n.Hidden {
		return
	}
	world := parent.Mul4(transform.Local(n))
	r.worlds[n.ID] = world
	visited[n.ID] = true

	r.guard(n.ID, func() {
		file, inst := instancedModel(n)
		r.trackToggle(n.ID, inst)
		if r.isSettling(n.ID) {
			return
		}
		if inst {
			kind, sound := instancePhysics(n)
			r.batches.Register(batch.Instance{ID: n.ID, World: world, Asset: file, Physics: kind, Sound: sound})
			instances[n.ID] = true
			return
		}
		r.renderNode(n, parent, world)
	})

	for _, c := range n.Children {
		r.visit(c, world, visited, instances)
	}
}

// guard isolates a failure to the node it happened in.
func (r *Renderer) guard(id string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("node render failed", logging.String("node", id), logging.Any("panic", rec))
		}
	}()
	fn()
}

func instancedModel(n *prefab.GameObject) (string, bool) {
	c := n.Component(prefab.KeyModel)
	if c == nil || !c.Bool("instanced") {
		return "", false
	}
	file := c.String("filename")
	return file, file != ""
}

func instancePhysics(n *prefab.GameObject) (physics.BodyType, string) {
	c := n.Component(prefab.KeyPhysics)
	if c == nil {
		return "", ""
	}
	props := components.ReadBody(c.Properties)
	return props.Type, props.CollisionSound
}

// trackToggle starts a settle interval when a node switches between
// standalone and instanced rendering.
func (r *Renderer) trackToggle(id string, inst bool) {
	prev, ok := r.toggles[id]
	r.toggles[id] = inst
	if ok && prev != inst {
		r.settling[id] = r.now().Add(r.opts.SettleDelay)
	}
}

func (r *Renderer) isSettling(id string) bool {
	until, ok := r.settling[id]
	return ok && r.now().Before(until)
}

func (r *Renderer) renderNode(n *prefab.GameObject, parent, world mgl32.Mat4) {
	selected := r.opts.EditMode && r.selected == n.ID
	sig := r.assetSignature(n)
	m := r.mounted[n.ID]
	if m != nil && m.node == n && m.parentWorld == parent && m.selected == selected && m.assetsSig == sig {
		m.seen = true
		return
	}

	visuals := r.visuals(n, world)
	if selected {
		visuals = append(visuals, engine.Visual{
			Kind:  engine.KindSelection,
			Key:   "selection",
			Props: map[string]any{"halfExtents": halfExtents(visuals)},
		})
	}
	obj := &Object{ID: n.ID, World: world, Visuals: visuals, Selected: selected}

	fresh := m == nil
	if fresh {
		m = &mounted{}
		r.mounted[n.ID] = m
	}
	m.obj = obj
	m.node = n
	m.parentWorld = parent
	m.selected = selected
	m.assetsSig = sig
	m.seen = true
	r.syncBody(m, visuals, world)

	if fresh {
		r.host.Mount(obj)
	} else {
		r.host.Update(obj)
	}
}

// visuals renders the node's components in key order. Composable views are
// concatenated; the first nonComposable view wraps them.
func (r *Renderer) visuals(n *prefab.GameObject, world mgl32.Mat4) []engine.Visual {
	keys := make([]string, 0, len(n.Components))
	for k, c := range n.Components {
		if c != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var (
		out         []engine.Visual
		wrapper     engine.Descriptor
		wrapperKey  string
		wrapperData *prefab.ComponentData
	)
	for _, key := range keys {
		c := n.Components[key]
		d, ok := r.reg.Get(c.Type)
		if !ok {
			r.warnOnce("type:"+c.Type, "unknown component type", logging.String("type", c.Type), logging.String("node", n.ID))
			continue
		}
		if d.View == nil {
			continue
		}
		if d.NonComposable {
			if wrapperData != nil {
				r.warnOnce("wrap:"+n.ID+":"+key, "second wrapping component ignored",
					logging.String("node", n.ID), logging.String("component", key), logging.String("wrapper", wrapperKey))
				continue
			}
			wrapper, wrapperKey, wrapperData = d, key, c
			continue
		}
		out = append(out, r.view(n.ID, key, d, world, c.Properties, nil)...)
	}
	if wrapperData != nil {
		out = r.view(n.ID, wrapperKey, wrapper, world, wrapperData.Properties, out)
	}
	return out
}

// view calls one component view. A panicking view renders nothing of its
// own; a panicking wrapper leaves its inner visuals unwrapped.
func (r *Renderer) view(id, key string, d engine.Descriptor, world mgl32.Mat4, props map[string]any, inner []engine.Visual) (out []engine.Visual) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("component view failed",
				logging.String("node", id), logging.String("component", key), logging.Any("panic", rec))
			out = inner
		}
	}()
	ctx := engine.ViewContext{NodeID: id, Key: key, World: world, EditMode: r.opts.EditMode, Assets: r.source}
	return d.View(ctx, props, inner)
}

func (r *Renderer) warnOnce(key, msg string, fields ...logging.Field) {
	if r.warned[key] {
		return
	}
	r.warned[key] = true
	r.log.Warn(msg, fields...)
}

// assetSignature captures the load state of every file a node references,
// so a finished load re-renders the node even though the tree is unchanged.
func (r *Renderer) assetSignature(n *prefab.GameObject) string {
	if r.assets == nil || len(n.Components) == 0 {
		return ""
	}
	var files []string
	for _, c := range n.Components {
		if c == nil {
			continue
		}
		if f := c.String("filename"); f != "" {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return ""
	}
	sort.Strings(files)
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "%s=%d;", f, r.assets.State(f))
	}
	return b.String()
}

// syncBody keeps the node's physics body in line with its top-level body
// visual. A changed key replaces the body; in edit mode the key includes the
// pose so moving a node rebuilds its collider.
func (r *Renderer) syncBody(m *mounted, visuals []engine.Visual, world mgl32.Mat4) {
	if r.world == nil {
		return
	}
	var body *engine.Visual
	for i := range visuals {
		if visuals[i].Kind == engine.KindBody {
			body = &visuals[i]
			break
		}
	}
	if body == nil {
		r.removeBody(m)
		return
	}
	props := components.ReadBody(body.Props)
	pose := transform.Decompose(world)
	key := string(props.Type) + "|" + string(props.Collider)
	if r.opts.EditMode {
		key += "|" + formatPose(pose)
	}
	m.sound = props.CollisionSound
	if m.body != 0 && m.bodyKey == key {
		// Kinematic bodies follow the tree while playing.
		if !r.opts.EditMode && props.Type == physics.Kinematic {
			r.world.SetPose(m.body, pose)
		}
		return
	}
	r.removeBody(m)
	m.body = r.world.CreateBody(physics.BodySpec{
		ID:          m.obj.ID,
		Type:        props.Type,
		Collider:    props.Collider,
		Pose:        pose,
		HalfExtents: halfExtents(body.Children),
		Mass:        props.Mass,
		Restitution: props.Restitution,
		Friction:    props.Friction,
		Sensor:      props.Sensor,
	})
	m.bodyKey = key
	m.dynamic = props.Type == physics.Dynamic
	r.log.Debug("body created",
		logging.String("node", m.obj.ID), logging.String("key", key))
}

func (r *Renderer) removeBody(m *mounted) {
	if m.body != 0 && r.world != nil {
		r.world.RemoveBody(m.body)
	}
	m.body = 0
	m.bodyKey = ""
	m.dynamic = false
}

func (r *Renderer) unmount(id string, m *mounted) {
	r.removeBody(m)
	delete(r.mounted, id)
	r.host.Unmount(id)
}

// syncBatches forwards rebuilt batches, or a selection change among
// instances, to the host.
func (r *Renderer) syncBatches(force bool) {
	changed := r.batches.Sync()
	sel := ""
	if r.opts.EditMode && r.batches.Has(r.selected) {
		sel = r.selected
	}
	if len(changed) == 0 && sel == r.batchSel && !force {
		return
	}
	r.batchSel = sel
	var proxies []batch.Proxy
	if r.opts.EditMode {
		proxies = r.batches.Proxies()
	}
	r.host.SyncBatches(r.batches.Groups(), proxies, sel)
}

func halfExtents(vs []engine.Visual) mgl32.Vec3 {
	if mesh, ok := engine.Find(vs, engine.KindMesh); ok {
		return components.HalfExtents(mesh.Props)
	}
	return mgl32.Vec3{0.5, 0.5, 0.5}
}

func formatPose(p transform.Pose) string {
	return fmt.Sprintf("%.4f,%.4f,%.4f/%.4f,%.4f,%.4f/%.4f,%.4f,%.4f",
		p.Position[0], p.Position[1], p.Position[2],
		p.Rotation[0], p.Rotation[1], p.Rotation[2],
		p.Scale[0], p.Scale[1], p.Scale[2])
}
