// Package scene reconciles a prefab tree against a render host. Each pass
// walks the visible tree, composes world matrices, renders component views
// into visuals, mounts or updates one host object per standalone node, and
// hands instanced nodes to the batching provider. It also owns the edit-mode
// interaction loop (click selection and gizmo write-back) and, in play mode,
// the physics step.
package scene

import (
	"errors"
	"sort"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/assets"
	"prefabforge/internal/audio"
	"prefabforge/internal/batch"
	"prefabforge/internal/components"
	"prefabforge/internal/engine"
	"prefabforge/internal/logging"
	"prefabforge/internal/physics"
	"prefabforge/internal/prefab"
	"prefabforge/internal/transform"
)

var ErrNoHost = errors.New("no render host attached")

const DefaultSettleDelay = 100 * time.Millisecond

// Object is one mounted standalone node as the host sees it.
type Object struct {
	ID       string
	World    mgl32.Mat4
	Visuals  []engine.Visual
	Selected bool
}

// Host draws what the renderer decides. Mount, Update and Unmount are
// keyed by node id; SyncBatches receives the complete live batch set.
type Host interface {
	Mount(obj *Object)
	Update(obj *Object)
	Unmount(id string)
	SyncBatches(groups []*batch.Group, proxies []batch.Proxy, selected string)
	Screenshot() ([]byte, error)
}

// Assets is the part of the asset manager the renderer drives.
type Assets interface {
	State(path string) assets.State
	Request(path string) assets.State
	Get(path string) assets.Entry
	Poll() int
}

// Options are the tunables shared with the editor configuration.
type Options struct {
	EditMode       bool
	SettleDelay    time.Duration
	ClickTolerance float32
}

// Deps are the collaborators of a renderer. Only Host is required to draw
// anything; a nil Physics disables bodies and a nil Audio is silent.
type Deps struct {
	Registry *engine.Registry
	Host     Host
	Assets   Assets
	Physics  physics.World
	Audio    audio.Service
	Log      logging.Log
	Clock    func() time.Time
}

type mounted struct {
	obj         *Object
	node        *prefab.GameObject
	parentWorld mgl32.Mat4
	selected    bool
	assetsSig   string
	seen        bool

	body    physics.BodyHandle
	bodyKey string
	dynamic bool
	sound   string
}

type pointer struct {
	down  bool
	id    string
	x, y  float32
	moved bool
}

type Renderer struct {
	reg     *engine.Registry
	host    Host
	assets  Assets
	source  engine.AssetSource
	world   physics.World
	sound   audio.Service
	log     logging.Log
	now     func() time.Time
	opts    Options
	batches *batch.Provider

	prefab   *prefab.Prefab
	selected string

	mounted   map[string]*mounted
	worlds    map[string]mgl32.Mat4
	instanced map[string]bool
	toggles   map[string]bool
	settling  map[string]time.Time
	warned    map[string]bool
	batchSel  string
	ptr       pointer

	// OnPrefabChange fires with the new prefab after every gizmo write-back.
	OnPrefabChange engine.EventWithArg[*prefab.Prefab]
	// OnSelect fires with the clicked node id, or "" when the click missed.
	OnSelect engine.EventWithArg[string]
}

func New(deps Deps, opts Options) *Renderer {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	r := &Renderer{
		reg:       deps.Registry,
		host:      deps.Host,
		assets:    deps.Assets,
		world:     deps.Physics,
		sound:     deps.Audio,
		log:       logging.OrNop(deps.Log),
		now:       deps.Clock,
		opts:      opts,
		mounted:   make(map[string]*mounted),
		worlds:    make(map[string]mgl32.Mat4),
		instanced: make(map[string]bool),
		toggles:   make(map[string]bool),
		settling:  make(map[string]time.Time),
		warned:    make(map[string]bool),
	}
	if r.reg == nil {
		r.reg = components.NewRegistry()
	}
	if r.host == nil {
		r.host = nopHost{}
	}
	if r.sound == nil {
		r.sound = audio.Noop{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	var models batch.ModelSource
	if deps.Assets != nil {
		r.source = deps.Assets
		models = deps.Assets
	}
	r.batches = batch.NewProvider(models, deps.Physics, r.log)
	r.sound.SetPlayMode(!opts.EditMode)
	return r
}

// Batches exposes the instancing provider, mainly so the host can hook
// Release for baked geometry.
func (r *Renderer) Batches() *batch.Provider { return r.batches }

func (r *Renderer) Prefab() *prefab.Prefab { return r.prefab }

func (r *Renderer) Selected() string { return r.selected }

func (r *Renderer) EditMode() bool { return r.opts.EditMode }

// SetPrefab replaces the rendered tree and reconciles. A selection that is
// no longer in the tree is dropped.
func (r *Renderer) SetPrefab(p *prefab.Prefab) {
	r.prefab = p
	if r.selected != "" && (p == nil || prefab.FindNode(p.Root, r.selected) == nil) {
		r.selected = ""
	}
	r.render()
}

// SetSelected changes the highlighted node without firing OnSelect.
func (r *Renderer) SetSelected(id string) {
	r.setSelection(id, false)
}

func (r *Renderer) setSelection(id string, notify bool) {
	if id == r.selected {
		return
	}
	r.selected = id
	r.render()
	if notify {
		r.OnSelect.Invoke(id)
	}
}

// SetEditMode switches between editing and play. Bodies are rebuilt so that
// play starts from the canonical poses and editing drops simulated ones.
func (r *Renderer) SetEditMode(on bool) {
	if on == r.opts.EditMode {
		return
	}
	r.opts.EditMode = on
	r.ptr = pointer{}
	for _, m := range r.mounted {
		r.removeBody(m)
		m.node = nil
	}
	r.sound.SetPlayMode(!on)
	r.batches.Invalidate()
	r.render()
	r.syncBatches(true)
}

// Frame advances one display frame: applies finished asset loads, expires
// settle intervals and, in play mode, steps physics.
func (r *Renderer) Frame(dt float32) {
	dirty := false
	if r.assets != nil && r.assets.Poll() > 0 {
		dirty = true
	}
	now := r.now()
	for id, until := range r.settling {
		if !now.Before(until) {
			delete(r.settling, id)
			dirty = true
		}
	}
	if dirty {
		r.render()
	}
	if !r.opts.EditMode && r.world != nil {
		r.step(dt)
	}
}

func (r *Renderer) step(dt float32) {
	r.world.Step(dt)
	for _, id := range r.mountedIDs() {
		m := r.mounted[id]
		if !m.dynamic || m.body == 0 {
			continue
		}
		pose, ok := r.world.Pose(m.body)
		if !ok {
			continue
		}
		w := pose.Matrix()
		if w == m.obj.World {
			continue
		}
		obj := *m.obj
		obj.World = w
		m.obj = &obj
		r.worlds[id] = w
		r.host.Update(&obj)
	}
	if moved := r.batches.Refresh(); len(moved) > 0 {
		r.host.SyncBatches(r.batches.Groups(), nil, "")
	}
	for _, ev := range r.world.Events() {
		if ev.Kind != physics.CollisionEnter {
			continue
		}
		r.playContact(ev.A)
		r.playContact(ev.B)
	}
}

func (r *Renderer) playContact(id string) {
	if m, ok := r.mounted[id]; ok {
		if m.sound != "" {
			r.sound.Play(m.sound)
		}
		return
	}
	if inst, ok := r.batches.Instance(id); ok && inst.Sound != "" {
		r.sound.Play(inst.Sound)
	}
}

// WorldMatrix returns the live world matrix of a rendered node. In play
// mode this is the simulated pose.
func (r *Renderer) WorldMatrix(id string) (mgl32.Mat4, bool) {
	if m, ok := r.mounted[id]; ok {
		return m.obj.World, true
	}
	if w, ok := r.batches.World(id); ok {
		return w, true
	}
	w, ok := r.worlds[id]
	return w, ok
}

func (r *Renderer) WorldPose(id string) (transform.Pose, bool) {
	w, ok := r.WorldMatrix(id)
	if !ok {
		return transform.Pose{}, false
	}
	return transform.Decompose(w), true
}

// Object returns the mounted object for a standalone node.
func (r *Renderer) Object(id string) (*Object, bool) {
	m, ok := r.mounted[id]
	if !ok {
		return nil, false
	}
	return m.obj, true
}

func (r *Renderer) Screenshot() ([]byte, error) {
	return r.host.Screenshot()
}

// Close unmounts everything and releases bodies and baked geometry.
func (r *Renderer) Close() {
	for _, id := range r.mountedIDs() {
		r.unmount(id, r.mounted[id])
	}
	r.instanced = make(map[string]bool)
	r.batches.Dispose()
	r.host.SyncBatches(nil, nil, "")
}

func (r *Renderer) mountedIDs() []string {
	ids := make([]string, 0, len(r.mounted))
	for id := range r.mounted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type nopHost struct{}

func (nopHost) Mount(*Object)                                     {}
func (nopHost) Update(*Object)                                    {}
func (nopHost) Unmount(string)                                    {}
func (nopHost) SyncBatches([]*batch.Group, []batch.Proxy, string) {}
func (nopHost) Screenshot() ([]byte, error)                       { return nil, ErrNoHost }
