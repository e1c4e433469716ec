// Package batch groups instanced nodes that share a model and a physics
// configuration so each group is drawn with one instanced call and backed
// by one batched body set.
package batch

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/assets"
	"prefabforge/internal/logging"
	"prefabforge/internal/physics"
	"prefabforge/internal/transform"
)

// NoPhysics is the physics half of a key for groups without bodies.
const NoPhysics = "none"

// Instance is the world-space record one instanced node registers.
type Instance struct {
	ID      string
	World   mgl32.Mat4
	Asset   string
	Physics physics.BodyType // empty for none
	// Sound is played when the instance's body starts touching another.
	Sound string
}

func (i Instance) key() GroupKey {
	p := string(i.Physics)
	if p == "" {
		p = NoPhysics
	}
	return GroupKey{Asset: i.Asset, Physics: p}
}

// GroupKey identifies a batch: (asset, physics type or "none").
type GroupKey struct {
	Asset   string
	Physics string
}

func (k GroupKey) String() string { return k.Asset + "|" + k.Physics }

// BakedPart is one model part flattened for drawing: an unindexed triangle
// list with face normals in part space, and the part's transform relative
// to the asset root. Disposed is set once the provider has released it.
type BakedPart struct {
	Asset    string
	Name     string
	Mesh     int
	Local    mgl32.Mat4
	Vertices []float32
	Normals  []float32
	Disposed bool
}

// TriangleCount is the number of triangles in the baked list.
func (b *BakedPart) TriangleCount() int { return len(b.Vertices) / 9 }

// Bake flattens every part of m. Parts without triangles are kept so the
// part list still mirrors the model.
func Bake(m *assets.Model) []*BakedPart {
	parts := make([]*BakedPart, 0, len(m.Parts))
	for _, part := range m.Parts {
		b := &BakedPart{Asset: m.Path, Name: part.Name, Mesh: part.Mesh, Local: part.Local}
		pos, idx := part.Geometry.Positions, part.Geometry.Indices
		b.Vertices = make([]float32, 0, len(idx)*3)
		b.Normals = make([]float32, 0, len(idx)*3)
		for t := 0; t+2 < len(idx); t += 3 {
			var corner [3]mgl32.Vec3
			for c := 0; c < 3; c++ {
				i := int(idx[t+c]) * 3
				corner[c] = mgl32.Vec3{pos[i], pos[i+1], pos[i+2]}
				b.Vertices = append(b.Vertices, corner[c][:]...)
			}
			n := corner[1].Sub(corner[0]).Cross(corner[2].Sub(corner[0]))
			if l := n.Len(); l > 0 {
				n = n.Mul(1 / l)
			}
			for c := 0; c < 3; c++ {
				b.Normals = append(b.Normals, n[:]...)
			}
		}
		parts = append(parts, b)
	}
	return parts
}

// DefaultHalfExtents stand in for a model whose bounds are unknown.
var DefaultHalfExtents = mgl32.Vec3{0.5, 0.5, 0.5}

// HalfExtents returns a box centred on the model origin that encloses m.
func HalfExtents(m *assets.Model) mgl32.Vec3 {
	if m == nil {
		return DefaultHalfExtents
	}
	lo, hi, ok := m.Bounds()
	if !ok {
		return DefaultHalfExtents
	}
	var half mgl32.Vec3
	for a := 0; a < 3; a++ {
		half[a] = max(abs(lo[a]), abs(hi[a]), minHalfExtent)
	}
	return half
}

// minHalfExtent keeps flat models collidable.
const minHalfExtent = 0.01

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// Group is a rebuilt batch as handed to the render host. Instances hold
// the canonical records; Matrices start out as their world matrices and
// follow the simulation while a dynamic group is being stepped.
type Group struct {
	Key         GroupKey
	Instances   []Instance
	Matrices    []mgl32.Mat4
	Parts       []*BakedPart
	HalfExtents mgl32.Vec3
	Batch       physics.BatchHandle
	Revision    int

	digest uint64
}

func (g *Group) index(id string) (int, bool) {
	i := sort.Search(len(g.Instances), func(i int) bool { return g.Instances[i].ID >= id })
	return i, i < len(g.Instances) && g.Instances[i].ID == id
}

// Proxy is an invisible per-instance hit target used for selection in edit
// mode.
type Proxy struct {
	ID     string
	World  mgl32.Mat4
	Bounds physics.AABB
}

// ModelSource is the subset of the asset manager the provider reads.
type ModelSource interface {
	Request(path string) assets.State
	Get(path string) assets.Entry
}

type Provider struct {
	models ModelSource
	world  physics.World
	log    logging.Log

	// Release is called for every baked part when it is disposed.
	Release func(part *BakedPart)

	instances map[string]Instance
	groups    map[GroupKey]*Group
	dirty     map[GroupKey]bool
	baked     map[string][]*BakedPart
}

// NewProvider creates a provider. world may be nil when physics is off.
func NewProvider(models ModelSource, world physics.World, log logging.Log) *Provider {
	return &Provider{
		models:    models,
		world:     world,
		log:       logging.OrNop(log),
		instances: make(map[string]Instance),
		groups:    make(map[GroupKey]*Group),
		dirty:     make(map[GroupKey]bool),
		baked:     make(map[string][]*BakedPart),
	}
}

// Register adds or updates an instance. It reports false when the record
// is field-by-field identical to the one already registered.
func (p *Provider) Register(inst Instance) bool {
	old, ok := p.instances[inst.ID]
	if ok && old == inst {
		return false
	}
	if ok {
		p.dirty[old.key()] = true
	}
	p.instances[inst.ID] = inst
	p.dirty[inst.key()] = true
	if p.models != nil {
		p.models.Request(inst.Asset)
	}
	return true
}

// Unregister removes an instance; false when it was not registered.
func (p *Provider) Unregister(id string) bool {
	old, ok := p.instances[id]
	if !ok {
		return false
	}
	delete(p.instances, id)
	p.dirty[old.key()] = true
	return true
}

// Has reports whether id is registered.
func (p *Provider) Has(id string) bool {
	_, ok := p.instances[id]
	return ok
}

// Instance returns the registered record for id.
func (p *Provider) Instance(id string) (Instance, bool) {
	inst, ok := p.instances[id]
	return inst, ok
}

// Sync rebuilds dirty groups and returns the ones whose contents changed.
// Groups waiting on an asset are rebuilt once it becomes ready.
func (p *Provider) Sync() []*Group {
	for key, g := range p.groups {
		if g.Parts == nil && p.ready(key.Asset) {
			p.dirty[key] = true
		}
	}

	members := make(map[GroupKey][]Instance)
	for _, inst := range p.instances {
		k := inst.key()
		if p.dirty[k] {
			members[k] = append(members[k], inst)
		}
	}

	var changed []*Group
	for _, key := range sortedKeys(p.dirty) {
		insts := members[key]
		g := p.groups[key]
		if len(insts) == 0 {
			if g != nil {
				p.removeBatch(g)
				delete(p.groups, key)
				g.Instances, g.Matrices, g.Parts = nil, nil, nil
				g.Revision++
				changed = append(changed, g)
			}
			continue
		}
		sort.Slice(insts, func(i, j int) bool { return insts[i].ID < insts[j].ID })
		ready := p.ready(key.Asset)
		sum := digest(insts, ready)
		if g != nil && g.digest == sum {
			continue
		}
		if g == nil {
			g = &Group{Key: key}
			p.groups[key] = g
		}
		p.rebuild(g, insts, ready)
		g.digest = sum
		changed = append(changed, g)
	}
	p.dirty = make(map[GroupKey]bool)
	p.disposeUnused()
	return changed
}

func (p *Provider) rebuild(g *Group, insts []Instance, ready bool) {
	g.Instances = insts
	g.Matrices = make([]mgl32.Mat4, len(insts))
	for i, inst := range insts {
		g.Matrices[i] = inst.World
	}
	g.Parts = nil
	g.HalfExtents = p.extents(g.Key.Asset)
	if ready {
		g.Parts = p.bake(g.Key.Asset)
	}

	p.removeBatch(g)
	if g.Key.Physics != NoPhysics && p.world != nil {
		bt := physics.BodyType(g.Key.Physics)
		spec := physics.BatchSpec{
			Key:         g.Key.String(),
			Type:        bt,
			Collider:    physics.DefaultCollider(bt),
			HalfExtents: g.HalfExtents,
		}
		for _, inst := range insts {
			spec.Instances = append(spec.Instances, physics.BatchInstance{ID: inst.ID, Pose: transform.Decompose(inst.World)})
		}
		g.Batch = p.world.CreateBatch(spec)
	}
	g.Revision++
	p.log.Debug("batch rebuilt",
		logging.String("group", g.Key.String()),
		logging.Int("instances", len(insts)),
		logging.Int("revision", g.Revision))
}

func (p *Provider) removeBatch(g *Group) {
	if g.Batch != 0 && p.world != nil {
		p.world.RemoveBatch(g.Batch)
	}
	g.Batch = 0
}

func (p *Provider) ready(asset string) bool {
	return p.models != nil && p.models.Get(asset).State == assets.Ready
}

// bake flattens the asset's parts once and caches them.
func (p *Provider) bake(asset string) []*BakedPart {
	if parts, ok := p.baked[asset]; ok {
		return parts
	}
	parts := Bake(p.models.Get(asset).Model)
	for _, part := range parts {
		part.Asset = asset
	}
	p.baked[asset] = parts
	return parts
}

// extents sizes colliders and hit proxies from the loaded model.
func (p *Provider) extents(asset string) mgl32.Vec3 {
	if !p.ready(asset) {
		return DefaultHalfExtents
	}
	return HalfExtents(p.models.Get(asset).Model)
}

func (p *Provider) disposeUnused() {
	used := make(map[string]bool, len(p.groups))
	for key := range p.groups {
		used[key.Asset] = true
	}
	for asset, parts := range p.baked {
		if !used[asset] {
			p.dispose(parts)
			delete(p.baked, asset)
		}
	}
}

func (p *Provider) dispose(parts []*BakedPart) {
	for _, part := range parts {
		if part.Disposed {
			continue
		}
		part.Disposed = true
		if p.Release != nil {
			p.Release(part)
		}
	}
}

// Groups returns the live groups ordered by key.
func (p *Provider) Groups() []*Group {
	keys := make([]GroupKey, 0, len(p.groups))
	for k := range p.groups {
		keys = append(keys, k)
	}
	sortKeys(keys)
	out := make([]*Group, len(keys))
	for i, k := range keys {
		out[i] = p.groups[k]
	}
	return out
}

// Group returns the live group for key.
func (p *Provider) Group(key GroupKey) (*Group, bool) {
	g, ok := p.groups[key]
	return g, ok
}

// Proxies returns one hit-test proxy per registered instance, sorted by id.
func (p *Provider) Proxies() []Proxy {
	out := make([]Proxy, 0, len(p.instances))
	half := make(map[string]mgl32.Vec3)
	for _, inst := range p.instances {
		h, ok := half[inst.Asset]
		if !ok {
			h = p.extents(inst.Asset)
			half[inst.Asset] = h
		}
		out = append(out, Proxy{
			ID:     inst.ID,
			World:  inst.World,
			Bounds: physics.BoundsOf(transform.Decompose(inst.World), h),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// World returns the drawn matrix of an instance: the simulated pose for a
// stepped dynamic group, its registered world matrix otherwise.
func (p *Provider) World(id string) (mgl32.Mat4, bool) {
	inst, ok := p.instances[id]
	if !ok {
		return mgl32.Mat4{}, false
	}
	if g, ok := p.groups[inst.key()]; ok {
		if i, ok := g.index(id); ok && i < len(g.Matrices) {
			return g.Matrices[i], true
		}
	}
	return inst.World, true
}

// Refresh copies simulated poses of dynamic batch members into their
// group's matrices and returns the groups that moved.
func (p *Provider) Refresh() []*Group {
	if p.world == nil {
		return nil
	}
	var moved []*Group
	for _, g := range p.Groups() {
		if g.Batch == 0 || g.Key.Physics != string(physics.Dynamic) {
			continue
		}
		changed := false
		for _, member := range p.world.BatchPoses(g.Batch) {
			i, ok := g.index(member.ID)
			if !ok {
				continue
			}
			if m := member.Pose.Matrix(); m != g.Matrices[i] {
				g.Matrices[i] = m
				changed = true
			}
		}
		if changed {
			moved = append(moved, g)
		}
	}
	return moved
}

// Invalidate forces every group to be rebuilt from its registered
// instances on the next Sync, recreating its bodies.
func (p *Provider) Invalidate() {
	for key, g := range p.groups {
		g.digest = 0
		p.dirty[key] = true
	}
}

// Dispose drops every group, its bodies and all baked geometry.
func (p *Provider) Dispose() {
	for _, g := range p.groups {
		p.removeBatch(g)
	}
	for _, parts := range p.baked {
		p.dispose(parts)
	}
	p.groups = make(map[GroupKey]*Group)
	p.baked = make(map[string][]*BakedPart)
	p.instances = make(map[string]Instance)
	p.dirty = make(map[GroupKey]bool)
}

func digest(insts []Instance, ready bool) uint64 {
	d := xxhash.New()
	var buf [4]byte
	if ready {
		_, _ = d.Write([]byte{1})
	} else {
		_, _ = d.Write([]byte{0})
	}
	for _, inst := range insts {
		_, _ = d.WriteString(inst.ID)
		_, _ = d.Write([]byte{0})
		for _, f := range inst.World {
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

func sortedKeys(m map[GroupKey]bool) []GroupKey {
	keys := make([]GroupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func sortKeys(keys []GroupKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Asset != keys[j].Asset {
			return keys[i].Asset < keys[j].Asset
		}
		return keys[i].Physics < keys[j].Physics
	})
}
