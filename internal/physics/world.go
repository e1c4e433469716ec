package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/logging"
	"prefabforge/internal/transform"
)

// DefaultCellSize is the spatial grid cell edge used when none is given.
const DefaultCellSize = 5.0

// maxCellsPerAxis caps how many cells one huge body is inserted into.
const maxCellsPerAxis = 64

// CellKey addresses one cell of the spatial hash.
type CellKey struct {
	X, Y, Z int
}

type pair struct {
	A, B   BodyHandle
	sensor bool
}

func makePair(a, b *body) pair {
	p := pair{A: a.handle, B: b.handle, sensor: a.spec.Sensor || b.spec.Sensor}
	if p.A > p.B {
		p.A, p.B = p.B, p.A
	}
	return p
}

type body struct {
	handle BodyHandle
	spec   BodySpec
	pose   transform.Pose
	vel    mgl32.Vec3
	batch  BatchHandle
}

func (b *body) bounds() AABB {
	half := b.spec.HalfExtents
	if b.spec.Collider == Ball {
		r := max(half.X(), half.Y(), half.Z())
		half = mgl32.Vec3{r, r, r}
	}
	return BoundsOf(b.pose, half)
}

// Sim is a small in-process world: gravity integration for dynamic bodies,
// AABB contact resolution against everything else, and enter/exit events
// computed by diffing this step's contact pairs with the previous step's.
type Sim struct {
	Gravity  mgl32.Vec3
	CellSize float32

	log     logging.Log
	next    int
	bodies  map[BodyHandle]*body
	batches map[BatchHandle][]BodyHandle
	grid    map[CellKey][]*body

	activeContacts  map[pair]bool
	currentContacts map[pair]bool
	events          []ContactEvent
}

func NewSim(gravity mgl32.Vec3, cellSize float32, log logging.Log) *Sim {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Sim{
		Gravity:         gravity,
		CellSize:        cellSize,
		log:             logging.OrNop(log),
		bodies:          make(map[BodyHandle]*body),
		batches:         make(map[BatchHandle][]BodyHandle),
		grid:            make(map[CellKey][]*body),
		activeContacts:  make(map[pair]bool),
		currentContacts: make(map[pair]bool),
	}
}

func (s *Sim) CreateBody(spec BodySpec) BodyHandle {
	return s.addBody(spec, 0)
}

func (s *Sim) addBody(spec BodySpec, batch BatchHandle) BodyHandle {
	if spec.Collider == "" {
		spec.Collider = DefaultCollider(spec.Type)
	}
	if spec.HalfExtents == (mgl32.Vec3{}) {
		spec.HalfExtents = mgl32.Vec3{0.5, 0.5, 0.5}
	}
	if spec.Mass <= 0 {
		spec.Mass = 1
	}
	s.next++
	h := BodyHandle(s.next)
	s.bodies[h] = &body{handle: h, spec: spec, pose: spec.Pose, batch: batch}
	return h
}

// RemoveBody drops a body. Contacts it was part of vanish without an exit
// event since the node no longer exists.
func (s *Sim) RemoveBody(h BodyHandle) {
	if _, ok := s.bodies[h]; !ok {
		return
	}
	delete(s.bodies, h)
	for p := range s.activeContacts {
		if p.A == h || p.B == h {
			delete(s.activeContacts, p)
		}
	}
}

func (s *Sim) SetPose(h BodyHandle, pose transform.Pose) {
	if b, ok := s.bodies[h]; ok {
		b.pose = pose
		b.vel = mgl32.Vec3{}
	}
}

func (s *Sim) Pose(h BodyHandle) (transform.Pose, bool) {
	b, ok := s.bodies[h]
	if !ok {
		return transform.Pose{}, false
	}
	return b.pose, true
}

func (s *Sim) CreateBatch(spec BatchSpec) BatchHandle {
	s.next++
	bh := BatchHandle(s.next)
	handles := make([]BodyHandle, 0, len(spec.Instances))
	for _, inst := range spec.Instances {
		handles = append(handles, s.addBody(BodySpec{
			ID:          inst.ID,
			Type:        spec.Type,
			Collider:    spec.Collider,
			Pose:        inst.Pose,
			HalfExtents: spec.HalfExtents,
		}, bh))
	}
	s.batches[bh] = handles
	return bh
}

func (s *Sim) RemoveBatch(h BatchHandle) {
	for _, bh := range s.batches[h] {
		s.RemoveBody(bh)
	}
	delete(s.batches, h)
}

func (s *Sim) BatchPoses(h BatchHandle) []BatchInstance {
	handles := s.batches[h]
	out := make([]BatchInstance, 0, len(handles))
	for _, bh := range handles {
		if b, ok := s.bodies[bh]; ok {
			out = append(out, BatchInstance{ID: b.spec.ID, Pose: b.pose})
		}
	}
	return out
}

// BodyCount reports the number of live bodies, batch members included.
func (s *Sim) BodyCount() int {
	return len(s.bodies)
}

func (s *Sim) Events() []ContactEvent {
	out := s.events
	s.events = nil
	return out
}

func (s *Sim) sorted() []*body {
	out := make([]*body, 0, len(s.bodies))
	for _, b := range s.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].handle < out[j].handle })
	return out
}

func (s *Sim) Step(dt float32) {
	if dt <= 0 {
		return
	}
	s.currentContacts = make(map[pair]bool)
	all := s.sorted()

	// 1. integrate dynamic bodies
	for _, b := range all {
		if b.spec.Type != Dynamic {
			continue
		}
		b.vel = b.vel.Add(s.Gravity.Mul(dt))
		b.pose.Position = b.pose.Position.Add(b.vel.Mul(dt))
	}

	// 2. broad phase on the spatial hash
	s.rebuildGrid(all)
	checked := make(map[pair]bool)
	for _, b := range all {
		for _, other := range s.neighbors(b) {
			if other == b {
				continue
			}
			p := makePair(b, other)
			if checked[p] {
				continue
			}
			checked[p] = true
			s.narrowPhase(b, other, p)
		}
	}

	// 3. contact callbacks
	s.dispatchContacts()
}

func (s *Sim) cellOf(v mgl32.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(float64(v.X() / s.CellSize))),
		Y: int(math.Floor(float64(v.Y() / s.CellSize))),
		Z: int(math.Floor(float64(v.Z() / s.CellSize))),
	}
}

func (s *Sim) cellsOf(box AABB) (CellKey, CellKey) {
	lo, hi := s.cellOf(box.Min), s.cellOf(box.Max)
	if hi.X-lo.X > maxCellsPerAxis {
		hi.X = lo.X + maxCellsPerAxis
	}
	if hi.Y-lo.Y > maxCellsPerAxis {
		hi.Y = lo.Y + maxCellsPerAxis
	}
	if hi.Z-lo.Z > maxCellsPerAxis {
		hi.Z = lo.Z + maxCellsPerAxis
	}
	return lo, hi
}

func (s *Sim) rebuildGrid(all []*body) {
	for k := range s.grid {
		delete(s.grid, k)
	}
	for _, b := range all {
		lo, hi := s.cellsOf(b.bounds())
		for x := lo.X; x <= hi.X; x++ {
			for y := lo.Y; y <= hi.Y; y++ {
				for z := lo.Z; z <= hi.Z; z++ {
					k := CellKey{x, y, z}
					s.grid[k] = append(s.grid[k], b)
				}
			}
		}
	}
}

func (s *Sim) neighbors(b *body) []*body {
	seen := make(map[BodyHandle]bool)
	var out []*body
	lo, hi := s.cellsOf(b.bounds())
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, o := range s.grid[CellKey{x, y, z}] {
					if !seen[o.handle] {
						seen[o.handle] = true
						out = append(out, o)
					}
				}
			}
		}
	}
	return out
}

func (s *Sim) narrowPhase(a, b *body, p pair) {
	if a.spec.Type != Dynamic && b.spec.Type != Dynamic && !p.sensor {
		return
	}
	if a.batch != 0 && a.batch == b.batch {
		return
	}
	ba, bb := a.bounds(), b.bounds()
	if !ba.Intersects(bb) {
		return
	}
	s.currentContacts[p] = true
	if p.sensor {
		return
	}

	switch {
	case a.spec.Type == Dynamic && b.spec.Type == Dynamic:
		push := ba.Resolve(bb).Mul(0.5)
		a.pose.Position = a.pose.Position.Add(push)
		b.pose.Position = b.pose.Position.Sub(push)
		a.vel, b.vel = bounce(a.vel, push, a.spec.Restitution), bounce(b.vel, push.Mul(-1), b.spec.Restitution)
	case a.spec.Type == Dynamic:
		push := ba.Resolve(bb)
		a.pose.Position = a.pose.Position.Add(push)
		a.vel = bounce(a.vel, push, a.spec.Restitution)
	default:
		push := bb.Resolve(ba)
		b.pose.Position = b.pose.Position.Add(push)
		b.vel = bounce(b.vel, push, b.spec.Restitution)
	}
}

// bounce reflects the velocity component opposing push, scaled by
// restitution.
func bounce(vel, push mgl32.Vec3, restitution float32) mgl32.Vec3 {
	if push.Len() == 0 {
		return vel
	}
	n := push.Normalize()
	into := vel.Dot(n)
	if into >= 0 {
		return vel
	}
	return vel.Sub(n.Mul(into * (1 + restitution)))
}

func (s *Sim) dispatchContacts() {
	var entered, exited []pair
	for p := range s.currentContacts {
		if !s.activeContacts[p] {
			entered = append(entered, p)
		}
	}
	for p := range s.activeContacts {
		if !s.currentContacts[p] {
			exited = append(exited, p)
		}
	}
	sortPairs(entered)
	sortPairs(exited)
	for _, p := range entered {
		kind := CollisionEnter
		if p.sensor {
			kind = IntersectionEnter
		}
		s.emit(kind, p)
	}
	for _, p := range exited {
		kind := CollisionExit
		if p.sensor {
			kind = IntersectionExit
		}
		s.emit(kind, p)
	}

	// swap buffers
	s.activeContacts = s.currentContacts
}

func (s *Sim) emit(kind EventKind, p pair) {
	a, b := s.bodies[p.A], s.bodies[p.B]
	if a == nil || b == nil {
		return
	}
	s.events = append(s.events, ContactEvent{Kind: kind, A: a.spec.ID, B: b.spec.ID})
	s.log.Debug("contact", logging.String("kind", kind.String()), logging.String("a", a.spec.ID), logging.String("b", b.spec.ID))
}

func sortPairs(ps []pair) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].A != ps[j].A {
			return ps[i].A < ps[j].A
		}
		return ps[i].B < ps[j].B
	})
}
