// Package assets loads model files off the render thread and exposes their
// state synchronously: every path is NotRequested, Loading, Ready or Failed.
// Completions are queued and only applied when the render loop calls Poll.
package assets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"

	"prefabforge/internal/gltf"
	"prefabforge/internal/logging"
)

var (
	ErrUnsupported = errors.New("unsupported asset format")
	ErrClosed      = errors.New("asset manager closed")
)

type State int

const (
	NotRequested State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "not-requested"
	}
}

// Part is one drawable piece of a model with its transform relative to the
// model root. Geometry is in the part's own space.
type Part struct {
	Name     string
	Mesh     int
	Local    mgl32.Mat4
	Geometry gltf.Geometry
}

// Model is the CPU-side description of a loaded asset. GPU resources are
// owned by the render host, keyed by Path.
type Model struct {
	Path   string
	Format string
	Parts  []Part
	Size   int
}

// Bounds returns the box around every part's geometry in model space. ok is
// false when no part carries triangles.
func (m *Model) Bounds() (lo, hi mgl32.Vec3, ok bool) {
	for _, part := range m.Parts {
		if part.Geometry.Empty() {
			continue
		}
		for i := 0; i < 8; i++ {
			corner := part.Geometry.Min
			if i&1 != 0 {
				corner[0] = part.Geometry.Max[0]
			}
			if i&2 != 0 {
				corner[1] = part.Geometry.Max[1]
			}
			if i&4 != 0 {
				corner[2] = part.Geometry.Max[2]
			}
			p := mgl32.TransformCoordinate(corner, part.Local)
			if !ok {
				lo, hi, ok = p, p, true
				continue
			}
			for a := 0; a < 3; a++ {
				lo[a] = min(lo[a], p[a])
				hi[a] = max(hi[a], p[a])
			}
		}
	}
	return lo, hi, ok
}

// Result is what a Loader reports. Loaders never panic; failure is carried
// by Success=false and Err.
type Result struct {
	Success bool
	Model   *Model
	Err     error
}

type Loader interface {
	Load(ctx context.Context, path string) Result
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) Result

func (f LoaderFunc) Load(ctx context.Context, path string) Result { return f(ctx, path) }

// Entry is the state of one path.
type Entry struct {
	Path  string
	State State
	Model *Model
	Err   error
}

// Subscription delivers an Entry once the path settles. A cancelled
// subscription is never called.
type Subscription struct {
	path      string
	fn        func(Entry)
	cancelled atomic.Bool
}

func (s *Subscription) Cancel() { s.cancelled.Store(true) }

func (s *Subscription) Cancelled() bool { return s.cancelled.Load() }

type Manager struct {
	loader Loader
	log    logging.Log

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*Entry
	queue   []Entry
	subs    map[string][]*Subscription
	closed  bool
}

func NewManager(loader Loader, log logging.Log) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		loader:  loader,
		log:     logging.OrNop(log),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*Entry),
		subs:    make(map[string][]*Subscription),
	}
}

// State returns the current state of path without requesting it.
func (m *Manager) State(path string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[path]; ok {
		return e.State
	}
	return NotRequested
}

// Get returns the settled entry for path.
func (m *Manager) Get(path string) Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[path]; ok {
		return *e
	}
	return Entry{Path: path}
}

// Request starts loading path unless it is already loading or settled. At
// most one load per path is ever in flight.
func (m *Manager) Request(path string) State {
	if path == "" {
		return NotRequested
	}
	m.mu.Lock()
	if e, ok := m.entries[path]; ok {
		m.mu.Unlock()
		return e.State
	}
	if m.closed {
		m.mu.Unlock()
		return NotRequested
	}
	m.entries[path] = &Entry{Path: path, State: Loading}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		res := m.load(m.ctx, path)
		m.mu.Lock()
		m.queue = append(m.queue, entryFrom(path, res))
		m.mu.Unlock()
	}()
	return Loading
}

func (m *Manager) load(ctx context.Context, path string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("loader panic: %v", r)}
		}
	}()
	return m.loader.Load(ctx, path)
}

func entryFrom(path string, res Result) Entry {
	if res.Success && res.Model != nil {
		return Entry{Path: path, State: Ready, Model: res.Model}
	}
	err := res.Err
	if err == nil {
		err = fmt.Errorf("load %s: no model returned", path)
	}
	return Entry{Path: path, State: Failed, Err: err}
}

// Subscribe calls fn when path settles. If it already has, fn runs on the
// next Poll.
func (m *Manager) Subscribe(path string, fn func(Entry)) *Subscription {
	sub := &Subscription{path: path, fn: fn}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[path] = append(m.subs[path], sub)
	if e, ok := m.entries[path]; ok && (e.State == Ready || e.State == Failed) {
		m.queue = append(m.queue, Entry{Path: path, State: e.State, Model: e.Model, Err: e.Err})
	}
	return sub
}

// Poll applies queued completions and notifies subscribers. It must be
// called from the render thread; it returns the number of entries applied.
func (m *Manager) Poll() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	var deliveries []func()
	for _, done := range queue {
		e, ok := m.entries[done.Path]
		if !ok {
			// evicted while loading
			continue
		}
		if e.State == Loading {
			*e = done
			if done.State == Failed {
				m.log.Warn("asset load failed", logging.String("path", done.Path), logging.Err(done.Err))
			} else {
				m.log.Debug("asset ready", logging.String("path", done.Path))
			}
		}
		settled := *e
		subs := m.subs[done.Path]
		m.subs[done.Path] = nil
		for _, s := range subs {
			s := s
			deliveries = append(deliveries, func() {
				if !s.Cancelled() {
					s.fn(settled)
				}
			})
		}
	}
	m.mu.Unlock()

	for _, d := range deliveries {
		d()
	}
	return len(queue)
}

// Preload loads paths with at most workers concurrent loads and waits for
// them. Results are applied immediately. The first failure is returned but
// does not stop the other loads.
func (m *Manager) Preload(ctx context.Context, paths []string, workers int) error {
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	var todo []string
	for _, p := range dedupe(paths) {
		if _, ok := m.entries[p]; ok {
			continue
		}
		m.entries[p] = &Entry{Path: p, State: Loading}
		todo = append(todo, p)
	}
	m.mu.Unlock()

	for _, p := range todo {
		p := p
		g.Go(func() error {
			e := entryFrom(p, m.load(ctx, p))
			m.mu.Lock()
			m.queue = append(m.queue, e)
			m.mu.Unlock()
			if e.State == Failed {
				return fmt.Errorf("preload %s: %w", p, e.Err)
			}
			return nil
		})
	}
	err := g.Wait()
	m.Poll()
	return err
}

// Wait blocks until every background load has finished. Completions still
// need a Poll to become visible.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Evict forgets path so the next Request loads it again. Pending
// subscriptions are dropped.
func (m *Manager) Evict(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, path)
	for _, s := range m.subs[path] {
		s.Cancel()
	}
	delete(m.subs, path)
}

// Paths lists every known path, sorted.
func (m *Manager) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for p := range m.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Close cancels outstanding loads and waits for their goroutines.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
