// Package rlhost draws a reconciled scene with raylib. It implements
// scene.Host, owns every GPU resource, and turns mouse input into the
// renderer's pointer and gizmo calls. Everything here must run on the
// thread that created the window.
package rlhost

import (
	"bytes"
	"fmt"
	"image/png"
	"sort"
	"unsafe"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/assets"
	"prefabforge/internal/batch"
	"prefabforge/internal/components"
	"prefabforge/internal/engine"
	"prefabforge/internal/logging"
	"prefabforge/internal/scene"
)

var (
	colorSelection = rl.NewColor(255, 180, 40, 255)
	colorProxy     = rl.NewColor(120, 120, 140, 120)
	colorLight     = rl.NewColor(255, 230, 120, 255)
)

type label struct {
	pos   mgl32.Vec3
	text  string
	size  int32
	color rl.Color
}

// Models is the asset state the host draws model files from. Files are
// never read here; a model is drawn once its entry is Ready.
type Models interface {
	Get(path string) assets.Entry
}

type Host struct {
	models Models
	log    logging.Log

	objects  map[string]*scene.Object
	groups   []*batch.Group
	proxies  []batch.Proxy
	selected string

	shapes map[string]rl.Model
	// baked holds the flattened parts of standalone model visuals by path;
	// batch parts are owned by the batch provider.
	baked  map[string][]*batch.BakedPart
	parts  map[*batch.BakedPart]rl.Model
	labels []label

	gizmo   *Gizmo
	pointer pointerState

	// ShowProxies outlines every instanced hit target in edit mode.
	ShowProxies bool
}

// New creates a host. models may be nil, in which case model visuals draw
// nothing.
func New(models Models, log logging.Log) *Host {
	return &Host{
		models:  models,
		log:     logging.OrNop(log),
		objects: make(map[string]*scene.Object),
		shapes:  make(map[string]rl.Model),
		baked:   make(map[string][]*batch.BakedPart),
		parts:   make(map[*batch.BakedPart]rl.Model),
		gizmo:   NewGizmo(),
	}
}

func (h *Host) Mount(obj *scene.Object)  { h.objects[obj.ID] = obj }
func (h *Host) Update(obj *scene.Object) { h.objects[obj.ID] = obj }
func (h *Host) Unmount(id string)        { delete(h.objects, id) }

func (h *Host) SyncBatches(groups []*batch.Group, proxies []batch.Proxy, selected string) {
	h.groups = groups
	h.proxies = proxies
	h.selected = selected
}

// Release is installed as the batch provider's release hook and frees the
// part's GPU copy.
func (h *Host) Release(part *batch.BakedPart) {
	if m, ok := h.parts[part]; ok {
		rl.UnloadModel(m)
		delete(h.parts, part)
	}
}

// Screenshot encodes the current back buffer as PNG.
func (h *Host) Screenshot() ([]byte, error) {
	img := rl.LoadImageFromScreen()
	defer rl.UnloadImage(img)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.ToImage()); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Draw renders the scene. Call between BeginDrawing and EndDrawing.
func (h *Host) Draw(cam *OrbitCamera, selected string, editMode bool) {
	c := cam.Camera3D()
	h.labels = h.labels[:0]

	rl.BeginMode3D(c)
	if editMode {
		rl.DrawGrid(20, 1)
	}
	for _, id := range h.ids() {
		h.drawObject(h.objects[id], editMode)
	}
	for _, g := range h.groups {
		h.drawGroup(g)
	}
	if editMode {
		h.drawSelection(selected)
	}
	rl.EndMode3D()

	for _, l := range h.labels {
		p := rl.GetWorldToScreen(toVec3(l.pos), c)
		rl.DrawText(l.text, int32(p.X)-rl.MeasureText(l.text, l.size)/2, int32(p.Y), l.size, l.color)
	}
	h.collect()
}

func (h *Host) ids() []string {
	ids := make([]string, 0, len(h.objects))
	for id := range h.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type surface struct {
	tint      rl.Color
	wireframe bool
}

func surfaceOf(vs []engine.Visual) surface {
	s := surface{tint: rl.White}
	if m, ok := engine.Find(vs, engine.KindMaterial); ok {
		s.tint = toColor(m.Props["color"], number(m.Props, "opacity", 1))
		s.wireframe = flag(m.Props, "wireframe")
	}
	return s
}

func (h *Host) drawObject(obj *scene.Object, editMode bool) {
	s := surfaceOf(obj.Visuals)
	h.drawVisuals(obj, obj.Visuals, s, editMode)
}

func (h *Host) drawVisuals(obj *scene.Object, vs []engine.Visual, s surface, editMode bool) {
	for _, v := range vs {
		switch v.Kind {
		case engine.KindMesh:
			model, offset := h.shape(v.Props)
			drawModel(model, obj.World.Mul4(offset), s)
		case engine.KindModel:
			parts := h.modelParts(text(v.Props, "filename", ""))
			h.drawParts(partDraws(parts, []mgl32.Mat4{obj.World}), s)
		case engine.KindLight:
			if editMode {
				pos := toVec3(obj.World.Col(3).Vec3())
				rl.DrawSphereWires(pos, 0.15, 6, 6, toColor(v.Props["color"], 1))
				rl.DrawSphere(pos, 0.05, colorLight)
			}
		case engine.KindText:
			size := int32(number(v.Props, "fontSize", 1) * 20)
			if size < 8 {
				size = 8
			}
			h.labels = append(h.labels, label{
				pos:   obj.World.Col(3).Vec3(),
				text:  text(v.Props, "text", ""),
				size:  size,
				color: toColor(v.Props["color"], 1),
			})
		}
		if len(v.Children) > 0 {
			h.drawVisuals(obj, v.Children, s, editMode)
		}
	}
}

func drawModel(model rl.Model, world mgl32.Mat4, s surface) {
	model.Transform = toMatrix(world)
	if s.wireframe {
		rl.DrawModelWires(model, rl.Vector3Zero(), 1, s.tint)
		return
	}
	rl.DrawModel(model, rl.Vector3Zero(), 1, s.tint)
}

// drawGroup draws every baked part of a batch at every instance. Each part
// is uploaded once; the default shader has no per-instance attribute, so
// this is one call per part and instance against that upload.
func (h *Host) drawGroup(g *batch.Group) {
	h.drawParts(partDraws(g.Parts, g.Matrices), surface{tint: rl.White})
}

// partDraw is one part placed at one instance.
type partDraw struct {
	part  *batch.BakedPart
	world mgl32.Mat4
}

// partDraws places each part at each instance matrix, applying the part's
// own transform inside the instance's. Empty and disposed parts are
// skipped.
func partDraws(parts []*batch.BakedPart, instances []mgl32.Mat4) []partDraw {
	var out []partDraw
	for _, part := range parts {
		if part.Disposed || part.TriangleCount() == 0 {
			continue
		}
		for _, m := range instances {
			out = append(out, partDraw{part: part, world: m.Mul4(part.Local)})
		}
	}
	return out
}

func (h *Host) drawParts(draws []partDraw, s surface) {
	for _, d := range draws {
		drawModel(h.partModel(d.part), d.world, s)
	}
}

func (h *Host) drawSelection(selected string) {
	if h.ShowProxies {
		for _, p := range h.proxies {
			drawBox(p.Bounds.Min, p.Bounds.Max, colorProxy)
		}
	}
	if selected == "" {
		return
	}
	var world mgl32.Mat4
	if obj, ok := h.objects[selected]; ok {
		b := objectBounds(obj)
		drawBox(b.Min, b.Max, colorSelection)
		world = obj.World
	} else if p, ok := h.proxy(selected); ok {
		drawBox(p.Bounds.Min, p.Bounds.Max, colorSelection)
		world = p.World
	} else {
		return
	}
	h.gizmo.draw(world.Col(3).Vec3())
}

func drawBox(min, max mgl32.Vec3, color rl.Color) {
	center := min.Add(max).Mul(0.5)
	rl.DrawCubeWiresV(toVec3(center), toVec3(max.Sub(min)), color)
}

func (h *Host) proxy(id string) (batch.Proxy, bool) {
	for _, p := range h.proxies {
		if p.ID == id {
			return p, true
		}
	}
	return batch.Proxy{}, false
}

// shape returns the cached primitive for a Geometry visual and the offset
// that centers it on the node origin.
func (h *Host) shape(props map[string]any) (rl.Model, mgl32.Mat4) {
	half := components.HalfExtents(props)
	shape := text(props, "shape", components.ShapeBox)
	key := fmt.Sprintf("%s/%.3f/%.3f/%.3f", shape, half.X(), half.Y(), half.Z())
	offset := mgl32.Ident4()
	if shape == components.ShapeCylinder {
		offset = mgl32.Translate3D(0, -half.Y(), 0)
	}
	if m, ok := h.shapes[key]; ok {
		return m, offset
	}
	var mesh rl.Mesh
	switch shape {
	case components.ShapeSphere:
		mesh = rl.GenMeshSphere(half.X(), 16, 16)
	case components.ShapePlane:
		mesh = rl.GenMeshPlane(half.X()*2, half.Z()*2, 1, 1)
	case components.ShapeCylinder:
		mesh = rl.GenMeshCylinder(half.X(), half.Y()*2, 16)
	default:
		mesh = rl.GenMeshCube(half.X()*2, half.Y()*2, half.Z()*2)
	}
	m := rl.LoadModelFromMesh(mesh)
	h.shapes[key] = m
	return m, offset
}

// modelParts returns the baked parts of a standalone model file, baking
// them the first time its asset entry is Ready.
func (h *Host) modelParts(path string) []*batch.BakedPart {
	if path == "" || h.models == nil {
		return nil
	}
	if parts, ok := h.baked[path]; ok {
		return parts
	}
	e := h.models.Get(path)
	if e.State != assets.Ready || e.Model == nil {
		return nil
	}
	parts := batch.Bake(e.Model)
	h.baked[path] = parts
	h.log.Debug("model baked", logging.String("path", path), logging.Int("parts", len(parts)))
	return parts
}

// partModel uploads a baked part on first use. The vertex arrays are
// copied into raylib's allocator so UnloadModel can free them like any
// generated mesh.
func (h *Host) partModel(part *batch.BakedPart) rl.Model {
	if m, ok := h.parts[part]; ok {
		return m
	}
	n := part.TriangleCount()
	mesh := rl.Mesh{
		VertexCount:   int32(n * 3),
		TriangleCount: int32(n),
		Vertices:      cFloats(part.Vertices),
		Normals:       cFloats(part.Normals),
	}
	rl.UploadMesh(&mesh, false)
	m := rl.LoadModelFromMesh(mesh)
	h.parts[part] = m
	h.log.Debug("part uploaded", logging.String("asset", part.Asset), logging.String("part", part.Name), logging.Int("triangles", n))
	return m
}

func cFloats(src []float32) *float32 {
	p := (*float32)(rl.MemAlloc(uint32(len(src) * 4)))
	copy(unsafe.Slice(p, len(src)), src)
	return p
}

// collect frees standalone model parts no mounted object draws any more.
func (h *Host) collect() {
	if len(h.baked) == 0 {
		return
	}
	inUse := make(map[string]bool)
	for _, obj := range h.objects {
		for _, path := range modelFiles(obj.Visuals) {
			inUse[path] = true
		}
	}
	for path, parts := range h.baked {
		if inUse[path] {
			continue
		}
		for _, part := range parts {
			h.Release(part)
		}
		delete(h.baked, path)
		h.log.Debug("model released", logging.String("path", path))
	}
}

func modelFiles(vs []engine.Visual) []string {
	var out []string
	for _, v := range vs {
		if v.Kind == engine.KindModel {
			out = append(out, text(v.Props, "filename", ""))
		}
		out = append(out, modelFiles(v.Children)...)
	}
	return out
}

// Close releases every GPU resource. The window must still be open.
func (h *Host) Close() {
	for _, m := range h.shapes {
		rl.UnloadModel(m)
	}
	for _, m := range h.parts {
		rl.UnloadModel(m)
	}
	clear(h.shapes)
	clear(h.parts)
	clear(h.baked)
	clear(h.objects)
	h.groups = nil
	h.proxies = nil
}
