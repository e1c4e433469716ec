package rlhost

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"prefabforge/internal/batch"
	"prefabforge/internal/components"
	"prefabforge/internal/engine"
	"prefabforge/internal/physics"
	"prefabforge/internal/scene"
	"prefabforge/internal/transform"
)

// Ray is a world-space pick ray. Dir need not be normalized.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

func (r Ray) At(t float32) mgl32.Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

var defaultHalf = mgl32.Vec3{0.5, 0.5, 0.5}

// objectBounds is the world box used for picking and the selection outline.
func objectBounds(obj *scene.Object) physics.AABB {
	half := defaultHalf
	if v, ok := engine.Find(obj.Visuals, engine.KindSelection); ok {
		if h, ok := v.Props["halfExtents"].(mgl32.Vec3); ok {
			half = h
		}
	} else if v, ok := engine.Find(obj.Visuals, engine.KindMesh); ok {
		half = components.HalfExtents(v.Props)
	}
	return physics.BoundsOf(transform.Decompose(obj.World), half)
}

type target struct {
	id     string
	bounds physics.AABB
}

func targets(objects map[string]*scene.Object, proxies []batch.Proxy) []target {
	out := make([]target, 0, len(objects)+len(proxies))
	for id, obj := range objects {
		out = append(out, target{id: id, bounds: objectBounds(obj)})
	}
	for _, p := range proxies {
		out = append(out, target{id: p.ID, bounds: p.Bounds})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// hitAABB is the slab test. It returns the entry distance along the ray,
// or zero when the origin is inside the box.
func hitAABB(r Ray, box physics.AABB) (float32, bool) {
	tmin := float32(0)
	tmax := float32(math.MaxFloat32)
	for i := 0; i < 3; i++ {
		if abs32(r.Dir[i]) < 1e-8 {
			if r.Origin[i] < box.Min[i] || r.Origin[i] > box.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / r.Dir[i]
		t1 := (box.Min[i] - r.Origin[i]) * inv
		t2 := (box.Max[i] - r.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// nearest returns the closest target hit by r. Ties go to the lower id.
func nearest(r Ray, ts []target) (string, bool) {
	best := ""
	bestT := float32(math.MaxFloat32)
	for _, t := range ts {
		d, ok := hitAABB(r, t.bounds)
		if ok && d < bestT {
			best, bestT = t.id, d
		}
	}
	return best, best != ""
}

// closestPointBetweenRays returns the parameters of the closest points on
// a+u*t1 and b+v*t2 and the distance between them.
func closestPointBetweenRays(a, u, b, v mgl32.Vec3) (t1, t2, dist float32) {
	w := a.Sub(b)
	uu, uv, vv := u.Dot(u), u.Dot(v), v.Dot(v)
	uw, vw := u.Dot(w), v.Dot(w)

	denom := uu*vv - uv*uv
	if denom < 1e-6 {
		return 0, 0, math.MaxFloat32
	}
	t1 = (uv*vw - vv*uw) / denom
	t2 = (uu*vw - uv*uw) / denom
	dist = a.Add(u.Mul(t1)).Sub(b.Add(v.Mul(t2))).Len()
	return
}

func rayPlaneIntersect(r Ray, point, normal mgl32.Vec3) (mgl32.Vec3, bool) {
	denom := r.Dir.Dot(normal)
	if abs32(denom) < 1e-6 {
		return mgl32.Vec3{}, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return mgl32.Vec3{}, false
	}
	return r.At(t), true
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
