package geometry

import (
	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

// parallelEpsilon rejects rays lying (almost) in the triangle plane
const parallelEpsilon = 1e-8

// Triangle represents a single flat-shaded triangle defined by three vertices
type Triangle struct {
	V0, V1, V2 core.Vec3          // The three vertices
	Mat        *material.Material // Material of the triangle
	normal     core.Vec3          // Cached unit face normal
	bounds     core.AABB          // Cached bounding box
}

// NewTriangle creates a new triangle from three vertices
func NewTriangle(v0, v1, v2 core.Vec3, mat *material.Material) *Triangle {
	t := &Triangle{V0: v0, V1: v1, V2: v2, Mat: mat}
	t.update()
	return t
}

// update recomputes the cached normal and bounds after the vertices change
func (t *Triangle) update() {
	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)
	t.normal = edge1.Cross(edge2).Normalize()
	t.bounds = core.NewAABBFromPoints(t.V0, t.V1, t.V2)
}

// Kind implements Primitive
func (t *Triangle) Kind() Kind { return KindTriangle }

// Material implements Primitive
func (t *Triangle) Material() *material.Material { return t.Mat }

// Bounds returns the axis-aligned bounding box of the three vertices
func (t *Triangle) Bounds() core.AABB { return t.bounds }

// Origin returns the centroid
func (t *Triangle) Origin() core.Vec3 {
	return t.V0.Add(t.V1).Add(t.V2).Divide(3)
}

// Normal returns the unit face normal (V1-V0) x (V2-V0)
func (t *Triangle) Normal() core.Vec3 { return t.normal }

// Intersect tests the ray against the triangle using the Möller-Trumbore algorithm.
// The returned normal is the face normal, flipped toward the ray on a back-face hit.
func (t *Triangle) Intersect(ray core.Ray, tMin, tMax float32) (material.HitRecord, bool) {
	edge1 := t.V1.Subtract(t.V0)
	edge2 := t.V2.Subtract(t.V0)

	h := ray.Direction.Cross(edge2)
	det := edge1.Dot(h)
	if math32.Abs(det) < parallelEpsilon {
		return material.HitRecord{}, false
	}

	f := 1 / det
	s := ray.Origin.Subtract(t.V0)
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return material.HitRecord{}, false
	}

	q := s.Cross(edge1)
	v := f * ray.Direction.Dot(q)
	if v < 0 || u+v > 1 {
		return material.HitRecord{}, false
	}

	dist := f * edge2.Dot(q)
	if !(dist >= tMin && dist < tMax) {
		return material.HitRecord{}, false
	}

	hit := material.HitRecord{
		Point:    ray.At(dist),
		Normal:   t.normal,
		T:        dist,
		Material: t.Mat,
	}
	if det < 0 {
		hit.BackFace = true
		hit.Normal = t.normal.Negate()
	}
	return hit, true
}
