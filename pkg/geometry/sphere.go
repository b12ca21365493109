package geometry

import (
	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

// Sphere represents a sphere with a center, radius, and material
type Sphere struct {
	Center core.Vec3
	Radius float32
	Mat    *material.Material
}

// NewSphere creates a new sphere
func NewSphere(center core.Vec3, radius float32, mat *material.Material) *Sphere {
	return &Sphere{Center: center, Radius: radius, Mat: mat}
}

// Kind implements Primitive
func (s *Sphere) Kind() Kind { return KindSphere }

// Material implements Primitive
func (s *Sphere) Material() *material.Material { return s.Mat }

// Origin returns the center
func (s *Sphere) Origin() core.Vec3 { return s.Center }

// Bounds returns center +/- radius
func (s *Sphere) Bounds() core.AABB {
	r := core.Splat(math32.Abs(s.Radius))
	return core.NewAABB(s.Center.Subtract(r), s.Center.Add(r))
}

// Roots returns both solutions of the ray/sphere quadratic in ascending order.
// The direction does not need to be normalized.
func (s *Sphere) Roots(ray core.Ray) (float32, float32, bool) {
	if !(s.Radius > 0) {
		return 0, 0, false
	}

	oc := s.Center.Subtract(ray.Origin)
	a := ray.Direction.LengthSquared()
	if a == 0 {
		return 0, 0, false
	}
	h := ray.Direction.Dot(oc)
	c := oc.LengthSquared() - s.Radius*s.Radius

	discriminant := h*h - a*c
	if discriminant < 0 {
		return 0, 0, false
	}

	sqrtd := math32.Sqrt(discriminant)
	return (h - sqrtd) / a, (h + sqrtd) / a, true
}

// Intersect returns the nearer root in [tMin, tMax), falling back to the far
// root when the ray starts inside the sphere.
func (s *Sphere) Intersect(ray core.Ray, tMin, tMax float32) (material.HitRecord, bool) {
	near, far, ok := s.Roots(ray)
	if !ok {
		return material.HitRecord{}, false
	}

	root := near
	if !(root >= tMin && root < tMax) {
		root = far
		if !(root >= tMin && root < tMax) {
			return material.HitRecord{}, false
		}
	}

	point := ray.At(root)
	hit := material.HitRecord{
		Point:    point,
		T:        root,
		Material: s.Mat,
	}
	hit.SetFaceNormal(ray, point.Subtract(s.Center).Divide(s.Radius))
	return hit, true
}
