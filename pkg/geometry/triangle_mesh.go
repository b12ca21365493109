package geometry

import (
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
	"github.com/go-gl/mathgl/mgl32"
)

// meshBVHThreshold is the triangle count above which a mesh indexes its own triangles
const meshBVHThreshold = 16

// TriangleMesh is a group of triangles sharing a material and a model transform.
// Triangles are stored in model space; world-space copies are rebuilt whenever
// the transform or the triangle set changes.
type TriangleMesh struct {
	Mat *material.Material

	position core.Vec3
	rotation core.Vec3 // Euler angles in radians, applied X then Y then Z
	scale    core.Vec3

	local  []Triangle
	world  []*Triangle
	bounds core.AABB
	bvh    *BVH
	dirty  bool
}

// NewTriangleMesh creates an empty mesh with an identity transform
func NewTriangleMesh(mat *material.Material) *TriangleMesh {
	return &TriangleMesh{
		Mat:   mat,
		scale: core.Splat(1),
		dirty: true,
	}
}

// AddTriangle appends a model-space triangle
func (m *TriangleMesh) AddTriangle(v0, v1, v2 core.Vec3) {
	m.local = append(m.local, Triangle{V0: v0, V1: v1, V2: v2, Mat: m.Mat})
	m.dirty = true
}

// Len returns the number of triangles
func (m *TriangleMesh) Len() int {
	return len(m.local)
}

// Position returns the model translation
func (m *TriangleMesh) Position() core.Vec3 { return m.position }

// Rotation returns the model Euler rotation
func (m *TriangleMesh) Rotation() core.Vec3 { return m.rotation }

// Scale returns the model scale
func (m *TriangleMesh) Scale() core.Vec3 { return m.scale }

// SetPosition sets the model translation
func (m *TriangleMesh) SetPosition(position core.Vec3) {
	m.position = position
	m.dirty = true
}

// Move offsets the model translation
func (m *TriangleMesh) Move(delta core.Vec3) {
	m.SetPosition(m.position.Add(delta))
}

// SetRotation sets the model rotation in radians
func (m *TriangleMesh) SetRotation(rotation core.Vec3) {
	m.rotation = rotation
	m.dirty = true
}

// Rotate adds to the model rotation; the pivot is always the mesh position
func (m *TriangleMesh) Rotate(delta core.Vec3) {
	m.SetRotation(m.rotation.Add(delta))
}

// SetScale sets the per-axis model scale
func (m *TriangleMesh) SetScale(scale core.Vec3) {
	m.scale = scale
	m.dirty = true
}

// ModelMatrix returns translate * rotate * scale
func (m *TriangleMesh) ModelMatrix() mgl32.Mat4 {
	rotate := mgl32.HomogRotate3DZ(m.rotation.Z).
		Mul4(mgl32.HomogRotate3DY(m.rotation.Y)).
		Mul4(mgl32.HomogRotate3DX(m.rotation.X))
	return mgl32.Translate3D(m.position.X, m.position.Y, m.position.Z).
		Mul4(rotate).
		Mul4(mgl32.Scale3D(m.scale.X, m.scale.Y, m.scale.Z))
}

// Update rebuilds world-space triangles, bounds and the internal index.
// Call it after changing the transform or triangles and before rendering;
// World.RecalculateBVH does this for every mesh it holds.
func (m *TriangleMesh) Update() error {
	if !m.dirty {
		return nil
	}

	model := m.ModelMatrix()
	transform := func(v core.Vec3) core.Vec3 {
		return core.FromMGL(model.Mul4x1(v.MGL().Vec4(1)).Vec3())
	}

	m.world = make([]*Triangle, len(m.local))
	m.bounds = core.EmptyAABB()
	for i, tri := range m.local {
		m.world[i] = NewTriangle(transform(tri.V0), transform(tri.V1), transform(tri.V2), m.Mat)
		m.bounds = m.bounds.Union(m.world[i].Bounds())
	}

	m.bvh = nil
	if len(m.world) > meshBVHThreshold {
		bvh, err := BuildBVH(m.world)
		if err != nil {
			return err
		}
		m.bvh = bvh
	}

	m.dirty = false
	return nil
}

// Triangles returns the world-space triangles
func (m *TriangleMesh) Triangles() []*Triangle {
	m.ensure()
	return m.world
}

func (m *TriangleMesh) ensure() {
	if m.dirty {
		if err := m.Update(); err != nil {
			logger.Errorf("mesh update failed: %v", err)
		}
	}
}

// Kind implements Primitive
func (m *TriangleMesh) Kind() Kind { return KindMesh }

// Material implements Primitive
func (m *TriangleMesh) Material() *material.Material { return m.Mat }

// Origin returns the mesh position
func (m *TriangleMesh) Origin() core.Vec3 { return m.position }

// Bounds returns the union of all world-space triangle bounds
func (m *TriangleMesh) Bounds() core.AABB {
	m.ensure()
	if len(m.world) == 0 {
		return core.NewAABB(m.position, m.position)
	}
	return m.bounds
}

// Intersect returns the nearest triangle hit
func (m *TriangleMesh) Intersect(ray core.Ray, tMin, tMax float32) (material.HitRecord, bool) {
	if m.bvh != nil {
		hit, _, ok := m.bvh.Intersect(ray, tMin, tMax, func(item int32, lo, hi float32) (material.HitRecord, bool) {
			return m.world[item].Intersect(ray, lo, hi)
		})
		return hit, ok
	}

	var (
		closest = tMax
		best    material.HitRecord
		found   bool
	)
	for _, tri := range m.world {
		if hit, ok := tri.Intersect(ray, tMin, closest); ok {
			closest = hit.T
			best = hit
			found = true
		}
	}
	return best, found
}
