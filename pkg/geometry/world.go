package geometry

import (
	"fmt"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

// World holds the primitives of a scene, its environment and its BVH.
// A World must not be modified while a render pass is running.
type World struct {
	Environment *Environment

	primitives []Primitive
	capacity   int
	bvh        *BVH
}

// NewWorld creates an empty world. A capacity of 0 means unbounded.
func NewWorld(capacity int) *World {
	w := &World{capacity: capacity}
	if capacity > 0 {
		w.primitives = make([]Primitive, 0, capacity)
	}
	return w
}

// Add appends a primitive. Any existing BVH is dropped because it no longer
// covers the primitive set; call RecalculateBVH to index the world again.
func (w *World) Add(p Primitive) error {
	if w.capacity > 0 && len(w.primitives) >= w.capacity {
		return fmt.Errorf("%w: %d primitives", ErrCapacityExceeded, w.capacity)
	}
	if mesh, ok := p.(*TriangleMesh); ok {
		if err := mesh.Update(); err != nil {
			return err
		}
	}
	w.primitives = append(w.primitives, p)
	w.bvh = nil
	return nil
}

// Primitives returns the stored primitives in insertion order
func (w *World) Primitives() []Primitive {
	return w.primitives
}

// Len returns the number of primitives
func (w *World) Len() int {
	return len(w.primitives)
}

// BVH returns the current hierarchy or nil if none has been built since the last change
func (w *World) BVH() *BVH {
	return w.bvh
}

// RecalculateBVH refreshes mesh transforms and rebuilds the hierarchy from the
// current primitive set. Call it after moving, rotating or scaling any primitive.
func (w *World) RecalculateBVH() error {
	for _, p := range w.primitives {
		if mesh, ok := p.(*TriangleMesh); ok {
			if err := mesh.Update(); err != nil {
				return fmt.Errorf("updating mesh: %w", err)
			}
		}
	}

	bvh, err := BuildBVH(w.primitives)
	if err != nil {
		w.bvh = nil
		return err
	}
	w.bvh = bvh
	logger.Infof("world BVH rebuilt: %d primitives, %d nodes, depth %d", len(w.primitives), len(bvh.Nodes), bvh.Depth)
	return nil
}

// Intersect returns the nearest hit in [tMin, tMax). The BVH is used when
// useBVH is set and a current hierarchy exists; otherwise every primitive is tested.
func (w *World) Intersect(ray core.Ray, tMin, tMax float32, useBVH bool) (material.HitRecord, bool) {
	if useBVH && w.bvh != nil {
		hit, _, ok := w.bvh.Intersect(ray, tMin, tMax, func(item int32, lo, hi float32) (material.HitRecord, bool) {
			return w.primitives[item].Intersect(ray, lo, hi)
		})
		return hit, ok
	}
	return w.IntersectLinear(ray, tMin, tMax)
}

// IntersectLinear tests every primitive and keeps the nearest hit
func (w *World) IntersectLinear(ray core.Ray, tMin, tMax float32) (material.HitRecord, bool) {
	var (
		closest = tMax
		best    material.HitRecord
		found   bool
	)
	for _, p := range w.primitives {
		if hit, ok := p.Intersect(ray, tMin, closest); ok {
			closest = hit.T
			best = hit
			found = true
		}
	}
	return best, found
}
