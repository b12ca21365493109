package geometry

import (
	"errors"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/log"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

var logger = log.New("geometry")

var (
	ErrCapacityExceeded = errors.New("geometry: world capacity exceeded")
	ErrEmptyWorld       = errors.New("geometry: cannot build a BVH over zero primitives")
	ErrInvalidBVH       = errors.New("geometry: BVH invariant violated")
)

// Kind tags the concrete shape behind a Primitive
type Kind int

const (
	KindTriangle Kind = iota
	KindMesh
	KindSphere
)

func (k Kind) String() string {
	switch k {
	case KindTriangle:
		return "triangle"
	case KindMesh:
		return "mesh"
	case KindSphere:
		return "sphere"
	}
	return "unknown"
}

// Bounded is anything the BVH builder can index
type Bounded interface {
	// Bounds returns the world-space axis-aligned bounding box
	Bounds() core.AABB
	// Origin returns the representative point used for Morton ordering
	Origin() core.Vec3
}

// Primitive is a shape stored in a World
type Primitive interface {
	Bounded
	Kind() Kind
	Material() *material.Material
	// Intersect returns the nearest hit with t in [tMin, tMax)
	Intersect(ray core.Ray, tMin, tMax float32) (material.HitRecord, bool)
}
