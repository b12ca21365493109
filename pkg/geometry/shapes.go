package geometry

import (
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

// NewPlane creates a unit square in the XZ plane centered on the origin.
// Its face normal points along -Y, which is "up" in scene space.
func NewPlane(mat *material.Material) *TriangleMesh {
	m := NewTriangleMesh(mat)
	m.AddTriangle(core.NewVec3(-0.5, 0, 0.5), core.NewVec3(-0.5, 0, -0.5), core.NewVec3(0.5, 0, 0.5))
	m.AddTriangle(core.NewVec3(0.5, 0, 0.5), core.NewVec3(-0.5, 0, -0.5), core.NewVec3(0.5, 0, -0.5))
	return m
}

// NewCube creates a unit cube centered on the origin with outward facing triangles
func NewCube(mat *material.Material) *TriangleMesh {
	m := NewTriangleMesh(mat)

	corners := [8]core.Vec3{
		core.NewVec3(-0.5, -0.5, -0.5),
		core.NewVec3(0.5, -0.5, -0.5),
		core.NewVec3(0.5, 0.5, -0.5),
		core.NewVec3(-0.5, 0.5, -0.5),
		core.NewVec3(-0.5, -0.5, 0.5),
		core.NewVec3(0.5, -0.5, 0.5),
		core.NewVec3(0.5, 0.5, 0.5),
		core.NewVec3(-0.5, 0.5, 0.5),
	}

	// each face is listed counter-clockwise when viewed from outside
	faces := [6][4]int{
		{4, 5, 6, 7}, // +Z
		{1, 0, 3, 2}, // -Z
		{5, 1, 2, 6}, // +X
		{0, 4, 7, 3}, // -X
		{7, 6, 2, 3}, // +Y
		{0, 1, 5, 4}, // -Y
	}
	for _, f := range faces {
		m.AddTriangle(corners[f[0]], corners[f[1]], corners[f[2]])
		m.AddTriangle(corners[f[0]], corners[f[2]], corners[f[3]])
	}
	return m
}
