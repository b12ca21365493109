package loaders

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
	"github.com/udhos/gwob"
)

// LoadOBJ loads a Wavefront OBJ file into a single mesh. When mat is nil the
// diffuse color of the first group with a known library material is used, falling
// back to white.
func LoadOBJ(filename string, mat *material.Material) (*geometry.TriangleMesh, error) {
	start := time.Now()

	options := gwob.ObjParserOptions{
		Logger:        func(s string) { logger.Debug(s) },
		IgnoreNormals: true,
	}

	obj, err := gwob.NewObjFromFile(filename, &options)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OBJ file %s: %w", filename, err)
	}

	if mat == nil {
		mat = objMaterial(filename, obj, &options)
	}

	stride := obj.StrideSize / 4
	offset := obj.StrideOffsetPosition / 4
	if stride <= 0 || len(obj.Indices)%3 != 0 {
		return nil, fmt.Errorf("%s: %w", filename, ErrMalformedOBJ)
	}

	vertex := func(index int) core.Vec3 {
		base := stride*index + offset
		return core.NewVec3(
			float32(obj.Coord64(base)),
			float32(obj.Coord64(base+1)),
			float32(obj.Coord64(base+2)),
		)
	}

	mesh := geometry.NewTriangleMesh(mat)
	for i := 0; i < len(obj.Indices); i += 3 {
		mesh.AddTriangle(vertex(obj.Indices[i]), vertex(obj.Indices[i+1]), vertex(obj.Indices[i+2]))
	}

	logger.Infof("loaded OBJ %s: %d triangles in %v", filename, mesh.Len(), time.Since(start))
	return mesh, nil
}

func objMaterial(filename string, obj *gwob.Obj, options *gwob.ObjParserOptions) *material.Material {
	mat := material.NewDiffuse(core.Splat(1))
	if obj.Mtllib == "" || len(obj.Groups) == 0 {
		return mat
	}

	// the library path is relative to the OBJ file
	lib, err := gwob.ReadMaterialLibFromFile(filepath.Join(filepath.Dir(filename), obj.Mtllib), options)
	if err != nil {
		logger.Warningf("material library %s: %v", obj.Mtllib, err)
		return mat
	}

	for _, g := range obj.Groups {
		if m, ok := lib.Lib[g.Usemtl]; ok {
			mat.Color = core.NewVec3(m.Kd[0], m.Kd[1], m.Kd[2])
			break
		}
	}
	return mat
}
