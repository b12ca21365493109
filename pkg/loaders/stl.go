package loaders

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/log"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

var logger = log.New("loaders")

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal, three vertices, attribute byte count
)

// LoadSTL loads a binary or ASCII STL file into a mesh with an identity transform
func LoadSTL(filename string, mat *material.Material) (*geometry.TriangleMesh, error) {
	start := time.Now()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open STL file: %w", err)
	}

	mesh, err := ParseSTL(data, mat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	logger.Infof("loaded STL %s: %d triangles in %v", filename, mesh.Len(), time.Since(start))
	return mesh, nil
}

// ParseSTL decodes STL data. Files whose size matches the triangle count in
// the binary header are decoded as binary even when they start with "solid".
func ParseSTL(data []byte, mat *material.Material) (*geometry.TriangleMesh, error) {
	if isBinarySTL(data) {
		return parseBinarySTL(data, mat)
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(bytes.NewReader(data), mat)
	}
	return nil, ErrMalformedSTL
}

func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(len(data)) == stlHeaderSize+4+uint64(count)*stlTriangleSize
}

func parseBinarySTL(data []byte, mat *material.Material) (*geometry.TriangleMesh, error) {
	count := int(binary.LittleEndian.Uint32(data[stlHeaderSize:]))
	mesh := geometry.NewTriangleMesh(mat)

	offset := stlHeaderSize + 4
	for i := 0; i < count; i++ {
		rec := data[offset : offset+stlTriangleSize]
		// the stored facet normal is ignored, winding decides orientation
		v0 := readSTLVec(rec[12:])
		v1 := readSTLVec(rec[24:])
		v2 := readSTLVec(rec[36:])
		if !v0.IsFinite() || !v1.IsFinite() || !v2.IsFinite() {
			return nil, fmt.Errorf("triangle %d has non-finite vertices: %w", i, ErrMalformedSTL)
		}
		mesh.AddTriangle(v0, v1, v2)
		offset += stlTriangleSize
	}
	return mesh, nil
}

func readSTLVec(b []byte) core.Vec3 {
	return core.NewVec3(
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	)
}

func parseASCIISTL(r io.Reader, mat *material.Material) (*geometry.TriangleMesh, error) {
	mesh := geometry.NewTriangleMesh(mat)
	scanner := bufio.NewScanner(r)

	var verts []core.Vec3
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "facet":
			verts = verts[:0]
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %d: expected 3 vertex coordinates: %w", line, ErrMalformedSTL)
			}
			var v [3]float32
			for i := range v {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %v: %w", line, err, ErrMalformedSTL)
				}
				v[i] = float32(f)
			}
			verts = append(verts, core.NewVec3(v[0], v[1], v[2]))
		case "endfacet":
			if len(verts) != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices: %w", line, len(verts), ErrMalformedSTL)
			}
			mesh.AddTriangle(verts[0], verts[1], verts[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read STL: %w", err)
	}
	return mesh, nil
}

// WriteSTL encodes triangles as binary STL
func WriteSTL(w io.Writer, triangles []*geometry.Triangle) error {
	header := make([]byte, stlHeaderSize+4)
	copy(header, "binary STL")
	binary.LittleEndian.PutUint32(header[stlHeaderSize:], uint32(len(triangles)))
	if _, err := w.Write(header); err != nil {
		return err
	}

	rec := make([]byte, stlTriangleSize)
	for _, t := range triangles {
		for i, v := range []core.Vec3{t.Normal(), t.V0, t.V1, t.V2} {
			binary.LittleEndian.PutUint32(rec[i*12:], math.Float32bits(v.X))
			binary.LittleEndian.PutUint32(rec[i*12+4:], math.Float32bits(v.Y))
			binary.LittleEndian.PutUint32(rec[i*12+8:], math.Float32bits(v.Z))
		}
		if _, err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
