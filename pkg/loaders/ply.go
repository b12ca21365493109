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
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

// plyHeader holds the parts of a PLY header needed to extract positions and faces
type plyHeader struct {
	format      string // "ascii" or "binary_little_endian"
	vertexCount int
	faceCount   int
	vertexProps []plyProperty
	faceProps   []plyProperty
	position    [3]int // indices of x, y, z in vertexProps
}

type plyProperty struct {
	name     string
	typ      string // scalar type, or the element type of a list
	isList   bool
	listType string // type of the list length
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4, "float": 4, "float32": 4,
	"double": 8, "float64": 8,
}

// LoadPLY loads a PLY file's vertex positions and faces into a mesh.
// Polygons with more than three vertices are fan triangulated.
func LoadPLY(filename string, mat *material.Material) (*geometry.TriangleMesh, error) {
	start := time.Now()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	mesh, err := ParsePLY(data, mat)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	logger.Infof("loaded PLY %s: %d triangles in %v", filename, mesh.Len(), time.Since(start))
	return mesh, nil
}

// ParsePLY decodes ASCII or binary little-endian PLY data
func ParsePLY(data []byte, mat *material.Material) (*geometry.TriangleMesh, error) {
	header, body, err := parsePLYHeader(data)
	if err != nil {
		return nil, err
	}

	var (
		vertices []core.Vec3
		faces    [][]int
	)
	switch header.format {
	case "ascii":
		vertices, faces, err = readASCIIPLY(body, header)
	case "binary_little_endian":
		vertices, faces, err = readBinaryPLY(body, header)
	default:
		return nil, fmt.Errorf("unsupported format %q: %w", header.format, ErrMalformedPLY)
	}
	if err != nil {
		return nil, err
	}

	mesh := geometry.NewTriangleMesh(mat)
	for i, face := range faces {
		for _, idx := range face {
			if idx < 0 || idx >= len(vertices) {
				return nil, fmt.Errorf("face %d references vertex %d: %w", i, idx, ErrMalformedPLY)
			}
		}
		for k := 1; k+1 < len(face); k++ {
			mesh.AddTriangle(vertices[face[0]], vertices[face[k]], vertices[face[k+1]])
		}
	}
	return mesh, nil
}

// parsePLYHeader returns the header and the bytes following end_header
func parsePLYHeader(data []byte) (*plyHeader, []byte, error) {
	if !bytes.HasPrefix(data, []byte("ply")) {
		return nil, nil, fmt.Errorf("missing magic: %w", ErrMalformedPLY)
	}

	header := &plyHeader{position: [3]int{-1, -1, -1}}
	var element string
	rest := data
	for {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return nil, nil, fmt.Errorf("missing end_header: %w", ErrMalformedPLY)
		}
		line := strings.TrimSpace(string(rest[:nl]))
		rest = rest[nl+1:]

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "end_header":
			for _, idx := range header.position {
				if idx < 0 {
					return nil, nil, fmt.Errorf("vertex element lacks x, y or z: %w", ErrMalformedPLY)
				}
			}
			return header, rest, nil
		case "format":
			if len(parts) < 2 {
				return nil, nil, fmt.Errorf("bad format line: %w", ErrMalformedPLY)
			}
			header.format = parts[1]
		case "element":
			if len(parts) < 3 {
				return nil, nil, fmt.Errorf("bad element line: %w", ErrMalformedPLY)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, nil, fmt.Errorf("invalid element count %q: %w", parts[2], ErrMalformedPLY)
			}
			element = parts[1]
			switch element {
			case "vertex":
				header.vertexCount = count
			case "face":
				header.faceCount = count
			default:
				if count > 0 {
					return nil, nil, fmt.Errorf("unsupported element %q: %w", element, ErrMalformedPLY)
				}
			}
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, nil, err
			}
			switch element {
			case "vertex":
				if prop.isList {
					return nil, nil, fmt.Errorf("list vertex property %q: %w", prop.name, ErrMalformedPLY)
				}
				if i := strings.IndexByte("xyz", prop.name[0]); len(prop.name) == 1 && i >= 0 {
					header.position[i] = len(header.vertexProps)
				}
				header.vertexProps = append(header.vertexProps, prop)
			case "face":
				header.faceProps = append(header.faceProps, prop)
			}
		}
	}
}

func parsePLYProperty(parts []string) (plyProperty, error) {
	if len(parts) >= 4 && parts[0] == "list" {
		prop := plyProperty{isList: true, listType: parts[1], typ: parts[2], name: parts[3]}
		if plyTypeSizes[prop.listType] == 0 || plyTypeSizes[prop.typ] == 0 {
			return prop, fmt.Errorf("unknown list types %q %q: %w", prop.listType, prop.typ, ErrMalformedPLY)
		}
		return prop, nil
	}
	if len(parts) < 2 || parts[0] == "list" {
		return plyProperty{}, fmt.Errorf("invalid property definition: %w", ErrMalformedPLY)
	}
	prop := plyProperty{typ: parts[0], name: parts[1]}
	if plyTypeSizes[prop.typ] == 0 {
		return prop, fmt.Errorf("unknown property type %q: %w", prop.typ, ErrMalformedPLY)
	}
	return prop, nil
}

func readASCIIPLY(body []byte, header *plyHeader) ([]core.Vec3, [][]int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Split(bufio.ScanWords)
	next := func() (float64, error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("unexpected end of data: %w", ErrMalformedPLY)
		}
		v, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return 0, fmt.Errorf("%v: %w", err, ErrMalformedPLY)
		}
		return v, nil
	}

	vertices := make([]core.Vec3, header.vertexCount)
	values := make([]float64, len(header.vertexProps))
	for i := range vertices {
		for p := range header.vertexProps {
			v, err := next()
			if err != nil {
				return nil, nil, fmt.Errorf("vertex %d: %w", i, err)
			}
			values[p] = v
		}
		vertices[i] = plyPosition(values, header.position)
	}

	faces := make([][]int, 0, header.faceCount)
	for i := 0; i < header.faceCount; i++ {
		var face []int
		for _, prop := range header.faceProps {
			n := 1
			if prop.isList {
				count, err := next()
				if err != nil {
					return nil, nil, fmt.Errorf("face %d: %w", i, err)
				}
				n = int(count)
			}
			for k := 0; k < n; k++ {
				v, err := next()
				if err != nil {
					return nil, nil, fmt.Errorf("face %d: %w", i, err)
				}
				if prop.isList && (prop.name == "vertex_indices" || prop.name == "vertex_index") {
					face = append(face, int(v))
				}
			}
		}
		faces = append(faces, face)
	}
	return vertices, faces, nil
}

func readBinaryPLY(body []byte, header *plyHeader) ([]core.Vec3, [][]int, error) {
	r := bytes.NewReader(body)
	buf := make([]byte, 8)
	read := func(typ string) (float64, error) {
		size := plyTypeSizes[typ]
		if _, err := io.ReadFull(r, buf[:size]); err != nil {
			return 0, fmt.Errorf("unexpected end of data: %w", ErrMalformedPLY)
		}
		return plyScalar(buf[:size], typ), nil
	}

	vertices := make([]core.Vec3, header.vertexCount)
	values := make([]float64, len(header.vertexProps))
	for i := range vertices {
		for p, prop := range header.vertexProps {
			v, err := read(prop.typ)
			if err != nil {
				return nil, nil, fmt.Errorf("vertex %d: %w", i, err)
			}
			values[p] = v
		}
		vertices[i] = plyPosition(values, header.position)
	}

	faces := make([][]int, 0, header.faceCount)
	for i := 0; i < header.faceCount; i++ {
		var face []int
		for _, prop := range header.faceProps {
			n := 1
			if prop.isList {
				count, err := read(prop.listType)
				if err != nil {
					return nil, nil, fmt.Errorf("face %d: %w", i, err)
				}
				n = int(count)
			}
			for k := 0; k < n; k++ {
				v, err := read(prop.typ)
				if err != nil {
					return nil, nil, fmt.Errorf("face %d: %w", i, err)
				}
				if prop.isList && (prop.name == "vertex_indices" || prop.name == "vertex_index") {
					face = append(face, int(v))
				}
			}
		}
		faces = append(faces, face)
	}
	return vertices, faces, nil
}

func plyScalar(b []byte, typ string) float64 {
	le := binary.LittleEndian
	switch typ {
	case "char", "int8":
		return float64(int8(b[0]))
	case "uchar", "uint8":
		return float64(b[0])
	case "short", "int16":
		return float64(int16(le.Uint16(b)))
	case "ushort", "uint16":
		return float64(le.Uint16(b))
	case "int", "int32":
		return float64(int32(le.Uint32(b)))
	case "uint", "uint32":
		return float64(le.Uint32(b))
	case "float", "float32":
		return float64(math.Float32frombits(le.Uint32(b)))
	default:
		return math.Float64frombits(le.Uint64(b))
	}
}

func plyPosition(values []float64, position [3]int) core.Vec3 {
	return core.NewVec3(float32(values[position[0]]), float32(values[position[1]]), float32(values[position[2]]))
}
