package loaders

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
)

const fullScene = `
[render]
width = 64
height = 48
threads = 3
samples = 12
bounces = 7
progressive = true
antialiasing = false
seed = 42

[camera]
position = [0.0, -2.0, 6.0]
look_at = [0.0, -1.0, 0.0]
fov = 45.0
aperture = 0.05
focus_distance = 6.0

[environment]
zenith = [0.1, 0.2, 0.3]
brightness = 0.5

[materials.floor]
color = [0.8, 0.8, 0.8]
roughness = 0.3

[materials.glass]
refractive = true
ior = 1.45

[materials.lamp]
emission = [1.0, 0.9, 0.8]
emission_strength = 4.0

[[objects]]
type = "plane"
material = "floor"
scale = [20.0, 1.0, 20.0]

[[objects]]
type = "sphere"
center = [0.0, -1.0, 0.0]
radius = 1.0
material = "glass"

[[objects]]
type = "cube"
material = "lamp"
position = [2.0, -0.5, 0.0]
rotation = [0.0, 90.0, 0.0]

[[objects]]
type = "triangle"
vertices = [[-1.0, 0.0, -3.0], [1.0, 0.0, -3.0], [0.0, -2.0, -3.0]]
`

func TestParseScene_Full(t *testing.T) {
	s, err := ParseScene(fullScene, "")
	if err != nil {
		t.Fatal(err)
	}

	if s.Width != 64 || s.Height != 48 || s.Threads != 3 {
		t.Errorf("Unexpected render size: %dx%d, %d threads", s.Width, s.Height, s.Threads)
	}
	want := renderer.Settings{Samples: 12, Bounces: 7, Progressive: true, Antialiasing: false, UseBVH: true}
	if s.Settings != want {
		t.Errorf("Expected settings %+v, got %+v", want, s.Settings)
	}
	if s.Seed == nil || *s.Seed != 42 {
		t.Errorf("Expected seed 42, got %v", s.Seed)
	}

	if f := s.Camera.Forward(); !vecNear(f, core.NewVec3(0, 1, -6).Normalize(), 1e-5) {
		t.Errorf("Camera should look at the target, forward %v", f)
	}
	if math32.Abs(s.Camera.FOV-math32.Pi/4) > 1e-6 || s.Camera.Aperture != 0.05 || s.Camera.FocusDistance != 6 {
		t.Errorf("Unexpected camera %+v", s.Camera)
	}

	env := s.World.Environment
	if env.Zenith != core.NewVec3(0.1, 0.2, 0.3) || env.Horizon != core.Splat(1) || env.Brightness != 0.5 {
		t.Errorf("Unexpected environment %+v", env)
	}

	prims := s.World.Primitives()
	if len(prims) != 4 {
		t.Fatalf("Expected 4 objects, got %d", len(prims))
	}
	kinds := []geometry.Kind{geometry.KindMesh, geometry.KindSphere, geometry.KindMesh, geometry.KindTriangle}
	for i, k := range kinds {
		if prims[i].Kind() != k {
			t.Errorf("Object %d: expected %v, got %v", i, k, prims[i].Kind())
		}
	}

	floor := prims[0].Material()
	if floor.Roughness != 0.3 || floor.Color != core.Splat(0.8) {
		t.Errorf("Unexpected floor material %+v", floor)
	}
	if glass := prims[1].Material(); !glass.Refractive || glass.IOR != 1.45 {
		t.Errorf("Unexpected glass material %+v", glass)
	}
	if lamp := prims[2].Material(); lamp.EmissionStrength != 4 || lamp.Roughness != 1 {
		t.Errorf("Unexpected lamp material %+v", lamp)
	}
	if prims[3].Material().Color != core.Splat(1) {
		t.Errorf("Object without material should get the default")
	}

	cube := prims[2].(*geometry.TriangleMesh)
	if !vecNear(cube.Rotation(), core.NewVec3(0, math32.Pi/2, 0), 1e-6) {
		t.Errorf("Rotation should be converted to radians, got %v", cube.Rotation())
	}
	if s.World.BVH() == nil {
		t.Error("World BVH should be built")
	}
}

func TestParseScene_Defaults(t *testing.T) {
	s, err := ParseScene("", "")
	if err != nil {
		t.Fatal(err)
	}
	if s.Width != defaultSceneWidth || s.Height != defaultSceneHeight {
		t.Errorf("Expected default size, got %dx%d", s.Width, s.Height)
	}
	if s.Settings != renderer.DefaultSettings() {
		t.Errorf("Expected default settings, got %+v", s.Settings)
	}
	if s.Seed != nil || s.World.Len() != 0 {
		t.Error("Empty scene should have no seed and no objects")
	}
	if *s.World.Environment != *geometry.NewEnvironment() {
		t.Errorf("Expected default environment, got %+v", s.World.Environment)
	}
}

func TestParseScene_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"Unknown key", "[render]\nwidht = 10\n", ErrUnknownKey},
		{"Unknown section", "[lights]\nx = 1\n", ErrUnknownKey},
		{"Unknown object type", "[[objects]]\ntype = \"torus\"\n", ErrUnknownObjectType},
		{"Unknown material", "[[objects]]\ntype = \"sphere\"\nmaterial = \"gold\"\n", ErrUnknownMaterial},
		{"Capacity exceeded", "[render]\ncapacity = 1\n[[objects]]\ntype = \"sphere\"\n[[objects]]\ntype = \"sphere\"\n", geometry.ErrCapacityExceeded},
		{"Negative size", "[render]\nwidth = -1\n", renderer.ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScene(tt.data, ""); !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	invalid := []struct {
		name string
		data string
	}{
		{"Syntax", "[render\n"},
		{"Short vector", "[camera]\nposition = [1.0, 2.0]\n"},
		{"Triangle vertex count", "[[objects]]\ntype = \"triangle\"\nvertices = [[0.0, 0.0, 0.0]]\n"},
		{"Mesh without file", "[[objects]]\ntype = \"stl\"\n"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseScene(tt.data, ""); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestLoadScene_MeshFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tetra.stl": asciiTetra,
		"quad.obj":  quadOBJ,
		"quad.mtl":  quadMTL,
		"meshes.toml": `
[[objects]]
type = "stl"
file = "tetra.stl"
position = [0.0, -1.0, 0.0]

[[objects]]
type = "sphere"

[[objects]]
type = "obj"
file = "quad.obj"
scale = [2.0, 2.0, 2.0]
`,
	})

	s, err := LoadScene(filepath.Join(dir, "meshes.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "meshes" {
		t.Errorf("Scene should be named after the file, got %q", s.Name)
	}

	prims := s.World.Primitives()
	if len(prims) != 3 {
		t.Fatalf("Expected 3 objects, got %d", len(prims))
	}
	stl, ok := prims[0].(*geometry.TriangleMesh)
	if !ok || stl.Len() != 2 || stl.Position() != core.NewVec3(0, -1, 0) {
		t.Errorf("Unexpected STL object %+v", prims[0])
	}
	if prims[1].Kind() != geometry.KindSphere {
		t.Errorf("Objects should keep file order, got %v", prims[1].Kind())
	}
	obj, ok := prims[2].(*geometry.TriangleMesh)
	if !ok || obj.Len() != 2 || obj.Bounds().Max != core.NewVec3(2, 2, 0) {
		t.Errorf("Unexpected OBJ object bounds %+v", prims[2].Bounds())
	}
}

func TestLoadScene_MissingMeshFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.toml": "[[objects]]\ntype = \"stl\"\nfile = \"nope.stl\"\n",
	})
	_, err := LoadScene(filepath.Join(dir, "bad.toml"))
	if err == nil || !strings.Contains(err.Error(), "object 0") {
		t.Errorf("Expected an error naming the object, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.toml")); err != nil {
		t.Fatal(err)
	}
}

func TestLoadScene_InvalidObjectSkipsMeshLoading(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"mixed.toml": `
[[objects]]
type = "stl"
file = "nope.stl"

[[objects]]
type = "torus"
`,
	})

	_, err := LoadScene(filepath.Join(dir, "mixed.toml"))
	if !errors.Is(err, ErrUnknownObjectType) {
		t.Fatalf("Expected ErrUnknownObjectType before any mesh is read, got %v", err)
	}
	if !strings.Contains(err.Error(), "object 1") {
		t.Errorf("Expected the error to name object 1, got %v", err)
	}
}
