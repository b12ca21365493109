package scene

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
)

// builtins maps scene names to their constructors
var builtins = map[string]func() (*Scene, error){
	"cornell": NewCornellScene,
	"cube":    NewCubeScene,
	"spheres": NewSpheresScene,
}

// Builtin returns a fresh copy of the named built-in scene
func Builtin(name string) (*Scene, error) {
	create, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown scene %q (available: %v)", name, BuiltinNames())
	}
	return create()
}

// BuiltinNames returns the sorted built-in scene names
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newScene(name string, width, height int, camera *renderer.Camera) *Scene {
	settings := renderer.DefaultSettings()
	settings.Samples = 500
	settings.Bounces = 16
	settings.Progressive = true

	return &Scene{
		Name:     name,
		World:    geometry.NewWorld(0),
		Camera:   camera,
		Settings: settings,
		Width:    width,
		Height:   height,
	}
}

// plane creates a transformed unit plane
func plane(mat *material.Material, position, rotation, scale core.Vec3) *geometry.TriangleMesh {
	m := geometry.NewPlane(mat)
	m.SetPosition(position)
	m.SetRotation(rotation)
	m.SetScale(scale)
	return m
}

// cube creates a transformed unit cube
func cube(mat *material.Material, position, rotation, scale core.Vec3) *geometry.TriangleMesh {
	m := geometry.NewCube(mat)
	m.SetPosition(position)
	m.SetRotation(rotation)
	m.SetScale(scale)
	return m
}

// NewCornellScene creates a five-walled box lit by a ceiling panel, holding
// two glass blocks and a glossy sphere
func NewCornellScene() (*Scene, error) {
	s := newScene("cornell", 360, 360, renderer.NewCamera(core.NewVec3(0, -2.475, 4.875)))
	s.World.Environment = geometry.NewEnvironment()

	white := material.NewDiffuse(core.Splat(1))
	red := material.NewDiffuse(core.NewVec3(1, 0.5, 0.5))
	green := material.NewDiffuse(core.NewVec3(0.5, 1, 0.5))
	glossy := material.NewMetal(core.Splat(1), 0.1)
	light := material.NewLight(core.NewVec3(1, 241.0/255, 201.0/255), 2)
	glass := material.NewGlass(1.5)

	halfPi := math32.Pi / 2
	err := s.Add(
		plane(white, core.Vec3{}, core.Vec3{}, core.NewVec3(50, 1, 50)),
		plane(light, core.NewVec3(0, -4.9, -2.5), core.Vec3{}, core.NewVec3(1, 1, 1)),
		plane(white, core.NewVec3(0, -5, -2.5), core.Vec3{}, core.NewVec3(5, 1, 5)),
		plane(white, core.NewVec3(0, -2.5, -5), core.NewVec3(halfPi, 0, 0), core.NewVec3(5, 1, 5)),
		plane(red, core.NewVec3(-2.5, -2.5, -2.5), core.NewVec3(halfPi, halfPi, 0), core.NewVec3(5, 1, 5)),
		plane(green, core.NewVec3(2.5, -2.5, -2.5), core.NewVec3(-halfPi, halfPi, 0), core.NewVec3(5, 1, 5)),
		cube(glass, core.NewVec3(1, -0.8, -1.5), core.NewVec3(0, 0.35, 0), core.NewVec3(1.5, 1.5, 1.5)),
		cube(glass, core.NewVec3(-1, -1.55, -3), core.NewVec3(0, -0.35, 0), core.NewVec3(1.5, 3, 1.5)),
		geometry.NewSphere(core.NewVec3(-1, -0.65, -1), 0.65, glossy),
	)
	if err != nil {
		return nil, err
	}
	return s.build()
}

// NewCubeScene creates a red cube on a glossy floor under a sky
func NewCubeScene() (*Scene, error) {
	camera := renderer.NewCamera(core.NewVec3(2.5, -2, 4))
	camera.LookAt(core.NewVec3(0, -0.5, 0))
	s := newScene("cube", 400, 300, camera)
	s.World.Environment = geometry.NewEnvironment()

	err := s.Add(
		plane(material.NewMetal(core.Splat(0.8), 0.4), core.Vec3{}, core.Vec3{}, core.NewVec3(50, 1, 50)),
		cube(material.NewDiffuse(core.NewVec3(0.9, 0.2, 0.2)), core.NewVec3(0, -0.5, 0), core.NewVec3(0, 0.6, 0), core.Splat(1)),
	)
	if err != nil {
		return nil, err
	}
	return s.build()
}

// NewSpheresScene creates a ring of colored glass and mirror spheres under a
// single overhead light in an otherwise dark environment
func NewSpheresScene() (*Scene, error) {
	camera := renderer.NewCamera(core.NewVec3(-1.359, -4.5, -6.807))
	camera.LookAt(core.NewVec3(0, -1, 0))
	s := newScene("spheres", 400, 300, camera)
	s.World.Environment = geometry.NewUniformEnvironment(core.Splat(1), 0.05)

	tinted := func(color core.Vec3) *material.Material {
		m := material.NewGlass(1.5)
		m.Color = color
		return m
	}

	err := s.Add(
		plane(material.NewDiffuse(core.Splat(1)), core.Vec3{}, core.Vec3{}, core.NewVec3(50, 1, 50)),
		plane(material.NewLight(core.Splat(1), 10), core.NewVec3(0, -4.9, 0), core.Vec3{}, core.NewVec3(2.5, 1, 2.5)),
		geometry.NewSphere(core.NewVec3(0, -1, 0), 1, material.NewGlass(1.5)),
		geometry.NewSphere(core.NewVec3(-2, -1, 2), 1, tinted(core.NewVec3(1, 0.5, 0.5))),
		geometry.NewSphere(core.NewVec3(-2, -1, -2), 1, tinted(core.NewVec3(0.5, 1, 0.5))),
		geometry.NewSphere(core.NewVec3(2, -1, -2), 1, tinted(core.NewVec3(0.5, 0.5, 1))),
		geometry.NewSphere(core.NewVec3(2, -1, 2), 1, material.NewMetal(core.Splat(1), 0)),
	)
	if err != nil {
		return nil, err
	}
	return s.build()
}

func (s *Scene) build() (*Scene, error) {
	if err := s.World.RecalculateBVH(); err != nil {
		return nil, fmt.Errorf("scene %q: %w", s.Name, err)
	}
	return s, nil
}
