package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
	"github.com/df07/go-cpu-pathtracer/pkg/scene"
	"golang.org/x/sync/errgroup"
)

const (
	defaultSceneWidth  = 400
	defaultSceneHeight = 300
)

// SceneFile is the TOML layout of a scene description. Angles are in degrees.
type SceneFile struct {
	Render      RenderConfig              `toml:"render"`
	Camera      CameraConfig              `toml:"camera"`
	Environment *EnvironmentConfig        `toml:"environment"`
	Materials   map[string]MaterialConfig `toml:"materials"`
	Objects     []ObjectConfig            `toml:"objects"`
}

type RenderConfig struct {
	Width        int     `toml:"width"`
	Height       int     `toml:"height"`
	Threads      int     `toml:"threads"`
	Samples      *int    `toml:"samples"`
	Bounces      *int    `toml:"bounces"`
	Progressive  bool    `toml:"progressive"`
	Antialiasing *bool   `toml:"antialiasing"`
	UseBVH       *bool   `toml:"use_bvh"`
	Seed         *uint64 `toml:"seed"`
	Capacity     int     `toml:"capacity"`
}

type CameraConfig struct {
	Position      []float32 `toml:"position"`
	Rotation      []float32 `toml:"rotation"`
	LookAt        []float32 `toml:"look_at"`
	FOV           float32   `toml:"fov"`
	Aperture      float32   `toml:"aperture"`
	FocusDistance float32   `toml:"focus_distance"`
}

type EnvironmentConfig struct {
	Zenith     []float32 `toml:"zenith"`
	Horizon    []float32 `toml:"horizon"`
	Brightness *float32  `toml:"brightness"`
}

type MaterialConfig struct {
	Color            []float32 `toml:"color"`
	Emission         []float32 `toml:"emission"`
	EmissionStrength float32   `toml:"emission_strength"`
	Roughness        *float32  `toml:"roughness"`
	Refractive       bool      `toml:"refractive"`
	IOR              float32   `toml:"ior"`
}

type ObjectConfig struct {
	Type     string      `toml:"type"`
	Material string      `toml:"material"`
	Center   []float32   `toml:"center"`
	Radius   float32     `toml:"radius"`
	Vertices [][]float32 `toml:"vertices"`
	File     string      `toml:"file"`
	Position []float32   `toml:"position"`
	Rotation []float32   `toml:"rotation"`
	Scale    []float32   `toml:"scale"`
}

// LoadScene reads a TOML scene file. Mesh paths are relative to the file.
func LoadScene(filename string) (*scene.Scene, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open scene file: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	s, err := ParseScene(string(data), filepath.Dir(filename))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	s.Name = name
	return s, nil
}

// ParseScene decodes a TOML scene description and builds its world
func ParseScene(data, baseDir string) (*scene.Scene, error) {
	var file SceneFile
	md, err := toml.Decode(data, &file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: %w", strings.Join(keys, ", "), ErrUnknownKey)
	}

	settings, err := file.Render.settings()
	if err != nil {
		return nil, err
	}
	camera, err := file.Camera.camera()
	if err != nil {
		return nil, err
	}

	s := &scene.Scene{
		Name:     "scene",
		World:    geometry.NewWorld(file.Render.Capacity),
		Camera:   camera,
		Settings: settings,
		Width:    file.Render.Width,
		Height:   file.Render.Height,
		Threads:  file.Render.Threads,
		Seed:     file.Render.Seed,
	}
	if s.Width == 0 {
		s.Width = defaultSceneWidth
	}
	if s.Height == 0 {
		s.Height = defaultSceneHeight
	}

	if s.World.Environment, err = file.Environment.environment(); err != nil {
		return nil, err
	}

	materials := make(map[string]*material.Material, len(file.Materials))
	for name, cfg := range file.Materials {
		mat, err := cfg.material()
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		materials[name] = mat
	}

	prims, err := buildObjects(file.Objects, materials, baseDir)
	if err != nil {
		return nil, err
	}
	if err := s.Add(prims...); err != nil {
		return nil, err
	}
	if s.World.Len() > 0 {
		if err := s.World.RecalculateBVH(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// buildObjects creates primitives in file order. Mesh files are read concurrently
// once every other object has been built.
func buildObjects(objects []ObjectConfig, materials map[string]*material.Material, baseDir string) ([]geometry.Primitive, error) {
	prims := make([]geometry.Primitive, len(objects))
	mats := make([]*material.Material, len(objects))

	var meshes []int
	for i, obj := range objects {
		mat, err := lookupMaterial(materials, obj.Material)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		mats[i] = mat

		if isMeshFile(obj.Type) {
			meshes = append(meshes, i)
			continue
		}
		p, err := buildObject(obj, mat)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		prims[i] = p
	}

	var g errgroup.Group
	for _, i := range meshes {
		g.Go(func() error {
			mesh, err := loadMeshFile(objects[i], mats[i], baseDir)
			if err != nil {
				return fmt.Errorf("object %d: %w", i, err)
			}
			prims[i] = mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prims, nil
}

func isMeshFile(objectType string) bool {
	switch objectType {
	case "stl", "obj", "ply":
		return true
	}
	return false
}

func lookupMaterial(materials map[string]*material.Material, name string) (*material.Material, error) {
	if name == "" {
		return material.NewMaterial(), nil
	}
	mat, ok := materials[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownMaterial)
	}
	return mat, nil
}

func buildObject(obj ObjectConfig, mat *material.Material) (geometry.Primitive, error) {
	switch obj.Type {
	case "sphere":
		center, err := vec3(obj.Center, core.Vec3{})
		if err != nil {
			return nil, fmt.Errorf("center: %w", err)
		}
		radius := obj.Radius
		if radius == 0 {
			radius = 1
		}
		return geometry.NewSphere(center, radius, mat), nil
	case "triangle":
		if len(obj.Vertices) != 3 {
			return nil, fmt.Errorf("triangle needs 3 vertices, got %d", len(obj.Vertices))
		}
		var v [3]core.Vec3
		for i := range v {
			var err error
			if v[i], err = vec3(obj.Vertices[i], core.Vec3{}); err != nil {
				return nil, fmt.Errorf("vertex %d: %w", i, err)
			}
		}
		return geometry.NewTriangle(v[0], v[1], v[2], mat), nil
	case "plane":
		return transformMesh(geometry.NewPlane(mat), obj)
	case "cube":
		return transformMesh(geometry.NewCube(mat), obj)
	default:
		return nil, fmt.Errorf("%q: %w", obj.Type, ErrUnknownObjectType)
	}
}

func loadMeshFile(obj ObjectConfig, mat *material.Material, baseDir string) (*geometry.TriangleMesh, error) {
	if obj.File == "" {
		return nil, fmt.Errorf("%s object needs a file", obj.Type)
	}
	path := obj.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	var (
		mesh *geometry.TriangleMesh
		err  error
	)
	switch obj.Type {
	case "stl":
		mesh, err = LoadSTL(path, mat)
	case "ply":
		mesh, err = LoadPLY(path, mat)
	default:
		mesh, err = LoadOBJ(path, mat)
	}
	if err != nil {
		return nil, err
	}
	return transformMesh(mesh, obj)
}

func transformMesh(mesh *geometry.TriangleMesh, obj ObjectConfig) (*geometry.TriangleMesh, error) {
	position, err := vec3(obj.Position, core.Vec3{})
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}
	rotation, err := vec3(obj.Rotation, core.Vec3{})
	if err != nil {
		return nil, fmt.Errorf("rotation: %w", err)
	}
	scale, err := vec3(obj.Scale, core.Splat(1))
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}

	mesh.SetPosition(position)
	mesh.SetRotation(radians(rotation))
	mesh.SetScale(scale)
	return mesh, nil
}

func (c RenderConfig) settings() (renderer.Settings, error) {
	s := renderer.DefaultSettings()
	if c.Width < 0 || c.Height < 0 {
		return s, fmt.Errorf("render size %dx%d: %w", c.Width, c.Height, renderer.ErrInvalidDimensions)
	}
	if c.Samples != nil {
		s.Samples = *c.Samples
	}
	if c.Bounces != nil {
		s.Bounces = *c.Bounces
	}
	if c.Antialiasing != nil {
		s.Antialiasing = *c.Antialiasing
	}
	if c.UseBVH != nil {
		s.UseBVH = *c.UseBVH
	}
	s.Progressive = c.Progressive
	return s, nil
}

func (c CameraConfig) camera() (*renderer.Camera, error) {
	position, err := vec3(c.Position, core.Vec3{})
	if err != nil {
		return nil, fmt.Errorf("camera position: %w", err)
	}
	camera := renderer.NewCamera(position)

	if c.LookAt != nil {
		target, err := vec3(c.LookAt, core.Vec3{})
		if err != nil {
			return nil, fmt.Errorf("camera look_at: %w", err)
		}
		camera.LookAt(target)
	} else {
		rotation, err := vec3(c.Rotation, core.Vec3{})
		if err != nil {
			return nil, fmt.Errorf("camera rotation: %w", err)
		}
		camera.Rotation = radians(rotation)
	}

	if c.FOV > 0 {
		camera.FOV = c.FOV * math32.Pi / 180
	}
	camera.Aperture = c.Aperture
	if c.FocusDistance > 0 {
		camera.FocusDistance = c.FocusDistance
	}
	return camera, nil
}

func (c *EnvironmentConfig) environment() (*geometry.Environment, error) {
	env := geometry.NewEnvironment()
	if c == nil {
		return env, nil
	}

	var err error
	if env.Zenith, err = vec3(c.Zenith, env.Zenith); err != nil {
		return nil, fmt.Errorf("environment zenith: %w", err)
	}
	if env.Horizon, err = vec3(c.Horizon, env.Horizon); err != nil {
		return nil, fmt.Errorf("environment horizon: %w", err)
	}
	if c.Brightness != nil {
		env.Brightness = *c.Brightness
	}
	return env, nil
}

func (c MaterialConfig) material() (*material.Material, error) {
	mat := material.NewMaterial()

	var err error
	if mat.Color, err = vec3(c.Color, mat.Color); err != nil {
		return nil, fmt.Errorf("color: %w", err)
	}
	if mat.Emission, err = vec3(c.Emission, mat.Emission); err != nil {
		return nil, fmt.Errorf("emission: %w", err)
	}
	mat.EmissionStrength = c.EmissionStrength
	if c.Roughness != nil {
		mat.Roughness = max(0, min(1, *c.Roughness))
	}
	mat.Refractive = c.Refractive
	if c.IOR > 0 {
		mat.IOR = c.IOR
	}
	return mat, nil
}

// vec3 converts a 3-element TOML array, returning fallback when it is absent
func vec3(values []float32, fallback core.Vec3) (core.Vec3, error) {
	switch len(values) {
	case 0:
		return fallback, nil
	case 3:
		return core.NewVec3(values[0], values[1], values[2]), nil
	default:
		return fallback, fmt.Errorf("expected 3 components, got %d", len(values))
	}
}

func radians(degrees core.Vec3) core.Vec3 {
	return degrees.Multiply(math32.Pi / 180)
}
