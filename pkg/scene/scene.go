package scene

import (
	"fmt"

	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/log"
	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
)

// Scene bundles everything needed to start rendering
type Scene struct {
	Name     string
	World    *geometry.World
	Camera   *renderer.Camera
	Settings renderer.Settings
	Width    int
	Height   int
	Threads  int     // 0 uses every logical CPU
	Seed     *uint64 // deterministic sampling when set
}

// Options returns the renderer options described by the scene
func (s *Scene) Options(logger log.Logger) []renderer.Option {
	opts := []renderer.Option{renderer.WithSettings(s.Settings)}
	if logger != nil {
		opts = append(opts, renderer.WithLogger(logger))
	}
	if s.Seed != nil {
		opts = append(opts, renderer.WithSeed(*s.Seed))
	}
	return opts
}

// NewRenderer creates a renderer for the scene with its world and camera attached.
// The caller owns the renderer and must Close it.
func (s *Scene) NewRenderer(logger log.Logger) (*renderer.Renderer, error) {
	threads := s.Threads
	if threads <= 0 {
		threads = renderer.DefaultThreads()
	}

	if s.World.Len() > 0 && s.World.BVH() == nil {
		if err := s.World.RecalculateBVH(); err != nil {
			return nil, fmt.Errorf("scene %q: %w", s.Name, err)
		}
	}

	r, err := renderer.New(s.Width, s.Height, threads, s.Options(logger)...)
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", s.Name, err)
	}
	r.SetWorld(s.World)
	r.SetCamera(s.Camera)
	return r, nil
}

// Add adds primitives to the scene world, stopping at the first error
func (s *Scene) Add(prims ...geometry.Primitive) error {
	for _, p := range prims {
		if err := s.World.Add(p); err != nil {
			return err
		}
	}
	return nil
}
