package renderer

import (
	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/material"
)

// fallbackMaterial is used for primitives created without a material
var fallbackMaterial = *material.NewMaterial()

// TracePath follows ray through the world for up to bounces hits. The returned
// ray carries the accumulated radiance and the direction of its last segment.
func TracePath(world *geometry.World, ray core.Ray, bounces int, useBVH bool, sampler core.Sampler) core.Ray {
	inf := math32.Inf(1)

	for bounce := 0; bounce < bounces; bounce++ {
		hit, ok := world.Intersect(ray, 0, inf, useBVH)
		if !ok {
			env := world.Environment.Color(ray.Direction)
			ray.Radiance = ray.Radiance.Add(ray.Throughput.MultiplyVec(env))
			break
		}

		mat := fallbackMaterial
		if hit.Material != nil {
			mat = *hit.Material
		}
		material.Bounce(&ray, hit, mat, sampler)
	}
	return ray
}

// Raytracer renders pixels of one frame from a snapshot of the renderer state
type Raytracer struct {
	world    *geometry.World
	camera   Camera
	settings Settings
	width    int
	height   int

	deterministic bool
	seed          uint64
}

// samplePixel averages count samples for pixel i starting at sample number first
func (rt *Raytracer) samplePixel(i, first, count int, sampler *core.RandomSampler) core.Vec3 {
	x, y := i%rt.width, i/rt.width

	var sum core.Vec3
	for s := 0; s < count; s++ {
		if rt.deterministic {
			sampler.Reseed(rt.seed, core.SplitMix64(uint64(i)<<32|uint64(first+s)))
		}

		px, py := float32(x)+0.5, float32(y)+0.5
		if rt.settings.Antialiasing {
			jitter := sampler.Get2D()
			px, py = float32(x)+jitter.X, float32(y)+jitter.Y
		}

		ray := rt.camera.GetRay(px, py, rt.width, rt.height, sampler)
		ray = TracePath(rt.world, ray, rt.settings.Bounces, rt.settings.UseBVH, sampler)
		sum = sum.Add(ray.Radiance)
	}
	return sum.Divide(float32(count))
}
