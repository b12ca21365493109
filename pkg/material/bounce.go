package material

import (
	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
)

// SurfaceOffset moves a bounced ray origin off the surface so it does not
// immediately re-hit the primitive it left.
const SurfaceOffset = 1e-4

// airIOR is the index of refraction on the outside of every refractive surface
const airIOR = 1.0

// Bounce accumulates the material's emission into the ray, tints its
// throughput and replaces its origin and direction with the next path segment.
func Bounce(ray *core.Ray, hit HitRecord, mat Material, sampler core.Sampler) {
	ray.Radiance = ray.Radiance.Add(ray.Throughput.MultiplyVec(mat.Emitted()))
	ray.Throughput = ray.Throughput.MultiplyVec(mat.Color)

	unitDirection := ray.Direction.Normalize()
	if mat.Refractive {
		ray.Origin, ray.Direction = refract(unitDirection, hit, mat.IOR)
		return
	}

	ray.Direction = scatter(unitDirection, hit.Normal, mat.Roughness, sampler)
	ray.Origin = hit.Point.Add(hit.Normal.Multiply(SurfaceOffset))
}

// scatter blends the mirror direction toward a random hemisphere direction by roughness
func scatter(unitDirection, normal core.Vec3, roughness float32, sampler core.Sampler) core.Vec3 {
	specular := Reflect(unitDirection, normal)
	if roughness <= 0 {
		return specular
	}
	diffuse := core.SampleHemisphere(normal, sampler.Get2D())
	return specular.Lerp(diffuse, roughness).Normalize()
}

// refract bends the ray through the surface, or mirrors it on total internal reflection
func refract(unitDirection core.Vec3, hit HitRecord, ior float32) (core.Vec3, core.Vec3) {
	n1, n2 := float32(airIOR), ior
	if hit.BackFace {
		n1, n2 = n2, n1
	}

	if transmitted, ok := Refract(unitDirection, hit.Normal, n1/n2); ok {
		return hit.Point.Add(transmitted.Multiply(SurfaceOffset)), transmitted
	}
	return hit.Point.Add(hit.Normal.Multiply(SurfaceOffset)), Reflect(unitDirection, hit.Normal)
}

// Reflect calculates the reflection of a vector v off a surface with normal n
func Reflect(v, n core.Vec3) core.Vec3 {
	return v.Subtract(n.Multiply(2 * v.Dot(n)))
}

// Refract applies Snell's law to the unit direction v crossing a surface whose
// unit normal n faces v. eta is the ratio n1/n2. It returns false on total
// internal reflection.
func Refract(v, n core.Vec3, eta float32) (core.Vec3, bool) {
	cosI := min(-v.Dot(n), 1)
	cosTSq := 1 - eta*eta*(1-cosI*cosI)
	if cosTSq < 0 {
		return core.Vec3{}, false
	}
	transmitted := v.Multiply(eta).Add(n.Multiply(eta*cosI - math32.Sqrt(cosTSq)))
	return transmitted.Normalize(), true
}
