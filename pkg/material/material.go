package material

import (
	"github.com/df07/go-cpu-pathtracer/pkg/core"
)

// Material describes how a surface emits, tints and redirects light.
// Materials are shared by pointer between primitives and copied by value
// when a ray hits them, so they must not be modified during a render pass.
type Material struct {
	Color            core.Vec3 // surface tint multiplied into the ray throughput
	Emission         core.Vec3 // emitted color
	EmissionStrength float32   // multiplier for Emission, unbounded
	Roughness        float32   // 0 = mirror, 1 = fully scattered
	Refractive       bool      // transmit via Snell's law instead of reflecting
	IOR              float32   // index of refraction, used when Refractive is set
}

// NewMaterial creates a white, non-emissive, fully rough material
func NewMaterial() *Material {
	return &Material{
		Color:     core.Splat(1),
		Emission:  core.Splat(1),
		Roughness: 1,
		IOR:       1,
	}
}

// NewDiffuse creates a fully rough material with the given color
func NewDiffuse(color core.Vec3) *Material {
	m := NewMaterial()
	m.Color = color
	return m
}

// NewMetal creates a reflective material; roughness is clamped to [0, 1]
func NewMetal(color core.Vec3, roughness float32) *Material {
	m := NewMaterial()
	m.Color = color
	m.Roughness = max(0, min(1, roughness))
	return m
}

// NewGlass creates a clear refractive material
func NewGlass(ior float32) *Material {
	m := NewMaterial()
	m.Refractive = true
	m.IOR = ior
	m.Roughness = 0
	return m
}

// NewLight creates an emissive material
func NewLight(emission core.Vec3, strength float32) *Material {
	m := NewMaterial()
	m.Emission = emission
	m.EmissionStrength = strength
	return m
}

// Emitted returns the radiance this material adds at a hit
func (m Material) Emitted() core.Vec3 {
	return m.Emission.Multiply(m.EmissionStrength)
}

// HitRecord contains information about a ray-object intersection
type HitRecord struct {
	Point    core.Vec3 // Point of intersection
	Normal   core.Vec3 // Unit surface normal, facing the incoming ray
	T        float32   // Parameter t along the ray
	BackFace bool      // Whether the ray struck the surface from behind
	Material *Material // Material of the hit object
}

// SetFaceNormal orients the normal against the ray and records the back-face flag
func (h *HitRecord) SetFaceNormal(ray core.Ray, outwardNormal core.Vec3) {
	h.BackFace = ray.Direction.Dot(outwardNormal) > 0
	if h.BackFace {
		h.Normal = outwardNormal.Negate()
	} else {
		h.Normal = outwardNormal
	}
}
