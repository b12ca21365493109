package core

// Ray is a half-line carrying the path state accumulated along it
type Ray struct {
	Origin     Vec3
	Direction  Vec3
	Throughput Vec3 // product of surface colors so far
	Radiance   Vec3 // light gathered so far
}

// NewRay creates a ray with unit throughput and no radiance
func NewRay(origin, direction Vec3) Ray {
	return Ray{
		Origin:     origin,
		Direction:  direction,
		Throughput: Splat(1),
	}
}

// At returns the point at parameter t along the ray
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Direction.Multiply(t))
}
