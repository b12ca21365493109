package core

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// Sampler provides random sampling for rendering algorithms
// Can be swapped out for deterministic testing or different sampling patterns
type Sampler interface {
	Get1D() float32
	Get2D() Vec2
}

// RandomSampler wraps a PCG generator that can be reseeded per pixel sample
type RandomSampler struct {
	source *rand.PCG
	random *rand.Rand
}

// NewRandomSampler creates a sampler seeded with the given values
func NewRandomSampler(seed1, seed2 uint64) *RandomSampler {
	source := rand.NewPCG(seed1, seed2)
	return &RandomSampler{source: source, random: rand.New(source)}
}

// Reseed resets the generator state
func (r *RandomSampler) Reseed(seed1, seed2 uint64) {
	r.source.Seed(seed1, seed2)
}

// Get1D returns a random float32 in [0, 1)
func (r *RandomSampler) Get1D() float32 {
	return r.random.Float32()
}

// Get2D returns two random float32 values in [0, 1)
func (r *RandomSampler) Get2D() Vec2 {
	return NewVec2(r.random.Float32(), r.random.Float32())
}

// OrthonormalBasis returns two unit vectors perpendicular to normal and to each other
func OrthonormalBasis(normal Vec3) (Vec3, Vec3) {
	var nt Vec3
	if math32.Abs(normal.X) > 0.1 {
		nt = NewVec3(0, 1, 0)
	} else {
		nt = NewVec3(1, 0, 0)
	}
	tangent := nt.Cross(normal).Normalize()
	bitangent := normal.Cross(tangent)
	return tangent, bitangent
}

// SampleHemisphere returns a direction in the hemisphere around normal with
// cos(theta) drawn uniformly from sample.X. The result is flipped if it ends
// up below the surface.
func SampleHemisphere(normal Vec3, sample Vec2) Vec3 {
	cosTheta := sample.X
	sinTheta := math32.Sqrt(max(0, 1-cosTheta*cosTheta))
	phi := 2 * math32.Pi * sample.Y

	tangent, bitangent := OrthonormalBasis(normal)
	dir := tangent.Multiply(sinTheta * math32.Cos(phi)).
		Add(bitangent.Multiply(sinTheta * math32.Sin(phi))).
		Add(normal.Multiply(cosTheta))

	if dir.Dot(normal) < 0 {
		dir = dir.Negate()
	}
	return dir
}

// SamplePointInUnitDisk returns a point in the unit disk on the XY plane
func SamplePointInUnitDisk(sample Vec2) Vec3 {
	r := math32.Sqrt(sample.X)
	theta := 2 * math32.Pi * sample.Y
	return NewVec3(r*math32.Cos(theta), r*math32.Sin(theta), 0)
}

// SplitMix64 scrambles a 64-bit value; used to derive independent seeds
func SplitMix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}
