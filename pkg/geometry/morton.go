package geometry

import (
	"math/bits"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
)

// mortonScale is the largest quantized coordinate (10 bits per axis)
const mortonScale = 1023

// expandBits spreads the low 10 bits of v so that two zero bits separate each original bit
func expandBits(v uint32) uint32 {
	v = (v * 0x00010001) & 0xFF0000FF
	v = (v * 0x00000101) & 0x0F00F00F
	v = (v * 0x00000011) & 0xC30C30C3
	v = (v * 0x00000005) & 0x49249249
	return v
}

// quantize maps a coordinate inside [lo, lo+extent] to [0, 1023].
// Degenerate extents and NaN inputs map to 0.
func quantize(value, lo, extent float32) uint32 {
	if !(extent > 0) {
		return 0
	}
	scaled := (value - lo) / extent * mortonScale
	if !(scaled > 0) {
		return 0
	}
	if scaled >= mortonScale {
		return mortonScale
	}
	return uint32(scaled)
}

// MortonCode returns the 30-bit interleaved code of point relative to bounds
func MortonCode(point core.Vec3, bounds core.AABB) uint32 {
	extent := bounds.Size()
	x := expandBits(quantize(point.X, bounds.Min.X, extent.X))
	y := expandBits(quantize(point.Y, bounds.Min.Y, extent.Y))
	z := expandBits(quantize(point.Z, bounds.Min.Z, extent.Z))
	return x<<2 | y<<1 | z
}

// findSplit returns the last index of the left half of the sorted range
// [first, last]: the position where the common prefix with codes[first] drops.
func findSplit(codes []uint32, first, last int) int {
	firstCode := codes[first]
	lastCode := codes[last]

	if firstCode == lastCode {
		return (first + last) >> 1
	}

	commonPrefix := bits.LeadingZeros32(firstCode ^ lastCode)

	split := first
	step := last - first
	for step > 1 {
		step = (step + 1) >> 1
		newSplit := split + step
		if newSplit < last {
			splitPrefix := bits.LeadingZeros32(firstCode ^ codes[newSplit])
			if splitPrefix > commonPrefix {
				split = newSplit
			}
		}
	}
	return split
}
