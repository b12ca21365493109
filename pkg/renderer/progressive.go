package renderer

import (
	"image"
	"image/color"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
)

// Accumulator stores one linear radiance value per pixel plus the 1-based
// progressive sample index. Workers write disjoint pixel ranges; the index
// is only touched between passes.
type Accumulator struct {
	width  int
	height int
	pixels []core.Vec3
	index  int
}

// NewAccumulator allocates a black buffer with the progressive index at 1
func NewAccumulator(width, height int) *Accumulator {
	return &Accumulator{
		width:  width,
		height: height,
		pixels: make([]core.Vec3, width*height),
		index:  1,
	}
}

// Set overwrites a pixel with a batch average
func (a *Accumulator) Set(i int, value core.Vec3) {
	a.pixels[i] = value
}

// Blend folds one sample into the running mean using the current index.
// The first sample is assigned directly.
func (a *Accumulator) Blend(i int, sample core.Vec3) {
	if a.index <= 1 {
		a.pixels[i] = sample
		return
	}
	stored := a.pixels[i]
	a.pixels[i] = stored.Add(sample.Subtract(stored).Divide(float32(a.index)))
}

// Index returns the progressive sample index of the next pass
func (a *Accumulator) Index() int {
	return a.index
}

// Advance moves to the next progressive sample
func (a *Accumulator) Advance() {
	a.index++
}

// Reset discards progressive convergence
func (a *Accumulator) Reset() {
	a.index = 1
}

// Raw returns the stored linear value of pixel i
func (a *Accumulator) Raw(i int) core.Vec3 {
	return a.pixels[i]
}

// ToneMap applies gamma, clamps to [0, 1] and optionally scales to [0, 255]
func ToneMap(value core.Vec3, gamma float32, as8bit bool) core.Vec3 {
	mapped := value.GammaCorrect(gamma).Clamp(0, 1)
	if as8bit {
		mapped = mapped.Multiply(255)
	}
	return mapped
}

// Pixel returns the tone-mapped value at (x, y)
func (a *Accumulator) Pixel(x, y int, gamma float32, as8bit bool) core.Vec3 {
	return ToneMap(a.pixels[y*a.width+x], gamma, as8bit)
}

// Pixels writes every tone-mapped pixel into dst in row-major order
func (a *Accumulator) Pixels(dst []core.Vec3, gamma float32, as8bit bool) error {
	if len(dst) < len(a.pixels) {
		return ErrBufferTooSmall
	}
	for i, p := range a.pixels {
		dst[i] = ToneMap(p, gamma, as8bit)
	}
	return nil
}

// Image returns an opaque RGBA image using the same tone mapping
func (a *Accumulator) Image(gamma float32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, a.width, a.height))
	for y := 0; y < a.height; y++ {
		for x := 0; x < a.width; x++ {
			c := a.Pixel(x, y, gamma, true)
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(c.X + 0.5),
				G: uint8(c.Y + 0.5),
				B: uint8(c.Z + 0.5),
				A: 255,
			})
		}
	}
	return img
}
