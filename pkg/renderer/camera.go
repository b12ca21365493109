package renderer

import (
	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFOV is the vertical field of view of a unit-height viewport one unit in front of the eye
var DefaultFOV = 2 * math32.Atan(0.5)

// Camera generates primary rays. It looks down -Z before rotation; scene
// space has -Y as up, so image rows grow toward +Y.
type Camera struct {
	Position      core.Vec3
	Rotation      core.Vec3 // pitch (X), yaw (Y), roll (Z) in radians
	FOV           float32   // vertical field of view in radians
	Aperture      float32   // lens radius, 0 disables depth of field
	FocusDistance float32   // distance to the plane in perfect focus
}

// NewCamera creates a pinhole camera at position looking down -Z
func NewCamera(position core.Vec3) *Camera {
	return &Camera{
		Position:      position,
		FOV:           DefaultFOV,
		FocusDistance: 1,
	}
}

// LookAt rotates the camera to face target and clears roll
func (c *Camera) LookAt(target core.Vec3) {
	d := target.Subtract(c.Position).Normalize()
	if d.LengthSquared() == 0 {
		return
	}
	c.Rotation = core.NewVec3(
		math32.Asin(max(-1, min(1, d.Y))),
		math32.Atan2(-d.X, -d.Z),
		0,
	)
}

// rotation returns yaw * pitch * roll
func (c *Camera) rotation() mgl32.Mat3 {
	return mgl32.Rotate3DY(c.Rotation.Y).
		Mul3(mgl32.Rotate3DX(c.Rotation.X)).
		Mul3(mgl32.Rotate3DZ(c.Rotation.Z))
}

// Forward returns the unit viewing direction
func (c *Camera) Forward() core.Vec3 {
	return core.FromMGL(c.rotation().Mul3x1(mgl32.Vec3{0, 0, -1}))
}

// GetRay returns the primary ray through image position (px, py), measured in
// pixels from the top-left corner of a width x height image.
func (c *Camera) GetRay(px, py float32, width, height int, sampler core.Sampler) core.Ray {
	fov := c.FOV
	if !(fov > 0) {
		fov = DefaultFOV
	}
	viewportHeight := 2 * math32.Tan(fov/2)
	viewportWidth := viewportHeight * float32(width) / float32(height)

	local := mgl32.Vec3{
		(px/float32(width) - 0.5) * viewportWidth,
		(py/float32(height) - 0.5) * viewportHeight,
		-1,
	}
	rot := c.rotation()
	direction := core.FromMGL(rot.Mul3x1(local))

	if c.Aperture <= 0 {
		return core.NewRay(c.Position, direction)
	}

	focus := c.Position.Add(direction.Multiply(c.FocusDistance))
	disk := core.SamplePointInUnitDisk(sampler.Get2D()).Multiply(c.Aperture)
	origin := c.Position.Add(core.FromMGL(rot.Mul3x1(disk.MGL())))
	return core.NewRay(origin, focus.Subtract(origin))
}
