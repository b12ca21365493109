package geometry

import (
	"github.com/df07/go-cpu-pathtracer/pkg/core"
)

// Environment is the sky gradient seen by rays that escape all geometry.
// Scene space has -Y as up, so the zenith color is reached for rays heading toward -Y.
type Environment struct {
	Zenith     core.Vec3
	Horizon    core.Vec3
	Brightness float32
}

// NewEnvironment creates a white-to-sky-blue gradient at full brightness
func NewEnvironment() *Environment {
	return &Environment{
		Zenith:     core.NewVec3(0.5, 0.7, 1.0),
		Horizon:    core.NewVec3(1, 1, 1),
		Brightness: 1,
	}
}

// NewUniformEnvironment creates an environment with a single color
func NewUniformEnvironment(color core.Vec3, brightness float32) *Environment {
	return &Environment{Zenith: color, Horizon: color, Brightness: brightness}
}

// Color returns the clamped radiance arriving from direction
func (e *Environment) Color(direction core.Vec3) core.Vec3 {
	if e == nil {
		return core.Vec3{}
	}
	a := 0.5 * (1 - direction.Normalize().Y)
	return e.Horizon.Lerp(e.Zenith, a).Multiply(e.Brightness).Clamp(0, 1)
}
