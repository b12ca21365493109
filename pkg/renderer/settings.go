package renderer

import (
	"runtime"

	"github.com/shirou/gopsutil/cpu"
)

// Settings are shared read-only by all workers during a pass
type Settings struct {
	Samples      int  // samples per pixel; in progressive mode the total budget
	Bounces      int  // maximum path segments per sample
	Progressive  bool // one sample per pass, averaged into the running mean
	Antialiasing bool // jitter the sample position inside the pixel
	UseBVH       bool // use the world BVH when one is built
}

// DefaultSettings returns the settings used when none are supplied
func DefaultSettings() Settings {
	return Settings{
		Samples:      20,
		Bounces:      5,
		Progressive:  false,
		Antialiasing: true,
		UseBVH:       true,
	}
}

// DefaultThreads returns the number of logical CPUs
func DefaultThreads() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}
