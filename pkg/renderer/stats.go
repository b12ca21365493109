package renderer

import "time"

// WorkerStats describes the work one worker did during a pass
type WorkerStats struct {
	Worker    int           // worker index
	Pixels    int           // pixels written
	Samples   int           // camera samples traced
	Duration  time.Duration // time spent on the chunk
	Cancelled bool          // the pass context ended before the chunk was finished
}

// RenderStats contains statistics about a render pass
type RenderStats struct {
	Pass            int           // number of passes run by this renderer, including this one
	Progressive     bool          // whether the pass folded into the running mean
	SampleIndex     int           // progressive sample index used by the pass
	SamplesPerPixel int           // samples traced for each pixel this pass
	Duration        time.Duration // wall time of the pass
	Workers         []WorkerStats
}

// TotalSamples returns the number of camera samples traced across all workers
func (s RenderStats) TotalSamples() int {
	total := 0
	for _, w := range s.Workers {
		total += w.Samples
	}
	return total
}

// TotalPixels returns the number of pixels written across all workers
func (s RenderStats) TotalPixels() int {
	total := 0
	for _, w := range s.Workers {
		total += w.Pixels
	}
	return total
}

// SamplesPerSecond returns the sample throughput of the pass
func (s RenderStats) SamplesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.TotalSamples()) / s.Duration.Seconds()
}
