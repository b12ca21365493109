package renderer

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/geometry"
	"github.com/df07/go-cpu-pathtracer/pkg/log"
)

var logger = log.New("renderer")

// Renderer owns the pixel accumulator and the persistent worker pool.
// All methods are safe for concurrent use; a render pass holds the
// renderer lock, so configuration changes wait for the pass to finish.
type Renderer struct {
	mu sync.Mutex

	width    int
	height   int
	settings Settings
	world    *geometry.World
	camera   *Camera

	accum *Accumulator
	pool  *WorkerPool

	deterministic bool
	seed          uint64

	logger    log.Logger
	passes    int
	lastStats RenderStats
	closed    bool
}

// Option configures a Renderer
type Option func(*Renderer)

// WithLogger overrides the package logger
func WithLogger(l log.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithSettings replaces DefaultSettings
func WithSettings(s Settings) Option {
	return func(r *Renderer) {
		r.settings = s
	}
}

// WithSeed makes every pixel sample draw from a stream derived from seed,
// the pixel index and the sample number, so images are reproducible and
// progressive passes match a batch pass of the same sample count.
func WithSeed(seed uint64) Option {
	return func(r *Renderer) {
		r.deterministic = true
		r.seed = seed
	}
}

// New creates a renderer and starts its worker pool
func New(width, height, threads int, opts ...Option) (*Renderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if threads <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreadCount, threads)
	}

	r := &Renderer{
		width:    width,
		height:   height,
		settings: DefaultSettings(),
		accum:    NewAccumulator(width, height),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.settings.Samples = max(1, r.settings.Samples)
	r.settings.Bounces = max(0, r.settings.Bounces)

	pool, err := NewWorkerPool(width*height, threads)
	if err != nil {
		return nil, err
	}
	r.pool = pool

	r.logger.Infof("renderer created: %dx%d, %d workers", width, height, threads)
	return r, nil
}

// Close stops the worker pool and waits for every worker to exit
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.pool.Close()
	r.closed = true
	r.logger.Debugf("renderer closed after %d passes", r.passes)
	return nil
}

// SetWorld sets the scene to render. The world must not be modified during a pass.
func (r *Renderer) SetWorld(world *geometry.World) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world = world
	if world != nil && r.settings.UseBVH && world.BVH() == nil {
		r.logger.Warning("world has no BVH; intersections will use a linear scan until RecalculateBVH is called")
	}
}

// SetCamera sets the camera. The camera is copied at the start of each pass.
func (r *Renderer) SetCamera(camera *Camera) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.camera = camera
}

// Camera returns a copy of the current camera and whether one is set
func (r *Renderer) Camera() (Camera, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camera == nil {
		return Camera{}, false
	}
	return *r.camera, true
}

// UpdateCamera applies fn to the camera and resets progressive accumulation
func (r *Renderer) UpdateCamera(fn func(c *Camera)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.camera == nil {
		return
	}
	fn(r.camera)
	r.accum.Reset()
}

// SetSamples sets the samples per pixel (the total budget in progressive mode)
func (r *Renderer) SetSamples(samples int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Samples = max(1, samples)
}

// SetBounces sets the maximum number of path segments per sample
func (r *Renderer) SetBounces(bounces int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Bounces = max(0, bounces)
}

// SetProgressive switches accumulation mode and restarts progressive accumulation
func (r *Renderer) SetProgressive(progressive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Progressive = progressive
	r.accum.Reset()
}

// SetAntialiasing toggles sub-pixel jitter
func (r *Renderer) SetAntialiasing(antialiasing bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.Antialiasing = antialiasing
}

// SetUseBVH toggles BVH traversal; when off every primitive is tested
func (r *Renderer) SetUseBVH(useBVH bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.UseBVH = useBVH
}

// Settings returns a copy of the current settings
func (r *Renderer) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// ResetProgressive discards progressive convergence
func (r *Renderer) ResetProgressive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accum.Reset()
}

// Render runs one pass to completion
func (r *Renderer) Render() error {
	return r.RenderContext(context.Background())
}

// RenderContext runs one pass, stopping early if ctx is done. Pixels are
// never partially written. A cancelled progressive pass restarts progressive
// accumulation; a cancelled batch pass leaves unvisited pixels unchanged.
func (r *Renderer) RenderContext(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRendererClosed
	}
	if r.world == nil || r.camera == nil {
		r.logger.Debug("render skipped: world or camera not set")
		return nil
	}

	settings := r.settings
	index := r.accum.Index()
	if settings.Progressive && index > settings.Samples {
		r.logger.Debugf("render skipped: progressive budget of %d samples reached", settings.Samples)
		return nil
	}

	samples := settings.Samples
	first := 0
	if settings.Progressive {
		samples = 1
		first = index - 1
	}

	rt := &Raytracer{
		world:         r.world,
		camera:        *r.camera,
		settings:      settings,
		width:         r.width,
		height:        r.height,
		deterministic: r.deterministic,
		seed:          r.seed,
	}

	start := time.Now()
	workers := r.pool.Run(ctx, func(ctx context.Context, chunk Chunk, sampler *core.RandomSampler) WorkerStats {
		var stats WorkerStats
		done := ctx.Done()
		for i := chunk.Start; i < chunk.End; i++ {
			select {
			case <-done:
				stats.Cancelled = true
				return stats
			default:
			}

			value := rt.samplePixel(i, first, samples, sampler)
			if settings.Progressive {
				r.accum.Blend(i, value)
			} else {
				r.accum.Set(i, value)
			}
			stats.Pixels++
			stats.Samples += samples
		}
		return stats
	})

	r.passes++
	r.lastStats = RenderStats{
		Pass:            r.passes,
		Progressive:     settings.Progressive,
		SampleIndex:     index,
		SamplesPerPixel: samples,
		Duration:        time.Since(start),
		Workers:         workers,
	}

	cancelled := false
	for _, w := range workers {
		cancelled = cancelled || w.Cancelled
	}
	if cancelled {
		err := ctx.Err()
		if settings.Progressive {
			r.accum.Reset()
		}
		r.logger.Infof("pass %d cancelled: %v", r.passes, err)
		return err
	}

	if settings.Progressive {
		r.accum.Advance()
	}
	r.logger.Debugf("pass %d: index %d, %d spp, %v", r.passes, index, samples, r.lastStats.Duration)
	return nil
}

// Pixel returns the tone-mapped color at (x, y)
func (r *Renderer) Pixel(x, y int, gamma float32, as8bit bool) (core.Vec3, error) {
	if x < 0 || y < 0 || x >= r.width || y >= r.height {
		return core.Vec3{}, fmt.Errorf("%w: (%d, %d)", ErrOutOfBounds, x, y)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accum.Pixel(x, y, gamma, as8bit), nil
}

// Pixels writes all tone-mapped pixels into dst in row-major order
func (r *Renderer) Pixels(dst []core.Vec3, gamma float32, as8bit bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accum.Pixels(dst, gamma, as8bit)
}

// Image returns the current frame as an 8-bit image
func (r *Renderer) Image(gamma float32) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accum.Image(gamma)
}

// Width returns the image width in pixels
func (r *Renderer) Width() int { return r.width }

// Height returns the image height in pixels
func (r *Renderer) Height() int { return r.height }

// Threads returns the number of workers
func (r *Renderer) Threads() int { return r.pool.Size() }

// ProgressiveIndex returns the progressive sample index of the next pass
func (r *Renderer) ProgressiveIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accum.Index()
}

// Done reports whether progressive rendering has used its whole sample budget
func (r *Renderer) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.Progressive && r.accum.Index() > r.settings.Samples
}

// LastStats returns statistics for the most recent pass
func (r *Renderer) LastStats() RenderStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats
}

// WorkerStates returns the lifecycle state of each worker
func (r *Renderer) WorkerStates() []WorkerState {
	return r.pool.States()
}
