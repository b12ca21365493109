package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/chewxy/math32"
	"github.com/df07/go-cpu-pathtracer/pkg/core"
	"github.com/df07/go-cpu-pathtracer/pkg/imageio"
	"github.com/df07/go-cpu-pathtracer/pkg/log"
	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
	"github.com/df07/go-cpu-pathtracer/pkg/scene"
	"github.com/labstack/echo/v4"
)

var logger = log.New("server")

// idleInterval bounds how long the render loop sleeps once the sample budget is spent
const idleInterval = 250 * time.Millisecond

// Config holds preview server options
type Config struct {
	Gamma     float32
	Scale     int    // integer upscaling applied to served frames
	ScenesDir string // directory listed by /api/scenes
}

// Server renders a scene progressively in the background and serves the current frame
type Server struct {
	echo     *echo.Echo
	scene    *scene.Scene
	renderer *renderer.Renderer
	config   Config
	wake     chan struct{}
}

// Status is the JSON body of /api/status
type Status struct {
	Scene            string      `json:"scene"`
	Width            int         `json:"width"`
	Height           int         `json:"height"`
	Threads          int         `json:"threads"`
	Samples          int         `json:"samples"`
	ProgressiveIndex int         `json:"progressiveIndex"`
	Done             bool        `json:"done"`
	Pass             int         `json:"pass"`
	PassMs           int64       `json:"passMs"`
	SamplesPerSecond float64     `json:"samplesPerSecond"`
	Camera           CameraState `json:"camera"`
}

// CameraState is the JSON form of the camera. Angles are in radians.
type CameraState struct {
	Position      [3]float32 `json:"position"`
	Rotation      [3]float32 `json:"rotation"`
	FOV           float32    `json:"fov"`
	Aperture      float32    `json:"aperture"`
	FocusDistance float32    `json:"focusDistance"`
}

// CameraRequest updates any subset of the camera. LookAt wins over Rotation.
type CameraRequest struct {
	Position      *[3]float32 `json:"position"`
	Rotation      *[3]float32 `json:"rotation"`
	LookAt        *[3]float32 `json:"lookAt"`
	FOV           *float32    `json:"fov"`
	Aperture      *float32    `json:"aperture"`
	FocusDistance *float32    `json:"focusDistance"`
}

// NewServer creates a server for r, which must already hold the scene's
// world and camera. Progressive mode is switched on.
func NewServer(s *scene.Scene, r *renderer.Renderer, config Config) *Server {
	if !(config.Gamma > 0) {
		config.Gamma = 2.2
	}
	r.SetProgressive(true)

	srv := &Server{
		echo:     echo.New(),
		scene:    s,
		renderer: r,
		config:   config,
		wake:     make(chan struct{}, 1),
	}
	srv.echo.HideBanner = true
	srv.echo.HidePort = true
	srv.echo.Use(corsMiddleware)

	srv.echo.GET("/api/health", srv.handleHealth)
	srv.echo.GET("/api/status", srv.handleStatus)
	srv.echo.GET("/api/scenes", srv.handleScenes)
	srv.echo.GET("/api/frame.png", srv.handleFrame(imageio.FormatPNG))
	srv.echo.GET("/api/frame.bmp", srv.handleFrame(imageio.FormatBMP))
	srv.echo.POST("/api/camera", srv.handleCamera)
	return srv
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start runs the render loop and serves addr until ctx is done
func (s *Server) Start(ctx context.Context, addr string) error {
	loopDone := make(chan error, 1)
	go func() { loopDone <- s.RenderLoop(ctx) }()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			logger.Warningf("shutdown: %v", err)
		}
	}()

	logger.Noticef("serving %s on http://%s", s.scene.Name, addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-loopDone
}

// RenderLoop renders progressive passes until ctx is done. Once the sample
// budget is spent it sleeps until a camera update or the idle interval.
func (s *Server) RenderLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if s.renderer.Done() {
			select {
			case <-ctx.Done():
				return nil
			case <-s.wake:
			case <-time.After(idleInterval):
			}
			continue
		}

		if err := s.renderer.RenderContext(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.status())
}

func (s *Server) status() Status {
	stats := s.renderer.LastStats()
	camera, _ := s.renderer.Camera()
	return Status{
		Scene:            s.scene.Name,
		Width:            s.renderer.Width(),
		Height:           s.renderer.Height(),
		Threads:          s.renderer.Threads(),
		Samples:          s.renderer.Settings().Samples,
		ProgressiveIndex: s.renderer.ProgressiveIndex(),
		Done:             s.renderer.Done(),
		Pass:             stats.Pass,
		PassMs:           stats.Duration.Milliseconds(),
		SamplesPerSecond: stats.SamplesPerSecond(),
		Camera:           cameraState(camera),
	}
}

func (s *Server) handleScenes(c echo.Context) error {
	scenes, err := scene.ListScenes(s.config.ScenesDir)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, scenes)
}

func (s *Server) handleFrame(format imageio.Format) echo.HandlerFunc {
	contentType := "image/png"
	if format == imageio.FormatBMP {
		contentType = "image/bmp"
	}

	return func(c echo.Context) error {
		img := imageio.Upscale(s.renderer.Image(s.config.Gamma), s.config.Scale)

		var buf bytes.Buffer
		if err := imageio.Encode(&buf, img, format); err != nil {
			logger.Errorf("encoding frame: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to encode frame"})
		}
		c.Response().Header().Set("Cache-Control", "no-store")
		return c.Blob(http.StatusOK, contentType, buf.Bytes())
	}
}

func (s *Server) handleCamera(c echo.Context) error {
	var req CameraRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to parse request: " + err.Error()})
	}
	if req.FOV != nil && !(*req.FOV > 0 && *req.FOV < math32.Pi) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "fov must be in (0, pi)"})
	}

	if _, ok := s.renderer.Camera(); !ok {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no camera set"})
	}

	s.renderer.UpdateCamera(func(cam *renderer.Camera) {
		if req.Position != nil {
			cam.Position = vec3(*req.Position)
		}
		if req.Rotation != nil {
			cam.Rotation = vec3(*req.Rotation)
		}
		if req.LookAt != nil {
			cam.LookAt(vec3(*req.LookAt))
		}
		if req.FOV != nil {
			cam.FOV = *req.FOV
		}
		if req.Aperture != nil {
			cam.Aperture = max(0, *req.Aperture)
		}
		if req.FocusDistance != nil && *req.FocusDistance > 0 {
			cam.FocusDistance = *req.FocusDistance
		}
	})

	select {
	case s.wake <- struct{}{}:
	default:
	}

	camera, _ := s.renderer.Camera()
	logger.Debugf("camera updated: %+v", camera)
	return c.JSON(http.StatusOK, cameraState(camera))
}

func corsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Access-Control-Allow-Origin", "*")
		c.Response().Header().Set("Access-Control-Allow-Methods", "GET, POST")
		c.Response().Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}
		return next(c)
	}
}

func cameraState(c renderer.Camera) CameraState {
	return CameraState{
		Position:      [3]float32{c.Position.X, c.Position.Y, c.Position.Z},
		Rotation:      [3]float32{c.Rotation.X, c.Rotation.Y, c.Rotation.Z},
		FOV:           c.FOV,
		Aperture:      c.Aperture,
		FocusDistance: c.FocusDistance,
	}
}

func vec3(v [3]float32) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}
