package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/df07/go-cpu-pathtracer/pkg/renderer"
	"github.com/df07/go-cpu-pathtracer/pkg/scene"
	"golang.org/x/image/bmp"
)

func newTestServer(t *testing.T, config Config) (*Server, *renderer.Renderer) {
	t.Helper()
	s, err := scene.Builtin("cube")
	if err != nil {
		t.Fatal(err)
	}
	s.Width, s.Height, s.Threads = 8, 6, 2
	s.Settings.Samples = 3

	r, err := s.NewRenderer(nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	return NewServer(s, r, config), r
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	rec := get(t, srv, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestServer_RenderLoopReachesBudget(t *testing.T) {
	srv, r := newTestServer(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.RenderLoop(ctx) }()

	deadline := time.Now().Add(10 * time.Second)
	for !r.Done() {
		if time.Now().After(deadline) {
			t.Fatal("Render loop did not reach the sample budget")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Render loop returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Render loop did not stop after cancel")
	}

	var status Status
	rec := get(t, srv, "/api/status")
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if !status.Done || status.ProgressiveIndex != 4 || status.Pass != 3 {
		t.Errorf("Unexpected status after budget: %+v", status)
	}
	if status.Scene != "cube" || status.Width != 8 || status.Height != 6 {
		t.Errorf("Status does not describe the scene: %+v", status)
	}
}

func TestServer_Frames(t *testing.T) {
	srv, r := newTestServer(t, Config{Scale: 2})
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}

	rec := get(t, srv, "/api/frame.png")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("Unexpected response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("Expected upscaled 16x12 frame, got %v", b)
	}

	rec = get(t, srv, "/api/frame.bmp")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/bmp" {
		t.Fatalf("Unexpected response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if _, err := bmp.Decode(rec.Body); err != nil {
		t.Errorf("Frame is not a valid bitmap: %v", err)
	}
}

func TestServer_CameraUpdateResetsProgressive(t *testing.T) {
	srv, r := newTestServer(t, Config{})
	for i := 0; i < 2; i++ {
		if err := r.Render(); err != nil {
			t.Fatal(err)
		}
	}
	if r.ProgressiveIndex() != 3 {
		t.Fatalf("Expected index 3, got %d", r.ProgressiveIndex())
	}

	body := `{"position": [1, -2, 3], "fov": 0.5}`
	req := httptest.NewRequest(http.MethodPost, "/api/camera", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var state CameraState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	if state.Position != [3]float32{1, -2, 3} || state.FOV != 0.5 {
		t.Errorf("Camera not updated: %+v", state)
	}
	if r.ProgressiveIndex() != 1 {
		t.Errorf("Camera update should reset progressive index, got %d", r.ProgressiveIndex())
	}
}

func TestServer_CameraRejectsBadFOV(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/camera", bytes.NewBufferString(`{"fov": -1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestServer_Scenes(t *testing.T) {
	srv, _ := newTestServer(t, Config{})
	rec := get(t, srv, "/api/scenes")
	var scenes []scene.SceneInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &scenes); err != nil {
		t.Fatal(err)
	}
	if len(scenes) != len(scene.BuiltinNames()) {
		t.Errorf("Expected the built-in scenes, got %+v", scenes)
	}
}
