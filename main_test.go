package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/df07/go-cpu-pathtracer/pkg/log"
	"golang.org/x/image/bmp"
)

func TestRenderCommand_BuiltinScene(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.bmp")
	args := []string{"pathtracer", "render",
		"--width", "8", "--height", "6", "--samples", "2", "--threads", "2",
		"--seed", "7", "--scale", "2", "-o", out, "cube"}

	if err := newApp().Run(args); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := bmp.Decode(f)
	if err != nil {
		t.Fatalf("output is not a bitmap: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 16 || b.Dy() != 12 {
		t.Errorf("Expected 16x12 output, got %v", b)
	}
}

func TestRenderCommand_SceneFile(t *testing.T) {
	dir := t.TempDir()
	sceneFile := filepath.Join(dir, "ball.toml")
	content := `
[render]
width = 6
height = 4
samples = 2
threads = 1

[camera]
position = [0.0, -1.0, 5.0]
look_at = [0.0, -1.0, 0.0]

[materials.red]
color = [0.9, 0.1, 0.1]

[[objects]]
type = "sphere"
center = [0.0, -1.0, 0.0]
radius = 1.0
material = "red"
`
	if err := os.WriteFile(sceneFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "ball.png")
	if err := newApp().Run([]string{"pathtracer", "render", "-o", out, sceneFile}); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("Expected output file: %v", err)
	}
}

func TestApp_VerboseFlags(t *testing.T) {
	t.Cleanup(log.ResetLevels)

	tests := []struct {
		name string
		args []string
	}{
		{"Help", []string{"pathtracer", "--help"}},
		{"Version", []string{"pathtracer", "--version"}},
		{"Verbose list", []string{"pathtracer", "-v", "list-scenes", "--dir", t.TempDir()}},
		{"Very verbose list", []string{"pathtracer", "-vv", "list-scenes", "--dir", ""}},
		{"Module level", []string{"pathtracer", "--log-module", "geometry=debug", "list-scenes", "--dir", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newApp().Run(tt.args); err != nil {
				t.Errorf("Expected success, got %v", err)
			}
		})
	}
}

func TestRenderCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"Missing scene", []string{"pathtracer", "render"}},
		{"Bad module level", []string{"pathtracer", "--log-module", "geometry", "list-scenes"}},
		{"Unknown scene", []string{"pathtracer", "render", "-o", filepath.Join(dir, "a.png"), "nope"}},
		{"Unsupported output", []string{"pathtracer", "render", "-o", filepath.Join(dir, "a.gif"), "cube"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := newApp().Run(tt.args); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
