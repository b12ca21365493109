package scene

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// SceneInfo describes a scene that can be loaded by name or path
type SceneInfo struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "builtin" or "file"
	FilePath string `json:"filePath,omitempty"`
}

// ListScenes returns the built-in scenes followed by the TOML scene files in dir.
// A missing directory yields only the built-in scenes.
func ListScenes(dir string) ([]SceneInfo, error) {
	var scenes []SceneInfo
	for _, name := range BuiltinNames() {
		scenes = append(scenes, SceneInfo{ID: name, Type: "builtin"})
	}
	if dir == "" {
		return scenes, nil
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan scenes directory: %w", err)
	}
	sort.Strings(files)

	for _, path := range files {
		scenes = append(scenes, SceneInfo{
			ID:       strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
			Type:     "file",
			FilePath: path,
		})
	}
	return scenes, nil
}
