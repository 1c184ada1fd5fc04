package config

import (
	"os"
	"path/filepath"
	"testing"

	"contenteditor/pkg/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func setupTestConfigDir(t *testing.T) string {
	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, "editor_config.yaml"), `server:
  port: 9090
plugins:
  root: plugins
  workers: 2
media:
  - id: img1
    src: /assets/img1.png
    type: image
    asset_id: img1
  - id: snd1
    src: /assets/snd1.mp3
    type: audio
document: documents/lesson.json
`)

	writeFile(t, filepath.Join(tmpDir, "plugins", "org.ekstep.shape-1.0", ManifestFile), `id: org.ekstep.shape
ver: "1.0"
name: Shape
editor:
  help:
    src: editor/help.md
    dataType: text
  config:
    fill: "#FF0000"
  menu:
    - id: shape
      category: main
      title: Shape
      iconImage: editor/shape.png
`)
	writeFile(t, filepath.Join(tmpDir, "plugins", "org.ekstep.text-1.0", ManifestFile), `id: org.ekstep.text
ver: "1.0"
`)
	// No manifest: skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "plugins", "org.ekstep.empty-1.0"), 0755))

	return tmpDir
}

func TestLoader_LoadAll(t *testing.T) {
	configDir := setupTestConfigDir(t)
	loader := NewLoader(configDir, zap.NewNop())

	require.NoError(t, loader.LoadAll())

	cfg := loader.GetEditorConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Plugins.Workers)
	assert.Equal(t, filepath.Join(configDir, "plugins"), cfg.Plugins.Root)
	assert.Equal(t, filepath.Join(configDir, "documents", "lesson.json"), cfg.Document)
	require.Len(t, cfg.Media, 2)
	assert.Equal(t, "img1", cfg.Media[0].ID)
	assert.Equal(t, "/assets/img1.png", cfg.Media[0].Src)
	assert.Equal(t, "audio", cfg.Media[1].Type)

	manifests := loader.GetManifests()
	require.Len(t, manifests, 2)
	assert.Equal(t, "org.ekstep.shape", manifests[0].ID)
	assert.Equal(t, "1.0", manifests[0].Version)
	require.NotNil(t, manifests[0].Editor.Help)
	assert.Equal(t, "editor/help.md", manifests[0].Editor.Help.Src)
	assert.Equal(t, "#FF0000", manifests[0].Editor.Config["fill"])
	require.Len(t, manifests[0].Editor.Menu, 1)
	assert.Equal(t, "main", manifests[0].Editor.Menu[0].Category)
	assert.Equal(t, "org.ekstep.text", manifests[1].ID)
}

func TestLoader_Defaults(t *testing.T) {
	configDir := t.TempDir()
	loader := NewLoader(configDir, zap.NewNop())

	require.NoError(t, loader.LoadAll())

	cfg := loader.GetEditorConfig()
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultWorkers, cfg.Plugins.Workers)
	assert.Equal(t, filepath.Join(configDir, "plugins"), cfg.Plugins.Root)
	assert.Empty(t, cfg.Document)
	assert.Empty(t, loader.GetManifests())
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		contains string
	}{
		{
			name:     "invalid yaml",
			files:    map[string]string{"editor_config.yaml": "server: [unclosed"},
			contains: "failed to parse editor config",
		},
		{
			name:     "media without id",
			files:    map[string]string{"editor_config.yaml": "media:\n  - src: /a.png\n"},
			contains: "media entry 0 has no id",
		},
		{
			name:     "manifest without id",
			files:    map[string]string{"plugins/x-1.0/manifest.yaml": "ver: \"1.0\"\n"},
			contains: "manifest id is empty",
		},
		{
			name:     "invalid manifest",
			files:    map[string]string{"plugins/x-1.0/manifest.yaml": "id: [x"},
			contains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
			}

			err := NewLoader(dir, zap.NewNop()).LoadAll()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoader_LoadManifestsBeforeConfig(t *testing.T) {
	loader := NewLoader(t.TempDir(), zap.NewNop())
	assert.Error(t, loader.LoadManifests())
}

func TestLoader_ApplyManifests(t *testing.T) {
	configDir := setupTestConfigDir(t)
	loader := NewLoader(configDir, zap.NewNop())
	require.NoError(t, loader.LoadAll())

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(plugin.TypeInfo{
		Manifest: plugin.Manifest{ID: "org.ekstep.shape", Version: "1.0"},
		Factory:  func(ctx *plugin.Context) (plugin.Hooks, error) { return &plugin.BaseHooks{}, nil },
	}))

	assert.Equal(t, 1, loader.ApplyManifests(registry), "text is not registered")

	info := registry.Get("org.ekstep.shape")
	require.NotNil(t, info)
	assert.Equal(t, "#FF0000", info.Manifest.Editor.Config["fill"])
	assert.Equal(t, "Shape", info.Manifest.Name)
}
