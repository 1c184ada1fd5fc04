package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"contenteditor/internal/media"
	"contenteditor/pkg/plugin"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Defaults applied to missing editor settings.
const (
	DefaultPort    = 8080
	DefaultWorkers = 4
	ManifestFile   = "manifest.yaml"
)

// ServerConfig holds the HTTP settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PluginsConfig locates plugin files on disk.
type PluginsConfig struct {
	// Root holds one <id>-<ver> directory per plugin type.
	Root string `yaml:"root"`
	// Workers is the size of the resource loading pool.
	Workers int `yaml:"workers"`
}

// EditorConfig represents the editor_config.yaml structure
type EditorConfig struct {
	Server  ServerConfig       `yaml:"server"`
	Plugins PluginsConfig      `yaml:"plugins"`
	Media   []media.Descriptor `yaml:"media"`
	// Document is an optional document file loaded at startup.
	Document string `yaml:"document"`
}

// Loader manages configuration file loading
type Loader struct {
	configDir    string
	logger       *zap.Logger
	editorConfig *EditorConfig
	manifests    []plugin.Manifest
}

// NewLoader creates a new configuration loader
func NewLoader(configDir string, logger *zap.Logger) *Loader {
	return &Loader{
		configDir: configDir,
		logger:    logger,
	}
}

// LoadAll loads the editor config and the plugin manifests it points at
func (l *Loader) LoadAll() error {
	l.logger.Info("Loading configuration files", zap.String("dir", l.configDir))

	if err := l.LoadEditorConfig(); err != nil {
		return fmt.Errorf("failed to load editor config: %w", err)
	}

	if err := l.LoadManifests(); err != nil {
		return fmt.Errorf("failed to load plugin manifests: %w", err)
	}

	l.logger.Info("All configuration files loaded successfully")
	return nil
}

// LoadEditorConfig loads the editor_config.yaml file. A missing file yields
// the defaults.
func (l *Loader) LoadEditorConfig() error {
	path := filepath.Join(l.configDir, "editor_config.yaml")
	l.logger.Debug("Loading editor config", zap.String("path", path))

	var config EditorConfig
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		l.logger.Info("No editor config, using defaults", zap.String("path", path))
	case err != nil:
		return fmt.Errorf("failed to read editor config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse editor config: %w", err)
		}
	}

	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Plugins.Workers <= 0 {
		config.Plugins.Workers = DefaultWorkers
	}
	if config.Plugins.Root == "" {
		config.Plugins.Root = filepath.Join(l.configDir, "plugins")
	} else if !filepath.IsAbs(config.Plugins.Root) {
		config.Plugins.Root = filepath.Join(l.configDir, config.Plugins.Root)
	}
	if config.Document != "" && !filepath.IsAbs(config.Document) {
		config.Document = filepath.Join(l.configDir, config.Document)
	}
	for i, d := range config.Media {
		if d.ID == "" {
			return fmt.Errorf("media entry %d has no id", i)
		}
	}

	l.editorConfig = &config
	l.logger.Info("Editor config loaded successfully",
		zap.Int("port", config.Server.Port),
		zap.String("plugin_root", config.Plugins.Root),
		zap.Int("media", len(config.Media)))
	return nil
}

// LoadManifests reads <root>/*/manifest.yaml. Plugin directories without a
// manifest are skipped.
func (l *Loader) LoadManifests() error {
	if l.editorConfig == nil {
		return fmt.Errorf("editor config not loaded")
	}
	root := l.editorConfig.Plugins.Root

	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Info("No plugin root", zap.String("root", root))
		l.manifests = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read plugin root: %w", err)
	}

	manifests := make([]plugin.Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(root, entry.Name(), ManifestFile)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var m plugin.Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if m.ID == "" {
			return fmt.Errorf("%s: manifest id is empty", path)
		}
		if want := m.ID + "-" + m.Version; want != entry.Name() {
			l.logger.Warn("Plugin directory does not match manifest",
				zap.String("dir", entry.Name()),
				zap.String("expected", want))
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })
	l.manifests = manifests
	l.logger.Info("Plugin manifests loaded", zap.Int("count", len(manifests)))
	return nil
}

// ApplyManifests replaces the manifests of registered types with the ones
// read from disk. Manifests for unknown types are logged and ignored.
func (l *Loader) ApplyManifests(registry *plugin.Registry) int {
	applied := 0
	for _, m := range l.manifests {
		if err := registry.SetManifest(m); err != nil {
			l.logger.Warn("Manifest not applied", zap.String("manifest_id", m.ID), zap.Error(err))
			continue
		}
		applied++
	}
	return applied
}

// GetEditorConfig returns the loaded editor configuration
func (l *Loader) GetEditorConfig() *EditorConfig {
	return l.editorConfig
}

// GetManifests returns the manifests read from the plugin root
func (l *Loader) GetManifests() []plugin.Manifest {
	return l.manifests
}
