// Package resource loads files shipped with a plugin type (help text,
// templates, editor config) from the plugin root directory.
//
// Plugin files live under <root>/<manifestID>-<version>/. Loads run on a
// worker pool and report through a callback; the caller never waits on
// them. Decoded content is cached until the file changes on disk.
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/panjf2000/ants/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Kind selects how a resource is decoded.
type Kind string

const (
	KindText Kind = "text"
	KindJSON Kind = "json"
	KindYAML Kind = "yaml"
)

// Callback receives the outcome of an asynchronous load.
type Callback func(err error, content interface{})

// Loader loads and caches plugin resources.
type Loader struct {
	root    string
	pool    *ants.Pool
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	mu      sync.RWMutex
	cache   map[string]interface{} // path + "|" + kind -> content
	watched map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewLoader creates a loader rooted at root with a pool of workers.
func NewLoader(root string, workers int, logger *zap.Logger) (*Loader, error) {
	if workers <= 0 {
		workers = 4
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		pool.Release()
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	l := &Loader{
		root:    root,
		pool:    pool,
		watcher: watcher,
		logger:  logger.Named("resource"),
		cache:   make(map[string]interface{}),
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}

	l.wg.Add(1)
	go l.watch()

	return l, nil
}

// PluginDir returns the directory holding a plugin type's files.
func (l *Loader) PluginDir(manifestID, version string) string {
	return filepath.Join(l.root, manifestID+"-"+version)
}

// Load decodes a plugin resource on the worker pool and hands the result to
// cb. If the pool rejects the task, cb is called with the error right away.
func (l *Loader) Load(manifestID, version, path string, kind Kind, cb Callback) {
	err := l.pool.Submit(func() {
		content, err := l.LoadSync(manifestID, version, path, kind)
		cb(err, content)
	})
	if err != nil {
		l.logger.Warn("Failed to schedule resource load",
			zap.String("plugin", manifestID),
			zap.String("path", path),
			zap.Error(err))
		cb(fmt.Errorf("failed to schedule load of %s: %w", path, err), nil)
	}
}

// LoadSync decodes a plugin resource on the calling goroutine.
func (l *Loader) LoadSync(manifestID, version, path string, kind Kind) (interface{}, error) {
	full, err := l.resolve(manifestID, version, path)
	if err != nil {
		return nil, err
	}
	key := full + "|" + string(kind)

	l.mu.RLock()
	content, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return content, nil
	}

	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource %s: %w", path, err)
	}

	content, err = decode(raw, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to decode resource %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[key] = content
	l.mu.Unlock()

	l.watchDir(filepath.Dir(full))

	l.logger.Debug("Resource loaded",
		zap.String("plugin", manifestID),
		zap.String("path", path),
		zap.String("kind", string(kind)))
	return content, nil
}

// Close stops the watcher and releases the worker pool.
func (l *Loader) Close() error {
	close(l.done)
	err := l.watcher.Close()
	l.wg.Wait()
	l.pool.Release()
	return err
}

func (l *Loader) resolve(manifestID, version, path string) (string, error) {
	dir := l.PluginDir(manifestID, version)
	full := filepath.Join(dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("resource path %q escapes plugin directory", path)
	}
	return full, nil
}

func decode(raw []byte, kind Kind) (interface{}, error) {
	switch kind {
	case KindText:
		return string(raw), nil
	case KindJSON:
		if !gjson.ValidBytes(raw) {
			return nil, fmt.Errorf("invalid json")
		}
		return gjson.ParseBytes(raw).Value(), nil
	case KindYAML:
		var v interface{}
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func (l *Loader) watchDir(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watched[dir] {
		return
	}
	if err := l.watcher.Add(dir); err != nil {
		l.logger.Warn("Failed to watch plugin directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	l.watched[dir] = true
}

func (l *Loader) watch() {
	defer l.wg.Done()

	for {
		select {
		case <-l.done:
			return
		case ev, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				l.invalidate(ev.Name)
			}
		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Warn("File watcher error", zap.Error(err))
		}
	}
}

func (l *Loader) invalidate(path string) {
	prefix := filepath.Clean(path) + "|"

	l.mu.Lock()
	dropped := 0
	for key := range l.cache {
		if strings.HasPrefix(key, prefix) {
			delete(l.cache, key)
			dropped++
		}
	}
	l.mu.Unlock()

	if dropped > 0 {
		l.logger.Debug("Resource cache invalidated", zap.String("path", path), zap.Int("entries", dropped))
	}
}
