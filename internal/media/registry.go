// Package media provides the document-wide media registry that plugin
// instances resolve asset references against.
package media

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Descriptor describes a media item referenced by a document.
type Descriptor struct {
	ID      string `json:"id" yaml:"id" msgpack:"id"`
	Src     string `json:"src" yaml:"src" msgpack:"src"`
	Type    string `json:"type" yaml:"type" msgpack:"type"`
	AssetID string `json:"assetId,omitempty" yaml:"asset_id,omitempty" msgpack:"assetId,omitempty"`
	Preload bool   `json:"preload,omitempty" yaml:"preload,omitempty" msgpack:"preload,omitempty"`
}

// Lookup resolves an asset id to its media descriptor.
type Lookup interface {
	GetMedia(assetID string) (Descriptor, bool)
}

// FromValue converts an inline media value (a decoded JSON object or a
// Descriptor) into a Descriptor.
func FromValue(v interface{}) (Descriptor, error) {
	switch d := v.(type) {
	case Descriptor:
		return d, nil
	case *Descriptor:
		if d == nil {
			return Descriptor{}, fmt.Errorf("nil media descriptor")
		}
		return *d, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to encode media value: %w", err)
	}
	var d Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return Descriptor{}, fmt.Errorf("failed to decode media value: %w", err)
	}
	if d.ID == "" {
		return Descriptor{}, fmt.Errorf("media value has no id")
	}
	return d, nil
}

// Registry is an in-memory media registry keyed by media id.
type Registry struct {
	mu     sync.RWMutex
	items  map[string]Descriptor
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		items:  make(map[string]Descriptor),
		logger: logger.Named("media"),
	}
}

// Add registers or replaces a media descriptor.
func (r *Registry) Add(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("media id cannot be empty")
	}

	r.mu.Lock()
	_, replaced := r.items[d.ID]
	r.items[d.ID] = d
	r.mu.Unlock()

	r.logger.Debug("Media registered",
		zap.String("id", d.ID),
		zap.String("src", d.Src),
		zap.Bool("replaced", replaced))
	return nil
}

// GetMedia returns the descriptor for an asset id.
func (r *Registry) GetMedia(assetID string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.items[assetID]
	return d, ok
}

// All returns every descriptor sorted by id.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear removes every descriptor. Called when a document is unloaded.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = make(map[string]Descriptor)
}
