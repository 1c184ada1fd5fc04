package plugin

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Priority constants for type registration.
// Higher priority values override lower priority types with the same manifest id.
const (
	// PriorityDefault is the default priority for plugin types.
	PriorityDefault = 0

	// PriorityOverride lets an alternative implementation replace a bundled
	// type with the same manifest id.
	PriorityOverride = 100
)

// TypeInfo describes a registered plugin type.
type TypeInfo struct {
	// Manifest is the static descriptor. Manifest.ID is the registry key.
	Manifest Manifest

	// Description is a human-readable description of the type.
	Description string

	// Priority determines which type wins when several register the same
	// manifest id. Higher priority wins.
	Priority int

	// Factory creates the hooks of the type's factory value and of every
	// instance.
	Factory Factory

	// Order specifies the initialization order. Lower values initialize
	// first. Default is 50; container types such as the stage use 10.
	Order int
}

// ID returns the manifest id.
func (t TypeInfo) ID() string {
	return t.Manifest.ID
}

// Registry manages plugin type registration. It supports priority-based
// override, so an alternative implementation can replace a bundled type at
// compile time through import ordering.
type Registry struct {
	mu    sync.RWMutex
	types map[string]TypeInfo
	order []string
}

// NewRegistry creates a new type registry.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]TypeInfo),
		order: make([]string, 0),
	}
}

// Register adds a type to the registry.
// If a type with the same manifest id already exists, the one with higher
// priority wins. If priorities are equal, the later registration wins.
func (r *Registry) Register(info TypeInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := info.Manifest.ID
	if id == "" {
		return fmt.Errorf("manifest id cannot be empty")
	}

	if info.Factory == nil {
		return fmt.Errorf("plugin type %s: factory cannot be nil", id)
	}

	if info.Order == 0 {
		info.Order = 50
	}

	logger := zap.L().Named("registry")

	existing, exists := r.types[id]
	if exists {
		if info.Priority < existing.Priority {
			logger.Info("Plugin type registration skipped",
				zap.String("manifest_id", id),
				zap.Int("priority", info.Priority),
				zap.Int("existing_priority", existing.Priority))
			return nil
		}
		logger.Info("Plugin type overridden",
			zap.String("manifest_id", id),
			zap.Int("old_priority", existing.Priority),
			zap.Int("new_priority", info.Priority))
	}

	info.Manifest = info.Manifest.clone()
	r.types[id] = info

	if !exists {
		r.order = append(r.order, id)
	}

	logger.Debug("Plugin type registered",
		zap.String("manifest_id", id),
		zap.String("version", info.Manifest.Version),
		zap.Int("priority", info.Priority),
		zap.Int("order", info.Order))

	return nil
}

// Get returns the type info for a manifest id, or nil if not found.
func (r *Registry) Get(manifestID string) *TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.types[manifestID]
	if !ok {
		return nil
	}
	return &info
}

// SetManifest replaces the manifest of a registered type, keeping its
// factory, priority and order.
func (r *Registry) SetManifest(m Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.types[m.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownType, m.ID)
	}
	info.Manifest = m.clone()
	r.types[m.ID] = info
	return nil
}

// List returns all registered types sorted by initialization order.
func (r *Registry) List() []TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]TypeInfo, 0, len(r.types))
	for _, id := range r.order {
		result = append(result, r.types[id])
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID() < result[j].ID()
	})

	return result
}

// InitializeAll creates the factory value of every registered type, in
// order, and calls its Initialize hook. The returned map is keyed by
// manifest id.
func (r *Registry) InitializeAll(ctx *Context) (map[string]Hooks, error) {
	types := r.List()
	result := make(map[string]Hooks, len(types))

	for _, info := range types {
		hooks, err := info.Factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create plugin type %s: %w", info.ID(), err)
		}
		if err := hooks.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize plugin type %s: %w", info.ID(), err)
		}
		result[info.ID()] = hooks
	}

	return result, nil
}

// IDs returns the manifest ids of all registered types in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Clear removes all registered types. Useful for testing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = make(map[string]TypeInfo)
	r.order = make([]string, 0)
}

// Global registry instance
var globalRegistry = NewRegistry()

// Register adds a type to the global registry.
// This is typically called from init() functions in plugin type packages.
func Register(info TypeInfo) error {
	return globalRegistry.Register(info)
}

// Get returns type info from the global registry.
func Get(manifestID string) *TypeInfo {
	return globalRegistry.Get(manifestID)
}

// List returns all types from the global registry.
func List() []TypeInfo {
	return globalRegistry.List()
}

// IDs returns all manifest ids from the global registry.
func IDs() []string {
	return globalRegistry.IDs()
}

// Global returns the global registry.
func Global() *Registry {
	return globalRegistry
}

// ClearGlobal clears the global registry. Useful for testing.
func ClearGlobal() {
	globalRegistry.Clear()
}
