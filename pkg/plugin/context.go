package plugin

import (
	"contenteditor/internal/ecml"
	"contenteditor/internal/media"
	"contenteditor/internal/metrics"
	"contenteditor/internal/resource"
	"contenteditor/internal/surface"

	"go.uber.org/zap"
)

// ResourceLoader loads files shipped with a plugin type. Loads are
// fire-and-forget; results arrive on cb from another goroutine.
type ResourceLoader interface {
	Load(manifestID, version, path string, kind resource.Kind, cb resource.Callback)
}

// Instantiator creates plugin instances. Plugin types use it to spawn new
// instances in response to creation requests.
type Instantiator interface {
	Instantiate(manifestID string, fragment ecml.Fragment, parentID string) (*Instance, error)
	Create(manifestID string, data ecml.Fragment) (*Instance, error)
}

// Context provides the collaborators of one session to plugin types and
// instances.
type Context struct {
	// Logger is a structured logger. Plugin types should use
	// logger.Named("<type>") for namespacing.
	Logger *zap.Logger

	// Directory resolves instances by id.
	Directory *Directory

	// Bridge relays render-surface notifications to instance hooks.
	Bridge *Bridge

	// Surface holds the render objects of the document.
	Surface surface.Surface

	// Media resolves asset references while fragments are decoded.
	Media media.Lookup

	// Resources loads plugin files (help text, templates). May be nil.
	Resources ResourceLoader

	// Instantiator spawns new instances.
	Instantiator Instantiator

	// Metrics collects counters for the session.
	Metrics *metrics.Metrics
}
