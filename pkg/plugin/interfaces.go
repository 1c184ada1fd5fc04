// Package plugin provides the plugin instance model of the content editor:
// the capability interface concrete plugin types implement, the type
// registry they register with from init() functions, the instance directory,
// the bridge from render-surface notifications to instance hooks, and the
// session that ties them to one loaded document.
package plugin

import (
	"contenteditor/internal/surface"
)

// Hooks is the capability interface of a plugin type. Concrete types embed
// BaseHooks and override the methods they care about.
type Hooks interface {
	// Initialize is called once per session on the type's factory value,
	// before any instance of the type exists. Type-level setup goes here.
	Initialize(ctx *Context) error

	// NewInstance builds the render object for inst from its current
	// (pixel-space) attributes. Container types may return a nil object.
	NewInstance(inst *Instance) (surface.Object, error)

	// Interaction hooks, invoked by the Bridge.
	Added(inst *Instance, ev surface.Event)
	Removed(inst *Instance, ev surface.Event)
	Selected(inst *Instance, ev surface.Event)
	Deselected(inst *Instance, ev surface.Event)
	Changed(inst *Instance, ev surface.Event)
	Rotating(inst *Instance, ev surface.Event)
	Scaling(inst *Instance, ev surface.Event)
	Moving(inst *Instance, ev surface.Event)
	Skewing(inst *Instance, ev surface.Event)
}

// BaseHooks implements every hook as a no-op.
type BaseHooks struct{}

func (BaseHooks) Initialize(ctx *Context) error                      { return nil }
func (BaseHooks) NewInstance(inst *Instance) (surface.Object, error) { return nil, nil }
func (BaseHooks) Added(inst *Instance, ev surface.Event)             {}
func (BaseHooks) Removed(inst *Instance, ev surface.Event)           {}
func (BaseHooks) Selected(inst *Instance, ev surface.Event)          {}
func (BaseHooks) Deselected(inst *Instance, ev surface.Event)        {}
func (BaseHooks) Changed(inst *Instance, ev surface.Event)           {}
func (BaseHooks) Rotating(inst *Instance, ev surface.Event)          {}
func (BaseHooks) Scaling(inst *Instance, ev surface.Event)           {}
func (BaseHooks) Moving(inst *Instance, ev surface.Event)            {}
func (BaseHooks) Skewing(inst *Instance, ev surface.Event)           {}

// Factory creates the hooks value for a plugin type. It is called once for
// the type's factory value and once for every instance, so per-instance
// state can live on the returned value.
type Factory func(ctx *Context) (Hooks, error)
