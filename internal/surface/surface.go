// Package surface defines the render-surface contract consumed by plugin
// instances: renderable objects correlated to instances by id, and the
// interaction notifications a surface emits for them.
package surface

import "errors"

// EventType names an interaction notification.
type EventType string

const (
	EventAdded      EventType = "added"
	EventRemoved    EventType = "removed"
	EventSelected   EventType = "selected"
	EventDeselected EventType = "deselected"
	EventModified   EventType = "modified"
	EventRotating   EventType = "rotating"
	EventScaling    EventType = "scaling"
	EventMoving     EventType = "moving"
	EventSkewing    EventType = "skewing"
)

// EventTypes lists every notification a surface emits.
var EventTypes = []EventType{
	EventAdded, EventRemoved, EventSelected, EventDeselected, EventModified,
	EventRotating, EventScaling, EventMoving, EventSkewing,
}

// Valid reports whether t is a known notification.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is an interaction notification for one render object.
type Event struct {
	Type    EventType              `json:"type"`
	ID      string                 `json:"id"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// Geometry is the pixel box of a render object.
type Geometry struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Object is a live render object.
type Object interface {
	ID() string
	SetID(id string)
	Left() float64
	Top() float64
	Width() float64
	Height() float64
	SetGeometry(g Geometry)
}

// Rounded is implemented by objects that expose a corner radius. The
// bridge copies it into the instance's r attribute.
type Rounded interface {
	Rx() float64
	SetRx(rx float64)
}

// Surface holds render objects.
type Surface interface {
	Add(obj Object) error
	Remove(obj Object) error
}

// Source delivers queued notifications. Ready is signalled whenever new
// events are waiting; Drain returns them in emission order.
type Source interface {
	Ready() <-chan struct{}
	Drain() []Event
}

var (
	// ErrNoID is returned when adding an object without a correlation id.
	ErrNoID = errors.New("render object has no id")
	// ErrDuplicate is returned when an object id is already on the surface.
	ErrDuplicate = errors.New("render object already on surface")
	// ErrNotFound is returned for objects that are not on the surface.
	ErrNotFound = errors.New("render object not on surface")
)

// GeometryOf reads the geometry of obj.
func GeometryOf(obj Object) Geometry {
	return Geometry{Left: obj.Left(), Top: obj.Top(), Width: obj.Width(), Height: obj.Height()}
}
