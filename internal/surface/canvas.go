package surface

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Canvas is an in-memory render surface. It keeps objects in z-order and
// queues an Event for every change, to be drained by a single consumer.
type Canvas struct {
	mu       sync.Mutex
	objects  map[string]Object
	order    []string
	selected string
	pending  []Event
	ready    chan struct{}
	logger   *zap.Logger
}

// NewCanvas creates an empty canvas.
func NewCanvas(logger *zap.Logger) *Canvas {
	return &Canvas{
		objects: make(map[string]Object),
		order:   make([]string, 0),
		ready:   make(chan struct{}, 1),
		logger:  logger.Named("canvas"),
	}
}

// Add places obj on the canvas and queues an added notification.
func (c *Canvas) Add(obj Object) error {
	id := obj.ID()
	if id == "" {
		return ErrNoID
	}

	c.mu.Lock()
	if _, exists := c.objects[id]; exists {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	c.objects[id] = obj
	c.order = append(c.order, id)
	c.queueLocked(Event{Type: EventAdded, ID: id})
	c.mu.Unlock()

	c.logger.Debug("Object added", zap.String("id", id))
	return nil
}

// Remove takes obj off the canvas and queues a removed notification.
func (c *Canvas) Remove(obj Object) error {
	id := obj.ID()

	c.mu.Lock()
	if current, exists := c.objects[id]; !exists || current != obj {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(c.objects, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	if c.selected == id {
		c.selected = ""
	}
	c.queueLocked(Event{Type: EventRemoved, ID: id})
	c.mu.Unlock()

	c.logger.Debug("Object removed", zap.String("id", id))
	return nil
}

// Get returns the object with the given id.
func (c *Canvas) Get(id string) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj, ok := c.objects[id]
	return obj, ok
}

// Objects returns every object in z-order.
func (c *Canvas) Objects() []Object {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Object, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.objects[id])
	}
	return out
}

// Selected returns the id of the selected object, or "".
func (c *Canvas) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Select makes id the active object. The previously active object, if any,
// is deselected first.
func (c *Canvas) Select(id string, options map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.objects[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if c.selected == id {
		return nil
	}
	if c.selected != "" {
		c.queueLocked(Event{Type: EventDeselected, ID: c.selected})
	}
	c.selected = id
	c.queueLocked(Event{Type: EventSelected, ID: id, Options: options})
	return nil
}

// Deselect clears the active object.
func (c *Canvas) Deselect(options map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selected == "" {
		return
	}
	c.queueLocked(Event{Type: EventDeselected, ID: c.selected, Options: options})
	c.selected = ""
}

// Transform applies an interaction to an object. geom and rx, when non-nil,
// update the object before the notification is queued. Only rotating,
// scaling, moving, skewing and modified are accepted.
func (c *Canvas) Transform(t EventType, id string, geom *Geometry, rx *float64, options map[string]interface{}) error {
	switch t {
	case EventRotating, EventScaling, EventMoving, EventSkewing, EventModified:
	default:
		return fmt.Errorf("%s is not a transform", t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	obj, ok := c.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if geom != nil {
		obj.SetGeometry(*geom)
	}
	if rx != nil {
		if r, ok := obj.(Rounded); ok {
			r.SetRx(*rx)
		}
	}
	c.queueLocked(Event{Type: t, ID: id, Options: options})
	return nil
}

// Ready is signalled when events are waiting to be drained.
func (c *Canvas) Ready() <-chan struct{} {
	return c.ready
}

// Drain returns and clears the queued events.
func (c *Canvas) Drain() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := c.pending
	c.pending = nil
	return events
}

func (c *Canvas) queueLocked(ev Event) {
	c.pending = append(c.pending, ev)
	select {
	case c.ready <- struct{}{}:
	default:
	}
}
