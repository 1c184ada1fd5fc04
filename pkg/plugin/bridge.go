package plugin

import (
	"errors"
	"sync"

	"contenteditor/internal/metrics"
	"contenteditor/internal/surface"

	"go.uber.org/zap"
)

// Bridge relays render-surface notifications to instance hooks. Targets are
// resolved through the directory by correlation id on every event, so a
// notification for an instance that is gone is dropped.
type Bridge struct {
	mu    sync.Mutex
	wired map[string]struct{}

	directory *Directory
	surface   surface.Surface
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewBridge creates a bridge over a directory and surface.
func NewBridge(directory *Directory, s surface.Surface, m *metrics.Metrics, logger *zap.Logger) *Bridge {
	return &Bridge{
		wired:     make(map[string]struct{}),
		directory: directory,
		surface:   s,
		metrics:   m,
		logger:    logger.Named("bridge"),
	}
}

// Attach subscribes the instance id to notifications.
func (b *Bridge) Attach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wired[id] = struct{}{}
}

// Detach unsubscribes the instance id.
func (b *Bridge) Detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.wired, id)
}

// Wired reports whether id is subscribed.
func (b *Bridge) Wired(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.wired[id]
	return ok
}

func (b *Bridge) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wired = make(map[string]struct{})
}

// DispatchAll dispatches events in order.
func (b *Bridge) DispatchAll(events []surface.Event) {
	for _, ev := range events {
		b.Dispatch(ev)
	}
}

// Dispatch delivers one notification to the hooks of its instance.
func (b *Bridge) Dispatch(ev surface.Event) {
	inst, ok := b.directory.Get(ev.ID)
	if !ok || !b.Wired(ev.ID) {
		b.metrics.StaleEvents.Inc()
		b.logger.Debug("Dropping stale event",
			zap.String("event", string(ev.Type)),
			zap.String("id", ev.ID))
		return
	}
	b.metrics.Events.WithLabelValues(string(ev.Type)).Inc()

	hooks := inst.hooks
	switch ev.Type {
	case surface.EventAdded:
		inst.refreshGeometry()
		hooks.Added(inst, ev)
	case surface.EventModified:
		inst.refreshGeometry()
		hooks.Changed(inst, ev)
	case surface.EventRemoved:
		b.removed(inst, ev)
	case surface.EventSelected:
		hooks.Selected(inst, ev)
	case surface.EventDeselected:
		hooks.Deselected(inst, ev)
	case surface.EventRotating:
		hooks.Rotating(inst, ev)
	case surface.EventScaling:
		hooks.Scaling(inst, ev)
	case surface.EventMoving:
		hooks.Moving(inst, ev)
	case surface.EventSkewing:
		hooks.Skewing(inst, ev)
	default:
		b.logger.Warn("Unknown event", zap.String("event", string(ev.Type)), zap.String("id", ev.ID))
	}
}

// removed runs the removed hook, takes every child's render object off the
// surface and removes the children, then removes inst itself. Removed
// notifications the surface queues for the children arrive later as stale
// events.
func (b *Bridge) removed(inst *Instance, ev surface.Event) {
	inst.hooks.Removed(inst, ev)

	for _, child := range inst.Children() {
		if obj := child.Object(); obj != nil {
			if err := b.surface.Remove(obj); err != nil && !errors.Is(err, surface.ErrNotFound) {
				b.logger.Warn("Failed to remove child render object",
					zap.String("id", child.ID()),
					zap.Error(err))
			}
		}
		b.removed(child, surface.Event{Type: surface.EventRemoved, ID: child.ID()})
	}

	if err := inst.Remove(); err != nil {
		b.logger.Warn("Failed to remove instance", zap.String("id", inst.ID()), zap.Error(err))
	}
}
