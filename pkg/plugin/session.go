package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"contenteditor/internal/ecml"
	"contenteditor/internal/media"
	"contenteditor/internal/metrics"
	"contenteditor/internal/surface"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Canvas is the render surface a session drives: it holds render objects and
// queues their notifications.
type Canvas interface {
	surface.Surface
	surface.Source
}

// Options configures a Session.
type Options struct {
	// Registry supplies the plugin types. Defaults to the global registry.
	Registry  *Registry
	Canvas    Canvas
	Media     media.Lookup
	Resources ResourceLoader
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Session owns one loaded document: the directory, bridge and render
// surface, plus the factory values of the registered types. All instance
// state is touched from a single goroutine: Run's loop, or the caller when
// the loop is not running.
type Session struct {
	registry *Registry
	canvas   Canvas
	ctx      *Context
	logger   *zap.Logger

	types   map[string]Hooks
	roots   []string
	stageID string

	calls   chan func()
	running atomic.Bool
	stopped chan struct{}
	mu      sync.Mutex
}

// NewSession creates a session. Activate must be called before instances
// are created.
func NewSession(opts Options) *Session {
	if opts.Registry == nil {
		opts.Registry = Global()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop()
	}
	if opts.Canvas == nil {
		opts.Canvas = surface.NewCanvas(opts.Logger)
	}

	directory := NewDirectory()
	s := &Session{
		registry: opts.Registry,
		canvas:   opts.Canvas,
		logger:   opts.Logger.Named("session"),
		types:    make(map[string]Hooks),
		calls:    make(chan func()),
	}
	s.ctx = &Context{
		Logger:       opts.Logger,
		Directory:    directory,
		Bridge:       NewBridge(directory, opts.Canvas, opts.Metrics, opts.Logger),
		Surface:      opts.Canvas,
		Media:        opts.Media,
		Resources:    opts.Resources,
		Instantiator: s,
		Metrics:      opts.Metrics,
	}
	return s
}

// Activate creates and initializes the factory value of every registered
// type.
func (s *Session) Activate() error {
	types, err := s.registry.InitializeAll(s.ctx)
	if err != nil {
		return err
	}
	s.types = types
	s.logger.Info("Session activated", zap.Int("types", len(types)))
	return nil
}

// Context returns the collaborators shared with plugin types.
func (s *Session) Context() *Context { return s.ctx }

// Directory returns the instance directory.
func (s *Session) Directory() *Directory { return s.ctx.Directory }

// Bridge returns the event bridge.
func (s *Session) Bridge() *Bridge { return s.ctx.Bridge }

// Registry returns the type registry.
func (s *Session) Registry() *Registry { return s.registry }

// TypeHooks returns the factory value of an activated type.
func (s *Session) TypeHooks(manifestID string) (Hooks, bool) {
	h, ok := s.types[manifestID]
	return h, ok
}

// Instantiate creates an instance of manifestID from fragment, owned by
// parentID ("" for a root), and renders it.
func (s *Session) Instantiate(manifestID string, fragment ecml.Fragment, parentID string) (*Instance, error) {
	info := s.registry.Get(manifestID)
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, manifestID)
	}
	if parentID != "" {
		if _, ok := s.ctx.Directory.Get(parentID); !ok {
			return nil, &MissingParentError{ID: fragment.ID(), ParentID: parentID}
		}
	}

	hooks, err := info.Factory(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s hooks: %w", manifestID, err)
	}

	inst, err := newInstance(s.ctx, info.Manifest.clone(), hooks, fragment, parentID)
	if err != nil {
		return nil, err
	}

	if err := inst.Initialize(); err != nil {
		s.discard(inst)
		return nil, err
	}

	if inst.Object() != nil {
		if err := inst.Render(s.canvas); err != nil {
			s.discard(inst)
			return nil, fmt.Errorf("failed to render %s: %w", inst.ID(), err)
		}
	}

	if parentID == "" {
		s.roots = append(s.roots, inst.ID())
	}
	s.ctx.Metrics.Created.WithLabelValues(manifestID).Inc()
	s.ctx.Metrics.LiveInstances.Set(float64(s.ctx.Directory.Len()))
	inst.logger.Debug("Instance created")
	return inst, nil
}

func (s *Session) discard(inst *Instance) {
	if parent, ok := inst.Parent(); ok {
		parent.RemoveChild(inst)
	}
	inst.erase()
}

// Create instantiates a copy of data on the current stage.
func (s *Session) Create(manifestID string, data ecml.Fragment) (*Instance, error) {
	if s.stageID == "" {
		return nil, &MissingParentError{ID: data.ID()}
	}
	return s.Instantiate(manifestID, data.Clone(), s.stageID)
}

// SetCurrentStage makes id the target of Create.
func (s *Session) SetCurrentStage(id string) error {
	if _, ok := s.ctx.Directory.Get(id); !ok {
		return fmt.Errorf("stage %s: %w", id, ErrNotFound)
	}
	s.stageID = id
	return nil
}

// CurrentStage returns the id of the current stage, or "".
func (s *Session) CurrentStage() string { return s.stageID }

// Lookup returns the instance with the given id.
func (s *Session) Lookup(id string) (*Instance, bool) {
	return s.ctx.Directory.Get(id)
}

// Delete removes an instance and its subtree. Its render object is taken off
// the surface first; the resulting removed notification drives the cascade.
func (s *Session) Delete(id string) error {
	inst, ok := s.ctx.Directory.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if inst.ParentID() == "" {
		return &MissingParentError{ID: id}
	}

	if obj := inst.Object(); obj != nil {
		if err := s.canvas.Remove(obj); err != nil && !errors.Is(err, surface.ErrNotFound) {
			return fmt.Errorf("failed to remove render object: %w", err)
		}
		s.Flush()
	}
	if _, still := s.ctx.Directory.Get(id); still {
		s.ctx.Bridge.Dispatch(surface.Event{Type: surface.EventRemoved, ID: id})
	}
	return nil
}

// Save walks the hierarchy from the roots and returns the document tree.
func (s *Session) Save() ([]ecml.Node, error) {
	nodes := make([]ecml.Node, 0, len(s.roots))
	for _, id := range s.roots {
		inst, ok := s.ctx.Directory.Get(id)
		if !ok {
			continue
		}
		node, err := s.save(inst)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// Snapshot returns the document tree rooted at one instance.
func (s *Session) Snapshot(id string) (ecml.Node, error) {
	inst, ok := s.ctx.Directory.Get(id)
	if !ok {
		return ecml.Node{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.save(inst)
}

func (s *Session) save(inst *Instance) (ecml.Node, error) {
	fragment, err := inst.ToECML()
	if err != nil {
		return ecml.Node{}, fmt.Errorf("failed to save %s: %w", inst.ID(), err)
	}
	node := ecml.Node{Type: inst.Type(), Fragment: fragment}
	for _, child := range inst.Children() {
		childNode, err := s.save(child)
		if err != nil {
			return ecml.Node{}, err
		}
		node.Children = append(node.Children, childNode)
	}
	return node, nil
}

// Load instantiates nodes depth-first under parentID. A node that fails is
// skipped with its subtree; the failures are returned combined. The first
// root loaded becomes the current stage when none is set.
func (s *Session) Load(nodes []ecml.Node, parentID string) error {
	var errs error
	for _, node := range nodes {
		inst, err := s.Instantiate(node.Type, node.Fragment, parentID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to load %s node %q: %w", node.Type, node.Fragment.ID(), err))
			continue
		}
		if parentID == "" && s.stageID == "" {
			s.stageID = inst.ID()
		}
		errs = multierr.Append(errs, s.Load(node.Children, inst.ID()))
	}
	return errs
}

// Reset takes every render object off the surface and empties the
// directory.
func (s *Session) Reset() {
	for _, id := range s.ctx.Directory.IDs() {
		inst, ok := s.ctx.Directory.Get(id)
		if !ok || inst.Object() == nil {
			continue
		}
		if err := s.canvas.Remove(inst.Object()); err != nil && !errors.Is(err, surface.ErrNotFound) {
			s.logger.Warn("Failed to remove render object", zap.String("id", id), zap.Error(err))
		}
	}
	s.ctx.Directory.Clear()
	s.ctx.Bridge.clear()
	s.roots = nil
	s.stageID = ""
	s.ctx.Metrics.LiveInstances.Set(0)
	s.Flush()
	s.logger.Info("Session reset")
}

// Flush dispatches queued surface notifications until none are left.
func (s *Session) Flush() {
	for {
		events := s.canvas.Drain()
		if len(events) == 0 {
			return
		}
		s.ctx.Bridge.DispatchAll(events)
	}
}

// Run is the session event loop. It dispatches surface notifications and
// executes closures submitted with Do until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		return fmt.Errorf("session loop already running")
	}
	s.running.Store(true)
	stopped := make(chan struct{})
	s.stopped = stopped
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running.Store(false)
		close(stopped)
		s.mu.Unlock()
	}()

	s.logger.Info("Session loop started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Session loop stopped")
			return ctx.Err()
		case <-s.canvas.Ready():
			s.Flush()
		case fn := <-s.calls:
			fn()
			s.Flush()
		}
	}
}

// Do runs fn on the session loop and waits for it. When the loop is not
// running fn runs on the caller's goroutine, and Run waits for it to finish
// before starting. Do must not be called from inside the loop.
func (s *Session) Do(ctx context.Context, fn func()) error {
	s.mu.Lock()
	if !s.running.Load() {
		defer s.mu.Unlock()
		fn()
		s.Flush()
		return nil
	}
	stopped := s.stopped
	s.mu.Unlock()

	done := make(chan struct{})
	select {
	case s.calls <- func() { fn(); close(done) }:
	case <-stopped:
		return s.Do(ctx, fn)
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}
