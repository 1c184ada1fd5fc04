package plugin

import (
	"testing"

	"contenteditor/internal/attrs"
	"contenteditor/internal/media"
	"contenteditor/internal/metrics"
	"contenteditor/internal/surface"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	stageType = "org.example.stage"
	boxType   = "org.example.box"
)

// call is one hook invocation seen by a recorder.
type call struct {
	hook string
	id   string
}

// recorder collects hook calls across all instances of the test types.
type recorder struct {
	calls []call
	// onRemoved runs inside the Removed hook.
	onRemoved func(inst *Instance)
}

func (r *recorder) record(hook string, inst *Instance) {
	r.calls = append(r.calls, call{hook: hook, id: inst.ID()})
}

func (r *recorder) hooks(name string) []string {
	var ids []string
	for _, c := range r.calls {
		if c.hook == name {
			ids = append(ids, c.id)
		}
	}
	return ids
}

type stageHooks struct {
	BaseHooks
}

type boxHooks struct {
	BaseHooks
	rec *recorder
}

func (b *boxHooks) NewInstance(inst *Instance) (surface.Object, error) {
	a := inst.Attributes()
	x, _ := a.Number(attrs.KeyX)
	y, _ := a.Number(attrs.KeyY)
	w, _ := a.Number(attrs.KeyW)
	h, _ := a.Number(attrs.KeyH)
	r, _ := a.Number(attrs.KeyR)
	return surface.NewShape("rect", surface.Geometry{Left: x, Top: y, Width: w, Height: h}, "", r), nil
}

func (b *boxHooks) Added(inst *Instance, ev surface.Event)   { b.rec.record("added", inst) }
func (b *boxHooks) Changed(inst *Instance, ev surface.Event) { b.rec.record("changed", inst) }
func (b *boxHooks) Moving(inst *Instance, ev surface.Event)  { b.rec.record("moving", inst) }
func (b *boxHooks) Selected(inst *Instance, ev surface.Event) {
	b.rec.record("selected", inst)
}
func (b *boxHooks) Deselected(inst *Instance, ev surface.Event) {
	b.rec.record("deselected", inst)
}

func (b *boxHooks) Removed(inst *Instance, ev surface.Event) {
	b.rec.record("removed", inst)
	if b.rec.onRemoved != nil {
		b.rec.onRemoved(inst)
	}
}

// fixture is a session with a stage and a box type registered.
type fixture struct {
	session *Session
	canvas  *surface.Canvas
	media   *media.Registry
	metrics *metrics.Metrics
	rec     *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	registry := NewRegistry()
	rec := &recorder{}
	require.NoError(t, registry.Register(TypeInfo{
		Manifest: Manifest{ID: stageType, Version: "1.0"},
		Order:    10,
		Factory:  func(ctx *Context) (Hooks, error) { return &stageHooks{}, nil },
	}))
	require.NoError(t, registry.Register(TypeInfo{
		Manifest: Manifest{ID: boxType, Version: "1.0"},
		Factory:  func(ctx *Context) (Hooks, error) { return &boxHooks{rec: rec}, nil },
	}))

	logger := zap.NewNop()
	f := &fixture{
		canvas:  surface.NewCanvas(logger),
		media:   media.NewRegistry(logger),
		metrics: metrics.Nop(),
		rec:     rec,
	}
	f.session = NewSession(Options{
		Registry: registry,
		Canvas:   f.canvas,
		Media:    f.media,
		Metrics:  f.metrics,
		Logger:   logger,
	})
	require.NoError(t, f.session.Activate())
	return f
}

// stage creates a root stage and makes it current.
func (f *fixture) stage(t *testing.T, id string) *Instance {
	t.Helper()
	inst, err := f.session.Instantiate(stageType, map[string]interface{}{"id": id}, "")
	require.NoError(t, err)
	require.NoError(t, f.session.SetCurrentStage(inst.ID()))
	return inst
}

// box creates a box under parentID with percent geometry.
func (f *fixture) box(t *testing.T, id, parentID string) *Instance {
	t.Helper()
	inst, err := f.session.Instantiate(boxType, map[string]interface{}{
		"id": id, "x": 10.0, "y": 10.0, "w": 20.0, "h": 20.0,
	}, parentID)
	require.NoError(t, err)
	return inst
}

// assertHierarchy checks that every child link has a matching parent link
// and the other way round.
func assertHierarchy(t *testing.T, d *Directory) {
	t.Helper()
	for _, id := range d.IDs() {
		inst, ok := d.Get(id)
		require.True(t, ok)
		for _, childID := range inst.ChildIDs() {
			child, ok := d.Get(childID)
			require.True(t, ok, "child %s of %s is not in the directory", childID, id)
			require.Equal(t, id, child.ParentID(), "child %s does not point back to %s", childID, id)
		}
		if inst.ParentID() == "" {
			continue
		}
		parent, ok := d.Get(inst.ParentID())
		require.True(t, ok, "parent of %s is not in the directory", id)
		require.Contains(t, parent.ChildIDs(), id)
	}
}
