package shape

import (
	"testing"

	"contenteditor/internal/plugins/stage"
	"contenteditor/internal/surface"
	"contenteditor/pkg/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSession(t *testing.T) (*plugin.Session, *surface.Canvas) {
	t.Helper()
	logger := zap.NewNop()
	canvas := surface.NewCanvas(logger)
	s := plugin.NewSession(plugin.Options{Canvas: canvas, Logger: logger})
	require.NoError(t, s.Activate())

	_, err := s.Instantiate(stage.ManifestID, map[string]interface{}{"id": "stage1"}, "")
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentStage("stage1"))
	return s, canvas
}

func TestStyleFrom(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]interface{}
		want   Style
	}{
		{"empty", nil, Style{Kind: KindRect, Fill: "#00FF00"}},
		{"full", map[string]interface{}{"kind": "ellipse", "fill": "red", "round": 4}, Style{Kind: KindEllipse, Fill: "red", Round: 4}},
		{"wrong types", map[string]interface{}{"kind": 3, "fill": true}, Style{Kind: KindRect, Fill: "#00FF00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StyleFrom(tt.config))
		})
	}
}

func TestShape_NewInstance(t *testing.T) {
	s, canvas := newSession(t)

	inst, err := s.Create(ManifestID, map[string]interface{}{
		"id": "s1", "x": 50.0, "y": 50.0, "w": 10.0, "h": 20.0,
		"type": "ellipse", "color": "#FF0000", "radius": 6.0,
	})
	require.NoError(t, err)
	s.Flush()

	obj, ok := canvas.Get("s1")
	require.True(t, ok)
	shape := obj.(*surface.Shape)
	assert.Equal(t, KindEllipse, shape.Kind)
	assert.Equal(t, "#FF0000", shape.Fill)
	assert.Equal(t, 6.0, shape.Rx())
	assert.InDelta(t, 360.0, shape.Left(), 1e-9)
	assert.InDelta(t, 202.5, shape.Top(), 1e-9)
	assert.InDelta(t, 72.0, shape.Width(), 1e-9)
	assert.InDelta(t, 81.0, shape.Height(), 1e-9)

	r, ok := inst.Attribute("r")
	require.True(t, ok)
	assert.Equal(t, 6.0, r, "the bridge copies the corner radius into r")
}

func TestShape_DefaultsFromManifest(t *testing.T) {
	s, _ := newSession(t)

	inst, err := s.Create(ManifestID, map[string]interface{}{"x": 1.0})
	require.NoError(t, err)
	s.Flush()

	shape := inst.Object().(*surface.Shape)
	assert.Equal(t, KindRect, shape.Kind)
	assert.Equal(t, "#00FF00", shape.Fill)
	kind, _ := inst.Attribute("type")
	assert.Equal(t, KindRect, kind)
}

func TestShape_UnsupportedKind(t *testing.T) {
	s, canvas := newSession(t)

	_, err := s.Create(ManifestID, map[string]interface{}{"id": "s1", "type": "star"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported shape kind")

	_, ok := s.Lookup("s1")
	assert.False(t, ok, "failed instances are rolled back")
	assert.Empty(t, canvas.Objects())
}

func TestShape_ChangedTracksRadius(t *testing.T) {
	s, canvas := newSession(t)
	inst, err := s.Create(ManifestID, map[string]interface{}{"id": "s1", "w": 10.0, "h": 10.0})
	require.NoError(t, err)
	s.Flush()

	rx := 9.0
	require.NoError(t, canvas.Transform(surface.EventModified, "s1", nil, &rx, nil))
	s.Flush()

	radius, ok := inst.Attribute("radius")
	require.True(t, ok)
	assert.Equal(t, 9.0, radius)
}

func TestShape_Duplicate(t *testing.T) {
	s, _ := newSession(t)
	orig, err := s.Create(ManifestID, map[string]interface{}{
		"id": "s1", "x": 10.0, "y": 10.0, "w": 10.0, "h": 10.0,
		"data": map[string]interface{}{"__cdata": `{"label":"a"}`},
	})
	require.NoError(t, err)
	s.Flush()

	dup, err := Duplicate(orig, 36)
	require.NoError(t, err)
	s.Flush()

	assert.NotEqual(t, orig.ID(), dup.ID())
	assert.Equal(t, "stage1", dup.ParentID())
	assert.Equal(t, map[string]interface{}{"label": "a"}, dup.Data())

	x, _ := dup.Attributes().Number("x")
	assert.InDelta(t, 72.0+36.0, x, 0.1)

	stageInst, _ := s.Lookup("stage1")
	assert.Equal(t, []string{"s1", dup.ID()}, stageInst.ChildIDs())
}

func TestShape_Help(t *testing.T) {
	s, _ := newSession(t)
	inst, err := s.Create(ManifestID, nil)
	require.NoError(t, err)

	var got string
	inst.Help(func(text string) { got = text })
	assert.Equal(t, plugin.HelpUnavailable, got, "no resource loader configured")
}
