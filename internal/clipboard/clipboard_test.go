package clipboard

import (
	"testing"

	"contenteditor/internal/plugins/shape"
	"contenteditor/internal/plugins/stage"
	"contenteditor/pkg/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSession(t *testing.T) *plugin.Session {
	t.Helper()
	s := plugin.NewSession(plugin.Options{Logger: zap.NewNop()})
	require.NoError(t, s.Activate())
	_, err := s.Instantiate(stage.ManifestID, map[string]interface{}{"id": "stage1"}, "")
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentStage("stage1"))
	return s
}

func TestClipboard_CopyPaste(t *testing.T) {
	s := newSession(t)
	_, err := s.Create(shape.ManifestID, map[string]interface{}{
		"id": "s1", "x": 10.0, "y": 20.0, "w": 30.0, "h": 40.0,
		"data":  map[string]interface{}{"__cdata": `{"label":"box"}`},
		"param": []interface{}{map[string]interface{}{"name": "count", "value": 3.0}},
	})
	require.NoError(t, err)
	_, err = s.Instantiate(shape.ManifestID, map[string]interface{}{"id": "s1-inner", "w": 5.0, "h": 5.0}, "s1")
	require.NoError(t, err)
	s.Flush()

	clip := New(zap.NewNop())
	assert.True(t, clip.Empty())
	require.NoError(t, clip.Copy(s, "s1"))
	assert.False(t, clip.Empty())

	pasted, err := clip.Paste(s)
	require.NoError(t, err)
	s.Flush()

	assert.NotEqual(t, "s1", pasted.ID())
	assert.Equal(t, "stage1", pasted.ParentID())
	assert.Equal(t, map[string]interface{}{"label": "box"}, pasted.Data())
	count, ok := pasted.Param("count")
	require.True(t, ok)
	assert.Equal(t, 3.0, count)

	x, _ := pasted.Attributes().Number("x")
	assert.InDelta(t, 72.0, x, 0.1)

	children := pasted.Children()
	require.Len(t, children, 1)
	assert.NotEqual(t, "s1-inner", children[0].ID())

	original, ok := s.Lookup("s1")
	require.True(t, ok)
	assert.Len(t, original.ChildIDs(), 1, "original is untouched")
}

func TestClipboard_PasteTwiceCreatesDistinctInstances(t *testing.T) {
	s := newSession(t)
	_, err := s.Create(shape.ManifestID, map[string]interface{}{"id": "s1"})
	require.NoError(t, err)

	clip := New(zap.NewNop())
	require.NoError(t, clip.Copy(s, "s1"))

	a, err := clip.Paste(s)
	require.NoError(t, err)
	b, err := clip.Paste(s)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, 4, s.Directory().Len())
}

func TestClipboard_Errors(t *testing.T) {
	s := newSession(t)
	clip := New(zap.NewNop())

	_, err := clip.Paste(s)
	assert.ErrorIs(t, err, ErrEmpty)

	assert.Error(t, clip.Copy(s, "ghost"))
	assert.Error(t, clip.SetBytes([]byte{0xc1}))
	assert.True(t, clip.Empty(), "invalid data is not stored")
}

func TestClipboard_BytesRoundTrip(t *testing.T) {
	s := newSession(t)
	_, err := s.Create(shape.ManifestID, map[string]interface{}{"id": "s1", "x": 50.0})
	require.NoError(t, err)

	src := New(zap.NewNop())
	require.NoError(t, src.Copy(s, "s1"))

	dst := New(zap.NewNop())
	require.NoError(t, dst.SetBytes(src.Bytes()))

	node, err := dst.Node()
	require.NoError(t, err)
	assert.Equal(t, shape.ManifestID, node.Type)
	assert.NotContains(t, node.Fragment, "id")
	assert.Equal(t, 50.0, node.Fragment["x"])
}
