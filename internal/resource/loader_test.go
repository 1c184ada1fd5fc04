package resource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupPluginDir(t *testing.T) (string, *Loader) {
	root := t.TempDir()
	dir := filepath.Join(root, "org.example.shape-1.0")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "editor"), 0755))

	files := map[string]string{
		"editor/help.md":     "# Shape\nDraws a rectangle.",
		"editor/config.json": `{"fill":"red","sizes":[1,2]}`,
		"editor/menu.yaml":   "menu:\n  - id: add-shape\n    category: main\n",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), []byte(body), 0644))
	}

	l, err := NewLoader(root, 2, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return root, l
}

func TestLoader_LoadSyncKinds(t *testing.T) {
	_, l := setupPluginDir(t)

	text, err := l.LoadSync("org.example.shape", "1.0", "editor/help.md", KindText)
	require.NoError(t, err)
	assert.Equal(t, "# Shape\nDraws a rectangle.", text)

	cfg, err := l.LoadSync("org.example.shape", "1.0", "editor/config.json", KindJSON)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"fill": "red", "sizes": []interface{}{1.0, 2.0}}, cfg)

	menu, err := l.LoadSync("org.example.shape", "1.0", "editor/menu.yaml", KindYAML)
	require.NoError(t, err)
	items := menu.(map[string]interface{})["menu"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "add-shape", items[0].(map[string]interface{})["id"])
}

func TestLoader_Errors(t *testing.T) {
	_, l := setupPluginDir(t)

	tests := []struct {
		name     string
		path     string
		kind     Kind
		contains string
	}{
		{"missing file", "editor/nope.md", KindText, "failed to read"},
		{"bad json", "editor/help.md", KindJSON, "failed to decode"},
		{"unknown kind", "editor/help.md", Kind("xml"), "unknown resource kind"},
		{"escapes plugin dir", "../../etc/passwd", KindText, "escapes plugin directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.LoadSync("org.example.shape", "1.0", tt.path, tt.kind)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoader_LoadAsync(t *testing.T) {
	_, l := setupPluginDir(t)

	type result struct {
		err     error
		content interface{}
	}
	done := make(chan result, 1)
	l.Load("org.example.shape", "1.0", "editor/help.md", KindText, func(err error, content interface{}) {
		done <- result{err, content}
	})

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Contains(t, r.content, "Draws a rectangle")
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestLoader_CacheInvalidatedOnWrite(t *testing.T) {
	root, l := setupPluginDir(t)
	path := filepath.Join(root, "org.example.shape-1.0", "editor", "help.md")

	first, err := l.LoadSync("org.example.shape", "1.0", "editor/help.md", KindText)
	require.NoError(t, err)
	assert.Contains(t, first, "rectangle")

	require.NoError(t, os.WriteFile(path, []byte("updated"), 0644))

	assert.Eventually(t, func() bool {
		content, err := l.LoadSync("org.example.shape", "1.0", "editor/help.md", KindText)
		return err == nil && content == "updated"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLoader_PluginDir(t *testing.T) {
	root, l := setupPluginDir(t)
	assert.Equal(t, filepath.Join(root, "org.example.shape-1.0"), l.PluginDir("org.example.shape", "1.0"))
}
