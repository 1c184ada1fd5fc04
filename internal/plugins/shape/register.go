package shape

import (
	"contenteditor/pkg/plugin"
)

// ManifestID identifies the shape type.
const ManifestID = "org.ekstep.shape"

func init() {
	plugin.Register(plugin.TypeInfo{
		Manifest: plugin.Manifest{
			ID:          ManifestID,
			Version:     "1.0",
			Name:        "Shape",
			Description: "Rectangles, rounded rectangles and ellipses",
			Editor: plugin.Editor{
				Help: &plugin.Help{Src: "editor/help.md", DataType: "text"},
				Config: map[string]interface{}{
					"kind":  KindRect,
					"fill":  "#00FF00",
					"round": 0.0,
				},
				Menu: []plugin.MenuItem{
					{ID: "shape", Category: "main", Title: "Shape", IconImage: "editor/shape.png", Submenu: []plugin.MenuItem{
						{ID: "rect", Category: "main", Title: "Rectangle", IconImage: "editor/rect.png"},
						{ID: "ellipse", Category: "main", Title: "Ellipse", IconImage: "editor/ellipse.png"},
					}},
				},
			},
		},
		Description: "Reference shape plugin",
		Priority:    plugin.PriorityDefault,
		Factory:     newHooks,
	})
}

func newHooks(ctx *plugin.Context) (plugin.Hooks, error) {
	return &Hooks{logger: ctx.Logger.Named("shape")}, nil
}
