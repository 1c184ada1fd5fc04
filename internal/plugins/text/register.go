package text

import (
	"contenteditor/pkg/plugin"
)

// ManifestID identifies the text type.
const ManifestID = "org.ekstep.text"

func init() {
	plugin.Register(plugin.TypeInfo{
		Manifest: plugin.Manifest{
			ID:          ManifestID,
			Version:     "1.0",
			Name:        "Text",
			Description: "Static text block",
			Editor: plugin.Editor{
				Help:   &plugin.Help{Src: "editor/help.md", DataType: "text"},
				Config: map[string]interface{}{"fontsize": DefaultFontSize},
				Menu: []plugin.MenuItem{
					{ID: "text", Category: "main", Title: "Text", IconImage: "editor/text.png"},
				},
			},
		},
		Description: "Reference text plugin",
		Priority:    plugin.PriorityDefault,
		Factory: func(ctx *plugin.Context) (plugin.Hooks, error) {
			return &Hooks{logger: ctx.Logger.Named("text")}, nil
		},
	})
}
