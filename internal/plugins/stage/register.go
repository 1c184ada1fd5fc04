// Package stage provides the stage plugin type: the root container that owns
// every object on one page of a document. It has no render object.
package stage

import (
	"contenteditor/internal/surface"
	"contenteditor/pkg/plugin"

	"go.uber.org/zap"
)

// ManifestID identifies the stage type.
const ManifestID = "org.ekstep.stage"

func init() {
	plugin.Register(plugin.TypeInfo{
		Manifest: plugin.Manifest{
			ID:          ManifestID,
			Version:     "1.0",
			Name:        "Stage",
			Description: "Page container",
			Editor: plugin.Editor{
				Config: map[string]interface{}{"color": "#FFFFFF"},
			},
		},
		Description: "Root container for the objects of one page",
		Priority:    plugin.PriorityDefault,
		Order:       10, // Before every type that is placed on a stage
		Factory:     newHooks,
	})
}

func newHooks(ctx *plugin.Context) (plugin.Hooks, error) {
	return &Hooks{logger: ctx.Logger.Named("stage")}, nil
}

// Hooks implements the stage type.
type Hooks struct {
	plugin.BaseHooks
	logger *zap.Logger
}

// Initialize runs once per session.
func (h *Hooks) Initialize(ctx *plugin.Context) error {
	h.logger.Debug("Stage type initialized")
	return nil
}

// NewInstance gives the stage its default config. Stages have no render
// object.
func (h *Hooks) NewInstance(inst *plugin.Instance) (surface.Object, error) {
	if inst.Config() == nil {
		for k, v := range inst.PluginConfig() {
			inst.AddConfig(k, v)
		}
	}
	return nil, nil
}

// Objects returns the instances placed on the stage, in z-order.
func Objects(stage *plugin.Instance) []*plugin.Instance {
	return stage.Children()
}
