// Package shape provides the shape plugin type. A shape instance renders as
// a surface.Shape built from its attributes and the type's default style.
package shape

import (
	"fmt"

	"contenteditor/internal/attrs"
	"contenteditor/internal/ecml"
	"contenteditor/internal/surface"
	"contenteditor/pkg/plugin"

	"go.uber.org/zap"
)

// Shape kinds.
const (
	KindRect    = "rect"
	KindEllipse = "ellipse"
)

// Style is the default look of new shapes, taken from the manifest config.
type Style struct {
	Kind  string
	Fill  string
	Round float64
}

// StyleFrom reads a Style from a manifest config, falling back to a green
// rectangle for missing keys.
func StyleFrom(config map[string]interface{}) Style {
	s := Style{Kind: KindRect, Fill: "#00FF00"}
	if kind, ok := config["kind"].(string); ok && kind != "" {
		s.Kind = kind
	}
	if fill, ok := config["fill"].(string); ok && fill != "" {
		s.Fill = fill
	}
	if round, ok := attrs.Float(config["round"]); ok {
		s.Round = round
	}
	return s
}

// Hooks implements the shape type.
type Hooks struct {
	plugin.BaseHooks
	logger *zap.Logger
}

func (h *Hooks) Initialize(ctx *plugin.Context) error {
	h.logger.Debug("Shape type initialized")
	return nil
}

// NewInstance builds the render object. Instance attributes win over the
// type style: type selects the kind, color or fill the fill, radius the
// corner radius.
func (h *Hooks) NewInstance(inst *plugin.Instance) (surface.Object, error) {
	style := StyleFrom(inst.PluginConfig())
	a := attrs.ToSurface(inst.Attributes())

	kind := style.Kind
	if t, ok := a["type"].(string); ok && t != "" {
		kind = t
	}
	if kind != KindRect && kind != KindEllipse {
		return nil, fmt.Errorf("unsupported shape kind %q", kind)
	}

	fill := style.Fill
	if f, ok := a["fill"].(string); ok && f != "" {
		fill = f
	}

	rx := style.Round
	if r, ok := a.Number("rx"); ok {
		rx = r
	}

	left, _ := a.Number("left")
	top, _ := a.Number("top")
	width, _ := a.Number("width")
	height, _ := a.Number("height")

	return surface.NewShape(kind, surface.Geometry{Left: left, Top: top, Width: width, Height: height}, fill, rx), nil
}

// Added records the kind so saved documents keep it.
func (h *Hooks) Added(inst *plugin.Instance, ev surface.Event) {
	if shape, ok := inst.Object().(*surface.Shape); ok {
		inst.SetAttribute("type", shape.Kind)
	}
}

// Changed keeps the radius attribute in step with the live corner radius.
func (h *Hooks) Changed(inst *plugin.Instance, ev surface.Event) {
	if r, ok := inst.Object().(surface.Rounded); ok && r.Rx() > 0 {
		inst.SetAttribute("radius", r.Rx())
	}
	h.logger.Debug("Shape changed", zap.String("id", inst.ID()))
}

// Duplicate creates a copy of inst next to it on the same parent, offset by
// offset pixels.
func Duplicate(inst *plugin.Instance, offset float64) (*plugin.Instance, error) {
	fragment, err := inst.Copy()
	if err != nil {
		return nil, err
	}
	delete(fragment, ecml.KeyID)

	a := attrs.Attributes(fragment)
	attrs.PercentToPixel(a)
	for _, k := range []string{attrs.KeyX, attrs.KeyY} {
		if v, ok := a.Number(k); ok {
			a[k] = v + offset
		}
	}
	attrs.PixelToPercent(a)

	return inst.Context().Instantiator.Instantiate(inst.Type(), ecml.Fragment(a), inst.ParentID())
}
