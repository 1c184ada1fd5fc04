// Package text provides the text plugin type. The text itself is kept in the
// __text attribute and the font size in fontsize, both persisted with the
// fragment.
package text

import (
	"contenteditor/internal/attrs"
	"contenteditor/internal/surface"
	"contenteditor/pkg/plugin"

	"go.uber.org/zap"
)

const (
	// DefaultFontSize applies when neither the instance nor the manifest
	// sets one.
	DefaultFontSize = 18.0

	keyText     = "__text"
	keyFontSize = "fontsize"
)

// Hooks implements the text type.
type Hooks struct {
	plugin.BaseHooks
	logger *zap.Logger
}

// NewInstance builds a surface.TextBox.
func (h *Hooks) NewInstance(inst *plugin.Instance) (surface.Object, error) {
	a := attrs.ToSurface(inst.Attributes())

	content, _ := a[keyText].(string)
	size := fontSize(inst)

	left, _ := a.Number("left")
	top, _ := a.Number("top")
	width, _ := a.Number("width")
	height, _ := a.Number("height")

	return surface.NewTextBox(content, surface.Geometry{Left: left, Top: top, Width: width, Height: height}, size), nil
}

func fontSize(inst *plugin.Instance) float64 {
	if v, ok := inst.Attribute(keyFontSize); ok {
		if f, ok := attrs.Float(v); ok && f > 0 {
			return f
		}
	}
	if f, ok := attrs.Float(inst.PluginConfig()[keyFontSize]); ok && f > 0 {
		return f
	}
	return DefaultFontSize
}

// Scaling grows or shrinks the font with the box height while the user
// drags a handle. The cached height is only refreshed on modified.
func (h *Hooks) Scaling(inst *plugin.Instance, ev surface.Event) {
	box, ok := inst.Object().(*surface.TextBox)
	if !ok {
		return
	}
	cached, ok := inst.Attributes().Number(attrs.KeyH)
	if !ok || cached <= 0 {
		return
	}
	box.FontSize = attrs.Round2(fontSize(inst) * box.Height() / cached)
}

// Changed persists the font size reached by scaling.
func (h *Hooks) Changed(inst *plugin.Instance, ev surface.Event) {
	box, ok := inst.Object().(*surface.TextBox)
	if !ok {
		return
	}
	if box.FontSize != fontSize(inst) {
		inst.SetAttribute(keyFontSize, box.FontSize)
		h.logger.Debug("Font size changed",
			zap.String("id", inst.ID()),
			zap.Float64("fontsize", box.FontSize))
	}
}

// SetText replaces the text of a text instance.
func SetText(inst *plugin.Instance, content string) {
	inst.SetAttribute(keyText, content)
	if box, ok := inst.Object().(*surface.TextBox); ok {
		box.SetText(content)
	}
}

// Text returns the text of a text instance.
func Text(inst *plugin.Instance) string {
	v, _ := inst.Attribute(keyText)
	s, _ := v.(string)
	return s
}
