package plugin

import (
	"errors"
	"fmt"
	"math"

	"contenteditor/internal/attrs"
	"contenteditor/internal/ecml"
	"contenteditor/internal/media"
	"contenteditor/internal/resource"
	"contenteditor/internal/surface"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// HelpUnavailable is delivered to Help callbacks when a type ships no help
// or it cannot be loaded.
const HelpUnavailable = "Help is not available."

// Instance is one editable plugin object. It combines the attribute model,
// the render object and its place in the hierarchy. Parent and children are
// ids resolved through the Directory.
type Instance struct {
	id       string
	manifest Manifest
	parentID string
	children []string

	fragment ecml.Fragment
	model    *ecml.Model
	object   surface.Object

	hooks  Hooks
	ctx    *Context
	logger *zap.Logger
}

// newInstance constructs an instance from a document fragment and registers
// it in the directory. The id comes from the fragment or is generated. No
// render object is created yet.
func newInstance(ctx *Context, manifest Manifest, hooks Hooks, fragment ecml.Fragment, parentID string) (*Instance, error) {
	fragment = fragment.Clone()
	if fragment == nil {
		fragment = ecml.Fragment{}
	}
	id := fragment.ID()
	if id == "" {
		id = uuid.NewString()
		fragment[ecml.KeyID] = id
	}

	inst := &Instance{
		id:       id,
		manifest: manifest,
		parentID: parentID,
		children: make([]string, 0),
		fragment: fragment,
		model:    ecml.NewModel(),
		hooks:    hooks,
		ctx:      ctx,
		logger:   ctx.Logger.Named(manifest.ID).With(zap.String("instance_id", id)),
	}

	if err := ctx.Directory.Insert(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// Initialize decodes the fragment into the attribute model, builds the
// render object and attaches the instance to its parent.
func (i *Instance) Initialize() error {
	model, issues := ecml.FromECML(i.fragment, i.ctx.Media)
	i.model = model
	for _, issue := range multierr.Errors(issues) {
		i.logger.Warn("Fragment issue", zap.Error(issue))
		i.ctx.Metrics.LoadIssues.WithLabelValues(issueKind(issue)).Inc()
	}

	obj, err := i.hooks.NewInstance(i)
	if err != nil {
		return fmt.Errorf("failed to create render object for %s: %w", i.id, err)
	}
	i.object = obj

	i.ctx.Bridge.Attach(i.id)
	if i.object != nil {
		i.object.SetID(i.id)
	}

	if i.parentID != "" {
		parent, ok := i.ctx.Directory.Get(i.parentID)
		if !ok {
			return &MissingParentError{ID: i.id, ParentID: i.parentID}
		}
		if err := parent.AddChild(i); err != nil {
			return err
		}
	}

	i.logger.Debug("Instance initialized", zap.String("parent_id", i.parentID))
	return nil
}

func issueKind(err error) string {
	var decodeErr *ecml.DecodeError
	if errors.As(err, &decodeErr) {
		return "decode"
	}
	var assetErr *ecml.UnresolvedAssetError
	if errors.As(err, &assetErr) {
		return "asset"
	}
	return "other"
}

// AddChild appends child to the children. child must already name i as its
// parent; adding a child twice is a no-op.
func (i *Instance) AddChild(child *Instance) error {
	if child.parentID != i.id {
		return &MissingParentError{ID: child.id, ParentID: i.id}
	}
	for _, id := range i.children {
		if id == child.id {
			return nil
		}
	}
	i.children = append(i.children, child.id)
	return nil
}

// RemoveChild drops child from the children.
func (i *Instance) RemoveChild(child *Instance) {
	for idx, id := range i.children {
		if id == child.id {
			i.children = append(i.children[:idx], i.children[idx+1:]...)
			return
		}
	}
}

// Remove detaches the instance from its parent and erases it, and any
// children still attached, from the directory. Render objects must already
// be off the surface.
func (i *Instance) Remove() error {
	if i.parentID == "" {
		return &MissingParentError{ID: i.id}
	}
	parent, ok := i.ctx.Directory.Get(i.parentID)
	if !ok {
		return &MissingParentError{ID: i.id, ParentID: i.parentID}
	}

	i.erase()
	parent.RemoveChild(i)
	return nil
}

// erase removes the subtree from the directory without touching the parent.
func (i *Instance) erase() {
	for _, id := range append([]string(nil), i.children...) {
		if child, ok := i.ctx.Directory.Get(id); ok {
			child.erase()
		}
	}
	i.children = i.children[:0]

	i.ctx.Directory.Delete(i)
	i.ctx.Bridge.Detach(i.id)
	i.ctx.Metrics.Removed.WithLabelValues(i.manifest.ID).Inc()
	i.ctx.Metrics.LiveInstances.Set(float64(i.ctx.Directory.Len()))
	i.logger.Debug("Instance removed")
}

// ID returns the instance id.
func (i *Instance) ID() string { return i.id }

// Type returns the manifest id.
func (i *Instance) Type() string { return i.manifest.ID }

// Version returns the manifest version.
func (i *Instance) Version() string { return i.manifest.Version }

// Manifest returns the type descriptor.
func (i *Instance) Manifest() Manifest { return i.manifest }

// Hooks returns the instance's hooks value.
func (i *Instance) Hooks() Hooks { return i.hooks }

// Context returns the session collaborators.
func (i *Instance) Context() *Context { return i.ctx }

// Logger returns the instance logger.
func (i *Instance) Logger() *zap.Logger { return i.logger }

// ParentID returns the id of the owner, or "" for a root.
func (i *Instance) ParentID() string { return i.parentID }

// Parent resolves the owner through the directory.
func (i *Instance) Parent() (*Instance, bool) {
	return i.ctx.Directory.Get(i.parentID)
}

// ChildIDs returns the ids of the owned instances, in order.
func (i *Instance) ChildIDs() []string {
	return append([]string(nil), i.children...)
}

// Children resolves the owned instances, in order.
func (i *Instance) Children() []*Instance {
	out := make([]*Instance, 0, len(i.children))
	for _, id := range i.children {
		if child, ok := i.ctx.Directory.Get(id); ok {
			out = append(out, child)
		}
	}
	return out
}

// Object returns the render object, or nil.
func (i *Instance) Object() surface.Object { return i.object }

// Render places the render object on s.
func (i *Instance) Render(s surface.Surface) error {
	if i.object == nil {
		return ErrNoRenderObject
	}
	return s.Add(i.object)
}

// RelativeURL returns path relative to the plugin root of the type.
func (i *Instance) RelativeURL(path string) string {
	return i.manifest.RelativeURL(path)
}

// PluginConfig returns the editor config of the manifest.
func (i *Instance) PluginConfig() map[string]interface{} {
	return i.manifest.Editor.Config
}

// Attributes returns a copy of the attributes without surface duplicates.
func (i *Instance) Attributes() attrs.Attributes {
	return i.model.Attributes.Get()
}

// SetAttributes deep-merges partial into the attributes.
func (i *Instance) SetAttributes(partial map[string]interface{}) {
	i.model.Attributes.Merge(partial)
}

// Attribute returns one attribute.
func (i *Instance) Attribute(key string) (interface{}, bool) {
	v, ok := i.model.Attributes[key]
	return attrs.CloneValue(v), ok
}

// SetAttribute sets one attribute.
func (i *Instance) SetAttribute(key string, value interface{}) {
	i.model.Attributes.Set(key, value)
}

// Properties returns the scalar attributes.
func (i *Instance) Properties() map[string]interface{} {
	return i.model.Attributes.Properties()
}

// Config returns a copy of the instance config, or nil.
func (i *Instance) Config() map[string]interface{} { return cloneObject(i.model.Config) }

// SetConfig replaces the config with a copy of config.
func (i *Instance) SetConfig(config map[string]interface{}) { i.model.Config = cloneObject(config) }

// AddConfig sets one config key.
func (i *Instance) AddConfig(key string, value interface{}) {
	i.model.AddConfig(key, attrs.CloneValue(value))
}

// OnConfigChange is called by the editor when a config property is edited.
func (i *Instance) OnConfigChange(key string, value interface{}) {
	i.AddConfig(key, value)
}

// Data returns a copy of the free-form data, or nil.
func (i *Instance) Data() interface{} { return attrs.CloneValue(i.model.Data) }

// SetData replaces the data with a copy of data.
func (i *Instance) SetData(data interface{}) { i.model.Data = attrs.CloneValue(data) }

// Events returns a copy of the event list.
func (i *Instance) Events() []interface{} {
	if i.model.Events == nil {
		return nil
	}
	out := make([]interface{}, len(i.model.Events))
	for n, ev := range i.model.Events {
		out[n] = attrs.CloneValue(ev)
	}
	return out
}

// AddEvent appends an event definition.
func (i *Instance) AddEvent(event interface{}) { i.model.AddEvent(attrs.CloneValue(event)) }

// Params returns a copy of the named params in order.
func (i *Instance) Params() []ecml.Param {
	if i.model.Params == nil {
		return nil
	}
	out := make([]ecml.Param, len(i.model.Params))
	for n, p := range i.model.Params {
		out[n] = ecml.Param{Name: p.Name, Value: attrs.CloneValue(p.Value)}
	}
	return out
}

// Param returns one named param.
func (i *Instance) Param(name string) (interface{}, bool) {
	v, ok := i.model.Param(name)
	return attrs.CloneValue(v), ok
}

// AddParam sets a named param.
func (i *Instance) AddParam(name string, value interface{}) {
	i.model.AddParam(name, attrs.CloneValue(value))
}

// Media returns a copy of the referenced media, keyed by media id.
func (i *Instance) Media() map[string]media.Descriptor {
	if i.model.Media == nil {
		return nil
	}
	out := make(map[string]media.Descriptor, len(i.model.Media))
	for id, d := range i.model.Media {
		out[id] = d
	}
	return out
}

// AddMedia records a referenced media descriptor.
func (i *Instance) AddMedia(d media.Descriptor) { i.model.AddMedia(d) }

// ToECML returns the persisted fragment of the instance.
func (i *Instance) ToECML() (ecml.Fragment, error) {
	return ecml.ToECML(i.id, i.model)
}

// Copy returns the fragment used for clipboard copies.
func (i *Instance) Copy() (ecml.Fragment, error) {
	return i.ToECML()
}

// LoadResource loads a file shipped with the instance's type. cb runs on a
// loader goroutine.
func (i *Instance) LoadResource(path string, kind resource.Kind, cb resource.Callback) {
	if i.ctx.Resources == nil {
		cb(fmt.Errorf("no resource loader configured"), nil)
		return
	}
	i.ctx.Resources.Load(i.manifest.ID, i.manifest.Version, path, kind, cb)
}

// Help loads the help text of the type and passes it to cb. When the type
// has none, or loading fails, cb receives HelpUnavailable.
func (i *Instance) Help(cb func(text string)) {
	help := i.manifest.Editor.Help
	if help == nil || help.Src == "" {
		cb(HelpUnavailable)
		return
	}

	kind := resource.KindText
	if help.DataType == string(resource.KindJSON) || help.DataType == string(resource.KindYAML) {
		kind = resource.Kind(help.DataType)
	}

	i.LoadResource(help.Src, kind, func(err error, content interface{}) {
		if err != nil {
			i.logger.Debug("Help not loaded", zap.Error(err))
			cb(HelpUnavailable)
			return
		}
		if text, ok := content.(string); ok {
			cb(text)
			return
		}
		cb(fmt.Sprint(content))
	})
}

// refreshGeometry copies live geometry from the render object into the
// attributes.
func (i *Instance) refreshGeometry() {
	if i.object == nil {
		return
	}
	a := i.model.Attributes
	a[attrs.KeyX] = i.object.Left()
	a[attrs.KeyY] = i.object.Top()
	a[attrs.KeyW] = i.object.Width()
	a[attrs.KeyH] = i.object.Height()
	if r, ok := i.object.(surface.Rounded); ok {
		a[attrs.KeyR] = r.Rx()
	}
	if clamped := attrs.ClampSize(a); len(clamped) > 0 {
		i.logger.Warn("Render object reported a negative size", zap.Strings("keys", clamped))
		g := surface.GeometryOf(i.object)
		g.Width = math.Max(g.Width, 0)
		g.Height = math.Max(g.Height, 0)
		i.object.SetGeometry(g)
	}
}

func cloneObject(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return attrs.CloneValue(m).(map[string]interface{})
}
