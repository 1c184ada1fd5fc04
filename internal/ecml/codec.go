// Package ecml converts plugin instance state to and from the flat attribute
// fragment stored in documents.
//
// A fragment carries percent-space geometry plus optional sub-fields. data,
// config and events are structured text: a JSON document wrapped as
// {"__cdata": "<json>"}. Params are a list of {name, value} entries.
package ecml

import (
	"encoding/json"
	"fmt"

	"contenteditor/internal/attrs"
	"contenteditor/internal/media"

	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
)

// Fragment keys.
const (
	KeyID         = "id"
	KeyData       = "data"
	KeyConfig     = "config"
	KeyEvents     = "events"
	KeyEvent      = "event"
	KeyParam      = "param"
	KeyAsset      = "asset"
	KeyAssetMedia = "assetMedia"
	KeyCDATA      = "__cdata"
)

// Fragment is the persisted attribute set of one plugin instance.
type Fragment map[string]interface{}

// Clone returns a deep copy of the fragment.
func (f Fragment) Clone() Fragment {
	if f == nil {
		return nil
	}
	return Fragment(attrs.Attributes(f).Clone())
}

// ID returns the fragment's id, if it carries a non-empty string id.
func (f Fragment) ID() string {
	id, _ := f[KeyID].(string)
	return id
}

// ToECML produces the persisted fragment for an instance. Geometry is
// converted to percent space; data, config and events are embedded as
// structured text under their own keys; params become an ordered
// {name, value} list. Media and children are left to the document writer.
func ToECML(id string, m *Model) (Fragment, error) {
	a := m.Attributes.Get()
	if a == nil {
		a = attrs.Attributes{}
	}
	a[KeyID] = id
	attrs.PixelToPercent(a)
	f := Fragment(a)

	if m.Data != nil {
		enc, err := encodeText(m.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode data: %w", err)
		}
		f[KeyData] = enc
	}

	if m.Config != nil {
		enc, err := encodeText(m.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to encode config: %w", err)
		}
		f[KeyConfig] = enc
	}

	if m.Events != nil {
		enc, err := encodeText(m.Events)
		if err != nil {
			return nil, fmt.Errorf("failed to encode events: %w", err)
		}
		f[KeyEvents] = enc
	}

	if m.Params != nil {
		list := make([]interface{}, 0, len(m.Params))
		for _, p := range m.Params {
			list = append(list, map[string]interface{}{"name": p.Name, "value": attrs.CloneValue(p.Value)})
		}
		f[KeyParam] = list
	}

	return f, nil
}

// FromECML decodes a persisted fragment into a Model with pixel-space
// geometry. The fragment itself is not modified.
//
// The returned model is always usable. The error, when non-nil, combines the
// soft failures met on the way (*DecodeError, *UnresolvedAssetError); callers
// log them and carry on. Use multierr.Errors to inspect them individually.
func FromECML(f Fragment, lookup media.Lookup) (*Model, error) {
	m := &Model{Attributes: attrs.Attributes(f.Clone())}
	if m.Attributes == nil {
		m.Attributes = attrs.Attributes{}
	}
	a := m.Attributes
	var issues error

	if v, ok := a[KeyData]; ok {
		delete(a, KeyData)
		decoded, err := decodeText(v)
		if err != nil {
			issues = multierr.Append(issues, &DecodeError{Field: KeyData, Err: err})
		} else {
			m.Data = decoded
		}
	}

	if v, ok := a[KeyConfig]; ok {
		delete(a, KeyConfig)
		decoded, err := decodeText(v)
		if err == nil {
			if obj, isObj := decoded.(map[string]interface{}); isObj {
				m.Config = obj
			} else if decoded != nil {
				err = fmt.Errorf("config is %T, not an object", decoded)
			}
		}
		if err != nil {
			issues = multierr.Append(issues, &DecodeError{Field: KeyConfig, Err: err})
		}
	}

	// Event lists are not rebuilt from persisted text at this layer.
	delete(a, KeyEvents)
	delete(a, KeyEvent)

	if v, ok := a[KeyParam]; ok {
		delete(a, KeyParam)
		params, err := decodeParams(v)
		for _, p := range params {
			m.AddParam(p.Name, p.Value)
		}
		if err != nil {
			issues = multierr.Append(issues, &DecodeError{Field: KeyParam, Err: err})
		}
	}

	if assetID, ok := a[KeyAsset]; ok {
		if inline, hasInline := a[KeyAssetMedia]; hasInline {
			delete(a, KeyAssetMedia)
			d, err := media.FromValue(inline)
			if err != nil {
				issues = multierr.Append(issues, &DecodeError{Field: KeyAssetMedia, Err: err})
			} else {
				m.AddMedia(d)
			}
		} else {
			id := fmt.Sprint(assetID)
			var (
				d     media.Descriptor
				found bool
			)
			if lookup != nil {
				d, found = lookup.GetMedia(id)
			}
			if found {
				m.AddMedia(d)
			} else {
				issues = multierr.Append(issues, &UnresolvedAssetError{AssetID: id})
			}
		}
	}

	for _, k := range attrs.ClampSize(a) {
		issues = multierr.Append(issues, &DecodeError{Field: k, Err: attrs.ErrNegativeSize})
	}

	attrs.PercentToPixel(a)
	return m, issues
}

// encodeText wraps v as a structured-text sub-field.
func encodeText(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{KeyCDATA: string(raw)}, nil
}

// decodeText accepts either {"__cdata": "<json>"} or the bare JSON string.
func decodeText(v interface{}) (interface{}, error) {
	var text string
	switch t := v.(type) {
	case string:
		text = t
	case map[string]interface{}:
		s, ok := t[KeyCDATA].(string)
		if !ok {
			return nil, fmt.Errorf("missing %s text", KeyCDATA)
		}
		text = s
	default:
		return nil, fmt.Errorf("unsupported encoding %T", v)
	}

	if !gjson.Valid(text) {
		return nil, fmt.Errorf("malformed structured text")
	}
	return gjson.Parse(text).Value(), nil
}

// decodeParams reads a param list. A single {name, value} object is accepted
// as a one-element list. Entries without a name are skipped and reported.
func decodeParams(v interface{}) ([]Param, error) {
	var entries []interface{}
	switch t := v.(type) {
	case []interface{}:
		entries = t
	case []map[string]interface{}:
		for _, e := range t {
			entries = append(entries, e)
		}
	case []Param:
		return append([]Param(nil), t...), nil
	case map[string]interface{}:
		entries = []interface{}{t}
	default:
		return nil, fmt.Errorf("unsupported param list %T", v)
	}

	params := make([]Param, 0, len(entries))
	var errs error
	for i, e := range entries {
		obj, ok := e.(map[string]interface{})
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("param %d is %T", i, e))
			continue
		}
		name, ok := obj["name"].(string)
		if !ok || name == "" {
			errs = multierr.Append(errs, fmt.Errorf("param %d has no name", i))
			continue
		}
		params = append(params, Param{Name: name, Value: attrs.CloneValue(obj["value"])})
	}
	return params, errs
}
