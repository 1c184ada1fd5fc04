package ecml

import (
	"contenteditor/internal/attrs"
	"contenteditor/internal/media"
)

// Param is a named plugin parameter.
type Param struct {
	Name  string      `json:"name" msgpack:"name"`
	Value interface{} `json:"value" msgpack:"value"`
}

// Model is the in-memory state of a plugin instance: pixel-space attributes
// plus optional config, data, events, params and media. A nil field means
// the value is absent.
type Model struct {
	Attributes attrs.Attributes
	Config     map[string]interface{}
	Data       interface{}
	Events     []interface{}
	Params     []Param
	Media      map[string]media.Descriptor
}

// NewModel returns a model with zeroed geometry and nothing else set.
func NewModel() *Model {
	return &Model{Attributes: attrs.New()}
}

// AddConfig sets one config key, creating the config if needed.
func (m *Model) AddConfig(key string, value interface{}) {
	if m.Config == nil {
		m.Config = make(map[string]interface{})
	}
	m.Config[key] = value
}

// AddEvent appends an event definition.
func (m *Model) AddEvent(event interface{}) {
	m.Events = append(m.Events, event)
}

// AddParam sets a named param. An existing name keeps its position.
func (m *Model) AddParam(name string, value interface{}) {
	for i := range m.Params {
		if m.Params[i].Name == name {
			m.Params[i].Value = value
			return
		}
	}
	m.Params = append(m.Params, Param{Name: name, Value: value})
}

// Param returns the value of a named param.
func (m *Model) Param(name string) (interface{}, bool) {
	for _, p := range m.Params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}

// AddMedia records a media descriptor under its id.
func (m *Model) AddMedia(d media.Descriptor) {
	if m.Media == nil {
		m.Media = make(map[string]media.Descriptor)
	}
	m.Media[d.ID] = d
}
