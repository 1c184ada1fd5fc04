package plugin

import "path"

// Manifest is the static descriptor of a plugin type.
type Manifest struct {
	ID          string `yaml:"id" json:"id"`
	Version     string `yaml:"ver" json:"ver"`
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Editor      Editor `yaml:"editor" json:"editor"`
}

// Editor holds the editor-facing part of a manifest.
type Editor struct {
	Help   *Help                  `yaml:"help,omitempty" json:"help,omitempty"`
	Config map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
	Menu   []MenuItem             `yaml:"menu,omitempty" json:"menu,omitempty"`
}

// Help points at the help resource of a plugin type.
type Help struct {
	Src      string `yaml:"src" json:"src"`
	DataType string `yaml:"dataType" json:"dataType"`
}

// MenuItem is a toolbar or context-menu entry contributed by a plugin type.
type MenuItem struct {
	ID        string     `yaml:"id" json:"id"`
	Category  string     `yaml:"category" json:"category"` // "main" or "context"
	Title     string     `yaml:"title,omitempty" json:"title,omitempty"`
	IconImage string     `yaml:"iconImage,omitempty" json:"iconImage,omitempty"`
	Submenu   []MenuItem `yaml:"submenu,omitempty" json:"submenu,omitempty"`
}

// RelativeURL returns src relative to the plugin root: <id>-<ver>/<src>.
func (m Manifest) RelativeURL(src string) string {
	return path.Join(m.ID+"-"+m.Version, src)
}

// ResolvedMenu returns a copy of the menu with icon images made relative to
// the plugin root.
func (m Manifest) ResolvedMenu() []MenuItem {
	return m.resolveItems(m.Editor.Menu)
}

func (m Manifest) resolveItems(items []MenuItem) []MenuItem {
	if items == nil {
		return nil
	}
	out := make([]MenuItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.IconImage != "" {
			out[i].IconImage = m.RelativeURL(item.IconImage)
		}
		out[i].Submenu = m.resolveItems(item.Submenu)
	}
	return out
}

// clone deep-copies the manifest so instances never share mutable state
// with the registry.
func (m Manifest) clone() Manifest {
	out := m
	if m.Editor.Help != nil {
		help := *m.Editor.Help
		out.Editor.Help = &help
	}
	if m.Editor.Config != nil {
		out.Editor.Config = make(map[string]interface{}, len(m.Editor.Config))
		for k, v := range m.Editor.Config {
			out.Editor.Config[k] = v
		}
	}
	out.Editor.Menu = cloneMenu(m.Editor.Menu)
	return out
}

func cloneMenu(items []MenuItem) []MenuItem {
	if items == nil {
		return nil
	}
	out := make([]MenuItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Submenu = cloneMenu(item.Submenu)
	}
	return out
}
