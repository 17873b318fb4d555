package ir

import "strings"

// ComputedSuffix is appended to an original's XML ID (or name) to form the
// XML ID of its computed view.
const ComputedSuffix = "__computed__"

// View is one stored view document with its metadata.
type View struct {
	ID       int64  `json:"id"`
	XMLID    string `json:"xml_id,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Model    string `json:"model,omitempty"`
	Module   string `json:"module,omitempty"`
	Title    string `json:"title,omitempty"`
	Priority int    `json:"priority"`

	Extension bool `json:"extension"`
	Computed  bool `json:"computed"`

	Groups            []string `json:"groups"`             // sorted set of access-group codes
	DependentModules  []string `json:"dependent_modules"`  // sorted set, derived by composition
	DependentFeatures []string `json:"dependent_features"` // sorted set, derived by composition

	Content     string `json:"content"`                // XML text
	ContentHash string `json:"content_hash,omitempty"` // set on computed views only
}

// Key returns the composition group the view belongs to.
func (v *View) Key() GroupKey {
	return GroupKey{Name: v.Name, Type: v.Type, Model: v.Model}
}

// IsOriginal reports whether v can serve as a merge base.
func (v *View) IsOriginal() bool {
	return !v.Extension && !v.Computed
}

// XMLIDOrName returns the XML ID, falling back to the name when unset.
func (v *View) XMLIDOrName() string {
	if v.XMLID != "" {
		return v.XMLID
	}
	return v.Name
}

// Label identifies the view in log lines and diagnostics.
func (v *View) Label() string {
	if v.XMLID != "" {
		return v.Name + "(" + v.XMLID + ")"
	}
	return v.Name
}

// ComputedXMLID returns the XML ID of the computed view for original.
func ComputedXMLID(original *View) string {
	return original.XMLIDOrName() + ComputedSuffix
}

// IsComputedXMLID reports whether xmlID names a computed view.
func IsComputedXMLID(xmlID string) bool {
	return strings.HasSuffix(xmlID, ComputedSuffix)
}

// GroupKey identifies one composition group: an original view and everything
// that extends it.
type GroupKey struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Model string `json:"model,omitempty"`
}

func (k GroupKey) String() string {
	if k.Model == "" {
		return k.Type + ":" + k.Name
	}
	return k.Type + ":" + k.Name + "@" + k.Model
}

// Module describes one module known to the workspace, in resolution order.
type Module struct {
	Name      string   `json:"name"`
	Installed bool     `json:"installed"`
	Removable bool     `json:"removable"`
	Path      string   `json:"path,omitempty"`    // directory holding the module's views/ folder
	Depends   []string `json:"depends,omitempty"` // declared dependencies, informational
}

// Manifest is the compiled workspace description.
type Manifest struct {
	Modules  []Module `json:"modules"`  // resolution order
	Features []string `json:"features"` // enabled feature names, sorted set
}

// Module returns the named module, or nil when the manifest does not list it.
func (m *Manifest) Module(name string) *Module {
	for i := range m.Modules {
		if m.Modules[i].Name == name {
			return &m.Modules[i]
		}
	}
	return nil
}
