package testutil

import (
	"github.com/roach88/viewmerge/internal/ir"
)

// Manifest builds a manifest whose modules are all installed, listed in the
// given order and kept under a directory named after them. Every module but
// the first is removable.
func Manifest(features []string, names ...string) *ir.Manifest {
	m := &ir.Manifest{Features: ir.NormalizeSet(features)}
	for i, name := range names {
		m.Modules = append(m.Modules, ir.Module{
			Name:      name,
			Installed: true,
			Removable: i > 0,
			Path:      name,
		})
	}
	return m
}

// Original returns an original form view named name owned by module.
func Original(xmlID, name, module, content string) *ir.View {
	return &ir.View{
		XMLID:    xmlID,
		Name:     name,
		Type:     "form",
		Module:   module,
		Priority: 20,
		Content:  content,
	}
}

// Extension returns an extension of the form view name owned by module. body
// is wrapped in a form root carrying extension="true".
func Extension(xmlID, name, module, body string) *ir.View {
	return &ir.View{
		XMLID:     xmlID,
		Name:      name,
		Type:      "form",
		Module:    module,
		Priority:  20,
		Extension: true,
		Content:   `<form name="` + name + `" extension="true">` + body + `</form>`,
	}
}
