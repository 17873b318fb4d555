package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/viewmerge/internal/ir"
)

// workspaceSchema constrains workspace.cue files. The definition is closed,
// so misspelled fields are reported rather than ignored.
const workspaceSchema = `
#Module: {
	name:       string & !=""
	installed?: bool
	removable?: bool
	path?:      string
	depends?: [...string]
}

#Workspace: {
	modules: [...#Module]
	features?: [...string]
}
`

// LoadManifest reads and compiles a workspace.cue file.
func LoadManifest(path string) (*ir.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return CompileManifest(v)
}

// CompileManifest converts a CUE workspace value into an ir.Manifest.
//
// The value must be the workspace struct itself, e.g.:
//
//	modules: [
//		{name: "base"},
//		{name: "sale", depends: ["base"], removable: true},
//	]
//	features: ["sale.discount"]
//
// Modules keep their declared order, which is the resolution order. A module
// is installed unless it says otherwise, is not removable unless it says so,
// and keeps its views under a directory named after it unless path is set.
func CompileManifest(v cue.Value) (*ir.Manifest, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(workspaceSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("workspace schema: %w", err)
	}
	unified := schema.LookupPath(cue.ParsePath("#Workspace")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	m := &ir.Manifest{}

	modulesVal := v.LookupPath(cue.ParsePath("modules"))
	if !modulesVal.Exists() {
		return nil, &CompileError{
			Field:   "modules",
			Message: "modules is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := modulesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		mod, err := parseModule(iter.Value())
		if err != nil {
			return nil, err
		}
		m.Modules = append(m.Modules, mod)
	}

	features, err := parseStringList(v, "features")
	if err != nil {
		return nil, err
	}
	m.Features = ir.NormalizeSet(features)

	if errs := Validate(m); len(errs) > 0 {
		return nil, &CompileError{
			Field:   errs[0].Field,
			Message: errs[0].Message,
			Pos:     v.Pos(),
		}
	}

	return m, nil
}

func parseModule(v cue.Value) (ir.Module, error) {
	mod := ir.Module{Installed: true}

	name, err := v.LookupPath(cue.ParsePath("name")).String()
	if err != nil {
		return mod, formatCUEError(err)
	}
	mod.Name = name
	mod.Path = name

	if f := v.LookupPath(cue.ParsePath("installed")); f.Exists() {
		if mod.Installed, err = f.Bool(); err != nil {
			return mod, formatCUEError(err)
		}
	}
	if f := v.LookupPath(cue.ParsePath("removable")); f.Exists() {
		if mod.Removable, err = f.Bool(); err != nil {
			return mod, formatCUEError(err)
		}
	}
	if f := v.LookupPath(cue.ParsePath("path")); f.Exists() {
		if mod.Path, err = f.String(); err != nil {
			return mod, formatCUEError(err)
		}
	}

	if mod.Depends, err = parseStringList(v, "depends"); err != nil {
		return mod, err
	}

	return mod, nil
}

func parseStringList(v cue.Value, field string) ([]string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return nil, nil
	}

	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}
