package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/viewmerge/internal/ir"
)

// ModuleCatalog supplies the modules of the installation in resolution order.
type ModuleCatalog interface {
	Modules(ctx context.Context) ([]ir.Module, error)
}

// FeatureFlags supplies the names of the enabled features.
type FeatureFlags interface {
	EnabledFeatures(ctx context.Context) ([]string, error)
}

// Environment is a read-only snapshot of module and feature state.
//
// Composition reads only the snapshot, so replaying operations never blocks
// on I/O. Safe for concurrent use once built.
type Environment struct {
	order     []string
	installed map[string]bool
	removable map[string]bool
	features  map[string]bool
}

// NewEnvironment builds a snapshot from modules (in resolution order) and
// the enabled feature names.
func NewEnvironment(modules []ir.Module, features []string) *Environment {
	env := &Environment{
		order:     make([]string, 0, len(modules)),
		installed: make(map[string]bool, len(modules)),
		removable: make(map[string]bool),
		features:  make(map[string]bool, len(features)),
	}
	for _, m := range modules {
		env.order = append(env.order, m.Name)
		if m.Installed {
			env.installed[m.Name] = true
			if m.Removable {
				env.removable[m.Name] = true
			}
		}
	}
	for _, f := range features {
		env.features[f] = true
	}
	return env
}

// LoadEnvironment takes a snapshot from the catalog and the feature flags.
func LoadEnvironment(ctx context.Context, catalog ModuleCatalog, flags FeatureFlags) (*Environment, error) {
	modules, err := catalog.Modules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	features, err := flags.EnabledFeatures(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	return NewEnvironment(modules, features), nil
}

// ResolutionOrder returns module names in the order their contributions apply.
func (e *Environment) ResolutionOrder() []string {
	return slices.Clone(e.order)
}

// IsInstalled reports whether module name is installed.
func (e *Environment) IsInstalled(name string) bool {
	return e.installed[name]
}

// IsRemovable reports whether module name is installed and may be removed.
func (e *Environment) IsRemovable(name string) bool {
	return e.removable[name]
}

// HasFeature reports whether feature name is enabled.
func (e *Environment) HasFeature(name string) bool {
	return e.features[name]
}
