package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/viewmerge/internal/engine"
)

// Scenario defines one composition scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Modules lists the installation's modules in resolution order.
	Modules []ModuleSpec `yaml:"modules"`

	// Features lists the enabled features.
	Features []string `yaml:"features,omitempty"`

	// Views are stored in order before composing.
	Views []ViewSpec `yaml:"views"`

	// Compose is the XML ID of the view to compose.
	Compose string `yaml:"compose"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`
}

// ModuleSpec declares one module.
type ModuleSpec struct {
	Name string `yaml:"name"`

	// Installed defaults to true.
	Installed *bool `yaml:"installed,omitempty"`

	Removable bool `yaml:"removable,omitempty"`
}

// ViewSpec declares one stored view.
type ViewSpec struct {
	// ID is the view's XML ID.
	ID string `yaml:"id"`

	// Module owns the view.
	Module string `yaml:"module"`

	// Priority overrides the priority attribute of the root, if any.
	Priority int `yaml:"priority,omitempty"`

	// Arch is the view markup. Its root element gives the view type.
	Arch string `yaml:"arch"`
}

// Assertion validates the outcome of the composition.
type Assertion struct {
	// Type specifies the assertion type:
	// - "generated": Value must match Result.Generated
	// - "content": the computed markup must equal Content
	// - "diagnostic_count": Kind must have been reported Count times
	// - "dependencies": the dependency sets must equal Modules and Features
	// - "xpath_count": Path must select Count nodes in the computed view
	Type string `yaml:"type"`

	Value *bool `yaml:"value,omitempty"`

	Content string `yaml:"content,omitempty"`

	Kind string `yaml:"kind,omitempty"`

	Path string `yaml:"path,omitempty"`

	Count int `yaml:"count,omitempty"`

	Modules  []string `yaml:"modules,omitempty"`
	Features []string `yaml:"features,omitempty"`
}

// Assertion type constants.
const (
	AssertGenerated       = "generated"
	AssertContent         = "content"
	AssertDiagnosticCount = "diagnostic_count"
	AssertDependencies    = "dependencies"
	AssertXPathCount      = "xpath_count"
)

var diagnosticKinds = []string{
	string(engine.DiagTargetMissing),
	string(engine.DiagSourceMissing),
	string(engine.DiagExpression),
	string(engine.DiagSchema),
	string(engine.DiagNoAnchor),
	string(engine.DiagGuard),
	string(engine.DiagFragment),
}

// LoadScenario reads and parses a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes scenario YAML and checks it. Unknown keys are
// rejected, so a misspelled "assertion:" fails instead of running nothing.
// Every problem found is reported, joined.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	for _, req := range []struct {
		missing bool
		msg     string
	}{
		{s.Name == "", "name is required"},
		{s.Description == "", "description is required"},
		{len(s.Modules) == 0, "modules list is required and must be non-empty"},
		{len(s.Views) == 0, "views list is required and must be non-empty"},
		{s.Compose == "", "compose is required"},
		{len(s.Assertions) == 0, "assertions list is required and must be non-empty"},
	} {
		if req.missing {
			fail("%s", req.msg)
		}
	}

	declared := make(map[string]bool, len(s.Modules))
	for i, m := range s.Modules {
		switch {
		case m.Name == "":
			fail("modules[%d]: name is required", i)
		case declared[m.Name]:
			fail("modules[%d]: duplicate module %q", i, m.Name)
		}
		declared[m.Name] = true
	}

	ids := make(map[string]bool, len(s.Views))
	for i, v := range s.Views {
		switch {
		case v.ID == "":
			fail("views[%d]: id is required", i)
		case ids[v.ID]:
			fail("views[%d]: duplicate id %q", i, v.ID)
		}
		ids[v.ID] = true
		if !declared[v.Module] {
			fail("views[%d]: module %q is not declared", i, v.Module)
		}
		if v.Arch == "" {
			fail("views[%d]: arch is required", i)
		}
	}
	if s.Compose != "" && !ids[s.Compose] {
		fail("compose: no view with id %q", s.Compose)
	}

	for i := range s.Assertions {
		if err := s.Assertions[i].validate(); err != nil {
			fail("assertions[%d]: %w", i, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Assertion) validate() error {
	switch a.Type {
	case "":
		return errors.New("type is required")
	case AssertGenerated:
		if a.Value == nil {
			return errors.New("value is required for generated")
		}
	case AssertContent:
		if a.Content == "" {
			return errors.New("content is required for content")
		}
	case AssertDiagnosticCount:
		if !slices.Contains(diagnosticKinds, a.Kind) {
			return fmt.Errorf("unknown diagnostic kind %q", a.Kind)
		}
	case AssertDependencies:
	case AssertXPathCount:
		if a.Path == "" {
			return errors.New("path is required for xpath_count")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("count must be non-negative for %s", a.Type)
	}
	return nil
}
