package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/viewmerge/internal/compiler"
	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/engine"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/loader"
	"github.com/roach88/viewmerge/internal/store"
	"github.com/roach88/viewmerge/internal/testutil"
)

// Harness is the scenario execution environment.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	seq    *testutil.Sequence
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Store the modules, features and views
//  3. Compose the target view with the engine
//  4. Record the trace and evaluate the assertions
//
// The returned error reports a scenario that could not be executed; failed
// assertions are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		store:  st,
		engine: engine.New(st, st, st, engine.WithLogger(logger)),
		seq:    testutil.NewSequence(),
		logger: logger,
	}

	ctx := context.Background()

	if err := h.setup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	composed, err := h.compose(ctx, scenario.Compose)
	if err != nil {
		return nil, fmt.Errorf("failed to compose %s: %w", scenario.Compose, err)
	}

	result := NewResult()
	if err := h.record(result, composed); err != nil {
		return nil, err
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

// setup stores the manifest and the views of the scenario.
func (h *Harness) setup(ctx context.Context, scenario *Scenario) error {
	m := &ir.Manifest{Features: ir.NormalizeSet(scenario.Features)}
	for _, spec := range scenario.Modules {
		installed := spec.Installed == nil || *spec.Installed
		m.Modules = append(m.Modules, ir.Module{
			Name:      spec.Name,
			Installed: installed,
			Removable: spec.Removable,
			Path:      spec.Name,
		})
	}
	if errs := compiler.Validate(m); len(errs) > 0 {
		return fmt.Errorf("modules: %w", errs[0])
	}
	if err := h.store.ReplaceManifest(ctx, m); err != nil {
		return err
	}

	for i, spec := range scenario.Views {
		v, err := viewFromSpec(spec)
		if err != nil {
			return fmt.Errorf("views[%d]: %w", i, err)
		}
		for _, ve := range compiler.Validate(v) {
			if !ve.Deferred() {
				return fmt.Errorf("views[%d]: %w", i, ve)
			}
		}
		if err := h.store.SaveView(ctx, v); err != nil {
			return fmt.Errorf("views[%d]: %w", i, err)
		}
		h.logger.Debug("view stored", "xml_id", v.XMLID, "module", v.Module, "id", v.ID)
	}
	return nil
}

func viewFromSpec(spec ViewSpec) (*ir.View, error) {
	doc, err := dom.ParseString(spec.Arch)
	if err != nil {
		return nil, err
	}
	v, err := loader.ViewFromElement(doc.DocumentElement(), spec.Module)
	if err != nil {
		return nil, err
	}
	v.XMLID = spec.ID
	if spec.Priority != 0 {
		v.Priority = spec.Priority
	}
	return v, nil
}

func (h *Harness) compose(ctx context.Context, xmlID string) (*engine.Result, error) {
	view, err := h.store.FindByXMLID(ctx, xmlID)
	if err != nil {
		return nil, err
	}
	env, err := engine.LoadEnvironment(ctx, h.store, h.store)
	if err != nil {
		return nil, err
	}
	return h.engine.ComposeView(ctx, view, env)
}

// record copies the engine outcome into result and builds the trace.
func (h *Harness) record(result *Result, composed *engine.Result) error {
	result.Generated = composed.Generated
	if composed.Generated {
		doc, err := dom.ParseString(composed.Computed.Content)
		if err != nil {
			return fmt.Errorf("computed view does not parse: %w", err)
		}
		result.Content = string(dom.MarshalCompact(doc))
		result.DependentModules = append(result.DependentModules, composed.Original.DependentModules...)
		result.DependentFeatures = append(result.DependentFeatures, composed.Original.DependentFeatures...)
	}

	diags := composed.Report.Diagnostics
	emitted := make([]bool, len(diags))
	for _, fragment := range composed.Fragments {
		result.AddApplyTrace(fragment, h.seq.Next())
		for i, d := range diags {
			if !emitted[i] && diagnosticLabel(d) == fragment {
				result.AddDiagnosticTrace(fragment, string(d.Kind), d.Path, d.Message, h.seq.Next())
				emitted[i] = true
			}
		}
	}
	for i, d := range diags {
		if !emitted[i] {
			result.AddDiagnosticTrace(diagnosticLabel(d), string(d.Kind), d.Path, d.Message, h.seq.Next())
		}
	}
	return nil
}

// diagnosticLabel matches ir.View.Label for the fragment that reported d.
func diagnosticLabel(d engine.Diagnostic) string {
	v := ir.View{Name: d.Fragment, XMLID: d.XMLID}
	return v.Label()
}
