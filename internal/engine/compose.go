package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/viewmerge/internal/compiler"
	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/store"
)

// Result describes one composition.
type Result struct {
	// Original is the view composition started from, with its freshly
	// computed dependency sets.
	Original *ir.View `json:"original"`

	// Computed is the stored computed view, nil when none was generated.
	Computed *ir.View `json:"computed,omitempty"`

	// Generated is true iff a computed view exists after composition.
	Generated bool `json:"generated"`

	// Unchanged is true when the computed view already had this content.
	Unchanged bool `json:"unchanged"`

	// Fragments lists the applied extension views in application order.
	Fragments []string `json:"fragments"`

	// Excluded counts extensions skipped because their groups differ.
	Excluded int `json:"excluded"`

	Report Report `json:"report"`
}

// Compose composes the group of the view with the given id and reports
// whether a computed view now exists.
func (e *Engine) Compose(ctx context.Context, id int64) (bool, error) {
	view, err := e.store.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("find view %d: %w", id, err)
	}

	env, err := LoadEnvironment(ctx, e.catalog, e.flags)
	if err != nil {
		return false, err
	}

	res, err := e.ComposeView(ctx, view, env)
	if err != nil {
		return false, err
	}
	return res.Generated, nil
}

// ComposeView composes the group view belongs to against env.
//
// A computed or extension view is redirected to its original. When no
// eligible extension remains, the computed view of the group is deleted.
// Otherwise the original's tree is cloned, every fragment is replayed on the
// clone in module order, and the result is saved as the group's computed
// view together with the original's dependency sets.
func (e *Engine) ComposeView(ctx context.Context, view *ir.View, env *Environment) (*Result, error) {
	original, err := e.resolveOriginal(ctx, view)
	if err != nil {
		return nil, err
	}
	logger := e.logger.With("view", original.Name, "type", original.Type, "xml_id", original.XMLID)

	computedID := ir.ComputedXMLID(original)

	extensions, err := e.store.FindExtensions(ctx, original.Key())
	if err != nil {
		return nil, fmt.Errorf("find extensions of %s: %w", original.Label(), err)
	}
	eligible, excluded := eligibleExtensions(original, extensions)
	for _, ext := range excluded {
		logger.Debug("extension groups differ from original, excluded", "extension", ext.Label())
	}
	ordered := OrderByModules(eligible, env.ResolutionOrder())

	res := &Result{Original: original, Fragments: []string{}, Excluded: len(excluded)}

	if len(ordered) == 0 {
		if err := e.store.DeleteComputed(ctx, computedID); err != nil {
			return nil, fmt.Errorf("delete computed view %s: %w", computedID, err)
		}
		logger.Info("no extensions, computed view removed", "computed", computedID)
		return res, nil
	}

	base, err := dom.ParseString(original.Content)
	if err != nil {
		return nil, &ComposeError{Code: ErrCodeInvalidOriginal, View: original.Label(), Err: err}
	}
	work := base.Clone()

	r := newReplay(e.locator, env, logger, original, work)
	for _, ext := range ordered {
		frag, diags, err := compiler.CompileFragment(ext)
		if err != nil {
			r.frag = ext
			r.diag(DiagFragment, "", err.Error())
			continue
		}
		r.frag = ext
		for _, d := range diags {
			r.diag(DiagSchema, d.Field, d.Message)
		}
		r.apply(frag)
		res.Fragments = append(res.Fragments, ext.Label())
	}

	content := string(dom.Marshal(work))
	groups := ir.NormalizeSet(append(ir.SplitCSV(work.DocumentElement().AttrValue("groups")), original.Groups...))
	hash, err := ir.ContentHash(original.Key(), groups, content)
	if err != nil {
		return nil, err
	}

	computed := &ir.View{
		XMLID:             computedID,
		Name:              original.Name,
		Type:              original.Type,
		Model:             original.Model,
		Title:             original.Title,
		Module:            lastModule(ordered),
		Priority:          original.Priority + 1,
		Computed:          true,
		Groups:            groups,
		DependentModules:  []string{},
		DependentFeatures: []string{},
		Content:           content,
		ContentHash:       hash,
	}

	existing, err := e.store.FindComputed(ctx, computedID)
	switch {
	case err == nil:
		computed.ID = existing.ID
		res.Unchanged = existing.ContentHash == hash
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("find computed view %s: %w", computedID, err)
	}

	original.DependentModules = r.modules
	original.DependentFeatures = r.features

	if err := e.store.SaveComposition(ctx, original, computed); err != nil {
		return nil, fmt.Errorf("save computed view %s: %w", computedID, err)
	}

	res.Computed = computed
	res.Generated = true
	res.Report = *r.report

	if res.Unchanged {
		logger.Info("computed view unchanged", "computed", computedID, "fragments", len(ordered))
	} else {
		logger.Info("computed view saved", "computed", computedID, "fragments", len(ordered), "hash", hash)
	}
	return res, nil
}

// resolveOriginal returns a private copy of the original behind view.
func (e *Engine) resolveOriginal(ctx context.Context, view *ir.View) (*ir.View, error) {
	if view.IsOriginal() {
		o := *view
		return &o, nil
	}

	if view.Computed {
		e.logger.Warn("view is computed, composing its original", "view", view.Name)
	}
	original, err := e.store.FindOriginal(ctx, view.Key())
	if errors.Is(err, store.ErrNotFound) {
		return nil, &ComposeError{
			Code:    ErrCodeOriginalMissing,
			Message: fmt.Sprintf("no original view for %s", view.Key()),
			View:    view.Label(),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("find original of %s: %w", view.Label(), err)
	}
	return original, nil
}
