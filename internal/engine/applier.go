package engine

import (
	"fmt"
	"log/slog"

	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
	"github.com/roach88/viewmerge/internal/locator"
)

// replay applies compiled fragments to one working document.
//
// A replay belongs to a single composition and is used from one goroutine.
// Dependency sets are accumulated here and handed back to the caller; nothing
// is kept between compositions.
type replay struct {
	loc    *locator.Locator
	env    *Environment
	logger *slog.Logger
	report *Report

	doc      *dom.Document
	name     string // original view name; every path is scoped to it
	viewType string

	modules  []string
	features []string

	frag *ir.View // fragment being applied, for diagnostics
}

func newReplay(loc *locator.Locator, env *Environment, logger *slog.Logger, original *ir.View, doc *dom.Document) *replay {
	return &replay{
		loc:      loc,
		env:      env,
		logger:   logger,
		report:   &Report{},
		doc:      doc,
		name:     original.Name,
		viewType: original.Type,
		modules:  []string{},
		features: []string{},
	}
}

// apply replays every item of f in order.
func (r *replay) apply(f *ir.Fragment) {
	r.frag = f.View
	for _, item := range f.Items {
		switch it := item.(type) {
		case ir.ExtendNode:
			r.extend(it)
		case ir.AppendNode:
			r.appendNode(it)
		}
	}
}

func (r *replay) extend(ext ir.ExtendNode) {
	if m := r.frag.Module; m != "" && r.env.IsRemovable(m) {
		r.modules = ir.SetAdd(r.modules, m)
	}

	// Guards record their dependency before they are evaluated, so a later
	// install or enable triggers recomposition.
	if ext.IfFeature != "" {
		r.features = ir.SetAdd(r.features, ext.IfFeature)
		if !r.env.HasFeature(ext.IfFeature) {
			r.diag(DiagGuard, ext.Target, fmt.Sprintf("feature %s is disabled", ext.IfFeature))
			return
		}
	}
	if ext.IfModule != "" {
		r.modules = ir.SetAdd(r.modules, ext.IfModule)
		if !r.env.IsInstalled(ext.IfModule) {
			r.diag(DiagGuard, ext.Target, fmt.Sprintf("module %s is not installed", ext.IfModule))
			return
		}
	}

	target := r.resolve(ext.Target, DiagTargetMissing, "extend target not found")
	if target == nil {
		return
	}

	for _, op := range ext.Operations {
		if target == nil {
			r.diag(DiagNoAnchor, ext.Target, fmt.Sprintf("%s skipped: target was deleted by an earlier replace", op.Tag()))
			continue
		}
		switch op := op.(type) {
		case ir.Insert:
			r.insert(target, op)
		case ir.Replace:
			target = r.replace(target, op)
		case ir.Move:
			r.move(target, op)
		case ir.AttributeSet:
			r.setAttribute(target, op)
		}
	}
}

// appendNode adds an unconditional item at the end of the view, ahead of a
// trailing panel when there is one.
func (r *replay) appendNode(it ir.AppendNode) {
	root := r.resolve("", DiagTargetMissing, "view root not found")
	if root == nil {
		return
	}

	node := r.doc.ImportNode(it.Node, true)
	panel := r.slot(locator.SlotTrailingPanel)
	if panel != nil {
		root.InsertBefore(node, panel)
		return
	}
	root.AppendChild(node)
}

func (r *replay) insert(target *dom.Node, op ir.Insert) {
	slots, rest := partitionSlots(op.Children)
	for _, s := range slots {
		r.insertSlot(s.node, s.kind)
	}
	if len(rest) == 0 {
		return
	}

	anchor, pos := target, op.Position
	if isRoot(target) {
		var err error
		anchor, pos, err = r.loc.RootPlacement(r.doc, r.name, r.viewType, op.Position)
		if err != nil || anchor == nil {
			r.resolveFailed("", err)
			return
		}
	}
	if !canPlace(anchor, pos) {
		r.diag(DiagSchema, "", fmt.Sprintf("cannot insert %s a %s node", pos, anchor.Kind))
		return
	}
	r.insertAll(rest, anchor, pos)
}

// insertSlot merges a slot wrapper into the view: into the existing slot when
// there is one, else as a new slot at its default place.
func (r *replay) insertSlot(wrapper *dom.Node, kind locator.SlotKind) {
	if existing := r.slot(kind); existing != nil {
		r.insertAll(wrapper.Elements(), existing, ir.InsideLast)
		return
	}

	anchor, pos, err := r.loc.SlotPlacement(r.doc, r.name, r.viewType, kind)
	if err != nil || anchor == nil {
		r.resolveFailed(kind.ElementName(), err)
		return
	}
	r.insertAll([]*dom.Node{wrapper}, anchor, pos)
}

// replace returns the node later operations of the same extend use as their
// target: the first replacement, or nil when the target was deleted.
func (r *replay) replace(target *dom.Node, op ir.Replace) *dom.Node {
	slots, rest := partitionSlots(op.Children)
	var anchor *dom.Node
	for _, s := range slots {
		if placed := r.replaceSlot(s.node, s.kind, target); placed != nil {
			anchor = placed
		}
	}

	// A slot replacement may already have detached the target. The remaining
	// children then follow the slot that took its place.
	if !target.Attached() {
		if len(rest) == 0 {
			return nil
		}
		if anchor == nil || !anchor.Attached() {
			r.diag(DiagNoAnchor, "", "replace target was removed by a slot replacement")
			return nil
		}
		first := r.insertAll(rest[:1], anchor, ir.After)
		r.insertAll(rest[1:], first, ir.After)
		return first
	}
	if isRoot(target) {
		r.diag(DiagSchema, "", "the view root cannot be replaced")
		return target
	}

	if len(rest) == 0 {
		target.Parent.RemoveChild(target)
		return nil
	}

	first := r.doc.ImportNode(rest[0], true)
	target.Parent.ReplaceChild(first, target)
	r.insertAll(rest[1:], first, ir.After)
	return first
}

// replaceSlot swaps the slot of kind for wrapper, or places wrapper as a new
// slot. It returns the wrapper placed in place of target, nil when the
// replaced slot was some other node.
func (r *replay) replaceSlot(wrapper *dom.Node, kind locator.SlotKind, target *dom.Node) *dom.Node {
	if existing := r.slot(kind); existing != nil {
		imported := r.doc.ImportNode(wrapper, true)
		existing.Parent.ReplaceChild(imported, existing)
		if existing == target {
			return imported
		}
		return nil
	}

	anchor, pos, err := r.loc.SlotPlacement(r.doc, r.name, r.viewType, kind)
	if err != nil || anchor == nil {
		r.resolveFailed(kind.ElementName(), err)
		return nil
	}
	r.insertAll([]*dom.Node{wrapper}, anchor, pos)
	return nil
}

func (r *replay) move(target *dom.Node, op ir.Move) {
	source := r.resolve(op.Source, DiagSourceMissing, "move source not found")
	if source == nil {
		return
	}

	pos := op.Position
	if isRoot(target) {
		pos = pos.AtRoot()
	}

	if isRoot(source) || source.Contains(target) {
		r.diag(DiagSchema, op.Source, "cannot move a node relative to itself or its own descendant")
		return
	}
	if !canPlace(target, pos) {
		r.diag(DiagSchema, op.Source, fmt.Sprintf("cannot move %s a %s node", pos, target.Kind))
		return
	}
	place(target, source, pos)
}

func (r *replay) setAttribute(target *dom.Node, op ir.AttributeSet) {
	if !target.IsElement() {
		r.diag(DiagSchema, op.Name, fmt.Sprintf("can change attributes only on elements, not on a %s node", target.Kind))
		return
	}
	if op.Value == "" {
		target.RemoveAttr(op.Name)
		return
	}
	target.SetAttr(op.Name, op.Value)
}

// insertAll imports nodes and places the first at pos relative to anchor and
// each following one right after its predecessor. Returns the last node
// placed, or anchor when nodes is empty.
func (r *replay) insertAll(nodes []*dom.Node, anchor *dom.Node, pos ir.Position) *dom.Node {
	for _, n := range nodes {
		imported := r.doc.ImportNode(n, true)
		place(anchor, imported, pos)
		anchor, pos = imported, ir.After
	}
	return anchor
}

// resolve looks up path in the working document. Failures are recorded with
// kind and message, and nil is returned.
func (r *replay) resolve(path string, kind DiagnosticKind, message string) *dom.Node {
	n, err := r.loc.Resolve(path, r.name, r.viewType, r.doc)
	if err != nil {
		r.diag(DiagExpression, path, err.Error())
		return nil
	}
	if n == nil {
		r.diag(kind, path, message)
	}
	return n
}

func (r *replay) resolveFailed(path string, err error) {
	if err != nil {
		r.diag(DiagExpression, path, err.Error())
		return
	}
	r.diag(DiagTargetMissing, path, "view root not found")
}

// slot returns the existing slot element of kind, or nil. Slot paths are
// fixed and always compile.
func (r *replay) slot(kind locator.SlotKind) *dom.Node {
	n, err := r.loc.LocateSlot(r.doc, r.name, r.viewType, kind)
	if err != nil {
		r.diag(DiagExpression, kind.ElementName(), err.Error())
		return nil
	}
	return n
}

func (r *replay) diag(kind DiagnosticKind, path, message string) {
	d := Diagnostic{Kind: kind, Path: path, Message: message}
	if r.frag != nil {
		d.Fragment = r.frag.Name
		d.XMLID = r.frag.XMLID
	}
	r.report.add(r.logger, d)
}

type slotted struct {
	kind locator.SlotKind
	node *dom.Node
}

// partitionSlots splits children into slot wrappers and the rest. Wrappers
// come back toolbars first, then menu bars, then trailing panels, so a menu
// bar can find a toolbar added by the same operation.
func partitionSlots(children []*dom.Node) ([]slotted, []*dom.Node) {
	var slots []slotted
	var rest []*dom.Node
	for _, kind := range []locator.SlotKind{locator.SlotToolbar, locator.SlotMenuBar, locator.SlotTrailingPanel} {
		for _, c := range children {
			if locator.SlotOf(c) == kind {
				slots = append(slots, slotted{kind: kind, node: c})
			}
		}
	}
	for _, c := range children {
		if locator.SlotOf(c) == locator.SlotNone {
			rest = append(rest, c)
		}
	}
	return slots, rest
}

func isRoot(n *dom.Node) bool {
	return n.Parent != nil && n.Parent.Kind == dom.DocumentNode
}

// canPlace reports whether a node can go at pos relative to anchor.
func canPlace(anchor *dom.Node, pos ir.Position) bool {
	switch pos {
	case ir.Before, ir.After:
		return anchor.Parent != nil && anchor.Parent.Kind != dom.DocumentNode
	default:
		return anchor.IsElement()
	}
}

func place(anchor, n *dom.Node, pos ir.Position) {
	switch pos {
	case ir.Before:
		anchor.Parent.InsertBefore(n, anchor)
	case ir.After:
		anchor.Parent.InsertAfter(n, anchor)
	case ir.InsideFirst:
		anchor.PrependChild(n)
	default:
		anchor.AppendChild(n)
	}
}
