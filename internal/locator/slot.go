package locator

import (
	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
)

// SlotKind names one of the well-known regions of a view.
type SlotKind int

const (
	SlotNone SlotKind = iota
	SlotToolbar
	SlotMenuBar
	SlotTrailingPanel
)

var slotElements = map[SlotKind]string{
	SlotToolbar:       "toolbar",
	SlotMenuBar:       "menu-bar",
	SlotTrailingPanel: "trailing-panel",
}

// ElementName returns the element name of the slot, or "" for SlotNone.
func (k SlotKind) ElementName() string {
	return slotElements[k]
}

func (k SlotKind) String() string {
	if name, ok := slotElements[k]; ok {
		return name
	}
	return "none"
}

// SlotOf reports which slot n is, by element name.
func SlotOf(n *dom.Node) SlotKind {
	if n == nil || !n.IsElement() {
		return SlotNone
	}
	for k, name := range slotElements {
		if n.Name == name {
			return k
		}
	}
	return SlotNone
}

// LocateSlot returns the slot element of kind under the view root, or nil.
func (l *Locator) LocateSlot(doc *dom.Document, name, viewType string, kind SlotKind) (*dom.Node, error) {
	if kind == SlotNone {
		return nil, nil
	}
	return l.Resolve(kind.ElementName(), name, viewType, doc)
}

// SlotPlacement returns where a slot element of kind goes when the view does
// not have one yet. Toolbars open the view; a menu bar follows the toolbar
// when there is one, else opens the view; a trailing panel closes the view.
func (l *Locator) SlotPlacement(doc *dom.Document, name, viewType string, kind SlotKind) (*dom.Node, ir.Position, error) {
	root, err := l.Resolve("", name, viewType, doc)
	if err != nil || root == nil {
		return nil, ir.InsideLast, err
	}

	switch kind {
	case SlotMenuBar:
		toolbar, err := l.LocateSlot(doc, name, viewType, SlotToolbar)
		if err != nil {
			return nil, ir.InsideFirst, err
		}
		if toolbar != nil {
			return toolbar, ir.After, nil
		}
		return root, ir.InsideFirst, nil
	case SlotTrailingPanel:
		return root, ir.InsideLast, nil
	default:
		return root, ir.InsideFirst, nil
	}
}

// RootPlacement converts an insertion at the view root into an anchor and
// position that keep slots at the edges. Leading positions land after the
// menu bar or toolbar when present; trailing positions land before the
// trailing panel when present. Otherwise pos is normalized with AtRoot.
func (l *Locator) RootPlacement(doc *dom.Document, name, viewType string, pos ir.Position) (*dom.Node, ir.Position, error) {
	root, err := l.Resolve("", name, viewType, doc)
	if err != nil || root == nil {
		return nil, pos.AtRoot(), err
	}

	if pos.Leading() {
		for _, kind := range []SlotKind{SlotMenuBar, SlotToolbar} {
			slot, err := l.LocateSlot(doc, name, viewType, kind)
			if err != nil {
				return nil, ir.InsideFirst, err
			}
			if slot != nil {
				return slot, ir.After, nil
			}
		}
		return root, ir.InsideFirst, nil
	}

	panel, err := l.LocateSlot(doc, name, viewType, SlotTrailingPanel)
	if err != nil {
		return nil, ir.InsideLast, err
	}
	if panel != nil {
		return panel, ir.Before, nil
	}
	return root, ir.InsideLast, nil
}
