package ir

import "github.com/roach88/viewmerge/internal/dom"

// TagExtend is the element name of an ExtendNode inside an extension view.
const TagExtend = "extend"

// Operation tags as they appear inside an extend element.
const (
	TagInsert    = "insert"
	TagReplace   = "replace"
	TagMove      = "move"
	TagAttribute = "attribute"
)

// Fragment is a compiled extension view.
type Fragment struct {
	View  *View
	Items []Item
}

// Item is one top-level unit of a fragment: an ExtendNode or an AppendNode.
type Item interface {
	isItem()
}

// ExtendNode patches the node addressed by Target.
type ExtendNode struct {
	Target     string
	IfFeature  string
	IfModule   string
	Operations []Operation
}

// AppendNode is a non-extend child of an extension view. It is appended to
// the root unconditionally.
type AppendNode struct {
	Node *dom.Node
}

func (ExtendNode) isItem() {}
func (AppendNode) isItem() {}

// Operation is the closed set of mutations an ExtendNode can carry.
// Switch over the concrete types; there are no others.
type Operation interface {
	Tag() string
	isOperation()
}

// Insert places Children relative to the target.
type Insert struct {
	Position Position
	Children []*dom.Node
}

// Replace supplants the target with Children. An empty list deletes it.
type Replace struct {
	Children []*dom.Node
}

// Move relocates the node addressed by Source relative to the target.
type Move struct {
	Source   string
	Position Position
}

// AttributeSet sets an attribute on the target. An empty Value removes it.
type AttributeSet struct {
	Name  string
	Value string
}

func (Insert) Tag() string       { return TagInsert }
func (Replace) Tag() string      { return TagReplace }
func (Move) Tag() string         { return TagMove }
func (AttributeSet) Tag() string { return TagAttribute }

func (Insert) isOperation()       {}
func (Replace) isOperation()      {}
func (Move) isOperation()         {}
func (AttributeSet) isOperation() {}
