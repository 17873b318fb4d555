package compiler

import (
	"fmt"

	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
)

// CompileFragment parses an extension view into an ir.Fragment.
//
// Element children of the view root named extend become ExtendNodes; every
// other element child becomes an AppendNode. Elements inside an extend that
// are not one of the four operation tags, or that carry bad attributes, are
// dropped and reported as diagnostics. The returned error is reserved for
// content that does not parse at all.
//
// The children carried by Insert, Replace and AppendNode belong to a document
// private to the fragment; callers import them before use.
func CompileFragment(v *ir.View) (*ir.Fragment, []ValidationError, error) {
	doc, err := dom.ParseString(v.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("compile fragment %s: %w", v.Label(), err)
	}

	frag := &ir.Fragment{View: v}
	var diags []ValidationError

	for i, el := range doc.DocumentElement().Elements() {
		if el.Name != ir.TagExtend {
			frag.Items = append(frag.Items, ir.AppendNode{Node: el})
			continue
		}

		ext := ir.ExtendNode{
			Target:    el.AttrValue("target"),
			IfFeature: el.AttrValue("if-feature"),
			IfModule:  el.AttrValue("if-module"),
		}
		for j, opEl := range el.Elements() {
			field := fmt.Sprintf("extend[%d]/%s[%d]", i, opEl.Name, j)
			op, diag := compileOperation(opEl, field)
			if diag != nil {
				diags = append(diags, *diag)
				continue
			}
			ext.Operations = append(ext.Operations, op)
		}
		frag.Items = append(frag.Items, ext)
	}

	return frag, diags, nil
}

func compileOperation(el *dom.Node, field string) (ir.Operation, *ValidationError) {
	switch el.Name {
	case ir.TagInsert:
		pos, err := ir.ParsePosition(el.AttrValue("position"))
		if err != nil {
			return nil, &ValidationError{Field: field + ".position", Message: err.Error(), Code: ErrInvalidPosition}
		}
		return ir.Insert{Position: pos, Children: el.Elements()}, nil

	case ir.TagReplace:
		return ir.Replace{Children: el.Elements()}, nil

	case ir.TagMove:
		source, ok := el.Attr("source")
		if !ok || source == "" {
			return nil, &ValidationError{Field: field + ".source", Message: "move requires a source", Code: ErrMissingAttribute}
		}
		pos, err := ir.ParsePosition(el.AttrValue("position"))
		if err != nil {
			return nil, &ValidationError{Field: field + ".position", Message: err.Error(), Code: ErrInvalidPosition}
		}
		return ir.Move{Source: source, Position: pos}, nil

	case ir.TagAttribute:
		name := el.AttrValue("name")
		if name == "" {
			return nil, &ValidationError{Field: field + ".name", Message: "attribute requires a name", Code: ErrMissingAttribute}
		}
		return ir.AttributeSet{Name: name, Value: el.AttrValue("value")}, nil

	default:
		return nil, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown operation <%s> (want insert, replace, move or attribute)", el.Name),
			Code:    ErrUnknownOperation,
		}
	}
}
