package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Fragment errors (E100-E109)
	ErrUnknownOperation  = "E100" // element inside extend is not an operation
	ErrInvalidPosition   = "E101" // position attribute is not a known position
	ErrMissingAttribute  = "E102" // operation lacks a required attribute
	ErrExtendNotAllowed  = "E103" // extend element in a view without extension="true"
	ErrUnsupportedIRType = "E104" // unsupported IR type for validation

	// View errors (E110-E119)
	ErrViewNameEmpty     = "E110" // name is required
	ErrViewTypeMismatch  = "E111" // root element differs from the declared type
	ErrReservedXMLID     = "E112" // loaded views may not use the computed suffix
	ErrInvalidViewMarkup = "E113" // content does not parse

	// Manifest errors (E120-E129)
	ErrModuleNameEmpty   = "E120" // module name is required
	ErrDuplicateModule   = "E121" // module listed twice
	ErrUnknownDependency = "E122" // depends names a module not in the manifest
)

// ValidationError represents a non-fatal problem found while compiling.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Deferred reports whether the error is a fragment diagnostic that compose
// also reports against the fragment instead of rejecting the view.
func (e ValidationError) Deferred() bool {
	switch e.Code {
	case ErrUnknownOperation, ErrInvalidPosition, ErrMissingAttribute:
		return true
	}
	return false
}

// Validate validates a view or a manifest.
// Returns all errors found (does not fail-fast).
func Validate(v any) []ValidationError {
	switch x := v.(type) {
	case *ir.View:
		return validateView(x)
	case ir.View:
		return validateView(&x)
	case *ir.Manifest:
		return validateManifest(x)
	case ir.Manifest:
		return validateManifest(&x)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateView(v *ir.View) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(v.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "name is required and must be non-empty",
			Code:    ErrViewNameEmpty,
		})
	}

	if ir.IsComputedXMLID(v.XMLID) {
		errs = append(errs, ValidationError{
			Field:   "xml_id",
			Message: fmt.Sprintf("xml id %q uses the reserved suffix %q", v.XMLID, ir.ComputedSuffix),
			Code:    ErrReservedXMLID,
		})
	}

	doc, err := dom.ParseString(v.Content)
	if err != nil {
		return append(errs, ValidationError{
			Field:   "content",
			Message: err.Error(),
			Code:    ErrInvalidViewMarkup,
		})
	}

	root := doc.DocumentElement()
	if root.Name != v.Type {
		errs = append(errs, ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("root element <%s> does not match view type %q", root.Name, v.Type),
			Code:    ErrViewTypeMismatch,
		})
	}

	if v.Extension {
		_, diags, err := CompileFragment(v)
		if err != nil {
			return append(errs, ValidationError{
				Field:   "content",
				Message: err.Error(),
				Code:    ErrInvalidViewMarkup,
			})
		}
		errs = append(errs, diags...)
	} else {
		for i, el := range root.Elements() {
			if el.Name == ir.TagExtend {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s[%d]", el.Name, i),
					Message: fmt.Sprintf("view %q has an extend element but is not declared extension=\"true\"", v.Name),
					Code:    ErrExtendNotAllowed,
				})
			}
		}
	}

	return errs
}

func validateManifest(m *ir.Manifest) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for i, mod := range m.Modules {
		if strings.TrimSpace(mod.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("modules[%d].name", i),
				Message: "module name is required",
				Code:    ErrModuleNameEmpty,
			})
			continue
		}
		if seen[mod.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("modules[%d].name", i),
				Message: fmt.Sprintf("duplicate module name: %q", mod.Name),
				Code:    ErrDuplicateModule,
			})
		}
		seen[mod.Name] = true
	}

	for i, mod := range m.Modules {
		for j, dep := range mod.Depends {
			if !seen[dep] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("modules[%d].depends[%d]", i, j),
					Message: fmt.Sprintf("module %q depends on unknown module %q", mod.Name, dep),
					Code:    ErrUnknownDependency,
				})
			}
		}
	}

	return errs
}
