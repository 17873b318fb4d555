package compiler

import (
	stderrors "errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// CompileError is a fatal problem in a workspace manifest.
type CompileError struct {
	Field   string // dotted CUE path or manifest field, e.g. "modules[1].name"
	Message string
	Pos     token.Pos // zero when the problem has no source position
}

func (e *CompileError) Error() string {
	var b strings.Builder
	if e.Pos.IsValid() {
		fmt.Fprintf(&b, "%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// formatCUEError turns every error in a CUE error list into a CompileError
// carrying its path and position. More than one is joined.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	list := errors.Errors(err)
	if len(list) == 0 {
		return err
	}

	out := make([]error, 0, len(list))
	for _, e := range list {
		format, args := e.Msg()
		out = append(out, &CompileError{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Pos:     e.Position(),
		})
	}
	if len(out) == 1 {
		return out[0]
	}
	return stderrors.Join(out...)
}
