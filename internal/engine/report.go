package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// DiagnosticKind classifies a skipped unit of work.
type DiagnosticKind string

const (
	// DiagTargetMissing: an extend target resolved to nothing.
	DiagTargetMissing DiagnosticKind = "target_missing"
	// DiagSourceMissing: a move source resolved to nothing.
	DiagSourceMissing DiagnosticKind = "source_missing"
	// DiagExpression: a path expression failed to compile or evaluate.
	DiagExpression DiagnosticKind = "expression"
	// DiagSchema: an operation that cannot apply to its target, or an
	// element that is not an operation.
	DiagSchema DiagnosticKind = "schema"
	// DiagNoAnchor: an operation after a replace that deleted its target.
	DiagNoAnchor DiagnosticKind = "no_anchor"
	// DiagGuard: an extend skipped because its feature or module is off.
	DiagGuard DiagnosticKind = "guard"
	// DiagFragment: an extension view whose content does not parse.
	DiagFragment DiagnosticKind = "fragment"
)

// Diagnostic records one skipped unit during a composition.
type Diagnostic struct {
	Kind     DiagnosticKind `json:"kind"`
	Fragment string         `json:"fragment"`         // extension view name
	XMLID    string         `json:"xml_id,omitempty"` // extension view xml id
	Path     string         `json:"path,omitempty"`   // target, source or field involved
	Message  string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Path != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", d.Kind, d.Fragment, d.Message, d.Path)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Fragment, d.Message)
}

// Report collects the diagnostics of one composition.
type Report struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Count returns how many diagnostics of kind were recorded.
func (r *Report) Count(kind DiagnosticKind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Errors returns the diagnostics that indicate a problem in a fragment.
// Guard skips are expected behavior and are left out.
func (r *Report) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind != DiagGuard {
			out = append(out, d)
		}
	}
	return out
}

func (r *Report) add(logger *slog.Logger, d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)

	level := slog.LevelError
	if d.Kind == DiagGuard {
		level = slog.LevelDebug
	}
	logger.Log(context.Background(), level, d.Message,
		"kind", string(d.Kind),
		"view", d.Fragment,
		"xml_id", d.XMLID,
		"path", d.Path,
	)
}
