package harness

// Trace event types.
const (
	EventApply      = "apply"
	EventDiagnostic = "diagnostic"
)

// TraceEvent records one step of a composition: a fragment that was applied,
// or a unit of work that was skipped.
type TraceEvent struct {
	Type     string `json:"type"`              // "apply" or "diagnostic"
	Fragment string `json:"fragment"`          // extension label, name(xml_id)
	Kind     string `json:"kind,omitempty"`    // diagnostic kind
	Path     string `json:"path,omitempty"`    // diagnostic path
	Message  string `json:"message,omitempty"` // diagnostic message
	Seq      int64  `json:"seq"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Generated reports whether a computed view was produced.
	Generated bool `json:"generated"`

	// Content is the computed markup without added whitespace. Empty when
	// nothing was generated.
	Content string `json:"content,omitempty"`

	DependentModules  []string `json:"dependent_modules"`
	DependentFeatures []string `json:"dependent_features"`

	// Trace lists applied fragments in application order, each followed by
	// its diagnostics. Diagnostics of fragments that could not be compiled
	// come last.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:              true,
		DependentModules:  []string{},
		DependentFeatures: []string{},
		Trace:             []TraceEvent{},
		Errors:            []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddApplyTrace adds an applied fragment to the trace.
func (r *Result) AddApplyTrace(fragment string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventApply,
		Fragment: fragment,
		Seq:      seq,
	})
}

// AddDiagnosticTrace adds a skipped unit of work to the trace.
func (r *Result) AddDiagnosticTrace(fragment, kind, path, message string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:     EventDiagnostic,
		Fragment: fragment,
		Kind:     kind,
		Path:     path,
		Message:  message,
		Seq:      seq,
	})
}

// Diagnostics returns the diagnostic events of the trace.
func (r *Result) Diagnostics() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventDiagnostic {
			out = append(out, e)
		}
	}
	return out
}
