package ir

// NOTE: These are store query types, not part of the view model.

// CandidateFilter selects the originals a batch composition visits.
type CandidateFilter struct {
	// Names restricts candidates to these view names. Empty means all.
	Names []string `json:"names,omitempty"`

	// SkipComputed drops originals that already have a computed view.
	SkipComputed bool `json:"skip_computed"`
}
