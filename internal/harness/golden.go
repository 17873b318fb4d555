package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/viewmerge/internal/ir"
)

// GoldenDir is where golden files live, relative to the package under test.
const GoldenDir = "testdata/golden"

// Snapshot captures the outcome of a scenario for golden comparison.
type Snapshot struct {
	ScenarioName      string       `json:"scenario_name"`
	Generated         bool         `json:"generated"`
	Content           string       `json:"content,omitempty"`
	DependentModules  []string     `json:"dependent_modules"`
	DependentFeatures []string     `json:"dependent_features"`
	Trace             []TraceEvent `json:"trace"`
}

// NewSnapshot builds the snapshot of result for the named scenario.
func NewSnapshot(name string, result *Result) *Snapshot {
	return &Snapshot{
		ScenarioName:      name,
		Generated:         result.Generated,
		Content:           result.Content,
		DependentModules:  result.DependentModules,
		DependentFeatures: result.DependentFeatures,
		Trace:             result.Trace,
	}
}

// toCanonicalMap converts a Snapshot to the value types ir.MarshalCanonical
// accepts. Empty strings are left out.
func (s *Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type":     event.Type,
			"fragment": event.Fragment,
			"seq":      event.Seq,
		}
		if event.Kind != "" {
			eventMap["kind"] = event.Kind
		}
		if event.Path != "" {
			eventMap["path"] = event.Path
		}
		if event.Message != "" {
			eventMap["message"] = event.Message
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name":      s.ScenarioName,
		"generated":          s.Generated,
		"dependent_modules":  nonNil(s.DependentModules),
		"dependent_features": nonNil(s.DependentFeatures),
		"trace":              traceList,
	}
	if s.Content != "" {
		result["content"] = s.Content
	}
	return result
}

// MarshalCanonical returns the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
