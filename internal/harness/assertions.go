package harness

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/roach88/viewmerge/internal/dom"
	"github.com/roach88/viewmerge/internal/ir"
)

// AssertionError describes a failed assertion. Trace, when set, is printed
// after the expected and actual values.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assertion failed: %s\n  Expected: %s\n  Actual:   %s\n", e.Type, e.Expected, e.Actual)
	if len(e.Trace) == 0 {
		return b.String()
	}
	b.WriteString("\nTrace:\n")
	for _, ev := range e.Trace {
		if ev.Type == EventApply {
			fmt.Fprintf(&b, "  [%d] apply %s\n", ev.Seq, ev.Fragment)
		} else {
			fmt.Fprintf(&b, "  [%d] %s %s: %s\n", ev.Seq, ev.Kind, ev.Fragment, ev.Message)
		}
	}
	return b.String()
}

func assertGenerated(result *Result, assertion Assertion) error {
	if result.Generated == *assertion.Value {
		return nil
	}
	return &AssertionError{
		Type:     AssertGenerated,
		Expected: fmt.Sprintf("generated=%t", *assertion.Value),
		Actual:   fmt.Sprintf("generated=%t", result.Generated),
		Trace:    result.Trace,
	}
}

// assertContent compares markup after parsing both sides, so indentation in
// the scenario file does not matter.
func assertContent(result *Result, assertion Assertion) error {
	expected, err := dom.ParseString(assertion.Content)
	if err != nil {
		return fmt.Errorf("content assertion does not parse: %w", err)
	}
	want := string(dom.MarshalCompact(expected))
	if !result.Generated {
		return &AssertionError{
			Type:     AssertContent,
			Expected: want,
			Actual:   "no computed view",
			Trace:    result.Trace,
		}
	}
	if result.Content != want {
		return &AssertionError{
			Type:     AssertContent,
			Expected: want,
			Actual:   result.Content,
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertDiagnosticCount(result *Result, assertion Assertion) error {
	count := 0
	for _, d := range result.Diagnostics() {
		if d.Kind == assertion.Kind {
			count++
		}
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertDiagnosticCount,
		Expected: fmt.Sprintf("%d %s diagnostic(s)", assertion.Count, assertion.Kind),
		Actual:   fmt.Sprintf("%d %s diagnostic(s)", count, assertion.Kind),
		Trace:    result.Trace,
	}
}

// assertDependencies compares both sets exactly. An omitted list means the
// empty set.
func assertDependencies(result *Result, assertion Assertion) error {
	modules := ir.NormalizeSet(assertion.Modules)
	features := ir.NormalizeSet(assertion.Features)
	if ir.SetEqual(result.DependentModules, modules) && ir.SetEqual(result.DependentFeatures, features) {
		return nil
	}
	return &AssertionError{
		Type:     AssertDependencies,
		Expected: fmt.Sprintf("modules %v, features %v", modules, features),
		Actual:   fmt.Sprintf("modules %v, features %v", result.DependentModules, result.DependentFeatures),
	}
}

func assertXPathCount(result *Result, assertion Assertion) error {
	if !result.Generated {
		return &AssertionError{
			Type:     AssertXPathCount,
			Expected: fmt.Sprintf("%d node(s) at %s", assertion.Count, assertion.Path),
			Actual:   "no computed view",
		}
	}
	doc, err := dom.ParseString(result.Content)
	if err != nil {
		return err
	}
	count, err := countNodes(assertion.Path, doc)
	if err != nil {
		return err
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertXPathCount,
		Expected: fmt.Sprintf("%d node(s) at %s", assertion.Count, assertion.Path),
		Actual:   fmt.Sprintf("%d node(s)", count),
	}
}

// countNodes evaluates path against doc. Expressions that do not select
// nodes make the xpath package panic during iteration; that is an error.
func countNodes(path string, doc *dom.Document) (n int, err error) {
	expr, err := xpath.Compile(path)
	if err != nil {
		return 0, fmt.Errorf("xpath %q: %w", path, err)
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("xpath %q does not select nodes: %v", path, r)
		}
	}()

	it := expr.Select(dom.NewNavigator(doc))
	for it.MoveNext() {
		n++
	}
	return n, nil
}

var checks = map[string]func(*Result, Assertion) error{
	AssertGenerated:       assertGenerated,
	AssertContent:         assertContent,
	AssertDiagnosticCount: assertDiagnosticCount,
	AssertDependencies:    assertDependencies,
	AssertXPathCount:      assertXPathCount,
}

// EvaluateAssertions runs every assertion against result and returns one
// message per failure, prefixed with the assertion's index and type.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		check, ok := checks[a.Type]
		if !ok {
			failures = append(failures, fmt.Sprintf("assertion %d: unknown assertion type: %s", i, a.Type))
			continue
		}
		if err := check(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return failures
}
