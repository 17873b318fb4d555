package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generatedResult(content string) *Result {
	r := NewResult()
	r.Generated = true
	r.Content = content
	return r
}

func TestAssertContent_IgnoresIndentation(t *testing.T) {
	r := generatedResult(`<form name="v1"><panel name="p1"><field name="f1"/></panel></form>`)

	err := assertContent(r, Assertion{Type: AssertContent, Content: `
<form name="v1">
  <panel name="p1">
    <field name="f1"/>
  </panel>
</form>`})
	assert.NoError(t, err)
}

func TestAssertContent_Mismatch(t *testing.T) {
	r := generatedResult(`<form name="v1"/>`)

	err := assertContent(r, Assertion{Type: AssertContent, Content: `<form name="v2"/>`})
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, `<form name="v2"/>`, ae.Expected)
	assert.Equal(t, `<form name="v1"/>`, ae.Actual)
}

func TestAssertContent_NotGenerated(t *testing.T) {
	err := assertContent(NewResult(), Assertion{Type: AssertContent, Content: `<form/>`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no computed view")
}

func TestAssertDiagnosticCount(t *testing.T) {
	r := generatedResult(`<form/>`)
	r.AddApplyTrace("v1(a)", 1)
	r.AddDiagnosticTrace("v1(a)", "guard", "", "feature x is disabled", 2)
	r.AddDiagnosticTrace("v1(a)", "guard", "", "feature y is disabled", 3)

	assert.NoError(t, assertDiagnosticCount(r, Assertion{Kind: "guard", Count: 2}))
	assert.NoError(t, assertDiagnosticCount(r, Assertion{Kind: "schema", Count: 0}))
	assert.Error(t, assertDiagnosticCount(r, Assertion{Kind: "guard", Count: 1}))
}

func TestAssertDependencies_ExactSets(t *testing.T) {
	r := generatedResult(`<form/>`)
	r.DependentModules = []string{"crm", "sale"}
	r.DependentFeatures = []string{"beta"}

	assert.NoError(t, assertDependencies(r, Assertion{Modules: []string{"sale", "crm"}, Features: []string{"beta"}}))
	assert.Error(t, assertDependencies(r, Assertion{Modules: []string{"sale"}, Features: []string{"beta"}}))
	assert.Error(t, assertDependencies(r, Assertion{Modules: []string{"crm", "sale"}}))
}

func TestAssertXPathCount(t *testing.T) {
	r := generatedResult(`<form><field name="a"/><field name="b"/><panel><field name="c"/></panel></form>`)

	assert.NoError(t, assertXPathCount(r, Assertion{Path: "//field", Count: 3}))
	assert.NoError(t, assertXPathCount(r, Assertion{Path: "/form/field", Count: 2}))
	assert.Error(t, assertXPathCount(r, Assertion{Path: "//field", Count: 1}))

	err := assertXPathCount(r, Assertion{Path: "//field[", Count: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xpath")
}

func TestEvaluateAssertions_CollectsAllFailures(t *testing.T) {
	r := generatedResult(`<form/>`)

	errs := EvaluateAssertions(r, []Assertion{
		{Type: AssertGenerated, Value: boolPtr(true)},
		{Type: AssertGenerated, Value: boolPtr(false)},
		{Type: AssertXPathCount, Path: "//field", Count: 1},
		{Type: "nonsense"},
	})

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "assertion 1 (generated)")
	assert.Contains(t, errs[1], "assertion 2 (xpath_count)")
	assert.Contains(t, errs[2], "unknown assertion type: nonsense")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertContent,
		Expected: "a",
		Actual:   "b",
		Trace: []TraceEvent{
			{Type: EventApply, Fragment: "v1(m1.x)", Seq: 1},
			{Type: EventDiagnostic, Fragment: "v1(m1.x)", Kind: "guard", Message: "feature beta is disabled", Seq: 2},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: content")
	assert.Contains(t, msg, "[1] apply v1(m1.x)")
	assert.Contains(t, msg, "[2] guard v1(m1.x): feature beta is disabled")
}
