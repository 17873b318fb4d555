// Package harness runs view composition scenarios.
//
// A scenario describes a small installation (modules, enabled features and
// view documents), names one original view to compose and lists assertions
// about the outcome. Every scenario runs in a fresh in-memory database
// through the real composition engine.
//
// # Scenario Format
//
//	name: insert_into_panel
//	description: "An extension adds a field to a panel"
//	modules:
//	  - name: base
//	  - name: sale
//	    removable: true
//	features: [sale.discount]
//	views:
//	  - id: base.order_form
//	    module: base
//	    arch: |
//	      <form name="order"><panel name="main"/></form>
//	  - id: sale.order_form
//	    module: sale
//	    arch: |
//	      <form name="order" extension="true">
//	        <extend target="//panel[@name='main']">
//	          <insert position="inside-last"><field name="discount"/></insert>
//	        </extend>
//	      </form>
//	compose: base.order_form
//	assertions:
//	  - type: content
//	    content: |
//	      <form name="order"><panel name="main"><field name="discount"/></panel></form>
//	  - type: dependencies
//	    modules: [sale]
//
// Modules are installed unless they say otherwise. A view's type, name,
// model, groups and extension flag come from its root element, the same way
// the workspace loader reads them.
//
// # Assertion Types
//
//   - generated: whether a computed view was produced
//   - content: the computed markup, compared after parsing both sides
//   - diagnostic_count: how many diagnostics of a kind were recorded
//   - dependencies: the exact dependent module and feature sets
//   - xpath_count: how many nodes an expression selects in the computed view
//
// # Golden Files
//
// RunWithGolden compares a canonical JSON snapshot of the outcome (computed
// markup, dependency sets and the trace of applied fragments and
// diagnostics) with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
