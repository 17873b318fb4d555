// Package loader reads a workspace from disk into the document store.
//
// A workspace is a directory holding workspace.cue (see
// compiler.CompileManifest) and, for each module, a views/ directory of XML
// files. Each file is an <object-views> container whose element children are
// views:
//
//	<object-views>
//	  <form name="order-form" id="sale.order-form" model="com.example.Order">
//	    ...
//	  </form>
//	  <form name="order-form" id="crm.order-form" extension="true">
//	    <extend target="//panel[@name='main']">...</extend>
//	  </form>
//	</object-views>
//
// Modules are read in resolution order, files in name order. Uninstalled
// modules contribute no views.
package loader
