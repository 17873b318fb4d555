// Package dom is the in-memory tree model for view documents.
//
// A Document owns every node reachable from it. Nodes never move between
// documents: Document.ImportNode produces an owned deep copy, and linking a
// foreign node panics because it is a caller bug, not a recoverable state.
//
// The package also carries the XML codec (Parse, Marshal) and a Navigator
// that lets github.com/antchfx/xpath evaluate expressions directly over the
// tree. No schema validation happens here.
package dom
