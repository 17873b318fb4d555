// Package ir provides the intermediate representation types for viewmerge.
//
// This package contains type definitions and small pure helpers. Every other
// internal package imports ir; ir imports only the dom package, which owns the
// element trees that operations carry.
//
// Key design constraints:
//   - Operation is a closed sum type; unknown operation tags never reach ir
//   - Set-valued fields (groups, dependencies) are kept sorted and deduplicated
//   - All JSON tags use snake_case
//   - Nothing in ir depends on wall-clock time or randomness
package ir
