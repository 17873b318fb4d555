// Package engine composes original views with the extension fragments that
// modules contribute to them.
//
// ARCHITECTURE:
//
// One composition works on one group (an original view plus its
// extensions):
//  1. Resolve the original; computed and extension views redirect to it
//  2. Load the group's extensions and keep those whose groups match
//  3. Order them by module resolution order (OrderByModules)
//  4. Clone the original's tree and replay each compiled fragment on it
//  5. Save the result as the group's computed view, together with the
//     modules and features the composition depended on
//
// Replay (applier.go) performs no I/O. Module and feature state is read
// from an Environment snapshot taken before replay, and skipped work is
// collected in a Report instead of failing the composition.
//
// Batch Composition:
// ComposeBatch walks candidate groups by keyset pages. Groups in one page
// are composed concurrently; each owns its working tree, so the only
// shared mutable state is the locator's expression cache.
//
// CRITICAL PATTERNS:
//
// Determinism:
// Fragments apply in module order, then store order. The merged tree is
// serialized canonically, and its ContentHash tells a real change from a
// recomposition that produced the same document.
//
// Dependency Bookkeeping:
// A guard's feature or module is recorded even when the guard fails, so
// toggling it later makes the group a candidate for recomposition.
package engine
