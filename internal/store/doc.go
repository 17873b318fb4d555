// Package store provides SQLite-backed storage for views, modules and
// feature flags.
//
// The store holds three kinds of view rows in one table:
//   - Originals: extension = 0, computed = 0
//   - Extensions: extension = 1, the fragments contributed by modules
//   - Computed views: computed = 1, written only by composition
//
// # Critical Patterns
//
// Deterministic Query Results
//   - Every list query has a total ORDER BY ending in id
//   - The original of a group is the highest priority, then highest id
//
// Sets As Text
//   - groups and dependency sets are stored as sorted comma-separated text
//     (ir.JoinCSV) so equal sets compare equal in SQL
//
// Atomic Composition Writes
//   - SaveComposition upserts the computed view and records the original's
//     dependency sets in one transaction
//
// # Schema
//
// schema.sql is applied on every Open and the numbered migrations in
// store.go upgrade older files; PRAGMA user_version records the last one
// run. File databases use WAL with synchronous=NORMAL and wait up to five
// seconds on a locked database. The pool holds one connection.
//
// *Store implements engine.DocumentStore, engine.ModuleCatalog and
// engine.FeatureFlags.
package store
