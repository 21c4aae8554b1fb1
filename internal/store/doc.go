// Package store provides SQLite-backed relational persistence for
// synchronized BIM elements and their workflow status.
//
// Three tables:
//   - projects: one row per remote stream, keyed by speckle_stream_id
//   - models: one row per (project, commit), a branch's synced version
//   - elements: snapshot of a model's flattened elements
//
// # Synchronization semantics
//
// SyncModel is the synchronization coordinator: one transaction that
// upserts the project, upserts the model, and replaces the model's
// element set. Replacement is snapshot-style (delete then insert), so a
// resync strictly reflects the current graph content; user-assigned
// status is carried forward by stable element id across the
// replacement. Any failure rolls back the whole transaction - no
// partial commit is ever visible.
//
// # Identity
//
// elements.global_id holds the durable element identity and is unique
// per model, not globally: the same real-world element legitimately has
// one row per synced model version. Status updates match on global_id
// across all models, so one status write reaches every row of the same
// logical element. elements.speckle_id is the volatile per-version
// object id, kept only for viewer correlation.
//
// # Database configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
