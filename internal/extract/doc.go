// Package extract flattens a received Speckle object graph into a
// deduplicated list of elements.
//
// The engine is a pure function of (root, options): no I/O, no clock,
// no shared state. It walks the graph depth-first with an explicit
// stack and keeps two seen sets that must never be merged:
//
//   - volatile object ids, so each physical node is popped at most once
//     (this is what makes cyclic and diamond-shaped graphs terminate);
//   - stable element ids, so two different nodes representing the same
//     real-world element are emitted exactly once.
//
// Classification decides which nodes are user-facing elements at all:
// untyped nodes are structural plumbing, denylisted type tags are
// render/geometry noise, and assemblies are container nodes whose
// members are extracted individually. All of these still have their
// children expanded; rejection never prunes the walk.
package extract
