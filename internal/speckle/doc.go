// Package speckle talks to a Speckle server and materializes its object
// graphs in memory.
//
// The package covers three concerns:
//
//   - Object: one vertex of a received object graph. Objects are typed,
//     possibly cyclic, and only loosely schema-constrained; well-known
//     fields are promoted to struct fields and everything else lands in
//     Extra.
//   - Client: GraphQL lookup that resolves a (stream, model) pair to the
//     root object id of the model's latest committed version.
//   - ServerTransport: REST download of an object closure, decoding the
//     newline-delimited JSON stream and linking reference placeholders
//     into a connected graph.
//
// The graph is handed to internal/extract read-only; nothing in this
// package mutates an Object after Receive returns.
package speckle
