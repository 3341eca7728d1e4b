// Package heap implements the aggregate store: the owner of every record and
// sequence that bindings refer to.
//
// An aggregate is created by a literal (NewRecord, NewSequence) and receives a
// fresh value.Handle. Handles are the only way to reach an aggregate; copying a
// handle copies identity, never contents. Every holder of a handle observes
// every mutation made through any other holder.
//
// # Mutation
//
// SetField, SetIndex, and Append validate their arguments before touching the
// aggregate, so a failed call never leaves partial state behind. Writes to one
// aggregate are serialized by a per-aggregate mutex; the handle table itself is
// guarded by a store-level RWMutex. Lock order is always store, then aggregate.
//
// # Reclamation
//
// Aggregates are reclaimed by Sweep, a mark-and-sweep pass from a root set
// (normally env.Environment.Roots). Handles nested inside aggregates are
// followed, so an aggregate reachable only through another aggregate survives.
// Operations on a reclaimed handle fail with INVALID_HANDLE.
package heap
