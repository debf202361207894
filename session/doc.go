// Package session provides the session record, its JSON wire codec, and the
// store that persists records in a remote key-value bucket with TTL expiry
// and optimistic-concurrency writes.
//
// # Write gate
//
// A [Record] exposes read access unconditionally but refuses mutation
// unless its request-scoped writable flag is set, failing with
// [ErrPermissionDenied]. The flag defaults to off: unguarded concurrent
// mutation should be a deliberate opt-in, not an accident.
//
// # Concurrency token
//
// The CAS token is NOT a record field. It travels as a side channel — a
// kv.Cas returned by every read and required as an explicit argument to
// every write — so it can never leak into the serialized payload, where it
// would go stale the instant a write succeeds.
//
// # Architecture boundaries
//
// This package owns persistence semantics only. Request lifecycles, the
// create/write access policy, and completion flushing belong to the root
// package; the raw Redis plumbing belongs to kv.
package session
