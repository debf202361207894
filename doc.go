// Package gosession provides a distributed, TTL-backed session store with
// optimistic concurrency and replica-fallback reads, layered over Redis.
//
// Sessions are persisted as JSON documents keyed by prefix+id. The store
// enforces single-writer discipline through a per-document CAS token and a
// request-scoped write gate that defaults to read-only, and it degrades
// gracefully during primary outages by serving reads from a replica.
// Idle expiry is delegated entirely to the store's TTL: no background
// sweeps, timers, or goroutines are owned by this package.
//
// # Architecture boundaries
//
// gosession is the public surface. It exposes [Manager], [Handle],
// [Policy], [Builder], and [Config]. Persistence semantics live in the
// session sub-package; the raw key-value plumbing lives in kv. The HTTP
// cookie/session-id lifecycle is the caller's job — the middleware
// sub-package only wires an externally resolved id to a request scope.
//
// # Concurrency contract
//
// A [Handle] is owned by exactly one request at a time. Two concurrent
// requests mutating the same session id is an unsupported sharing pattern;
// the CAS precondition on update is the sole safety net, and the loser of
// such a race receives a conflict failure with no automatic retry or
// merge.
package gosession
