// Package kv defines the minimal key-value surface the session layer
// consumes: insert-only writes, CAS-guarded upserts, TTL-refreshing reads,
// relaxed replica reads, and unconditional removes.
//
// # Architecture boundaries
//
// This package owns the [Bucket] contract and the Redis implementation of
// it. It knows nothing about sessions, wire formats, or request lifecycles
// — those live above it. Connection management, clustering, and failover
// detection belong to the Redis client configuration supplied by the
// caller.
//
// # CAS model
//
// Every stored document carries an opaque [Cas] token that changes on each
// successful write. Reads return the current token; CAS writes require the
// caller's token to match the stored one and fail with [ErrCasMismatch]
// otherwise. Removes take no token: a missing document is a safe terminal
// state, because any racing CAS writer will fail on its own once the
// document is gone.
package kv
