package gosession

import (
	"github.com/unhuman/gosession/kv"
	"github.com/unhuman/gosession/session"
)

// The error taxonomy is defined where the failures originate (the session
// and kv packages) and aliased here so callers match against a single
// import.
var (
	// ErrPermissionDenied reports a mutation attempted without write
	// capability. Surfaced synchronously, never retried.
	ErrPermissionDenied = session.ErrPermissionDenied
	// ErrAlreadyExists reports an insert-semantics create or rename that
	// collided with an existing key.
	ErrAlreadyExists = session.ErrAlreadyExists
	// ErrSerialization reports malformed or non-serializable document
	// content. Fatal to the operation in progress — silent data loss is
	// worse than a visible failure.
	ErrSerialization = session.ErrSerialization
	// ErrConflict reports a CAS precondition failure on update: another
	// writer landed first. No automatic retry or merge; retry policy is
	// the caller's.
	ErrConflict = kv.ErrCasMismatch
	// ErrStoreUnavailable reports a transient network or cluster failure.
	// Reads fall back to the replica once; writes surface it directly,
	// since replicas are not write targets.
	ErrStoreUnavailable = kv.ErrUnavailable
)
