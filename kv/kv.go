package kv

import (
	"context"
	"errors"
	"time"
)

// Cas is the per-document optimistic concurrency token. It is returned by
// every read and successful write, and becomes stale the instant any other
// write to the same key lands. Treat it as opaque transport metadata: it is
// never part of a document body.
type Cas uint64

var (
	// ErrKeyExists is returned by Insert when the key is already occupied.
	ErrKeyExists = errors.New("key already exists")
	// ErrKeyNotFound is returned when the requested document does not exist.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCasMismatch is returned by Upsert when the supplied token no longer
	// matches the stored document. The remote document is left untouched.
	ErrCasMismatch = errors.New("cas token mismatch")
	// ErrUnavailable wraps transient network or cluster failures. On the
	// read path it is the trigger for the one-shot replica fallback.
	ErrUnavailable = errors.New("store unavailable")
)

// Bucket is the remote document store consumed by the session layer.
//
// All operations block until the underlying client resolves them; timeouts
// and cancellation are the client configuration's job, not this layer's.
type Bucket interface {
	// Insert writes a new document. Fails with ErrKeyExists if the key is
	// occupied; the existing document is not modified.
	Insert(ctx context.Context, key string, value []byte, ttl time.Duration) (Cas, error)

	// Upsert replaces an existing document iff cas matches the stored
	// token. Fails with ErrCasMismatch on a stale token or a missing
	// document. Refreshes the TTL on success.
	Upsert(ctx context.Context, key string, value []byte, ttl time.Duration, cas Cas) (Cas, error)

	// GetAndTouch reads a document and refreshes its TTL in the same
	// operation. Fails with ErrKeyNotFound when absent.
	GetAndTouch(ctx context.Context, key string, ttl time.Duration) ([]byte, Cas, error)

	// GetFromReplica reads from the first-priority replica with relaxed
	// consistency. The result may be stale and the TTL is NOT refreshed.
	GetFromReplica(ctx context.Context, key string) ([]byte, Cas, error)

	// Remove deletes a document unconditionally. Fails with ErrKeyNotFound
	// when absent.
	Remove(ctx context.Context, key string) error
}
