package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pkt.systems/pslog"

	"github.com/unhuman/gosession/kv"
)

// Store persists session records in a remote [kv.Bucket] under
// prefix-namespaced keys, with insert-semantics creation, CAS-guarded
// updates, and a one-shot replica fallback on reads.
type Store struct {
	bucket kv.Bucket
	prefix string
	// touchTTL is the TTL applied by the read path before the document is
	// decoded (its own maxInactive is not known yet). Normally equal to the
	// configured default max inactivity.
	touchTTL time.Duration
	log      pslog.Logger

	replicaFallbacks atomic.Uint64
}

// NewStore creates a session [Store] over the given bucket. prefix is the
// caller-supplied key namespace prepended to every session id. touchTTL is
// the inactivity window refreshed by reads. logger may be nil.
func NewStore(bucket kv.Bucket, prefix string, touchTTL time.Duration, logger pslog.Logger) *Store {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Store{
		bucket:   bucket,
		prefix:   prefix,
		touchTTL: touchTTL,
		log:      logger,
	}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// ReplicaFallbacks returns how many reads were served from the replica
// after a primary failure.
func (s *Store) ReplicaFallbacks() uint64 {
	return s.replicaFallbacks.Load()
}

// Create serializes the record and inserts a new document keyed by
// prefix+id, TTL = the record's max inactivity. Insert semantics: fails
// with ErrAlreadyExists if the key is occupied, leaving the existing
// document untouched. Returns the new document's CAS token.
func (s *Store) Create(ctx context.Context, rec *Record) (kv.Cas, error) {
	key := s.key(rec.ID())
	s.log.Debug("session.create", "key", key)

	data, err := Encode(rec)
	if err != nil {
		return 0, err
	}

	cas, err := s.bucket.Insert(ctx, key, data, rec.ttl())
	if err != nil {
		if errors.Is(err, kv.ErrKeyExists) {
			return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, rec.ID())
		}
		return 0, err
	}
	return cas, nil
}

// Read fetches the session by id, refreshing the remote TTL (reading is
// activity). Returns (nil, 0, nil) when no document exists on either path.
//
// When the primary fails with an unavailable-class error — not a missing
// key — exactly one replica read is attempted with relaxed consistency.
// The replica copy may be slightly stale and its TTL is not refreshed;
// availability over freshness is the deliberate tradeoff for outages.
func (s *Store) Read(ctx context.Context, id string) (*Record, kv.Cas, error) {
	key := s.key(id)
	s.log.Debug("session.read", "key", key)

	data, cas, err := s.bucket.GetAndTouch(ctx, key, s.touchTTL)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, 0, nil
		}
		if !errors.Is(err, kv.ErrUnavailable) {
			return nil, 0, err
		}

		s.log.Warn("session.read.primary_failed", "key", key, "error", err)
		s.replicaFallbacks.Add(1)

		data, cas, err = s.bucket.GetFromReplica(ctx, key)
		if err != nil {
			if errors.Is(err, kv.ErrKeyNotFound) {
				return nil, 0, nil
			}
			return nil, 0, err
		}
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, 0, err
	}
	return rec, cas, nil
}

// Update persists the record over its existing document using cas as the
// write precondition. The write gate is checked before any network I/O.
// A stale token fails with kv.ErrCasMismatch and leaves the remote
// document unchanged; no automatic retry or merge is attempted here.
// On success the record's lastSaved is current, dirty is cleared, the
// remote TTL is refreshed, and the fresh CAS token is returned.
func (s *Store) Update(ctx context.Context, rec *Record, cas kv.Cas) (kv.Cas, error) {
	if err := rec.assertWritable("Update"); err != nil {
		return 0, err
	}

	key := s.key(rec.ID())
	rec.setLastSaved(time.Now().UnixMilli())

	data, err := Encode(rec)
	if err != nil {
		return 0, err
	}

	next, err := s.bucket.Upsert(ctx, key, data, rec.ttl(), cas)
	if err != nil {
		return 0, err
	}

	rec.ClearDirty()
	s.log.Debug("session.update", "key", key)
	return next, nil
}

// Remove deletes the document unconditionally — no CAS precondition.
// A missing document is a safe terminal state: any racing writer will fail
// its own CAS write once the document is gone. Returns false (not an
// error) when the document did not exist, and false with a warn log on any
// other failure; the TTL is the backstop, so deletion failure is not fatal
// to the caller.
func (s *Store) Remove(ctx context.Context, id string) bool {
	key := s.key(id)

	err := s.bucket.Remove(ctx, key)
	if err == nil {
		s.log.Debug("session.remove", "key", key)
		return true
	}
	if errors.Is(err, kv.ErrKeyNotFound) {
		s.log.Debug("session.remove.miss", "key", key)
		return false
	}

	s.log.Warn("session.remove.failed", "key", key, "error", err)
	return false
}

// Rename atomically moves a session to a new id: it reads the current
// document, inserts it under the new key (insert semantics, so an occupied
// key fails with ErrAlreadyExists), then deletes the old key without a CAS
// precondition, for the same race-safety reason as Remove.
//
// The gate is rec's request-scoped writable flag; without it the operation
// fails with ErrPermissionDenied before touching the network. On success
// rec carries the new id and the returned CAS token belongs to the new
// document.
func (s *Store) Rename(ctx context.Context, rec *Record, newID string) (kv.Cas, error) {
	if err := rec.assertWritable("Rename"); err != nil {
		return 0, err
	}

	oldID := rec.ID()
	oldKey, newKey := s.key(oldID), s.key(newID)
	s.log.Debug("session.rename", "old_key", oldKey, "new_key", newKey)

	data, _, err := s.bucket.GetAndTouch(ctx, oldKey, s.touchTTL)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return 0, fmt.Errorf("%w: %s", kv.ErrKeyNotFound, oldID)
		}
		return 0, err
	}

	stored, err := Decode(data)
	if err != nil {
		return 0, err
	}
	stored.setID(newID)

	out, err := Encode(stored)
	if err != nil {
		return 0, err
	}

	cas, err := s.bucket.Insert(ctx, newKey, out, stored.ttl())
	if err != nil {
		if errors.Is(err, kv.ErrKeyExists) {
			return 0, fmt.Errorf("%w: %s", ErrAlreadyExists, newID)
		}
		return 0, err
	}

	s.Remove(ctx, oldID)
	rec.setID(newID)
	return cas, nil
}
