package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPermissionDenied is returned by mutating operations on a record
	// whose request scope did not opt into write access. The wrapped
	// message names the offending operation.
	ErrPermissionDenied = errors.New("session write not permitted")
	// ErrSerialization is returned when a record cannot be encoded to, or
	// decoded from, its wire document. Fatal to the operation in progress.
	ErrSerialization = errors.New("session serialization failed")
	// ErrAlreadyExists is returned by insert-semantics operations when the
	// target key is occupied.
	ErrAlreadyExists = errors.New("session already exists")
)

// Record is one user session: an opaque id, timestamps, a TTL, and a
// string-keyed attribute map. Identity is by id.
//
// The dirty and writable flags are transient in-memory state and are never
// persisted. A Record is owned by a single request at a time; it is not
// safe for concurrent use.
type Record struct {
	id             string
	creationTime   int64 // ms since epoch, set once
	lastAccessTime int64 // ms since epoch, in-memory only
	lastSaved      int64 // ms since epoch of the last successful persist
	maxInactive    int   // seconds of allowed inactivity

	attributes map[string]any

	dirty    bool
	writable bool
}

// NewRecord creates a fresh session that has no store-backed document yet.
func NewRecord(id string, maxInactiveSeconds int) *Record {
	now := time.Now().UnixMilli()
	return &Record{
		id:             id,
		creationTime:   now,
		lastAccessTime: now,
		maxInactive:    maxInactiveSeconds,
		attributes:     make(map[string]any),
	}
}

// restore rebuilds a record from a decoded wire document. lastAccessTime is
// not persisted; the moment of deserialization counts as the access.
func restore(id string, creationTime, lastSaved int64, maxInactiveSeconds int, attributes map[string]any) *Record {
	return &Record{
		id:             id,
		creationTime:   creationTime,
		lastAccessTime: time.Now().UnixMilli(),
		lastSaved:      lastSaved,
		maxInactive:    maxInactiveSeconds,
		attributes:     attributes,
	}
}

// ID returns the session identifier. It never changes except through
// [Store.Rename].
func (r *Record) ID() string { return r.id }

// CreationTime returns the session creation time in ms since epoch.
func (r *Record) CreationTime() int64 { return r.creationTime }

// LastAccessed returns the last access time in ms since epoch.
func (r *Record) LastAccessed() int64 { return r.lastAccessTime }

// LastSaved returns the time of the last successful persist in ms since
// epoch, or zero if the record has never been saved.
func (r *Record) LastSaved() int64 { return r.lastSaved }

// MaxInactive returns the inactivity TTL in seconds.
func (r *Record) MaxInactive() int { return r.maxInactive }

// SetMaxInactive changes the inactivity TTL applied on the next persist.
// Not gated: the TTL is store policy, not attribute data.
func (r *Record) SetMaxInactive(seconds int) { r.maxInactive = seconds }

// Dirty reports whether the record has unpersisted attribute mutations.
func (r *Record) Dirty() bool { return r.dirty }

// ClearDirty drops the dirty flag without persisting. The lifecycle
// controller calls it unconditionally when a request completes so that a
// permanently broken session cannot loop on flush retries.
func (r *Record) ClearDirty() { r.dirty = false }

// Writable reports whether this request scope may mutate the record.
func (r *Record) Writable() bool { return r.writable }

// SetWritable grants or revokes write access for the current request
// scope. Decided once, at the point the session is attached.
func (r *Record) SetWritable(writable bool) { r.writable = writable }

// Touch bumps the in-memory last access time.
func (r *Record) Touch() { r.lastAccessTime = time.Now().UnixMilli() }

// Attribute returns the named attribute value. Read access is never gated.
func (r *Record) Attribute(name string) (any, bool) {
	v, ok := r.attributes[name]
	return v, ok
}

// AttributeNames returns the names of all stored attributes.
func (r *Record) AttributeNames() []string {
	names := make([]string, 0, len(r.attributes))
	for name := range r.attributes {
		names = append(names, name)
	}
	return names
}

// Attributes returns a copy of the attribute map.
func (r *Record) Attributes() map[string]any {
	out := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		out[k] = v
	}
	return out
}

// SetAttribute stores an attribute value and marks the record dirty.
// Fails with ErrPermissionDenied when the scope is read-only.
func (r *Record) SetAttribute(name string, value any) error {
	if err := r.assertWritable("SetAttribute"); err != nil {
		return err
	}
	r.attributes[name] = value
	r.dirty = true
	return nil
}

// RemoveAttribute deletes an attribute and marks the record dirty.
// Fails with ErrPermissionDenied when the scope is read-only.
func (r *Record) RemoveAttribute(name string) error {
	if err := r.assertWritable("RemoveAttribute"); err != nil {
		return err
	}
	delete(r.attributes, name)
	r.dirty = true
	return nil
}

func (r *Record) assertWritable(op string) error {
	if !r.writable {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, op)
	}
	return nil
}

func (r *Record) setLastSaved(ms int64) { r.lastSaved = ms }

func (r *Record) ttl() time.Duration {
	return time.Duration(r.maxInactive) * time.Second
}

func (r *Record) setID(id string) { r.id = id }
