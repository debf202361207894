package gosession

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"

	"github.com/unhuman/gosession/kv"
	"github.com/unhuman/gosession/session"
)

// Policy is the caller-declared access intent for one request, decided
// once at the point the session is attached.
type Policy struct {
	// Create materializes (and persists) a new session when none exists.
	Create bool
	// Write permits attribute mutation for this request scope. Off by
	// default so that unguarded concurrent mutation is a deliberate
	// opt-in rather than an accident.
	Write bool
}

// DefaultPolicy is the original container default: create if absent,
// read-only.
func DefaultPolicy() Policy {
	return Policy{Create: true}
}

// Manager ties request lifecycles to session persistence. Build one
// through [Builder]; it is safe for concurrent use across requests, as
// long as each session id has at most one in-flight mutator at a time.
type Manager struct {
	store   *session.Store
	config  Config
	log     pslog.Logger
	metrics *metrics
}

// Attach obtains the session for the given id under the given policy and
// binds it to the current request scope.
//
// An existing session is returned with a fresh CAS token and its remote
// TTL refreshed. When no session exists and policy.Create is set, an empty
// session is materialized AND persisted — even under a read-only policy:
// observing a nonexistent session under create-semantics still creates it.
// This mirrors the documented, intentional behavior of the original
// container. With an empty id a fresh uuid is minted; a supplied id that
// missed is reused so the caller's external id mapping stays valid.
//
// Returns (nil, nil) when no session exists and policy.Create is unset.
func (m *Manager) Attach(ctx context.Context, id string, policy Policy) (*Handle, error) {
	if id != "" {
		rec, cas, err := m.store.Read(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			rec.SetWritable(policy.Write)
			m.metrics.inc(MetricSessionRead)
			return &Handle{manager: m, rec: rec, cas: cas, valid: true}, nil
		}
		m.metrics.inc(MetricReadMiss)
	}

	if !policy.Create {
		return nil, nil
	}

	sid := id
	if sid == "" {
		sid = uuid.NewString()
	}

	rec := session.NewRecord(sid, int(m.config.MaxInactive/time.Second))
	cas, err := m.store.Create(ctx, rec)
	if err != nil {
		return nil, err
	}

	m.metrics.inc(MetricSessionCreated)
	m.log.Debug("session.attach.created", "id", sid, "write", policy.Write)

	rec.SetWritable(policy.Write)
	return &Handle{manager: m, rec: rec, cas: cas, valid: true}, nil
}

// Remove deletes the session document for id. Returns false when no
// document existed; deletion failures are logged, not surfaced, since the
// TTL mechanism is the backstop.
func (m *Manager) Remove(ctx context.Context, id string) bool {
	removed := m.store.Remove(ctx, id)
	if removed {
		m.metrics.inc(MetricSessionRemoved)
	}
	return removed
}

// Handle is a request-scoped view of one session: the record, its CAS
// token, and the completion state machine. A Handle is owned by a single
// request and must not be shared across goroutines.
type Handle struct {
	manager *Manager
	rec     *session.Record
	cas     kv.Cas

	valid     bool
	completed bool
}

// ID returns the session id.
func (h *Handle) ID() string { return h.rec.ID() }

// Record exposes the underlying session record.
func (h *Handle) Record() *session.Record { return h.rec }

// Valid reports whether the session is still live — not invalidated and
// not renamed away from under the handle.
func (h *Handle) Valid() bool { return h.valid }

// Writable reports the request's write capability.
func (h *Handle) Writable() bool { return h.rec.Writable() }

// Attribute returns the named attribute. Reads are never gated.
func (h *Handle) Attribute(name string) (any, bool) {
	return h.rec.Attribute(name)
}

// SetAttribute stores an attribute through the write gate.
func (h *Handle) SetAttribute(name string, value any) error {
	return h.rec.SetAttribute(name, value)
}

// RemoveAttribute deletes an attribute through the write gate.
func (h *Handle) RemoveAttribute(name string) error {
	return h.rec.RemoveAttribute(name)
}

// Save flushes the record to the store immediately, regardless of the
// dirty flag, and advances the handle's CAS token. Most callers never need
// this; Complete covers the normal path.
func (h *Handle) Save(ctx context.Context) error {
	cas, err := h.manager.store.Update(ctx, h.rec, h.cas)
	if err != nil {
		if errors.Is(err, kv.ErrCasMismatch) {
			h.manager.metrics.inc(MetricUpdateConflict)
		}
		return err
	}
	h.cas = cas
	return nil
}

// Rename moves the session to a new id: the new document is inserted
// first, then the old key is deleted. Requires write capability.
func (h *Handle) Rename(ctx context.Context, newID string) error {
	cas, err := h.manager.store.Rename(ctx, h.rec, newID)
	if err != nil {
		return err
	}
	h.cas = cas
	h.manager.metrics.inc(MetricSessionRenamed)
	return nil
}

// Invalidate removes the session document and marks the handle invalid;
// Complete becomes a no-op. Returns false when no document existed.
func (h *Handle) Invalidate(ctx context.Context) bool {
	removed := h.manager.Remove(ctx, h.rec.ID())
	h.valid = false
	return removed
}

// Complete is the request-completion hook: if the session is still valid
// and dirty, it is flushed to the store. A flush failure is logged and
// swallowed — the response has already been produced, so persistence
// failures must not crash the request pipeline. The dirty flag is cleared
// unconditionally, even on failure, so a permanently broken session cannot
// loop on flush retries. Calling Complete again is a no-op.
func (h *Handle) Complete(ctx context.Context) {
	if h.completed {
		return
	}
	h.completed = true

	if !h.valid || !h.rec.Dirty() {
		return
	}
	defer h.rec.ClearDirty()

	cas, err := h.manager.store.Update(ctx, h.rec, h.cas)
	if err != nil {
		if errors.Is(err, kv.ErrCasMismatch) {
			h.manager.metrics.inc(MetricUpdateConflict)
		}
		h.manager.metrics.inc(MetricFlushFailure)
		h.manager.log.Warn("session.flush.failed", "id", h.rec.ID(), "error", err)
		return
	}
	h.cas = cas
}
