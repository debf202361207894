package middleware

import (
	"net/http"

	gosession "github.com/unhuman/gosession"
)

// IDResolver extracts the session id from a request. Return "" when the
// request carries none; under a create policy a fresh id is minted.
type IDResolver func(*http.Request) string

// Session returns middleware that attaches a session to each request under
// the given policy and completes it after the handler returns. The handle
// is available to handlers via gosession.SessionFromContext; when the
// session is absent and the policy does not create, handlers run without
// one.
//
// Attach failures answer 500: a request that declared it needs a session
// cannot proceed meaningfully without the store. Flush failures at
// completion never affect the response — it has already been written.
func Session(manager *gosession.Manager, resolve IDResolver, policy gosession.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				http.Error(w, "session store unavailable", http.StatusInternalServerError)
				return
			}

			var id string
			if resolve != nil {
				id = resolve(r)
			}

			handle, err := manager.Attach(r.Context(), id, policy)
			if err != nil {
				http.Error(w, "session store unavailable", http.StatusInternalServerError)
				return
			}
			if handle == nil {
				next.ServeHTTP(w, r)
				return
			}

			defer handle.Complete(r.Context())

			ctx := gosession.WithSession(r.Context(), handle)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
