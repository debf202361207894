// Package middleware wires gosession into net/http request pipelines: it
// attaches the session before the handler runs, stashes the handle in the
// request context, and always runs the completion flush afterwards.
//
// Session-id transport (cookies, headers) is deliberately the caller's
// job: the middleware takes an IDResolver and never touches Set-Cookie.
package middleware
