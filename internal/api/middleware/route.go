package middleware

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// sensitiveParams are query parameters that place a person on a map.
var sensitiveParams = []string{"lat", "lng"}

// routePattern returns the matched chi pattern, or the raw path when the
// request did not go through a chi router.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// redactedQuery returns the raw query with coordinates masked so traces do
// not record where a client is searching from.
func redactedQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	q := u.Query()
	for _, key := range sensitiveParams {
		if _, ok := q[key]; ok {
			q.Set(key, "redacted")
		}
	}
	return q.Encode()
}
