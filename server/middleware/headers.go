package middleware

import "net/http"

// ServiceHeaders stamps every response with the service identity.
func ServiceHeaders(name, version string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Service", name)
			h.Set("X-Service-Version", version)
			next.ServeHTTP(w, r)
		})
	}
}
