package middleware

import (
	"net/http"
)

// QueryToken lets clients that cannot set headers, such as browser
// WebSockets, pass their bearer token as ?token=. An Authorization header,
// when present, wins.
func QueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}
