package middleware

import (
	"net/http"
	"strings"
)

// PathGuard rejects requests whose path climbs directories. It must run
// before any path normalization, which would silently resolve the ".."
// segments into a different route.
func PathGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "..") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid path"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
