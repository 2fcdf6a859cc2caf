package http

import (
	"net/http"
	"strings"
)

// SecurityHeaders sets the response headers every route carries. The API
// serves JSON and raw image bytes, so the default CSP denies everything;
// Swagger UI is the one HTML surface and needs its scripts and styles.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		csp := "default-src 'none'"
		if strings.HasPrefix(r.URL.Path, "/swagger/") {
			csp = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
		}
		h.Set("Content-Security-Policy", csp)

		next.ServeHTTP(w, r)
	})
}
