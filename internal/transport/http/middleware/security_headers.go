package middleware

import (
	"net/http"
	"strings"
)

const (
	apiPolicy     = "default-src 'none'; frame-ancestors 'none'"
	previewPolicy = "default-src 'none'; img-src 'self'; media-src 'self'; object-src 'self'; frame-ancestors 'self'"
)

// SecureHeaders sets baseline response headers. Requests under a preview
// prefix serve evidence files the client embeds, so they may be framed by
// the same origin; everything else is API output that is never cached.
func SecureHeaders(isProd bool, previewPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			headers := w.Header()
			headers.Set("X-Content-Type-Options", "nosniff")
			headers.Set("Referrer-Policy", "no-referrer")
			headers.Set("Cross-Origin-Resource-Policy", "same-origin")
			if isPreview(r.URL.Path, previewPrefixes) {
				headers.Set("X-Frame-Options", "SAMEORIGIN")
				headers.Set("Content-Security-Policy", previewPolicy)
				headers.Set("Cache-Control", "private, max-age=300")
			} else {
				headers.Set("X-Frame-Options", "DENY")
				headers.Set("Content-Security-Policy", apiPolicy)
				headers.Set("Cache-Control", "no-store")
			}
			if isProd {
				headers.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPreview(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
