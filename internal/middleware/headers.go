package middleware

import (
	"net/http"
)

const (
	OpenerPolicyHeader   = "Cross-Origin-Opener-Policy"
	EmbedderPolicyHeader = "Cross-Origin-Embedder-Policy"
)

// CrossOriginIsolation marks every response same-origin/require-corp so pages
// can use SharedArrayBuffer. The headers are set before next runs, which
// puts them on error responses too.
func CrossOriginIsolation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set(OpenerPolicyHeader, "same-origin")
		h.Set(EmbedderPolicyHeader, "require-corp")
		next.ServeHTTP(w, r)
	})
}

// Headers adds fixed response headers. An empty value removes the header.
func Headers(headers map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(headers) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range headers {
				if v == "" {
					h.Del(k)
					continue
				}
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
