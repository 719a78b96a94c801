package middleware

import (
	"net/http"
)

const (
	// DefaultMaxRequestSize is the default maximum request body size. Titles and
	// descriptions are capped at 10000 characters each, so 256KB is ample.
	DefaultMaxRequestSize int64 = 256 << 10
)

// MaxRequestSize limits the size of request bodies
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondErrorJSON(w, r, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Request body is too large", nil)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer func() {
				_ = r.Body.Close()
			}()

			next.ServeHTTP(w, r)
		})
	}
}
