package middleware

import "net/http"

// BodyLimit returns middleware that caps the request body at max
// bytes. Reads past the limit fail with http.MaxBytesError, which
// handlers surface as 413. A non-positive max disables the cap.
func BodyLimit(max int64) Middleware {
	return func(next http.Handler) http.Handler {
		if max <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, max)
			}
			next.ServeHTTP(w, r)
		})
	}
}
