package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// CacheControl marks successful GET and HEAD responses as publicly cacheable
// for maxAge. Error responses and a zero maxAge get "no-store". A header
// set by the handler wins.
func CacheControl(maxAge time.Duration) func(http.Handler) http.Handler {
	cacheable := "no-store"
	if maxAge > 0 {
		cacheable = "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(&cacheWriter{ResponseWriter: w, value: cacheable}, r)
		})
	}
}

// cacheWriter sets Cache-Control once the status code is known.
type cacheWriter struct {
	http.ResponseWriter
	value   string
	decided bool
}

func (w *cacheWriter) decide(status int) {
	if w.decided {
		return
	}
	w.decided = true
	h := w.Header()
	if h.Get("Cache-Control") != "" {
		return
	}
	if status >= http.StatusBadRequest {
		h.Set("Cache-Control", "no-store")
		return
	}
	h.Set("Cache-Control", w.value)
	h.Add("Vary", "Accept-Encoding")
}

func (w *cacheWriter) WriteHeader(status int) {
	w.decide(status)
	w.ResponseWriter.WriteHeader(status)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.decide(http.StatusOK)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
