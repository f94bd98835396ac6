package server

import (
	"net/http"
	"time"

	"github.com/atlet99/pulsemon/internal/collectors"
)

// statusRecorder captures the response status code for middleware
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// PerformanceMiddleware feeds request latency and status codes into the
// performance collector.
func PerformanceMiddleware(collector *collectors.PerformanceCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			collector.ObserveRequest(time.Since(start), rec.statusCode)
		})
	}
}
