package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/straye-as/enquiry-api/internal/logger"
	"go.uber.org/zap"
)

// Recovery turns handler panics into a 500 response and logs the stack
func Recovery(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.WithRequest(log, r.Method, r.URL.Path, r.Header.Get("X-Request-ID")).
					Error("panic while handling request",
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"type":"internal_error","title":"Internal Server Error","status":500,"detail":"An unexpected error occurred"}`))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
