package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/straye-as/enquiry-api/internal/auth"
	"github.com/straye-as/enquiry-api/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestIDHeader = "X-Request-ID"

// statusRecorder captures what the handler wrote for the access log
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Logging assigns every request an id, echoing a caller supplied one, and
// writes one access line per request. Health probes log at debug.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
				r.Header.Set(requestIDHeader, requestID)
			}
			w.Header().Set(requestIDHeader, requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			fields := []zap.Field{
				zap.Int("status", rec.status),
				zap.Int64("bytes", rec.bytes),
				zap.Duration("duration", time.Since(started)),
				zap.String("client_ip", clientIP(r)),
			}
			if u, ok := auth.FromContext(r.Context()); ok {
				fields = append(fields,
					zap.String("user_id", u.UserID.String()),
					zap.String("user_name", u.DisplayName),
					zap.Bool("system", u.IsSystem),
				)
			}

			logger.WithRequest(log, r.Method, r.URL.Path, requestID).
				Log(accessLevel(r.URL.Path, rec.status), "request completed", fields...)
		})
	}
}

func accessLevel(path string, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusTooManyRequests:
		return zapcore.WarnLevel
	case strings.HasPrefix(path, "/health"):
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
