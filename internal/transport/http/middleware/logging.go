package middleware

import (
	"context"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/pkg/logger"
)

const logKey contextKey = "log"

// RequestLogger logs one line per request and exposes a request-scoped
// entry to handlers through Log. It must run after chi's RequestID.
func RequestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := log.WithFields(logrus.Fields{
				"request_id": chimiddleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), logKey, entry)))

			fields := logrus.Fields{
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_ip":   realIP(r),
			}
			switch status := ww.Status(); {
			case status >= 500:
				entry.WithFields(fields).Error("request")
			case status >= 400:
				entry.WithFields(fields).Warn("request")
			default:
				entry.WithFields(fields).Info("request")
			}
		})
	}
}

var discard = logrus.NewEntry(logger.Discard())

// Log returns the request-scoped log entry, or a discarding one outside
// RequestLogger.
func Log(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(logKey).(*logrus.Entry); ok {
		return e
	}
	return discard
}
