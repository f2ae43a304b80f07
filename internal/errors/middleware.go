package errors

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Middleware is the global exception filter. It must be registered as the
// LAST middleware in the chain so it observes errors and panics from all
// upstream middleware and route handlers.
type Middleware struct {
	handler *Handler
	logger  *slog.Logger
}

// NewMiddleware creates the error handling middleware
func NewMiddleware(handler *Handler, logger *slog.Logger) *Middleware {
	return &Middleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			if rec := recover(); rec != nil {
				m.handler.HandlePanic(ww, r, rec)
			}
		}()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status < 400 {
			return
		}

		logLevel := slog.LevelWarn
		if status >= 500 {
			logLevel = slog.LevelError
		}

		m.logger.LogAttrs(r.Context(), logLevel, "http error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("bytes", ww.BytesWritten()),
		)
	})
}
