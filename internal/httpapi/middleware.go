package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-formwizard/internal/logging"
)

// requestLogger writes one structured record per request. Session routes
// carry the session id so the line correlates with controller logs.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		ctx := r.Context()
		if rctx := chi.RouteContext(ctx); rctx != nil {
			if id := rctx.URLParam("id"); id != "" {
				ctx = logging.WithSessionID(ctx, id)
			}
			if form := rctx.URLParam("form"); form != "" {
				ctx = logging.WithFormID(ctx, form)
			}
		}

		level := slog.LevelInfo
		if ww.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.LogAttrs(ctx, level, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(ctx)),
		)
	})
}
