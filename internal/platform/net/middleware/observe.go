package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ffiassembler/internal/platform/logger"
)

// Observe puts chi's request id on the logger context and writes one
// access line per request, at warn when it took at least slow
func Observe(slow time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), chimw.GetReqID(r.Context()))
			r = r.WithContext(ctx)
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			took := time.Since(start)
			lvl := zerolog.InfoLevel
			if slow > 0 && took >= slow {
				lvl = zerolog.WarnLevel
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.C(ctx).WithLevel(lvl).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", route(r)).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("took", took).
				Msg("http")
		})
	}
}

// route is the matched chi pattern, e.g. /v1/runs/{id}
func route(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
