// Package middleware assembles the API's HTTP middleware from chi and
// go-chi/cors; callers never see chi types
package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"

	pstrings "ffiassembler/internal/platform/strings"
)

// Middleware wraps a handler
type Middleware = func(http.Handler) http.Handler

// Options tunes the shared stack
type Options struct {
	CORSOrigins []string      // empty allows any origin
	Slow        time.Duration // requests at least this slow log at warn; 0 never
}

// Defaults is the stack every route gets, outermost first
func Defaults(o Options) []Middleware {
	return []Middleware{
		chimw.RealIP,
		chimw.RequestID,
		Observe(o.Slow),
		Recover,
		cors(o.CORSOrigins),
		chimw.NoCache,
	}
}

// Timeout cancels the request context after d; file downloads stay outside it
func Timeout(d time.Duration) Middleware { return chimw.Timeout(d) }

func cors(origins []string) Middleware {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: pstrings.IfEmpty(origins, []string{"*"}),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Length"},
		MaxAge:         300,
	})
}
