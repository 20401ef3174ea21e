package middleware

import (
	"net/http"
	"runtime/debug"

	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	phttp "ffiassembler/internal/platform/net/http"
)

// Recover answers a panicking handler with a JSON 500 envelope; an
// http.ErrAbortHandler panic is re-raised so the server drops the connection
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			switch v := recover(); v {
			case nil:
			case http.ErrAbortHandler:
				panic(v)
			default:
				logger.C(r.Context()).Error().Interface("panic", v).Bytes("stack", debug.Stack()).Msg("handler panicked")
				phttp.RespondError(w, r, perr.PanicErrf("internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
