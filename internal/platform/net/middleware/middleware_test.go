package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ffiassembler/internal/platform/logger"
	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/platform/net/middleware"
	"ffiassembler/internal/platform/testkit"
)

func TestDefaultsStack(t *testing.T) {
	t.Parallel()
	var seenID, seenRun string
	r := chi.NewRouter()
	r.Use(middleware.Defaults(middleware.Options{CORSOrigins: []string{"https://archive.example"}, Slow: time.Nanosecond})...)
	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		seenID = chimw.GetReqID(r.Context())
		seenRun = logger.RunID(r.Context())
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/abc", nil)
	req.Header.Set("X-Request-Id", "req-42")
	req.Header.Set("Origin", "https://archive.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated || rec.Body.String() != "ok" {
		t.Fatalf("response = %d %q", rec.Code, rec.Body.String())
	}
	if seenID != "req-42" || seenRun != "" {
		t.Fatalf("request id = %q, run id = %q", seenID, seenRun)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://archive.example" || rec.Header().Get("Cache-Control") == "" {
		t.Fatalf("headers = %v", rec.Header())
	}
}

func TestRecover(t *testing.T) {
	t.Parallel()
	h := middleware.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("kaboom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || rec.Code != http.StatusInternalServerError || env.Kind != "panic" {
		t.Fatalf("recovered = %d %+v, %v", rec.Code, env, err)
	}

	abort := middleware.Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic(http.ErrAbortHandler) }))
	testkit.MustPanic(t, func() { abort.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)) })
}

func TestTimeoutCancelsContext(t *testing.T) {
	t.Parallel()
	h := middleware.Timeout(10 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", rec.Code)
	}
}
