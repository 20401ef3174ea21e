package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"ffiassembler/internal/adapters/blobstore"
	"ffiassembler/internal/core/fits"
	"ffiassembler/internal/core/product"
	"ffiassembler/internal/modkit"
	"ffiassembler/internal/platform/config"
	perr "ffiassembler/internal/platform/errors"
	"ffiassembler/internal/platform/logger"
	phttp "ffiassembler/internal/platform/net/http"
	asmsvc "ffiassembler/internal/services/assembly/service"
	"ffiassembler/internal/services/calibration/calibtest"
	calibrepo "ffiassembler/internal/services/calibration/repo"
	calibsvc "ffiassembler/internal/services/calibration/service"
	"ffiassembler/internal/services/fragments/fragtest"
	fragsvc "ffiassembler/internal/services/fragments/service"
	piperepo "ffiassembler/internal/services/pipeline/repo"
	pipesvc "ffiassembler/internal/services/pipeline/service"
)

type fixture struct {
	h      *chi.Mux
	runner *pipesvc.Service
	blobs  *blobstore.FS
}

func setup(t *testing.T) fixture {
	t.Helper()
	fs, err := blobstore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("blobstore: %v", err)
	}
	fragtest.PutAll(t, fs, product.Calibrated)
	calib := calibsvc.New(nil, calibrepo.NewMemory(calibtest.Snapshot()))
	runner := pipesvc.New(
		fragsvc.New(fs, calib, fragsvc.Config{Workers: 4}),
		asmsvc.New(fs, calib, asmsvc.Config{}),
		piperepo.NewMemory(),
		pipesvc.Config{},
	)
	deps := modkit.Deps{Log: logger.Nop(), Cfg: config.FromMap(map[string]string{"FFI_API_CORS_ORIGINS": "https://archive.example"}), Blobs: fs}

	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), FromConfig(deps, runner))
	return fixture{h: mux, runner: runner, blobs: fs}
}

func call(t *testing.T, h *chi.Mux, method, path, body string) (*httptest.ResponseRecorder, phttp.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	var env phttp.Envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestMetaAndDocs(t *testing.T) {
	t.Parallel()
	f := setup(t)

	rec, env := call(t, f.h, "GET", "/healthz", "")
	if rec.Code != 200 || env.Data.(map[string]any)["service"] != "ffi-api" {
		t.Fatalf("healthz = %d %+v", rec.Code, env)
	}
	rec, env = call(t, f.h, "GET", "/ready", "")
	if rec.Code != 200 || env.Data.(map[string]any)["ready"] != true {
		t.Fatalf("ready = %d %+v", rec.Code, env)
	}
	rec, env = call(t, f.h, "GET", "/version", "")
	if rec.Code != 200 || env.Data.(map[string]any)["service"] != "ffi-assembler" {
		t.Fatalf("version = %d %+v", rec.Code, env)
	}
	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest("GET", "/docs/doc.json", nil))
	if rec.Code != 200 || !json.Valid(rec.Body.Bytes()) {
		t.Fatalf("doc = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/v1/files/{timestamp}/{variant}/headers") {
		t.Fatalf("doc lacks file routes")
	}
}

func TestRunThenDownload(t *testing.T) {
	t.Parallel()
	f := setup(t)
	ts := fragtest.Timestamp

	rec, env := call(t, f.h, "POST", "/v1/runs", `{"timestamp":"`+ts+`","mission":"kepler","variants":["cal"],"data_release":25}`)
	if rec.Code != 202 {
		t.Fatalf("submit = %d %+v", rec.Code, env)
	}
	id, _ := env.Data.(map[string]any)["id"].(string)
	if id == "" || rec.Header().Get("Location") != "/v1/runs/"+id {
		t.Fatalf("submit id %q location %q", id, rec.Header().Get("Location"))
	}
	f.runner.Wait()

	rec, env = call(t, f.h, "GET", "/v1/runs/"+id, "")
	run := env.Data.(map[string]any)
	if rec.Code != 200 || run["status"] != "succeeded" || len(run["files"].([]any)) != 1 {
		t.Fatalf("run = %d %+v", rec.Code, env)
	}

	rec = httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/files/"+ts+"/cal", nil))
	if rec.Code != 200 || rec.Header().Get("Content-Type") != "application/fits" {
		t.Fatalf("download = %d %v", rec.Code, rec.Header())
	}
	stored, err := f.blobs.ReadAll(context.Background(), blobstore.Key{Timestamp: ts, Type: product.Calibrated.FileType()})
	if err != nil || !bytes.Equal(rec.Body.Bytes(), stored) {
		t.Fatalf("downloaded bytes differ from the stored file (%v)", err)
	}
	reports, err := fits.Verify(rec.Body.Bytes())
	if err != nil || len(fits.Failed(reports)) != 0 {
		t.Fatalf("downloaded file fails verification: %v", err)
	}

	rec, env = call(t, f.h, "GET", "/v1/files/"+ts+"/cal/headers", "")
	dump := env.Data.(map[string]any)
	if rec.Code != 200 || dump["verified"] != true || len(dump["units"].([]any)) != 85 {
		t.Fatalf("headers = %d verified=%v", rec.Code, dump["verified"])
	}
	first := dump["units"].([]any)[0].(map[string]any)["cards"].([]any)[0].(map[string]any)
	if first["key"] != "SIMPLE" || first["value"] != true {
		t.Fatalf("first card = %v", first)
	}
}

func TestErrorsUseEnvelope(t *testing.T) {
	t.Parallel()
	f := setup(t)
	cases := []struct {
		name, method, path, body string
		status                   int
		code                     perr.ErrorCode
		field                    string
	}{
		{"bad timestamp", "POST", "/v1/runs", `{"timestamp":"soon","mission":"kepler","variants":["cal"]}`, 400, perr.ErrorCodeValidation, "timestamp"},
		{"unknown field", "POST", "/v1/runs", `{"timestamp":"2009114174833","when":"now"}`, 400, perr.ErrorCodeJSON, ""},
		{"unknown run", "GET", "/v1/runs/nope", "", 404, perr.ErrorCodeNotFound, "id"},
		{"not assembled", "GET", "/v1/files/2009114174833/uncert", "", 404, perr.ErrorCodeNotFound, ""},
		{"bad variant", "GET", "/v1/files/2009114174833/raw/headers", "", 422, perr.ErrorCodeInvalidArgument, "variant"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := call(t, f.h, tc.method, tc.path, tc.body)
			if rec.Code != tc.status || env.Code != tc.code || env.Field != tc.field {
				t.Fatalf("%s %s = %d %+v", tc.method, tc.path, rec.Code, env)
			}
		})
	}
}
