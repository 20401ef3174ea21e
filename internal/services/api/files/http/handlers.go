// Package http serves assembled files and their headers
package http

import (
	stdhttp "net/http"

	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/services/api/files/service"
)

// Register mounts the file routes
func Register(r phttp.Router, svc *service.Service) {
	h := &handlers{svc: svc}
	r.Get("/files/{timestamp}/{variant}", h.download)
	phttp.GetJSON(r, "/files/{timestamp}/{variant}/headers", h.headers)
}

type handlers struct{ svc *service.Service }

// download streams the FITS bytes; errors before the first byte use the JSON envelope
func (h *handlers) download(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ts, variant := phttp.Param(r, "timestamp"), phttp.Param(r, "variant")
	m, rc, err := h.svc.Open(r.Context(), ts, variant)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	defer func() { _ = rc.Close() }()
	w.Header().Set("Content-Disposition", `attachment; filename="`+ts+"-"+variant+`.fits"`)
	w.Header().Set("X-Blob-Digest", m.Digest)
	phttp.Stream(w, r, "application/fits", m.Size, rc)
}

func (h *handlers) headers(r *stdhttp.Request) phttp.Response {
	d, err := h.svc.Headers(r.Context(), phttp.Param(r, "timestamp"), phttp.Param(r, "variant"))
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.OK(d)
}
