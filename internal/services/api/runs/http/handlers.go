// Package http provides the run submission endpoints
package http

import (
	stdhttp "net/http"

	phttp "ffiassembler/internal/platform/net/http"
	"ffiassembler/internal/services/pipeline/domain"
)

// Register mounts the run routes
func Register(r phttp.Router, runner domain.RunnerPort) {
	h := &handlers{runner: runner}
	phttp.PostJSON(r, "/runs", h.submit)
	phttp.GetJSON(r, "/runs/{id}", h.get)
}

type handlers struct{ runner domain.RunnerPort }

// submit records a run and answers before it executes
func (h *handlers) submit(r *stdhttp.Request, in domain.Request) phttp.Response {
	run, err := h.runner.Submit(r.Context(), in)
	if err != nil {
		return phttp.Error(err)
	}
	resp := phttp.Accepted(run)
	resp.Header = stdhttp.Header{"Location": {"/v1/runs/" + run.ID}}
	return resp
}

func (h *handlers) get(r *stdhttp.Request) phttp.Response {
	run, err := h.runner.Get(r.Context(), phttp.Param(r, "id"))
	if err != nil {
		return phttp.Error(err)
	}
	return phttp.OK(run)
}
