// Package http serves the liveness, readiness and version endpoints
package http

import (
	"context"
	stdhttp "net/http"
	"sort"
	"time"

	"ffiassembler/internal/core/version"
	phttp "ffiassembler/internal/platform/net/http"
)

// Probe reports whether one dependency answers
type Probe interface {
	Ping(context.Context) error
}

// ProbeFunc adapts a func to Probe
type ProbeFunc func(context.Context) error

// Ping implements Probe
func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

// Deps are what the endpoints report on; nil probes are skipped
type Deps struct {
	Service   string
	StartedAt time.Time
	Probes    map[string]Probe
	Timeout   time.Duration
}

// Health is the /healthz body
type Health struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	UptimeSec int64  `json:"uptime_sec"`
}

// Check is one probe outcome: ok, fail or skipped
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Readiness is the /ready body; Ready is false when any probe failed
type Readiness struct {
	Ready  bool    `json:"ready"`
	Checks []Check `json:"checks"`
}

// Register mounts /healthz, /ready and /version
func Register(r phttp.Router, d Deps) {
	if d.Timeout <= 0 {
		d.Timeout = 2 * time.Second
	}
	phttp.GetJSON(r, "/healthz", func(*stdhttp.Request) phttp.Response {
		return phttp.OK(Health{
			Service:   d.Service,
			StartedAt: d.StartedAt.UTC().Format(time.RFC3339),
			UptimeSec: int64(time.Since(d.StartedAt).Seconds()),
		})
	})
	phttp.GetJSON(r, "/ready", func(req *stdhttp.Request) phttp.Response {
		rd := probe(req.Context(), d)
		status := stdhttp.StatusOK
		if !rd.Ready {
			status = stdhttp.StatusServiceUnavailable
		}
		return phttp.Response{Status: status, Body: rd}
	})
	phttp.GetJSON(r, "/version", func(*stdhttp.Request) phttp.Response { return phttp.OK(version.Info()) })
}

// probe runs every probe under one deadline, in name order
func probe(ctx context.Context, d Deps) Readiness {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	names := make([]string, 0, len(d.Probes))
	for name := range d.Probes {
		names = append(names, name)
	}
	sort.Strings(names)

	rd := Readiness{Ready: true, Checks: make([]Check, 0, len(names))}
	for _, name := range names {
		c := Check{Name: name, Status: "ok"}
		switch p := d.Probes[name]; {
		case p == nil:
			c.Status = "skipped"
		default:
			if err := p.Ping(ctx); err != nil {
				c.Status, c.Error = "fail", err.Error()
				rd.Ready = false
			}
		}
		rd.Checks = append(rd.Checks, c)
	}
	return rd
}
