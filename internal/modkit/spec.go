package modkit

import (
	"net/http"

	phttp "ffiassembler/internal/platform/net/http"
	pstrings "ffiassembler/internal/platform/strings"
)

// Spec describes how a module mounts: its name, path prefix, scoped
// middleware, exported ports and the routes it registers
type Spec struct {
	Name       string
	Prefix     string
	Middleware []func(http.Handler) http.Handler
	Ports      any
	Register   func(phttp.Router)
}

// Option edits a Spec under construction
type Option func(*Spec)

// WithName names the module in logs and the registry
func WithName(name string) Option {
	return func(s *Spec) { s.Name = pstrings.MustString(name, "module name") }
}

// WithPrefix mounts the module under prefix, normalized to "/name"
func WithPrefix(prefix string) Option {
	return func(s *Spec) { s.Prefix = pstrings.MustPrefix(prefix) }
}

// WithMiddlewares appends middleware that wraps only this module's routes
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(s *Spec) { s.Middleware = append(s.Middleware, mw...) }
}

// WithPorts sets the value other modules look up through the registry
func WithPorts[T any](p T) Option {
	return func(s *Spec) { s.Ports = p }
}

// WithRegister sets the route registration func
func WithRegister(fn func(phttp.Router)) Option {
	return func(s *Spec) { s.Register = fn }
}

// Build applies opts in order; later options win
func Build(opts ...Option) Spec {
	s := Spec{Register: func(phttp.Router) {}}
	for _, o := range opts {
		o(&s)
	}
	s.Middleware = append([]func(http.Handler) http.Handler(nil), s.Middleware...)
	return s
}

// Mount registers the module on r, inside a group when there is no prefix
func (s Spec) Mount(r phttp.Router) {
	attach := func(sub phttp.Router) {
		if len(s.Middleware) > 0 {
			sub.Use(s.Middleware...)
		}
		s.Register(sub)
	}
	if s.Prefix == "" {
		r.Group(attach)
		return
	}
	r.Route(s.Prefix, attach)
}
