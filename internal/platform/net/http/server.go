package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"ffiassembler/internal/platform/config"
	"ffiassembler/internal/platform/logger"
)

// ServerConfig holds the listener settings under FFI_API_
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// ServerConfigFrom reads PORT (default 4000), READ_TIMEOUT and SHUTDOWN_TIMEOUT
func ServerConfigFrom(cfg config.Conf) ServerConfig {
	api := cfg.Prefix("FFI_API_")
	return ServerConfig{
		Addr:            api.MayPort("PORT", 4000),
		ReadTimeout:     api.MayDuration("READ_TIMEOUT", 30*time.Second),
		ShutdownTimeout: api.MayDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Server owns the chi mux and the listener in front of it
type Server struct {
	cfg  ServerConfig
	mux  *chi.Mux
	http *stdhttp.Server
}

// NewServer builds the mux and lets each setup func mount onto it
func NewServer(cfg ServerConfig, setup ...func(*chi.Mux)) *Server {
	mux := chi.NewRouter()
	for _, fn := range setup {
		fn(mux)
	}
	return &Server{cfg: cfg, mux: mux, http: &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
	}}
}

// Router is the module-facing view of the mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler is the mux itself
func (s *Server) Handler() stdhttp.Handler { return s.mux }

// Addr is the configured listen address
func (s *Server) Addr() string { return s.cfg.Addr }

// Run listens until ctx ends, then gives in-flight requests ShutdownTimeout
// to finish; a clean shutdown returns nil
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", s.cfg.Addr).Msg("listening")
		if err := s.http.ListenAndServe(); !errors.Is(err, stdhttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		drain, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Dur("grace", s.cfg.ShutdownTimeout).Msg("draining")
		return s.http.Shutdown(drain)
	})
	return g.Wait()
}
