package profiler

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/pitabwire/util"

	"github.com/pitabwire/messageformat/config"
)

const (
	// DefaultShutdownTimeout is the timeout for graceful shutdown of the pprof server.
	DefaultShutdownTimeout = 5 * time.Second
	// DefaultReadHeaderTimeout bounds header reads on the pprof listener.
	DefaultReadHeaderTimeout = 5 * time.Second
)

// Handler serves the pprof endpoints under /debug/pprof/.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

// Server manages the pprof server lifecycle.
type Server struct {
	server *http.Server
	addr   net.Addr
}

// NewServer creates a new profiler server instance.
func NewServer() *Server {
	return &Server{}
}

// StartIfEnabled listens on the configured profiler address when profiling
// is enabled. The listener is bound before returning so address errors
// surface to the caller.
func (s *Server) StartIfEnabled(ctx context.Context, cfg config.ConfigurationProfiler) error {
	if cfg == nil || !cfg.ProfilerEnabled() {
		return nil
	}

	log := util.Log(ctx).WithField("port", cfg.ProfilerPort())

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", cfg.ProfilerPort())
	if err != nil {
		return err
	}

	s.addr = listener.Addr()
	s.server = &http.Server{
		Handler:           Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}

	log.Info("starting pprof server")
	srv := s.server
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.WithError(serveErr).Error("pprof server failed")
		}
	}()

	return nil
}

// Addr returns the bound address, or nil when the server is not running.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Stop gracefully shuts down the pprof server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		util.Log(ctx).WithError(err).Error("failed to shutdown pprof server")
		return err
	}

	s.server = nil
	s.addr = nil
	return nil
}

// IsRunning returns true if the profiler server is currently running.
func (s *Server) IsRunning() bool {
	return s.server != nil
}
