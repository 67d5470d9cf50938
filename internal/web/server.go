// Package web serves the single-page chat UI and its small JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/jmylchreest/geminichat/internal/chat"
	"github.com/jmylchreest/geminichat/internal/logger"
)

// ShutdownTimeout bounds the drain of in-flight requests on shutdown.
const ShutdownTimeout = 5 * time.Second

// Options configures the server.
type Options struct {
	Addr           string
	RateLimit      float64 // requests per second across all clients, 0 = unlimited
	RateBurst      int
	MaxBodyBytes   int64 // 0 = unlimited
	AllowedOrigins []string
}

// Server wires a chat session to HTTP.
type Server struct {
	session *chat.Session
	opts    Options
	limiter *rate.Limiter
}

// New creates a server for session.
func New(session *chat.Session, opts Options) *Server {
	s := &Server{session: session, opts: opts}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /{$}", s.handleSubmit)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/prompts", s.handlePrompts)
	mux.HandleFunc("GET /healthz", handleHealth)

	var h http.Handler = mux
	h = limitBody(h, s.opts.MaxBodyBytes)
	h = rateLimit(h, s.limiter)
	h = withCORS(h, s.opts.AllowedOrigins)
	h = logRequests(h)
	return h
}

// Run serves until ctx is cancelled, then drains for up to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("web server listening",
		"addr", ln.Addr().String(),
		"provider", s.session.Provider().Name(),
		"model", s.session.Provider().Model(),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("web server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
