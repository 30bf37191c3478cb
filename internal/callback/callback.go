// Package callback serves the auth-callback route on a loopback listener.
// A single-sign-on flow in the browser ends by redirecting to
// /auth/success?token=...; the handler hands the token to the session and
// reports the outcome to whoever waits on the Server.
package callback

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/atinyakov/GophCards/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SuccessPath is the auth-callback route.
const SuccessPath = "/auth/success"

// ErrNoToken is reported when the callback carries no token.
var ErrNoToken = errors.New("authentication failed: no token received")

// TokenAcceptor adopts a token received on the callback.
type TokenAcceptor interface {
	AcceptToken(ctx context.Context, token string) error
}

// Handler handles the callback request.
type Handler struct {
	// Acceptor persists the token and loads the profile.
	Acceptor TokenAcceptor
	// Results receives the outcome of every callback; sends never block.
	Results chan error
	log     *zap.Logger
}

// Success handles GET /auth/success?token=.
func (h *Handler) Success(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.report(ErrNoToken)
		http.Error(w, "Authentication failed. No token received.", http.StatusBadRequest)
		return
	}
	if err := h.Acceptor.AcceptToken(r.Context(), token); err != nil {
		h.log.Warn("callback token rejected", zap.Error(err))
		h.report(fmt.Errorf("authentication failed: %w", err))
		http.Error(w, "Authentication failed. Please try again.", http.StatusUnauthorized)
		return
	}
	h.report(nil)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Authentication successful! You can return to the terminal.\n"))
}

func (h *Handler) report(err error) {
	select {
	case h.Results <- err:
	default:
	}
}

// NewRouter builds the callback router.
//
// Middleware chain (applied in order):
//  1. RequestID          - tags each request for the log
//  2. Recoverer          - turns handler panics into 500s
//  3. WithRequestLogging - logs requests without their query string
//  4. LoopbackOnly       - refuses non-local peers
func NewRouter(h *Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.LoopbackOnly)

	r.Get(SuccessPath, h.Success)
	return r
}

// Server is a running callback listener.
type Server struct {
	handler *Handler
	srv     *http.Server
	ln      net.Listener
	log     *zap.Logger
	once    sync.Once
}

// Listen starts serving the callback route on addr.
func Listen(addr string, acceptor TokenAcceptor, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	h := &Handler{Acceptor: acceptor, Results: make(chan error, 1), log: logger}
	s := &Server{
		handler: h,
		ln:      ln,
		log:     logger,
		srv: &http.Server{
			Handler:           NewRouter(h, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("callback listener stopped", zap.Error(err))
		}
	}()
	logger.Info("callback listener started", zap.String("addr", ln.Addr().String()))
	return s, nil
}

// URL is the absolute callback URL to hand to the identity provider.
func (s *Server) URL() string {
	return "http://" + s.ln.Addr().String() + SuccessPath
}

// Wait blocks until a callback arrives or ctx is done and returns the
// callback's outcome.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case err := <-s.handler.Results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the listener. It is safe to call more than once.
func (s *Server) Close(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		err = s.srv.Shutdown(ctx)
	})
	return err
}
