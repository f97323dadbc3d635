package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/IsnuMdr/todo-app/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const CallbackPath = "/oauth/callback"

// CallbackHandler is implemented by GoogleProvider.
type CallbackHandler interface {
	HandleCallback(ctx context.Context, state, code string) (*Session, string, error)
}

// NewRouter routes the OAuth callback and, when metrics is non-nil,
// GET /metrics.
func NewRouter(cb CallbackHandler, metrics http.Handler, log logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(CallbackPath, func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if e := q.Get("error"); e != "" {
			log.Warn(req.Context(), "oauth provider returned error", "error", e)
			http.Error(w, "sign-in was cancelled: "+e, http.StatusBadRequest)
			return
		}

		s, target, err := cb.HandleCallback(req.Context(), q.Get("state"), q.Get("code"))
		if errors.Is(err, ErrInvalidState) {
			http.Error(w, "invalid state parameter", http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Error(req.Context(), "oauth callback failed", "err", err)
			http.Error(w, "authentication failed", http.StatusBadGateway)
			return
		}

		if target != "" {
			http.Redirect(w, req, target, http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Signed in as %s. You can close this window.\n", s.Email)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

// Server is the loopback HTTP server receiving OAuth callbacks. The
// listener is bound first so the callback URL is known before the provider
// and router are built.
type Server struct {
	ln net.Listener

	mu  sync.Mutex
	srv *http.Server
}

// Listen binds addr. Use Addr to learn the chosen port when addr ends in ":0".
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Server{ln: ln}, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

// CallbackURL is the redirect URL to register with the provider.
func (s *Server) CallbackURL() string {
	return "http://" + s.Addr() + CallbackPath
}

// Serve handles requests with h until Shutdown.
func (s *Server) Serve(h http.Handler) error {
	s.mu.Lock()
	s.srv = &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	srv := s.srv
	s.mu.Unlock()

	if err := srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return s.ln.Close()
	}
	return srv.Shutdown(ctx)
}
