// Package callback runs the local HTTP listener the identity provider posts its authorization
// result to.
package callback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// Authenticator completes a log on from the provider's callback parameters.
type Authenticator interface {
	HandleAuthentication(ctx context.Context, params url.Values) error
}

// Server receives one authorization result on path and hands it to the Authenticator.
type Server struct {
	path    string
	auth    Authenticator
	results chan error
	srv     *http.Server
}

// New creates a callback server for addr (host:port) and path.
func New(addr, path string, auth Authenticator) (*Server, error) {
	if auth == nil {
		return nil, fmt.Errorf("[callback.New] authenticator is required")
	}
	if path == "" || path[0] != '/' {
		return nil, fmt.Errorf("[callback.New] path must start with '/': %q", path)
	}

	s := &Server{
		path:    path,
		auth:    auth,
		results: make(chan error, 1),
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler routes the callback path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.path, ChainMiddleware(s.CallbackHandler(), LoggingMiddleware, RecoverMiddleware))
	return mux
}

// Start listens in the background. It returns once the listener is bound.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("[callback.Start] %w", err)
	}
	go func() {
		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("callback listener stopped")
		}
	}()
	log.Info().Str("addr", listener.Addr().String()).Msg("waiting for the identity provider callback")
	return nil
}

// Wait blocks until a callback has been handled, returning its outcome, or ctx is done.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case err := <-s.results:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("[callback.Shutdown] %w", err)
	}
	return nil
}

// CallbackHandler accepts both a form_post body and query parameters.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid callback", http.StatusBadRequest)
			s.report(err)
			return
		}

		err := s.auth.HandleAuthentication(r.Context(), r.Form)
		if err != nil {
			log.Err(err).Msg("authorization callback failed")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadRequest)
			_ = resultPage.Execute(w, resultData{Title: "Log on failed", Message: err.Error()})
			s.report(err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = resultPage.Execute(w, resultData{Title: "Logged on", Message: "You can close this window and return to the terminal."})
		s.report(nil)
	}
}

// report keeps the first outcome; later callbacks are not waited for.
func (s *Server) report(err error) {
	select {
	case s.results <- err:
	default:
	}
}

type resultData struct {
	Title   string
	Message string
}

var resultPage = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html><head><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Message}}</p></body></html>
`))
