// Package app builds the process-wide context: the session store, the identity provider, the
// auth service, the API gateway and the application store, in that order.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/go-prayer-journal/api"
	"github.com/jrsteele09/go-prayer-journal/auth"
	"github.com/jrsteele09/go-prayer-journal/identity"
	"github.com/jrsteele09/go-prayer-journal/internal/config"
	"github.com/jrsteele09/go-prayer-journal/sessions"
	"github.com/jrsteele09/go-prayer-journal/sessions/filestore"
	fakesessionstore "github.com/jrsteele09/go-prayer-journal/sessions/repofakes"
	"github.com/jrsteele09/go-prayer-journal/sessions/sqlitestore"
	"github.com/jrsteele09/go-prayer-journal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var _ store.Gateway = (*api.Client)(nil)
var _ store.Authenticator = (*auth.Service)(nil)
var _ auth.StateSink = (*store.Store)(nil)

// App holds the constructed components.
type App struct {
	Config   config.Config
	Sessions sessions.Store
	Provider identity.Provider
	Auth     *auth.Service
	API      *api.Client
	Store    *store.Store
	Metrics  *prometheus.Registry

	closers []io.Closer
}

type options struct {
	sessions    sessions.Store
	provider    identity.Provider
	httpClient  *http.Client
	authOptions []auth.ServiceOption
}

// Option overrides a component New would otherwise build from configuration.
type Option func(*options)

// WithSessionStore uses store instead of the configured one.
func WithSessionStore(store sessions.Store) Option {
	return func(o *options) {
		o.sessions = store
	}
}

// WithProvider skips provider discovery.
func WithProvider(provider identity.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithHTTPClient is used for the journal API.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithAuthOptions passes options through to the auth service.
func WithAuthOptions(opts ...auth.ServiceOption) Option {
	return func(o *options) {
		o.authOptions = append(o.authOptions, opts...)
	}
}

// New builds the application. The session is restored by the auth service before the store
// reads its initial state from it.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, Metrics: prometheus.NewRegistry()}

	a.Sessions = o.sessions
	if a.Sessions == nil {
		s, closer, err := OpenSessionStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("[app.New] %w", err)
		}
		a.Sessions = s
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	a.Provider = o.provider
	if a.Provider == nil {
		p, err := identity.Discover(ctx, IdentityConfig(cfg))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("[app.New] identity provider: %w", err)
		}
		a.Provider = p
	}

	authService, err := auth.NewService(ctx, a.Sessions, a.Provider, o.authOptions...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app.New] %w", err)
	}
	a.Auth = authService

	apiOptions := []api.Option{api.WithMetrics(api.NewMetrics(a.Metrics))}
	if o.httpClient != nil {
		apiOptions = append(apiOptions, api.WithHTTPClient(o.httpClient))
	}
	a.API, err = api.New(cfg.GetAPIBaseURL(), apiOptions...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app.New] %w", err)
	}

	a.Store, err = store.New(a.Auth, a.API)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("[app.New] %w", err)
	}
	a.Auth.AttachStateSink(a.Store)

	log.Debug().
		Bool("authenticated", a.Auth.IsAuthenticated()).
		Str("sessionStore", cfg.GetSessionStore()).
		Msg("application ready")
	return a, nil
}

// Close releases the session store.
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}

// OpenSessionStore opens the configured session store. The closer is nil when there is
// nothing to release.
func OpenSessionStore(ctx context.Context, cfg config.StorageConfig) (sessions.Store, io.Closer, error) {
	switch kind := cfg.GetSessionStore(); kind {
	case config.StoreFile:
		var opts []filestore.Option
		if passphrase := cfg.GetSessionPassphrase(); passphrase != "" {
			opts = append(opts, filestore.WithPassphrase(passphrase))
		}
		s, err := filestore.New(cfg.GetSessionPath(), opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.StoreSQLite:
		s, err := sqlitestore.Open(ctx, cfg.GetSessionPath())
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case config.StoreMemory:
		return fakesessionstore.NewFakeSessionStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", kind)
	}
}

// IdentityConfig maps configuration onto the provider registration.
func IdentityConfig(cfg config.IdentityConfig) identity.Config {
	return identity.Config{
		Domain:      cfg.GetAuthDomain(),
		ClientID:    cfg.GetAuthClientID(),
		RedirectURL: cfg.GetRedirectURL(),
		Audience:    cfg.GetAudience(),
		ReturnTo:    cfg.GetAppDomain() + "/",
	}
}
