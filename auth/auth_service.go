package auth

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-prayer-journal/auth/flowstate"
	"github.com/jrsteele09/go-prayer-journal/events"
	"github.com/jrsteele09/go-prayer-journal/identity"
	apperrors "github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/sessions"
	"github.com/jrsteele09/go-prayer-journal/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Redirect sends the user agent to url. Login and Logout hand their provider URL to it.
type Redirect func(url string)

// Authorizations older than this can no longer be completed.
const authFlowTimeout = 15 * time.Minute

// SessionChanged is published on the login event stream whenever the session is replaced or
// cleared.
type SessionChanged struct {
	LoggedIn bool
	Profile  map[string]any // Only set when LoggedIn
	State    any            // Custom state passed to Login, echoed back after the callback
}

// StateSink is told about log on and log off so it can update the authenticated user state.
type StateSink interface {
	UserLoggedOn(profile map[string]any)
	UserLoggedOff()
}

// Service owns the current session. It drives the provider's authorize, callback and
// renewal protocol, persists the session and announces every change.
//
// States: logged out (no valid identity token), logged in with a stale access token, and
// logged in with both tokens valid.
type Service struct {
	mu       sync.RWMutex
	session  *sessions.Session
	sink     StateSink
	store    sessions.Store
	provider identity.Provider
	flows    flowstate.Repo
	events   *events.Broker[SessionChanged]
	nowTime  func() time.Time
	newID    func() string
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithFlowRepo replaces the in-memory pending authorization repository.
func WithFlowRepo(repo flowstate.Repo) ServiceOption {
	return func(s *Service) {
		s.flows = repo
	}
}

// WithIDGenerator sets how state and nonce values are generated (primarily for testing)
func WithIDGenerator(newID func() string) ServiceOption {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates the service and restores the persisted session. A missing or unreadable
// record leaves the service logged out.
func NewService(ctx context.Context, store sessions.Store, provider identity.Provider, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if provider == nil {
		return nil, errors.New("[NewService] identity provider is required")
	}

	s := &Service{
		store:    store,
		provider: provider,
		flows:    flowstate.NewInMemoryRepo(),
		events:   events.NewBroker[SessionChanged](),
		nowTime:  time.Now,
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range options {
		opt(s)
	}

	s.refreshSession(ctx)
	return s, nil
}

// AttachStateSink connects the application store. It is attached after construction
// because the store's initial snapshot is read from the restored session.
func (s *Service) AttachStateSink(sink StateSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Subscribe attaches handler to the login event stream until the subscription is released.
func (s *Service) Subscribe(handler events.Handler[SessionChanged]) *events.Subscription {
	return s.events.Subscribe(handler)
}

// Login starts the provider's authorization flow. Nothing changes locally until the
// provider redirects back to HandleAuthentication.
func (s *Service) Login(customState any, redirect Redirect) error {
	s.flows.DeleteExpired(s.nowTime().Add(-authFlowTimeout))

	req := identity.AuthorizeRequest{State: s.newID(), Nonce: s.newID()}
	if err := s.flows.Upsert(req.State, &flowstate.AuthFlowState{
		Nonce:     req.Nonce,
		AppState:  customState,
		CreatedAt: s.nowTime(),
	}); err != nil {
		return errors.Wrap(err, "[Service.Login] failed to store authorization state")
	}

	redirect(s.provider.AuthorizeURL(req))
	return nil
}

// HandleAuthentication consumes the provider's one-time callback result. On success the new
// session is persisted, the state sink is told the user logged on, and a SessionChanged
// carrying the custom state from Login is published. On any failure nothing changes.
func (s *Service) HandleAuthentication(ctx context.Context, params url.Values) error {
	state := params.Get(identity.ParamState)
	var flow *flowstate.AuthFlowState
	if state != "" {
		flow, _ = s.flows.Get(state)
		_ = s.flows.Delete(state)
	}

	result, err := s.provider.ParseCallback(ctx, params)
	if err != nil {
		log.Err(err).Msg("Authentication callback rejected")
		return errors.Wrap(err, "[Service.HandleAuthentication] provider result")
	}
	if result == nil {
		return errors.Wrap(ErrInvalidAuthResult, "[Service.HandleAuthentication] empty result")
	}
	if flow == nil || s.nowTime().Sub(flow.CreatedAt) > authFlowTimeout {
		return errors.Wrapf(ErrStateMismatch, "[Service.HandleAuthentication] state %q", state)
	}
	if result.Nonce() != flow.Nonce {
		return errors.Wrap(ErrNonceMismatch, "[Service.HandleAuthentication]")
	}

	session, err := s.setSession(ctx, result, flow.AppState)
	if err != nil {
		return errors.Wrap(err, "[Service.HandleAuthentication]")
	}

	if sink := s.stateSink(); sink != nil {
		sink.UserLoggedOn(session.Clone().Profile)
	}
	return nil
}

// RenewTokens reloads the persisted session, which may have been changed by another process,
// and silently re-authenticates with the provider. It fails with ErrNotLoggedIn, without
// contacting the provider, when no identity token is present.
func (s *Service) RenewTokens(ctx context.Context) (*identity.AuthResult, error) {
	s.refreshSession(ctx)

	s.mu.RLock()
	hasIdentity := s.session.HasIdentity()
	s.mu.RUnlock()
	if !hasIdentity {
		return nil, ErrNotLoggedIn
	}

	req := identity.AuthorizeRequest{State: s.newID(), Nonce: s.newID()}
	result, err := s.provider.CheckSession(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.RenewTokens] session check")
	}
	if result == nil {
		return nil, errors.Wrap(ErrInvalidAuthResult, "[Service.RenewTokens] empty result")
	}
	if result.Nonce() != req.Nonce {
		return nil, errors.Wrap(ErrNonceMismatch, "[Service.RenewTokens]")
	}

	if _, err := s.setSession(ctx, result, nil); err != nil {
		return nil, errors.Wrap(err, "[Service.RenewTokens]")
	}
	return result, nil
}

// GetAccessToken returns the cached access token while it is valid, and otherwise renews.
func (s *Service) GetAccessToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.session.IsAccessTokenValid(s.nowTime()) {
		access := s.session.Access.Value
		s.mu.RUnlock()
		return access, nil
	}
	s.mu.RUnlock()

	result, err := s.RenewTokens(ctx)
	if err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// Logout clears the persisted and in-memory session, tells the state sink, sends the user
// agent to the provider's logout, and publishes a logged out SessionChanged.
func (s *Service) Logout(ctx context.Context, redirect Redirect) error {
	removeErr := s.clearPersistedSession(ctx)

	s.mu.Lock()
	s.session = sessions.Empty()
	sink := s.sink
	s.mu.Unlock()

	if sink != nil {
		sink.UserLoggedOff()
	}
	if redirect != nil {
		redirect(s.provider.LogoutURL())
	}
	s.events.Publish(SessionChanged{LoggedIn: false})

	if removeErr != nil {
		return errors.Wrap(removeErr, "[Service.Logout]")
	}
	return nil
}

// clearPersistedSession removes the record. When that fails the slot is overwritten with an
// empty session, so a later reload cannot bring the old tokens back.
func (s *Service) clearPersistedSession(ctx context.Context) error {
	removeErr := s.store.Remove(ctx)
	if removeErr == nil {
		return nil
	}
	log.Err(removeErr).Msg("Logout: failed to remove persisted session")

	if err := s.store.Save(ctx, sessions.Empty()); err != nil {
		log.Err(err).Msg("Logout: failed to overwrite persisted session")
		return removeErr
	}
	return nil
}

// IsAuthenticated reports whether the identity token is currently valid.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated(s.nowTime())
}

// IsAccessTokenValid reports whether the access token is currently valid.
func (s *Service) IsAccessTokenValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAccessTokenValid(s.nowTime())
}

// Session returns a copy of the current session.
func (s *Service) Session() *sessions.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Profile returns a copy of the current profile claims.
func (s *Service) Profile() map[string]any {
	return s.Session().Profile
}

func (s *Service) setSession(ctx context.Context, result *identity.AuthResult, appState any) (*sessions.Session, error) {
	exp, err := identity.ExpiryClaim(result.IDTokenPayload)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidAuthResult, err.Error())
	}

	session := &sessions.Session{
		ID:      token.FromEpochSeconds(result.IDToken, exp),
		Access:  token.FromExpiresIn(result.AccessToken, result.ExpiresIn, s.nowTime()),
		Profile: result.IDTokenPayload,
	}
	if session.Profile == nil {
		session.Profile = map[string]any{}
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, errors.Wrap(err, "persist session")
	}

	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	if appState == nil {
		appState = map[string]any{}
	}
	s.events.Publish(SessionChanged{
		LoggedIn: true,
		Profile:  session.Clone().Profile,
		State:    appState,
	})
	return session, nil
}

func (s *Service) refreshSession(ctx context.Context) {
	loaded, err := s.store.Load(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrNoSession) {
			log.Warn().Err(err).Msg("Discarding unreadable persisted session")
		}
		loaded = sessions.Empty()
	}

	s.mu.Lock()
	s.session = loaded
	s.mu.Unlock()
}

func (s *Service) stateSink() StateSink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sink
}
