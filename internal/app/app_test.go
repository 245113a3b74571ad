package app_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-prayer-journal/auth"
	"github.com/jrsteele09/go-prayer-journal/identity"
	"github.com/jrsteele09/go-prayer-journal/identity/providerfake"
	"github.com/jrsteele09/go-prayer-journal/internal/app"
	"github.com/jrsteele09/go-prayer-journal/internal/config"
	apperrors "github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/jrsteele09/go-prayer-journal/journal"
	"github.com/jrsteele09/go-prayer-journal/sessions"
	fakesessionstore "github.com/jrsteele09/go-prayer-journal/sessions/repofakes"
	"github.com/jrsteele09/go-prayer-journal/sessions/sqlitestore"
	"github.com/jrsteele09/go-prayer-journal/token"
	"github.com/stretchr/testify/require"
)

// journalServer is a minimal journal API.
type journalServer struct {
	mu       sync.Mutex
	requests []journal.Request
	auth     []string
}

func (s *journalServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/journal/":
		_ = json.NewEncoder(w).Encode(s.requests)
	case r.Method == http.MethodPost && r.URL.Path == "/api/request/":
		var body struct {
			RequestText string `json:"requestText"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		req := journal.Request{RequestID: "srv-1", Text: body.RequestText, LastStatus: journal.StatusCreated}
		s.requests = append(s.requests, req)
		_ = json.NewEncoder(w).Encode(req)
	default:
		http.NotFound(w, r)
	}
}

type testFixture struct {
	now      time.Time
	sessions *fakesessionstore.FakeSessionStore
	provider *providerfake.FakeProvider
	api      *journalServer
	app      *app.App
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		now:      time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC),
		sessions: fakesessionstore.NewFakeSessionStore(),
		provider: providerfake.NewFakeProvider(),
		api:      &journalServer{requests: []journal.Request{{RequestID: "old", Text: "existing"}}},
	}
	srv := httptest.NewServer(f.api)
	t.Cleanup(srv.Close)
	t.Setenv("API_BASE_URL", srv.URL+"/api/")
	t.Setenv("SESSION_STORE", "memory")

	f.app = f.newApp(t)
	return f
}

func (f *testFixture) newApp(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), config.New(),
		app.WithSessionStore(f.sessions),
		app.WithProvider(f.provider),
		app.WithAuthOptions(auth.WithNowTime(func() time.Time { return f.now })),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.app.Auth.Login(nil, func(string) {}))
	authReq := f.provider.Authorizations[len(f.provider.Authorizations)-1]
	f.provider.CallbackResult = &identity.AuthResult{
		AccessToken: "access-1",
		IDToken:     "id-1",
		ExpiresIn:   3600,
		IDTokenPayload: map[string]any{
			"sub":   "auth0|1",
			"exp":   float64(f.now.Add(10 * time.Hour).Unix()),
			"nonce": authReq.Nonce,
		},
	}
	require.NoError(t, f.app.Auth.HandleAuthentication(context.Background(), url.Values{"state": {authReq.State}}))
}

func TestNew_RestoredSessionSeedsState(t *testing.T) {
	f := setupTestFixture(t)
	require.False(t, f.app.Store.State().IsAuthenticated)

	require.NoError(t, f.sessions.Save(context.Background(), &sessions.Session{
		ID:      token.New("id", f.now.Add(time.Hour)),
		Access:  token.New("access", f.now.Add(time.Minute)),
		Profile: map[string]any{"sub": "auth0|1"},
	}))

	restarted := f.newApp(t)
	state := restarted.Store.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, "auth0|1", state.User["sub"])
}

func TestEndToEnd(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.login(t)
	state := f.app.Store.State()
	require.True(t, state.IsAuthenticated)
	require.Equal(t, "auth0|1", state.User["sub"])

	require.NoError(t, f.app.Store.LoadJournal(ctx, nil))
	require.Len(t, f.app.Store.State().Journal, 1)

	added, err := f.app.Store.AddRequest(ctx, nil, "Pray for X", journal.RecurImmediate, 0)
	require.NoError(t, err)
	require.Equal(t, "srv-1", added.RequestID)
	jrnl := f.app.Store.State().Journal
	require.Len(t, jrnl, 2)
	require.Equal(t, "old", jrnl[0].RequestID)
	require.Equal(t, "srv-1", jrnl[1].RequestID)
	require.Equal(t, "Bearer access-1", f.api.auth[len(f.api.auth)-1])

	require.NoError(t, f.app.Auth.Logout(ctx, func(string) {}))
	state = f.app.Store.State()
	require.False(t, state.IsAuthenticated)
	require.Empty(t, state.User)
	require.Equal(t, "", f.app.API.Bearer())
	_, ok := f.sessions.Raw()
	require.False(t, ok)

	_, err = f.app.Auth.GetAccessToken(ctx)
	require.ErrorIs(t, err, apperrors.ErrNotLoggedIn)
	require.Empty(t, f.provider.Checks)
}

func TestOpenSessionStore(t *testing.T) {
	t.Setenv("SESSION_PASSPHRASE", "")

	t.Run("file", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "file")
		t.Setenv("SESSION_PATH", filepath.Join(t.TempDir(), "session.json"))
		s, closer, err := app.OpenSessionStore(context.Background(), config.New())
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Nil(t, closer)
	})

	t.Run("sqlite", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "sqlite")
		t.Setenv("SESSION_PATH", filepath.Join(t.TempDir(), "session.db"))
		s, closer, err := app.OpenSessionStore(context.Background(), config.New())
		require.NoError(t, err)
		require.IsType(t, &sqlitestore.Store{}, s)
		require.NoError(t, closer.Close())
	})

	t.Run("memory", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "memory")
		s, _, err := app.OpenSessionStore(context.Background(), config.New())
		require.NoError(t, err)
		require.IsType(t, &fakesessionstore.FakeSessionStore{}, s)
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "redis")
		_, _, err := app.OpenSessionStore(context.Background(), config.New())
		require.Error(t, err)
	})
}

func TestIdentityConfig(t *testing.T) {
	t.Setenv("AUTH_DOMAIN", "tenant.auth0.com")
	t.Setenv("AUTH_CLIENT_ID", "client-1")
	t.Setenv("APP_DOMAIN", "http://localhost:9999")
	t.Setenv("AUTH_CALLBACK_URL", "")
	t.Setenv("AUTH_AUDIENCE", "")

	cfg := app.IdentityConfig(config.New())
	require.Equal(t, "tenant.auth0.com", cfg.Domain)
	require.Equal(t, "client-1", cfg.ClientID)
	require.Equal(t, "http://localhost:9999/user/log-on", cfg.RedirectURL)
	require.Equal(t, "https://tenant.auth0.com/userinfo", cfg.Audience)
	require.Equal(t, "http://localhost:9999/", cfg.ReturnTo)
}
