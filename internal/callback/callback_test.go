package callback_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-prayer-journal/internal/callback"
	"github.com/stretchr/testify/require"
)

type fakeAuthenticator struct {
	params url.Values
	err    error
	panics bool
}

func (a *fakeAuthenticator) HandleAuthentication(ctx context.Context, params url.Values) error {
	if a.panics {
		panic("boom")
	}
	a.params = params
	return a.err
}

type testFixture struct {
	auth   *fakeAuthenticator
	server *callback.Server
	http   *httptest.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	auth := &fakeAuthenticator{}
	s, err := callback.New("127.0.0.1:0", "/user/log-on", auth)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &testFixture{auth: auth, server: s, http: ts}
}

func TestNew(t *testing.T) {
	_, err := callback.New("127.0.0.1:0", "/cb", nil)
	require.Error(t, err)

	_, err = callback.New("127.0.0.1:0", "cb", &fakeAuthenticator{})
	require.Error(t, err)
}

func TestCallbackHandler_FormPost(t *testing.T) {
	f := setupTestFixture(t)

	form := url.Values{"access_token": {"a"}, "id_token": {"i"}, "state": {"s"}, "expires_in": {"3600"}}
	resp, err := http.PostForm(f.http.URL+"/user/log-on", form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Logged on")
	require.Equal(t, "a", f.auth.params.Get("access_token"))
	require.Equal(t, "s", f.auth.params.Get("state"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.server.Wait(ctx))
}

func TestCallbackHandler_Query(t *testing.T) {
	f := setupTestFixture(t)

	resp, err := http.Get(f.http.URL + "/user/log-on?state=s&error=login_required")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "login_required", f.auth.params.Get("error"))
}

func TestCallbackHandler_Failure(t *testing.T) {
	f := setupTestFixture(t)
	f.auth.err = errors.New("state mismatch <script>")

	resp, err := http.PostForm(f.http.URL+"/user/log-on", url.Values{"state": {"x"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(body), "Log on failed")
	require.NotContains(t, string(body), "<script>")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.EqualError(t, f.server.Wait(ctx), "state mismatch <script>")
}

func TestCallbackHandler_MethodAndPanic(t *testing.T) {
	f := setupTestFixture(t)

	req, err := http.NewRequest(http.MethodPut, f.http.URL+"/user/log-on", strings.NewReader(""))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	f.auth.panics = true
	resp, err = http.PostForm(f.http.URL+"/user/log-on", url.Values{})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestWait_ContextDone(t *testing.T) {
	f := setupTestFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, f.server.Wait(ctx), context.Canceled)
}

func TestStartAndShutdown(t *testing.T) {
	auth := &fakeAuthenticator{}
	s, err := callback.New("127.0.0.1:0", "/user/log-on", auth)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
