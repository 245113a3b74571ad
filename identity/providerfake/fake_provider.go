package providerfake

import (
	"context"
	"net/url"
	"sync"

	"github.com/jrsteele09/go-prayer-journal/identity"
)

var _ identity.Provider = (*FakeProvider)(nil)

// FakeProvider answers callbacks and session checks with canned results and records every
// request it receives.
type FakeProvider struct {
	lock sync.Mutex

	CallbackResult *identity.AuthResult
	CallbackErr    error
	CheckResult    *identity.AuthResult
	CheckErr       error

	Authorizations []identity.AuthorizeRequest
	Checks         []identity.AuthorizeRequest
	Callbacks      []url.Values
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (fp *FakeProvider) AuthorizeURL(req identity.AuthorizeRequest) string {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.Authorizations = append(fp.Authorizations, req)
	return "https://idp.example.com/authorize?" + url.Values{"state": {req.State}, "nonce": {req.Nonce}}.Encode()
}

func (fp *FakeProvider) ParseCallback(_ context.Context, params url.Values) (*identity.AuthResult, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.Callbacks = append(fp.Callbacks, params)
	if fp.CallbackErr != nil {
		return nil, fp.CallbackErr
	}
	return withState(fp.CallbackResult, params.Get(identity.ParamState)), nil
}

func (fp *FakeProvider) CheckSession(_ context.Context, req identity.AuthorizeRequest) (*identity.AuthResult, error) {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	fp.Checks = append(fp.Checks, req)
	if fp.CheckErr != nil {
		return nil, fp.CheckErr
	}
	result := withState(fp.CheckResult, req.State)
	if result != nil {
		result.IDTokenPayload["nonce"] = req.Nonce
	}
	return result, nil
}

func (fp *FakeProvider) LogoutURL() string {
	return "https://idp.example.com/v2/logout"
}

// CheckCount returns how many silent session checks were made.
func (fp *FakeProvider) CheckCount() int {
	fp.lock.Lock()
	defer fp.lock.Unlock()
	return len(fp.Checks)
}

func withState(result *identity.AuthResult, state string) *identity.AuthResult {
	if result == nil {
		return nil
	}
	c := *result
	c.State = state
	c.IDTokenPayload = make(map[string]any, len(result.IDTokenPayload))
	for k, v := range result.IDTokenPayload {
		c.IDTokenPayload[k] = v
	}
	return &c
}
