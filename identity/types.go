// Package identity is the boundary to the hosted identity provider: building the
// authorization redirect, decoding the result handed back to the callback, silently
// re-checking an existing provider session, and building the logout redirect.
package identity

import (
	"context"
	"fmt"
	"net/url"
)

// Parameter names of the implicit-flow result, as they appear in the callback.
const (
	ParamAccessToken      = "access_token"
	ParamIDToken          = "id_token"
	ParamExpiresIn        = "expires_in"
	ParamState            = "state"
	ParamError            = "error"
	ParamErrorDescription = "error_description"
)

const (
	// ResponseTypeTokenIDToken requests an access token and an identity token directly.
	ResponseTypeTokenIDToken = "token id_token"
	// ResponseModeFormPost asks the provider to POST the result to the redirect URI.
	ResponseModeFormPost = "form_post"
)

// DefaultScopes are requested on every authorization.
var DefaultScopes = []string{"openid", "profile", "email"}

// AuthorizeRequest carries the per-request values echoed back by the provider.
type AuthorizeRequest struct {
	State string
	Nonce string
}

// AuthResult is a successful authorization or renewal.
type AuthResult struct {
	AccessToken    string         // Bearer credential for the journal API
	IDToken        string         // Raw identity token
	ExpiresIn      int64          // Access token lifetime in seconds
	IDTokenPayload map[string]any // Decoded identity token claims, including `exp`
	State          string         // State echoed back by the provider
}

// Nonce returns the `nonce` claim of the identity token, if any.
func (r *AuthResult) Nonce() string {
	if r == nil {
		return ""
	}
	n, _ := r.IDTokenPayload["nonce"].(string)
	return n
}

// ProviderError is an OAuth2 error response from the identity provider.
type ProviderError struct {
	Code        string // e.g. "login_required", "access_denied"
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("identity provider error: %s", e.Code)
	}
	return fmt.Sprintf("identity provider error: %s: %s", e.Code, e.Description)
}

// Provider is the identity provider protocol used by the auth service.
type Provider interface {
	// AuthorizeURL returns where the user agent must be sent to log in.
	AuthorizeURL(req AuthorizeRequest) string

	// ParseCallback decodes the result delivered to the redirect URI.
	ParseCallback(ctx context.Context, params url.Values) (*AuthResult, error)

	// CheckSession silently re-authenticates against the provider's existing session.
	CheckSession(ctx context.Context, req AuthorizeRequest) (*AuthResult, error)

	// LogoutURL returns where the user agent must be sent to end the provider session.
	LogoutURL() string
}
