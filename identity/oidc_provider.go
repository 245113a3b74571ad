package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-prayer-journal/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var _ Provider = (*OIDCProvider)(nil)

// Config describes the application registration at the identity provider.
type Config struct {
	Domain       string   // Provider domain, e.g. "tenant.auth0.com", or a full issuer URL
	ClientID     string   // Application client id
	RedirectURL  string   // Where the provider delivers the authorization result
	Audience     string   // API audience requested for the access token
	ReturnTo     string   // Where the provider sends the user after logout
	Scopes       []string // Defaults to DefaultScopes
	ResponseMode string   // Defaults to form_post
}

// IssuerURL returns the issuer for the configured domain.
func (c Config) IssuerURL() string {
	if strings.Contains(c.Domain, "://") {
		return strings.TrimSuffix(c.Domain, "/") + "/"
	}
	return "https://" + c.Domain + "/"
}

// OIDCProvider talks to an OpenID Connect provider using the implicit `token id_token` flow.
type OIDCProvider struct {
	cfg        Config
	oauth      *oauth2.Config
	verifier   *oidc.IDTokenVerifier
	endSession string
	httpClient *http.Client
}

// Option configures an OIDCProvider.
type Option func(*OIDCProvider)

// WithVerifier verifies identity token signatures and standard claims.
func WithVerifier(verifier *oidc.IDTokenVerifier) Option {
	return func(p *OIDCProvider) {
		p.verifier = verifier
	}
}

// WithHTTPClient sets the client used for silent session checks. The client should carry
// the cookie jar holding the provider's session.
func WithHTTPClient(client *http.Client) Option {
	return func(p *OIDCProvider) {
		p.httpClient = client
	}
}

// WithEndSessionEndpoint overrides the logout endpoint.
func WithEndSessionEndpoint(endpoint string) Option {
	return func(p *OIDCProvider) {
		p.endSession = endpoint
	}
}

// NewOIDCProvider builds a provider from a known endpoint without discovery.
func NewOIDCProvider(cfg Config, endpoint oauth2.Endpoint, options ...Option) (*OIDCProvider, error) {
	if cfg.Domain == "" {
		return nil, errors.New("[NewOIDCProvider] domain is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("[NewOIDCProvider] client id is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("[NewOIDCProvider] redirect URL is required")
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = DefaultScopes
	}
	if cfg.ResponseMode == "" {
		cfg.ResponseMode = ResponseModeFormPost
	}
	if cfg.Audience == "" {
		cfg.Audience = cfg.IssuerURL() + "userinfo"
	}

	p := &OIDCProvider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			Endpoint:    endpoint,
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		endSession: cfg.IssuerURL() + "v2/logout",
	}
	for _, opt := range options {
		opt(p)
	}
	if p.httpClient == nil {
		p.httpClient = &http.Client{}
	}
	return p, nil
}

// Discover reads the provider's discovery document, then builds a provider that verifies
// identity tokens against the published keys.
func Discover(ctx context.Context, cfg Config, options ...Option) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL())
	if err != nil {
		return nil, fmt.Errorf("[Discover] failed to create OIDC provider: %w", err)
	}

	var meta struct {
		EndSession string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&meta); err != nil {
		log.Debug().Err(err).Str("issuer", cfg.IssuerURL()).Msg("Discover: unreadable end_session_endpoint, using the default logout endpoint")
	}

	opts := []Option{WithVerifier(provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}))}
	if meta.EndSession != "" {
		opts = append(opts, WithEndSessionEndpoint(meta.EndSession))
	}
	return NewOIDCProvider(cfg, provider.Endpoint(), append(opts, options...)...)
}

func (p *OIDCProvider) authorizeOptions(req AuthorizeRequest) []oauth2.AuthCodeOption {
	return []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("response_type", ResponseTypeTokenIDToken),
		oauth2.SetAuthURLParam("audience", p.cfg.Audience),
		oauth2.SetAuthURLParam("nonce", req.Nonce),
	}
}

func (p *OIDCProvider) AuthorizeURL(req AuthorizeRequest) string {
	opts := append(p.authorizeOptions(req), oauth2.SetAuthURLParam("response_mode", p.cfg.ResponseMode))
	return p.oauth.AuthCodeURL(req.State, opts...)
}

func (p *OIDCProvider) ParseCallback(ctx context.Context, params url.Values) (*AuthResult, error) {
	if code := params.Get(ParamError); code != "" {
		return nil, &ProviderError{Code: code, Description: params.Get(ParamErrorDescription)}
	}

	accessToken := params.Get(ParamAccessToken)
	rawIDToken := params.Get(ParamIDToken)
	if accessToken == "" || rawIDToken == "" {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "missing access or identity token")
	}

	expiresIn, err := strconv.ParseInt(params.Get(ParamExpiresIn), 10, 64)
	if err != nil || expiresIn <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "invalid expires_in %q", params.Get(ParamExpiresIn))
	}

	claims, err := p.claims(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	if _, err := ExpiryClaim(claims); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "%v", err)
	}

	return &AuthResult{
		AccessToken:    accessToken,
		IDToken:        rawIDToken,
		ExpiresIn:      expiresIn,
		IDTokenPayload: claims,
		State:          params.Get(ParamState),
	}, nil
}

// CheckSession requests authorization with prompt=none. The provider answers with a redirect
// whose fragment holds either a fresh result or an error such as login_required.
func (p *OIDCProvider) CheckSession(ctx context.Context, req AuthorizeRequest) (*AuthResult, error) {
	opts := append(p.authorizeOptions(req),
		oauth2.SetAuthURLParam("prompt", "none"),
		oauth2.SetAuthURLParam("response_mode", "fragment"),
	)
	checkURL := p.oauth.AuthCodeURL(req.State, opts...)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, checkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("[CheckSession] build request: %w", err)
	}

	client := *p.httpClient
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("[CheckSession] %w", err)
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	if location == "" {
		return nil, &ProviderError{Code: "login_required", Description: fmt.Sprintf("session check returned status %d", resp.StatusCode)}
	}
	redirect, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("[CheckSession] parse redirect: %w", err)
	}

	params := redirect.Query()
	if redirect.Fragment != "" {
		fragment, err := url.ParseQuery(redirect.Fragment)
		if err != nil {
			return nil, fmt.Errorf("[CheckSession] parse fragment: %w", err)
		}
		for k, v := range fragment {
			params[k] = v
		}
	}
	return p.ParseCallback(ctx, params)
}

func (p *OIDCProvider) LogoutURL() string {
	u, err := url.Parse(p.endSession)
	if err != nil {
		return p.endSession
	}
	q := u.Query()
	q.Set("client_id", p.cfg.ClientID)
	if p.cfg.ReturnTo != "" {
		q.Set("returnTo", p.cfg.ReturnTo)
		q.Set("post_logout_redirect_uri", p.cfg.ReturnTo)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (p *OIDCProvider) claims(ctx context.Context, rawIDToken string) (map[string]any, error) {
	if p.verifier == nil {
		return DecodeClaims(rawIDToken)
	}
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "verify identity token: %v", err)
	}
	claims := map[string]any{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidAuthResult, "extract claims: %v", err)
	}
	return claims, nil
}
