package config

import (
	"net/url"
	"strings"
)

const (
	authDomainVar   = "AUTH_DOMAIN"
	authClientIDVar = "AUTH_CLIENT_ID"
	appDomainVar    = "APP_DOMAIN"
	callbackURLVar  = "AUTH_CALLBACK_URL"
	audienceVar     = "AUTH_AUDIENCE"
)

type IdentityConfig interface {
	GetAuthDomain() string
	GetAuthClientID() string
	GetAppDomain() string
	GetCallbackURL() string
	GetRedirectURL() string
	GetAudience() string
	GetCallbackListenAddr() string
}

type Identity struct {
	file *fileValues
}

var _ IdentityConfig = Identity{}

func (i Identity) GetAuthDomain() string {
	return GetEnv(authDomainVar, i.file.Auth.Domain)
}

func (i Identity) GetAuthClientID() string {
	return GetEnv(authClientIDVar, i.file.Auth.ClientID)
}

// GetAppDomain is the origin the provider redirects back to. For the CLI this is the local
// callback listener.
func (i Identity) GetAppDomain() string {
	return strings.TrimSuffix(GetEnv(appDomainVar, orDefault(i.file.Auth.AppDomain, "http://localhost:8085")), "/")
}

func (i Identity) GetCallbackURL() string {
	return GetEnv(callbackURLVar, orDefault(i.file.Auth.CallbackURL, "/user/log-on"))
}

func (i Identity) GetRedirectURL() string {
	return i.GetAppDomain() + i.GetCallbackURL()
}

// GetAudience defaults to the provider's userinfo endpoint.
func (i Identity) GetAudience() string {
	audience := GetEnv(audienceVar, i.file.Auth.Audience)
	if audience != "" {
		return audience
	}
	domain := i.GetAuthDomain()
	if domain == "" {
		return ""
	}
	if strings.Contains(domain, "://") {
		return strings.TrimSuffix(domain, "/") + "/userinfo"
	}
	return "https://" + domain + "/userinfo"
}

// GetCallbackListenAddr is the host:port of the app domain.
func (i Identity) GetCallbackListenAddr() string {
	u, err := url.Parse(i.GetAppDomain())
	if err != nil || u.Host == "" {
		return "localhost:8085"
	}
	return u.Host
}
