package login

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/pkg/metrics"
	pkgtoken "github.com/go-gateway-auth/internal/pkg/token"
)

// Authenticator performs logins against the IAM service.
type Authenticator interface {
	PasswordLogin(ctx context.Context, username, password string) (*domain.AuthenticatedUser, error)
	AuthCodeURL(state, redirectURI, idpAlias string) string
	Exchange(ctx context.Context, code, state, storedState, redirectURI string) (*domain.AuthenticatedUser, error)
}

// Redirect is an authorization redirect that has been started. State and
// RedirectURI must be kept in the session for the callback.
type Redirect struct {
	AuthURL     string
	State       string
	RedirectURI string
}

// CallbackRequest is what the IdP callback delivered plus what the session stored.
type CallbackRequest struct {
	Code        string
	State       string
	Error       string // error parameter sent by the authorization server
	StoredState string
	RedirectURI string
}

type Service interface {
	Options() domain.AuthOptions
	PasswordEnabled() bool
	PasswordLogin(ctx context.Context, username, password string) (*domain.AuthenticatedUser, error)
	StartRedirect(idpAlias, callbackURL, next string) (*Redirect, error)
	Callback(ctx context.Context, req CallbackRequest) (*domain.AuthenticatedUser, error)
	CallbackErrorOptions(idpAlias string) (domain.AuthOptions, error)
	NextURL(next string) string
	LogoutURL(absRedirect func(path string) string) string
}

type ServiceDeps struct {
	Authenticator     Authenticator
	Options           domain.AuthOptions
	Metrics           *metrics.Metrics
	LoginRedirectURL  string
	LogoutRedirectURL string
	IAMLogoutURL      string
	NewState          func() (string, error)
}

type service struct {
	auth              Authenticator
	options           domain.AuthOptions
	metrics           *metrics.Metrics
	loginRedirectURL  string
	logoutRedirectURL string
	iamLogoutURL      string
	newState          func() (string, error)
}

func NewService(d ServiceDeps) Service {
	s := &service{
		auth:              d.Authenticator,
		options:           d.Options,
		metrics:           d.Metrics,
		loginRedirectURL:  d.LoginRedirectURL,
		logoutRedirectURL: d.LogoutRedirectURL,
		iamLogoutURL:      d.IAMLogoutURL,
		newState:          d.NewState,
	}
	if s.newState == nil {
		s.newState = pkgtoken.NewState
	}
	if s.loginRedirectURL == "" {
		s.loginRedirectURL = "/"
	}
	return s
}

func (s *service) Options() domain.AuthOptions { return s.options }

func (s *service) PasswordEnabled() bool { return s.options.PasswordEnabled() }

func (s *service) PasswordLogin(ctx context.Context, username, password string) (*domain.AuthenticatedUser, error) {
	if !s.options.PasswordEnabled() {
		return nil, fmt.Errorf("password login is not enabled: %w", domain.ErrBadRequest)
	}
	if username == "" || password == "" {
		s.metrics.Login("password", metrics.ResultFailure)
		return nil, domain.ErrLoginFailed
	}
	u, err := s.auth.PasswordLogin(ctx, username, password)
	if err != nil {
		slog.Info("password login failed", "username", username, "err", err)
		s.metrics.Login("password", metrics.ResultFailure)
		return nil, fmt.Errorf("%w: %v", domain.ErrLoginFailed, err)
	}
	s.metrics.Login("password", metrics.ResultSuccess)
	return u, nil
}

func (s *service) StartRedirect(idpAlias, callbackURL, next string) (*Redirect, error) {
	if !s.options.HasIdp(idpAlias) {
		return nil, fmt.Errorf("%q: %w", idpAlias, domain.ErrInvalidIdpAlias)
	}
	state, err := s.newState()
	if err != nil {
		return nil, err
	}

	q := url.Values{"idp_alias": {idpAlias}}
	if next != "" {
		q.Set("next", next)
	}
	redirectURI := callbackURL + "?" + q.Encode()
	return &Redirect{
		AuthURL:     s.auth.AuthCodeURL(state, redirectURI, idpAlias),
		State:       state,
		RedirectURI: redirectURI,
	}, nil
}

func (s *service) Callback(ctx context.Context, req CallbackRequest) (*domain.AuthenticatedUser, error) {
	if req.Error != "" {
		s.metrics.Login("external", metrics.ResultFailure)
		return nil, fmt.Errorf("%w: authorization server returned %s", domain.ErrLoginFailed, req.Error)
	}
	u, err := s.auth.Exchange(ctx, req.Code, req.State, req.StoredState, req.RedirectURI)
	if err != nil {
		s.metrics.Login("external", metrics.ResultFailure)
		return nil, fmt.Errorf("%w: %v", domain.ErrLoginFailed, err)
	}
	s.metrics.Login("external", metrics.ResultSuccess)
	return u, nil
}

func (s *service) CallbackErrorOptions(idpAlias string) (domain.AuthOptions, error) {
	if !s.options.HasIdp(idpAlias) {
		return domain.AuthOptions{}, fmt.Errorf("%q: %w", idpAlias, domain.ErrInvalidIdpAlias)
	}
	return s.options.ForIdp(idpAlias), nil
}

// NextURL returns next when it is a path on this site, else the default
// post-login location.
func (s *service) NextURL(next string) string {
	if isLocalPath(next) {
		return next
	}
	return s.loginRedirectURL
}

// LogoutURL builds the IAM end-session URL that returns the browser to the
// configured logout page. absRedirect resolves that page against the request.
func (s *service) LogoutURL(absRedirect func(path string) string) string {
	target := s.logoutRedirectURL
	if absRedirect != nil && !strings.Contains(target, "://") {
		target = absRedirect(target)
	}
	if s.iamLogoutURL == "" {
		return target
	}
	sep := "?"
	if strings.Contains(s.iamLogoutURL, "?") {
		sep = "&"
	}
	return s.iamLogoutURL + sep + "redirect_uri=" + url.QueryEscape(target)
}

func isLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	// "//host" and "/\host" are treated as network paths by browsers.
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, `/\`) {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
