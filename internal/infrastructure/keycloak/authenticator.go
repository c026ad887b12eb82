package keycloak

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/domain"
	"golang.org/x/oauth2"
)

// Authenticator performs the portal's logins against the realm's OIDC
// endpoints and verifies the returned ID tokens.
type Authenticator struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewAuthenticator(ctx context.Context, cfg config.Keycloak) *Authenticator {
	keySet := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
	return newAuthenticator(cfg, keySet)
}

func newAuthenticator(cfg config.Keycloak, keySet oidc.KeySet) *Authenticator {
	return &Authenticator{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthorizeURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: []string{oidc.ScopeOpenID},
		},
		verifier: oidc.NewVerifier(cfg.Issuer, keySet, &oidc.Config{ClientID: cfg.ClientID}),
	}
}

// AuthCodeURL builds the authorization redirect. kc_idp_hint sends the user
// straight to the external identity provider.
func (a *Authenticator) AuthCodeURL(state, redirectURI, idpAlias string) string {
	return a.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("redirect_uri", redirectURI),
		oauth2.SetAuthURLParam("kc_idp_hint", idpAlias),
	)
}

// PasswordLogin runs the resource-owner password grant.
func (a *Authenticator) PasswordLogin(ctx context.Context, username, password string) (*domain.AuthenticatedUser, error) {
	tok, err := a.oauth.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return nil, fmt.Errorf("password grant: %w", err)
	}
	return a.userFromToken(ctx, tok)
}

// Exchange completes the authorization-code flow. The state is checked
// before the token endpoint is contacted.
func (a *Authenticator) Exchange(ctx context.Context, code, state, storedState, redirectURI string) (*domain.AuthenticatedUser, error) {
	if state == "" || storedState == "" || subtle.ConstantTimeCompare([]byte(state), []byte(storedState)) != 1 {
		return nil, fmt.Errorf("oauth2 state mismatch: %w", domain.ErrUnauthorized)
	}
	if code == "" {
		return nil, fmt.Errorf("missing authorization code: %w", domain.ErrBadRequest)
	}
	tok, err := a.oauth.Exchange(ctx, code, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	return a.userFromToken(ctx, tok)
}

type idClaims struct {
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
}

func (a *Authenticator) userFromToken(ctx context.Context, tok *oauth2.Token) (*domain.AuthenticatedUser, error) {
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token in token response")
	}
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}
	var c idClaims
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	if c.PreferredUsername == "" {
		return nil, errors.New("id token has no preferred_username")
	}
	return &domain.AuthenticatedUser{
		Username:  c.PreferredUsername,
		Email:     c.Email,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
	}, nil
}
