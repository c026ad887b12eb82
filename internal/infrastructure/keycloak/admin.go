// Package keycloak talks to a Keycloak-compatible IAM service: the admin REST
// API for account management and the realm's OAuth2/OIDC endpoints for login.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/domain"
	"golang.org/x/oauth2/clientcredentials"
)

// AdminClient manages user accounts through the admin REST API. Requests are
// authorized with a client-credentials token that is refreshed automatically.
type AdminClient struct {
	usersURL string
	http     *http.Client
}

func NewAdminClient(ctx context.Context, cfg config.Keycloak) *AdminClient {
	cc := &clientcredentials.Config{
		ClientID:     cfg.AdminClientID,
		ClientSecret: cfg.AdminClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return newAdminClient(cfg.BaseURL, cfg.Realm, cc.Client(ctx))
}

func newAdminClient(baseURL, realm string, httpClient *http.Client) *AdminClient {
	return &AdminClient{
		usersURL: fmt.Sprintf("%s/admin/realms/%s/users", baseURL, url.PathEscape(realm)),
		http:     httpClient,
	}
}

type credential struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	Temporary bool   `json:"temporary"`
}

type userRepresentation struct {
	ID            string       `json:"id,omitempty"`
	Username      string       `json:"username,omitempty"`
	Email         string       `json:"email,omitempty"`
	FirstName     string       `json:"firstName,omitempty"`
	LastName      string       `json:"lastName,omitempty"`
	Enabled       bool         `json:"enabled"`
	EmailVerified bool         `json:"emailVerified"`
	Credentials   []credential `json:"credentials,omitempty"`
}

// RegisterUser creates a disabled account with the given password.
// It reports false when the IAM refuses the account (e.g. the username is taken).
func (c *AdminClient) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (bool, error) {
	body := userRepresentation{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Enabled:   false,
		Credentials: []credential{
			{Type: "password", Value: req.Password, Temporary: false},
		},
	}
	resp, err := c.do(ctx, http.MethodPost, c.usersURL, body)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusCreated:
		return true, nil
	case http.StatusConflict, http.StatusBadRequest:
		return false, nil
	default:
		return false, statusError("register user", resp)
	}
}

func (c *AdminClient) UserExists(ctx context.Context, username string) (bool, error) {
	u, err := c.findUser(ctx, username)
	if err != nil {
		return false, err
	}
	return u != nil, nil
}

func (c *AdminClient) IsUserEnabled(ctx context.Context, username string) (bool, error) {
	u, err := c.mustFindUser(ctx, username)
	if err != nil {
		return false, err
	}
	return u.Enabled, nil
}

func (c *AdminClient) GetUser(ctx context.Context, username string) (*domain.UserProfile, error) {
	u, err := c.mustFindUser(ctx, username)
	if err != nil {
		return nil, err
	}
	p := &domain.UserProfile{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Enabled:   u.Enabled,
	}
	if u.Email != "" {
		p.Emails = []string{u.Email}
	}
	return p, nil
}

// EnableUser enables the account and marks its email address verified.
func (c *AdminClient) EnableUser(ctx context.Context, username string) error {
	u, err := c.mustFindUser(ctx, username)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, c.usersURL+"/"+url.PathEscape(u.ID), map[string]bool{
		"enabled":       true,
		"emailVerified": true,
	})
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return statusError("enable user", resp)
	}
	return nil
}

// findUser returns nil when no account has exactly this username.
func (c *AdminClient) findUser(ctx context.Context, username string) (*userRepresentation, error) {
	q := url.Values{"username": {username}, "exact": {"true"}}
	resp, err := c.do(ctx, http.MethodGet, c.usersURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("find user", resp)
	}

	var users []userRepresentation
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	// exact=true is ignored by old servers; match locally as well.
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (c *AdminClient) mustFindUser(ctx context.Context, username string) (*userRepresentation, error) {
	u, err := c.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", username, domain.ErrUserNotFound)
	}
	return u, nil
}

func (c *AdminClient) do(ctx context.Context, method, rawURL string, body interface{}) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("iam %s %s: %w", method, req.URL.Path, err)
	}
	return resp, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("iam %s: unexpected status %d: %s", op, resp.StatusCode, bytes.TrimSpace(msg))
}
