package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-gateway-auth/internal/application/account"
	"github.com/go-gateway-auth/internal/application/login"
	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/domain"
	jwtinfra "github.com/go-gateway-auth/internal/infrastructure/jwt"
	"github.com/go-gateway-auth/internal/transport/http/middleware"
	"github.com/go-gateway-auth/internal/transport/http/views"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockLoginSvc struct{ mock.Mock }

func (m *mockLoginSvc) Options() domain.AuthOptions {
	return m.Called().Get(0).(domain.AuthOptions)
}

func (m *mockLoginSvc) PasswordEnabled() bool { return m.Called().Bool(0) }

func (m *mockLoginSvc) PasswordLogin(ctx context.Context, username, password string) (*domain.AuthenticatedUser, error) {
	args := m.Called(ctx, username, password)
	if u, _ := args.Get(0).(*domain.AuthenticatedUser); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLoginSvc) StartRedirect(idpAlias, callbackURL, next string) (*login.Redirect, error) {
	args := m.Called(idpAlias, callbackURL, next)
	if rd, _ := args.Get(0).(*login.Redirect); rd != nil {
		return rd, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLoginSvc) Callback(ctx context.Context, req login.CallbackRequest) (*domain.AuthenticatedUser, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.AuthenticatedUser); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockLoginSvc) CallbackErrorOptions(idpAlias string) (domain.AuthOptions, error) {
	args := m.Called(idpAlias)
	return args.Get(0).(domain.AuthOptions), args.Error(1)
}

func (m *mockLoginSvc) NextURL(next string) string { return m.Called(next).String(0) }

// LogoutURL records the resolved "/" so tests can assert how paths are made absolute.
func (m *mockLoginSvc) LogoutURL(absRedirect func(path string) string) string {
	return m.Called(absRedirect("/")).String(0)
}

type mockAccountSvc struct{ mock.Mock }

func (m *mockAccountSvc) Register(ctx context.Context, req domain.CreateAccountRequest, ri account.RequestInfo) error {
	return m.Called(ctx, req, ri).Error(0)
}

func (m *mockAccountSvc) VerifyEmail(ctx context.Context, code string, ri account.RequestInfo) (domain.VerifyResult, error) {
	args := m.Called(ctx, code, ri)
	return args.Get(0).(domain.VerifyResult), args.Error(1)
}

func (m *mockAccountSvc) ResendLink(ctx context.Context, username string, ri account.RequestInfo) error {
	return m.Called(ctx, username, ri).Error(0)
}

type mockGroupSvc struct{ mock.Mock }

func (m *mockGroupSvc) List(ctx context.Context, username string) ([]domain.Group, error) {
	args := m.Called(ctx, username)
	groups, _ := args.Get(0).([]domain.Group)
	return groups, args.Error(1)
}

func (m *mockGroupSvc) Create(ctx context.Context, username string, in domain.GroupInput) (*domain.Group, error) {
	args := m.Called(ctx, username, in)
	if g, _ := args.Get(0).(*domain.Group); g != nil {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGroupSvc) Get(ctx context.Context, username, groupID string) (*domain.Group, error) {
	args := m.Called(ctx, username, groupID)
	if g, _ := args.Get(0).(*domain.Group); g != nil {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGroupSvc) AddMembers(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error) {
	args := m.Called(ctx, username, in)
	if g, _ := args.Get(0).(*domain.Group); g != nil {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGroupSvc) RemoveMembers(ctx context.Context, username string, in domain.GroupMembersInput) (*domain.Group, error) {
	args := m.Called(ctx, username, in)
	if g, _ := args.Get(0).(*domain.Group); g != nil {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGroupSvc) Delete(ctx context.Context, username, groupID string) error {
	return m.Called(ctx, username, groupID).Error(0)
}

func (m *mockGroupSvc) Leave(ctx context.Context, username, groupID string) error {
	return m.Called(ctx, username, groupID).Error(0)
}

// --- helpers ---

// newTestJWTProvider generates a fresh RSA key pair and returns a *jwtinfra.Provider.
func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	p, err := jwtinfra.NewProvider(&config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		SessionTTL:        time.Hour,
	})
	require.NoError(t, err)
	return p
}

type memSessions struct {
	mu   sync.Mutex
	data map[string]domain.Session
}

func (m *memSessions) Get(_ context.Context, sid string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[sid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) Put(_ context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[s.SessionID] = *s
	return nil
}

func (m *memSessions) Delete(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

func (m *memSessions) has(sid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[sid]
	return ok
}

const testCookie = "sid"

// harness wires the session middleware and views the way the router does.
type harness struct {
	t        *testing.T
	jwt      *jwtinfra.Provider
	store    *memSessions
	sessions *middleware.Sessions
	views    *views.Renderer
	router   chi.Router
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := newTestJWTProvider(t)
	store := &memSessions{data: map[string]domain.Session{}}
	v, err := views.New("Test Gateway")
	require.NoError(t, err)
	h := &harness{
		t:        t,
		jwt:      p,
		store:    store,
		sessions: middleware.NewSessions(store, p, middleware.SessionConfig{CookieName: testCookie, TTL: time.Hour}),
		views:    v,
		router:   chi.NewRouter(),
	}
	h.router.Use(h.sessions.Load)
	return h
}

// withSession stores sess and attaches its cookie to req.
func (h *harness) withSession(req *http.Request, sess *domain.Session) *http.Request {
	h.t.Helper()
	require.NoError(h.t, h.store.Put(req.Context(), sess))
	tok, err := h.jwt.Sign(sess.SessionID)
	require.NoError(h.t, err)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: tok})
	return req
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}

// savedSession returns the session the response's cookie points to.
func (h *harness) savedSession(rr *httptest.ResponseRecorder) *domain.Session {
	h.t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name != testCookie || c.Value == "" {
			continue
		}
		sid, err := h.jwt.Verify(c.Value)
		require.NoError(h.t, err)
		sess, err := h.store.Get(context.Background(), sid)
		require.NoError(h.t, err)
		return sess
	}
	h.t.Fatal("response did not set a session cookie")
	return nil
}
