package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/pkg/id"
)

type contextKey string

const SessionKey contextKey = "session"

// SessionStore persists server-side session state.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, sessionID string) error
}

// TokenCodec signs and verifies the cookie value that references a session.
type TokenCodec interface {
	Sign(sessionID string) (string, error)
	Verify(token string) (string, error)
}

type SessionConfig struct {
	CookieName string
	Secure     bool
	TTL        time.Duration
}

// Sessions loads the browser session for every request and persists it on demand.
// New sessions live only in memory until Save is called.
type Sessions struct {
	store SessionStore
	codec TokenCodec
	cfg   SessionConfig
	now   func() time.Time
}

func NewSessions(store SessionStore, codec TokenCodec, cfg SessionConfig) *Sessions {
	if cfg.CookieName == "" {
		cfg.CookieName = "gateway_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	return &Sessions{store: store, codec: codec, cfg: cfg, now: time.Now}
}

// Load injects the request's session into the context, starting an anonymous
// one when the cookie is missing, invalid or refers to an expired session.
func (s *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := s.load(r)
		ctx := context.WithValue(r.Context(), SessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Sessions) load(r *http.Request) *domain.Session {
	c, err := r.Cookie(s.cfg.CookieName)
	if err == nil && c.Value != "" {
		sid, err := s.codec.Verify(c.Value)
		if err == nil {
			sess, err := s.store.Get(r.Context(), sid)
			if err == nil {
				return sess
			}
			if !errors.Is(err, domain.ErrNotFound) {
				slog.Warn("failed to load session", "err", err)
			}
		}
	}
	return &domain.Session{SessionID: id.New(), CreatedAt: s.now().UTC()}
}

// SessionFromContext returns the session injected by Load.
func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*domain.Session)
	return sess, ok && sess != nil
}

// Save persists sess, extends its expiry and sets the cookie. It must be
// called before the response header is written.
func (s *Sessions) Save(w http.ResponseWriter, r *http.Request, sess *domain.Session) error {
	expires := s.now().Add(s.cfg.TTL)
	sess.ExpiresAt = expires.Unix()
	if err := s.store.Put(r.Context(), sess); err != nil {
		return err
	}
	tok, err := s.codec.Sign(sess.SessionID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    tok,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Renew moves sess to a fresh id. Call it when the session's privilege
// changes (login) and Save afterwards.
func (s *Sessions) Renew(ctx context.Context, sess *domain.Session) {
	old := sess.SessionID
	sess.SessionID = id.New()
	if err := s.store.Delete(ctx, old); err != nil {
		slog.Warn("failed to delete previous session", "err", err)
	}
}

// Destroy deletes the session and expires the cookie.
func (s *Sessions) Destroy(w http.ResponseWriter, r *http.Request, sess *domain.Session) error {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	if sess == nil {
		return nil
	}
	return s.store.Delete(r.Context(), sess.SessionID)
}

// RequireLogin rejects requests whose session has no logged-in user.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok || !sess.Authenticated() {
			writeJSONError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
