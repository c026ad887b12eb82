package http

import (
	"context"
	"time"

	"github.com/go-gateway-auth/internal/domain"
)

// VerificationRepository is the minimal interface the router requires from a verification store.
type VerificationRepository interface {
	Put(ctx context.Context, v *domain.EmailVerification) error
	GetByCode(ctx context.Context, code string) (*domain.EmailVerification, error)
	// MarkVerified flips verified once; false means it was already set.
	MarkVerified(ctx context.Context, code string) (bool, error)
}

// TemplateSource is the minimal interface the router requires from an email template store.
type TemplateSource interface {
	Get(ctx context.Context, templateID string) (*domain.EmailTemplate, error)
}

// SessionRepository is the minimal interface the router requires from a session store.
type SessionRepository interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Put(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, sessionID string) error
}

// GroupRepository is the minimal interface the router requires from a group store.
type GroupRepository interface {
	Put(ctx context.Context, g *domain.Group) error
	Get(ctx context.Context, groupID string) (*domain.Group, error)
	ListForUser(ctx context.Context, username string) ([]domain.Group, error)
	Update(ctx context.Context, groupID string, prev time.Time, updates map[string]interface{}) error
	Delete(ctx context.Context, groupID string) error
}

// IAMClient is the identity service's admin API.
type IAMClient interface {
	RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (bool, error)
	UserExists(ctx context.Context, username string) (bool, error)
	IsUserEnabled(ctx context.Context, username string) (bool, error)
	EnableUser(ctx context.Context, username string) error
	GetUser(ctx context.Context, username string) (*domain.UserProfile, error)
}

// Authenticator performs password and authorization-code logins.
type Authenticator interface {
	PasswordLogin(ctx context.Context, username, password string) (*domain.AuthenticatedUser, error)
	AuthCodeURL(state, redirectURI, idpAlias string) string
	Exchange(ctx context.Context, code, state, storedState, redirectURI string) (*domain.AuthenticatedUser, error)
}

// SessionCodec signs the session cookie.
type SessionCodec interface {
	Sign(sessionID string) (string, error)
	Verify(token string) (string, error)
}
