package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/pkg/metrics"
	pkgtoken "github.com/go-gateway-auth/internal/pkg/token"
	"github.com/go-gateway-auth/internal/pkg/validate"
)

// IAM is the subset of the identity service's admin API the account flows use.
type IAM interface {
	RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (bool, error)
	UserExists(ctx context.Context, username string) (bool, error)
	IsUserEnabled(ctx context.Context, username string) (bool, error)
	EnableUser(ctx context.Context, username string) error
	GetUser(ctx context.Context, username string) (*domain.UserProfile, error)
}

type VerificationStore interface {
	Put(ctx context.Context, v *domain.EmailVerification) error
	GetByCode(ctx context.Context, code string) (*domain.EmailVerification, error)
	MarkVerified(ctx context.Context, code string) (bool, error)
}

type Notifier interface {
	SendTemplate(ctx context.Context, templateID string, to []string, data map[string]string) error
	NotifyAdmins(ctx context.Context, templateID string, data map[string]string) error
}

// LinkBuilder turns a verification code into an absolute URL.
type LinkBuilder func(code string) string

// RequestInfo carries what the flows need from the incoming request.
type RequestInfo struct {
	VerifyLink LinkBuilder
	Host       string // request host without port
}

type Service interface {
	Register(ctx context.Context, req domain.CreateAccountRequest, ri RequestInfo) error
	VerifyEmail(ctx context.Context, code string, ri RequestInfo) (domain.VerifyResult, error)
	ResendLink(ctx context.Context, username string, ri RequestInfo) error
}

type ServiceDeps struct {
	IAM           IAM
	Verifications VerificationStore
	Notifier      Notifier
	Metrics       *metrics.Metrics
	PortalTitle   string
	GatewayID     string
	// Recipient formats the "Name <email>" address of a user.
	Recipient func(firstName, lastName, email string) string
	// NewCode generates verification codes; defaults to random UUIDs.
	NewCode func() (string, error)
	Now     func() time.Time
}

type service struct {
	iam           IAM
	verifications VerificationStore
	notifier      Notifier
	metrics       *metrics.Metrics
	portalTitle   string
	gatewayID     string
	recipient     func(firstName, lastName, email string) string
	newCode       func() (string, error)
	now           func() time.Time
}

func NewService(d ServiceDeps) Service {
	s := &service{
		iam:           d.IAM,
		verifications: d.Verifications,
		notifier:      d.Notifier,
		metrics:       d.Metrics,
		portalTitle:   d.PortalTitle,
		gatewayID:     d.GatewayID,
		recipient:     d.Recipient,
		newCode:       d.NewCode,
		now:           d.Now,
	}
	if s.newCode == nil {
		s.newCode = pkgtoken.NewVerificationCode
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.recipient == nil {
		s.recipient = func(_, _, email string) string { return email }
	}
	return s
}

func (s *service) Register(ctx context.Context, req domain.CreateAccountRequest, ri RequestInfo) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	ok, err := s.iam.RegisterUser(ctx, domain.RegisterUserRequest{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil || !ok {
		slog.Warn("iam refused registration", "username", req.Username, "err", err)
		s.metrics.Registration(metrics.ResultFailure)
		return fmt.Errorf("register %s: %w", req.Username, domain.ErrRegistrationFailed)
	}

	if err := s.sendVerificationLink(ctx, req.Username, req.Email, req.FirstName, req.LastName, ri); err != nil {
		slog.Error("failed to send verification link after registration", "username", req.Username, "err", err)
		s.metrics.Registration(metrics.ResultFailure)
		return err
	}
	slog.Info("account registered, verification pending", "username", req.Username)
	s.metrics.Registration(metrics.ResultSuccess)
	return nil
}

func (s *service) VerifyEmail(ctx context.Context, code string, ri RequestInfo) (domain.VerifyResult, error) {
	v, err := s.verifications.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("unknown email verification code", "code", code)
			s.metrics.Verification("invalid_code")
			return 0, fmt.Errorf("code %s: %w", code, domain.ErrInvalidVerificationCode)
		}
		s.metrics.Verification(metrics.ResultFailure)
		return 0, fmt.Errorf("load verification: %w", err)
	}
	username := v.Username

	if !v.Verified {
		if _, err := s.verifications.MarkVerified(ctx, code); err != nil {
			s.metrics.Verification(metrics.ResultFailure)
			return 0, fmt.Errorf("mark verified: %w", err)
		}
		slog.Debug("email address verified", "username", username)
	}

	enabled, err := s.iam.IsUserEnabled(ctx, username)
	if err != nil {
		slog.Error("could not check account state", "username", username, "err", err)
		s.metrics.Verification(metrics.ResultFailure)
		return 0, fmt.Errorf("%w: %v", domain.ErrEnableFailed, err)
	}
	if enabled {
		slog.Debug("account already enabled", "username", username)
		s.metrics.Verification("already_enabled")
		return domain.VerifyAlreadyEnabled, nil
	}

	if err := s.iam.EnableUser(ctx, username); err != nil {
		slog.Error("failed to enable account", "username", username, "err", err)
		s.metrics.Verification(metrics.ResultFailure)
		return 0, fmt.Errorf("%w: %v", domain.ErrEnableFailed, err)
	}
	slog.Info("account enabled", "username", username)

	profile, err := s.iam.GetUser(ctx, username)
	if err != nil {
		slog.Error("failed to load profile for admin notice", "username", username, "err", err)
		s.metrics.Verification(metrics.ResultFailure)
		return 0, fmt.Errorf("%w: load profile: %v", domain.ErrNotificationFailed, err)
	}
	err = s.notifier.NotifyAdmins(ctx, domain.NewUserEmailTemplate, map[string]string{
		"username":     username,
		"email":        profile.PrimaryEmail(),
		"first_name":   profile.FirstName,
		"last_name":    profile.LastName,
		"portal_title": s.portalTitle,
		"gateway_id":   s.gatewayID,
		"http_host":    ri.Host,
	})
	if err != nil {
		slog.Error("failed to notify admins of new user", "username", username, "err", err)
		s.metrics.Verification(metrics.ResultFailure)
		return 0, err
	}
	s.metrics.Verification("enabled")
	return domain.VerifyEnabled, nil
}

func (s *service) ResendLink(ctx context.Context, username string, ri RequestInfo) error {
	if err := validate.Struct(domain.ResendEmailLinkRequest{Username: username}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBadRequest, err)
	}

	exists, err := s.iam.UserExists(ctx, username)
	if err != nil {
		s.metrics.ResentLink(metrics.ResultFailure)
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		slog.Warn("resend requested for unknown user", "username", username)
		s.metrics.ResentLink(metrics.ResultFailure)
		return fmt.Errorf("resend for %s: %w", username, domain.ErrUserNotFound)
	}

	profile, err := s.iam.GetUser(ctx, username)
	if err != nil {
		s.metrics.ResentLink(metrics.ResultFailure)
		return fmt.Errorf("load profile: %w", err)
	}
	if profile.Enabled {
		s.metrics.ResentLink(metrics.ResultFailure)
		return fmt.Errorf("account %s already enabled: %w", username, domain.ErrConflict)
	}
	email := profile.PrimaryEmail()
	if email == "" {
		s.metrics.ResentLink(metrics.ResultFailure)
		return fmt.Errorf("account %s has no email address: %w", username, domain.ErrBadRequest)
	}

	if err := s.sendVerificationLink(ctx, username, email, profile.FirstName, profile.LastName, ri); err != nil {
		s.metrics.ResentLink(metrics.ResultFailure)
		return err
	}
	s.metrics.ResentLink(metrics.ResultSuccess)
	return nil
}

// maxCodeAttempts bounds retries when a generated code is already taken.
const maxCodeAttempts = 3

// issueCode stores a new unverified record under a fresh code.
func (s *service) issueCode(ctx context.Context, username string) (*domain.EmailVerification, error) {
	var err error
	for i := 0; i < maxCodeAttempts; i++ {
		var code string
		if code, err = s.newCode(); err != nil {
			return nil, err
		}
		v := &domain.EmailVerification{
			VerificationCode: code,
			Username:         username,
			CreatedAt:        s.now().UTC(),
		}
		if err = s.verifications.Put(ctx, v); err == nil {
			return v, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
	}
	return nil, fmt.Errorf("store verification: %w", err)
}

// sendVerificationLink stores a fresh code and mails its link to the user.
func (s *service) sendVerificationLink(ctx context.Context, username, email, firstName, lastName string, ri RequestInfo) error {
	v, err := s.issueCode(ctx, username)
	if err != nil {
		return err
	}

	link := ri.VerifyLink(v.VerificationCode)
	slog.Debug("verification link created", "username", username, "url", link)
	return s.notifier.SendTemplate(ctx, domain.VerifyEmailTemplate, []string{s.recipient(firstName, lastName, email)}, map[string]string{
		"username":         username,
		"email":            email,
		"first_name":       firstName,
		"last_name":        lastName,
		"portal_title":     s.portalTitle,
		"url":              link,
		"verification_url": link,
	})
}
