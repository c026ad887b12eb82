package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/infrastructure/smtp"
	"github.com/go-gateway-auth/internal/pkg/metrics"
)

type TemplateStore interface {
	Get(ctx context.Context, templateID string) (*domain.EmailTemplate, error)
}

type Renderer interface {
	Render(tpl *domain.EmailTemplate, data map[string]string) (subject, body string, err error)
}

type Mailer interface {
	Send(ctx context.Context, msg smtp.Message) error
}

type Publisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// Service renders stored email templates and delivers them.
type Service interface {
	// SendTemplate renders templateID against data and mails it to the recipients.
	SendTemplate(ctx context.Context, templateID string, to []string, data map[string]string) error
	// NotifyAdmins sends templateID to the configured admins and, when
	// configured, publishes it to the admin topic.
	NotifyAdmins(ctx context.Context, templateID string, data map[string]string) error
}

type ServiceDeps struct {
	Templates   TemplateStore
	Renderer    Renderer
	Mailer      Mailer
	AdminTopic  Publisher // optional
	Metrics     *metrics.Metrics
	PortalTitle string
	ServerEmail string
	AdminEmails []string
}

type service struct {
	templates   TemplateStore
	renderer    Renderer
	mailer      Mailer
	adminTopic  Publisher
	metrics     *metrics.Metrics
	from        string
	adminEmails []string
}

func NewService(d ServiceDeps) Service {
	return &service{
		templates:   d.Templates,
		renderer:    d.Renderer,
		mailer:      d.Mailer,
		adminTopic:  d.AdminTopic,
		metrics:     d.Metrics,
		from:        (&mail.Address{Name: d.PortalTitle, Address: d.ServerEmail}).String(),
		adminEmails: d.AdminEmails,
	}
}

// Recipient formats "First Last <email>".
func Recipient(firstName, lastName, email string) string {
	name := strings.TrimSpace(firstName + " " + lastName)
	return (&mail.Address{Name: name, Address: email}).String()
}

func (s *service) render(ctx context.Context, templateID string, data map[string]string) (string, string, error) {
	tpl, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return "", "", fmt.Errorf("load template %s: %w", templateID, err)
	}
	return s.renderer.Render(tpl, data)
}

func (s *service) SendTemplate(ctx context.Context, templateID string, to []string, data map[string]string) error {
	subject, body, err := s.render(ctx, templateID, data)
	if err != nil {
		s.metrics.EmailSent(templateID, metrics.ResultFailure)
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	if err := s.mailer.Send(ctx, smtp.Message{From: s.from, To: to, Subject: subject, HTMLBody: body}); err != nil {
		s.metrics.EmailSent(templateID, metrics.ResultFailure)
		return fmt.Errorf("%w: send %s: %v", domain.ErrNotificationFailed, templateID, err)
	}
	s.metrics.EmailSent(templateID, metrics.ResultSuccess)
	return nil
}

func (s *service) NotifyAdmins(ctx context.Context, templateID string, data map[string]string) error {
	if len(s.adminEmails) == 0 && s.adminTopic == nil {
		slog.Warn("no admin recipients configured, skipping notification", "template", templateID)
		return nil
	}
	if len(s.adminEmails) > 0 {
		if err := s.SendTemplate(ctx, templateID, s.adminEmails, data); err != nil {
			return err
		}
	}
	if s.adminTopic != nil {
		subject, body, err := s.render(ctx, templateID, data)
		if err == nil {
			err = s.adminTopic.Publish(ctx, subject, body)
		}
		// The topic is a secondary channel; mail delivery above already succeeded.
		if err != nil {
			slog.Warn("failed to publish admin notification", "template", templateID, "err", err)
		}
	}
	return nil
}
