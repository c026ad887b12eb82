package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/infrastructure/smtp"
	"github.com/go-gateway-auth/internal/pkg/mailtmpl"
	"github.com/go-gateway-auth/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockTemplates struct{ mock.Mock }

func (m *mockTemplates) Get(ctx context.Context, id string) (*domain.EmailTemplate, error) {
	args := m.Called(ctx, id)
	if t, _ := args.Get(0).(*domain.EmailTemplate); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, msg smtp.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, subject, message string) error {
	return m.Called(ctx, subject, message).Error(0)
}

// --- helpers ---

var verifyTpl = &domain.EmailTemplate{
	TemplateID: domain.VerifyEmailTemplate,
	Subject:    "Verify {{.username}}",
	Body:       `<a href="{{.url}}">go</a>`,
}

func newSvc(tpls *mockTemplates, mailer *mockMailer, pub Publisher, m *metrics.Metrics, admins []string) Service {
	return NewService(ServiceDeps{
		Templates:   tpls,
		Renderer:    mailtmpl.NewRenderer(),
		Mailer:      mailer,
		AdminTopic:  pub,
		Metrics:     m,
		PortalTitle: "Science Gateway",
		ServerEmail: "noreply@gw.example.org",
		AdminEmails: admins,
	})
}

// --- tests ---

func TestRecipient(t *testing.T) {
	assert.Equal(t, `"Alice Anders" <alice@example.org>`, Recipient("Alice", "Anders", "alice@example.org"))
	assert.Equal(t, `"Alice" <alice@example.org>`, Recipient("Alice", "", "alice@example.org"))
	assert.Equal(t, "<alice@example.org>", Recipient("", "", "alice@example.org"))
}

func TestSendTemplate_RendersAndSends(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	m := metrics.New(prometheus.NewRegistry())
	svc := newSvc(tpls, mailer, nil, m, nil)

	tpls.On("Get", mock.Anything, domain.VerifyEmailTemplate).Return(verifyTpl, nil)
	mailer.On("Send", mock.Anything, smtp.Message{
		From:     `"Science Gateway" <noreply@gw.example.org>`,
		To:       []string{"alice@example.org"},
		Subject:  "Verify alice",
		HTMLBody: `<a href="https://gw/v/1">go</a>`,
	}).Return(nil)

	err := svc.SendTemplate(context.Background(), domain.VerifyEmailTemplate, []string{"alice@example.org"},
		map[string]string{"username": "alice", "url": "https://gw/v/1"})
	require.NoError(t, err)
	mailer.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues(domain.VerifyEmailTemplate, metrics.ResultSuccess)))
}

func TestSendTemplate_MissingTemplate(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	svc := newSvc(tpls, mailer, nil, nil, nil)

	tpls.On("Get", mock.Anything, "verify-email").Return(nil, domain.ErrNotFound)

	err := svc.SendTemplate(context.Background(), "verify-email", []string{"a@x.org"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)
	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestSendTemplate_MailerFailure(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	m := metrics.New(prometheus.NewRegistry())
	svc := newSvc(tpls, mailer, nil, m, nil)

	tpls.On("Get", mock.Anything, domain.VerifyEmailTemplate).Return(verifyTpl, nil)
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	err := svc.SendTemplate(context.Background(), domain.VerifyEmailTemplate, []string{"a@x.org"}, nil)
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmailsSent.WithLabelValues(domain.VerifyEmailTemplate, metrics.ResultFailure)))
}

func TestNotifyAdmins_MailAndTopic(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	pub := &mockPublisher{}
	svc := newSvc(tpls, mailer, pub, nil, []string{"admin@x.org", "ops@x.org"})

	tpls.On("Get", mock.Anything, domain.VerifyEmailTemplate).Return(verifyTpl, nil)
	mailer.On("Send", mock.Anything, mock.MatchedBy(func(msg smtp.Message) bool {
		return assert.ObjectsAreEqual([]string{"admin@x.org", "ops@x.org"}, msg.To)
	})).Return(nil)
	pub.On("Publish", mock.Anything, "Verify bob", `<a href="">go</a>`).Return(nil)

	require.NoError(t, svc.NotifyAdmins(context.Background(), domain.VerifyEmailTemplate, map[string]string{"username": "bob"}))
	mailer.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestNotifyAdmins_TopicFailureIsNotFatal(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	pub := &mockPublisher{}
	svc := newSvc(tpls, mailer, pub, nil, []string{"admin@x.org"})

	tpls.On("Get", mock.Anything, mock.Anything).Return(verifyTpl, nil)
	mailer.On("Send", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("throttled"))

	assert.NoError(t, svc.NotifyAdmins(context.Background(), domain.VerifyEmailTemplate, nil))
}

func TestNotifyAdmins_MailFailure(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	pub := &mockPublisher{}
	svc := newSvc(tpls, mailer, pub, nil, []string{"admin@x.org"})

	tpls.On("Get", mock.Anything, mock.Anything).Return(verifyTpl, nil)
	mailer.On("Send", mock.Anything, mock.Anything).Return(errors.New("down"))

	err := svc.NotifyAdmins(context.Background(), domain.VerifyEmailTemplate, nil)
	assert.ErrorIs(t, err, domain.ErrNotificationFailed)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifyAdmins_NoRecipients(t *testing.T) {
	tpls := &mockTemplates{}
	mailer := &mockMailer{}
	svc := newSvc(tpls, mailer, nil, nil, nil)

	assert.NoError(t, svc.NotifyAdmins(context.Background(), domain.NewUserEmailTemplate, nil))
	tpls.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
