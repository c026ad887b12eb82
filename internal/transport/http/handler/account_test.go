package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-gateway-auth/internal/application/account"
	"github.com/go-gateway-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAccountHarness(t *testing.T) (*harness, *mockAccountSvc) {
	h := newHarness(t)
	svc := new(mockAccountSvc)
	ah := NewAccountHandler(svc, h.sessions, h.views)
	h.router.Get("/auth/create-account", ah.CreateForm)
	h.router.Post("/auth/create-account", ah.Create)
	h.router.Get("/auth/verify-email/{code}", ah.VerifyEmail)
	h.router.Get("/auth/resend-email-link", ah.ResendForm)
	h.router.Post("/auth/resend-email-link", ah.Resend)
	return h, svc
}

func assertFlash(t *testing.T, sess *domain.Session, level, text string) {
	t.Helper()
	require.Len(t, sess.Flash, 1)
	assert.Equal(t, domain.Message{Level: level, Text: text}, sess.Flash[0])
}

var aliceForm = url.Values{
	"username":       {"alice"},
	"email":          {"a@x.com"},
	"first_name":     {"Alice"},
	"last_name":      {"A"},
	"password":       {"password1"},
	"password_again": {"password1"},
}

func TestCreateAccount_Form(t *testing.T) {
	h, _ := newAccountHarness(t)
	rr := h.do(httptest.NewRequest(http.MethodGet, "/auth/create-account", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `name="password_again"`)
}

func TestCreateAccount_SuccessBuildsLinksFromRequest(t *testing.T) {
	h, svc := newAccountHarness(t)
	var ri account.RequestInfo
	svc.On("Register", mock.Anything, domain.CreateAccountRequest{
		Username: "alice", Email: "a@x.com", FirstName: "Alice", LastName: "A",
		Password: "password1", PasswordAgain: "password1",
	}, mock.Anything).Run(func(args mock.Arguments) {
		ri = args.Get(2).(account.RequestInfo)
	}).Return(nil)

	req := postForm("/auth/create-account", aliceForm)
	req.Host = "portal.example.org:8443"
	req.Header.Set("X-Forwarded-Proto", "https")
	rr := h.do(req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/create-account", rr.Header().Get("Location"))
	assertFlash(t, h.savedSession(rr), domain.MessageSuccess, msgAccountRequested)
	require.NotNil(t, ri.VerifyLink)
	assert.Equal(t, "https://portal.example.org:8443/auth/verify-email/abc", ri.VerifyLink("abc"))
	assert.Equal(t, "portal.example.org", ri.Host)
}

func TestCreateAccount_ValidationErrorKeepsFieldsButNotPassword(t *testing.T) {
	h, svc := newAccountHarness(t)
	svc.On("Register", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: field 'Email' failed 'email'", domain.ErrBadRequest))

	rr := h.do(postForm("/auth/create-account", aliceForm))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "field &#39;Email&#39; failed &#39;email&#39;")
	assert.Contains(t, body, `value="alice"`)
	assert.NotContains(t, body, "password1")
}

func TestCreateAccount_IAMRefusal(t *testing.T) {
	h, svc := newAccountHarness(t)
	svc.On("Register", mock.Anything, mock.Anything, mock.Anything).
		Return(fmt.Errorf("register alice: %w", domain.ErrRegistrationFailed))

	rr := h.do(postForm("/auth/create-account", aliceForm))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Failed to register user with IAM service")
}

func TestVerifyEmail_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		result   domain.VerifyResult
		err      error
		location string
		level    string
		text     string
	}{
		{"enabled", domain.VerifyEnabled, nil, "/auth/login", domain.MessageSuccess, msgAccountCreated},
		{"already enabled", domain.VerifyAlreadyEnabled, nil, "/auth/login", domain.MessageSuccess, msgAlreadyCreated},
		{"unknown code", 0, fmt.Errorf("code x: %w", domain.ErrInvalidVerificationCode), "/auth/resend-email-link", domain.MessageError, msgInvalidCode},
		{"enable failed", 0, fmt.Errorf("%w: boom", domain.ErrEnableFailed), "/auth/create-account", domain.MessageError, msgTryLater},
		{"notify failed", 0, fmt.Errorf("%w: smtp down", domain.ErrNotificationFailed), "/auth/create-account", domain.MessageError, msgTryLater},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newAccountHarness(t)
			svc.On("VerifyEmail", mock.Anything, "code-1", mock.Anything).Return(tt.result, tt.err)

			rr := h.do(httptest.NewRequest(http.MethodGet, "/auth/verify-email/code-1", nil))
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))
			assertFlash(t, h.savedSession(rr), tt.level, tt.text)
		})
	}
}

func TestResend_Outcomes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		location string
		level    string
		text     string
	}{
		{"sent", nil, "/auth/resend-email-link", domain.MessageSuccess, msgLinkSent},
		{"unknown user", fmt.Errorf("resend for bob: %w", domain.ErrUserNotFound), "/auth/resend-email-link", domain.MessageError, "Unable to find user with username bob."},
		{"already enabled", fmt.Errorf("account bob already enabled: %w", domain.ErrConflict), "/auth/login", domain.MessageSuccess, msgAlreadyEnabled},
		{"no email", fmt.Errorf("account bob has no email address: %w", domain.ErrBadRequest), "/auth/resend-email-link", domain.MessageError, msgTryLater},
		{"iam down", errors.New("dial tcp: refused"), "/auth/resend-email-link", domain.MessageError, msgTryLater},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc := newAccountHarness(t)
			svc.On("ResendLink", mock.Anything, "bob", mock.Anything).Return(tt.err)

			rr := h.do(postForm("/auth/resend-email-link", url.Values{"username": {" bob "}}))
			assert.Equal(t, http.StatusFound, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))
			assertFlash(t, h.savedSession(rr), tt.level, tt.text)
		})
	}
}

func TestResend_EmptyUsername(t *testing.T) {
	h, svc := newAccountHarness(t)
	svc.On("ResendLink", mock.Anything, "", mock.Anything).
		Return(fmt.Errorf("%w: field 'Username' failed 'required'", domain.ErrBadRequest))

	rr := h.do(postForm("/auth/resend-email-link", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "A username is required.")
}

func TestResend_FormShowsFlashFromFailedVerification(t *testing.T) {
	h, _ := newAccountHarness(t)
	sess := &domain.Session{SessionID: "s1"}
	sess.AddFlash(domain.MessageError, msgInvalidCode)

	rr := h.do(h.withSession(httptest.NewRequest(http.MethodGet, "/auth/resend-email-link", nil), sess))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), msgInvalidCode)
}
