package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-gateway-auth/internal/application/account"
	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/transport/http/views"
)

const (
	msgAccountRequested = "Account request processed successfully. Before you can log in you need to confirm your " +
		"email address. We've sent you an email with a link that you should click on to complete the account creation process."
	msgRegistrationFailed = "Failed to register user with IAM service"
	msgAccountCreated     = "Your account has been successfully created. Please log in now."
	msgAlreadyCreated     = "Your account has already been successfully created. Please log in now."
	msgInvalidCode        = "Email verification failed. Please try again by requesting a new verification link."
	msgLinkSent           = "Email verification link sent successfully. Please click on the link in the email that we sent to your email address."
	msgAlreadyEnabled     = "Your account is already enabled. Please log in now."
	msgTryLater           = "Something went wrong. Please try again later."
)

// AccountHandler serves self-registration, email verification and link resend.
type AccountHandler struct {
	web
	svc account.Service
}

func NewAccountHandler(svc account.Service, sessions SessionManager, v *views.Renderer) *AccountHandler {
	return &AccountHandler{web: web{sessions: sessions, views: v}, svc: svc}
}

func requestInfo(r *http.Request) account.RequestInfo {
	return account.RequestInfo{
		VerifyLink: func(code string) string { return absURL(r, "/auth/verify-email/"+code) },
		Host:       requestHost(r),
	}
}

func (h *AccountHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.CreateAccount, views.Page{Title: "Create account"})
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := domain.CreateAccountRequest{
		Username:      strings.TrimSpace(r.PostForm.Get("username")),
		Email:         strings.TrimSpace(r.PostForm.Get("email")),
		FirstName:     strings.TrimSpace(r.PostForm.Get("first_name")),
		LastName:      strings.TrimSpace(r.PostForm.Get("last_name")),
		Password:      r.PostForm.Get("password"),
		PasswordAgain: r.PostForm.Get("password_again"),
	}

	err := h.svc.Register(r.Context(), req, requestInfo(r))
	if err == nil {
		h.flashRedirect(w, r, domain.MessageSuccess, msgAccountRequested, "/auth/create-account")
		return
	}

	// Passwords are never echoed back.
	page := views.Page{
		Title: "Create account",
		Form: map[string]string{
			"username":   req.Username,
			"email":      req.Email,
			"first_name": req.FirstName,
			"last_name":  req.LastName,
		},
	}
	status := http.StatusOK
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		status = http.StatusBadRequest
		page.Errors = []string{strings.TrimPrefix(err.Error(), domain.ErrBadRequest.Error()+": ")}
	case errors.Is(err, domain.ErrRegistrationFailed):
		page.Messages = []domain.Message{{Level: domain.MessageError, Text: msgRegistrationFailed}}
	default:
		slog.Error("create account failed", "username", req.Username, "err", err)
		page.Messages = []domain.Message{{Level: domain.MessageError, Text: msgTryLater}}
	}
	h.render(w, r, status, views.CreateAccount, page)
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	res, err := h.svc.VerifyEmail(r.Context(), code, requestInfo(r))
	switch {
	case errors.Is(err, domain.ErrInvalidVerificationCode):
		h.flashRedirect(w, r, domain.MessageError, msgInvalidCode, "/auth/resend-email-link")
	case err != nil:
		slog.Error("email verification failed", "code", code, "err", err)
		h.flashRedirect(w, r, domain.MessageError, msgTryLater, "/auth/create-account")
	case res == domain.VerifyAlreadyEnabled:
		h.flashRedirect(w, r, domain.MessageSuccess, msgAlreadyCreated, "/auth/login")
	default:
		h.flashRedirect(w, r, domain.MessageSuccess, msgAccountCreated, "/auth/login")
	}
}

func (h *AccountHandler) ResendForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.ResendLink, views.Page{
		Title:    "Resend verification link",
		Username: r.URL.Query().Get("username"),
	})
}

func (h *AccountHandler) Resend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))

	err := h.svc.ResendLink(r.Context(), username, requestInfo(r))
	switch {
	case err == nil:
		h.flashRedirect(w, r, domain.MessageSuccess, msgLinkSent, "/auth/resend-email-link")
	case errors.Is(err, domain.ErrBadRequest) && username == "":
		h.render(w, r, http.StatusBadRequest, views.ResendLink, views.Page{
			Title:    "Resend verification link",
			Username: username,
			Errors:   []string{"A username is required."},
		})
	case errors.Is(err, domain.ErrUserNotFound):
		h.flashRedirect(w, r, domain.MessageError, "Unable to find user with username "+username+".", "/auth/resend-email-link")
	case errors.Is(err, domain.ErrConflict):
		h.flashRedirect(w, r, domain.MessageSuccess, msgAlreadyEnabled, "/auth/login")
	default:
		slog.Error("resend verification link failed", "username", username, "err", err)
		h.flashRedirect(w, r, domain.MessageError, msgTryLater, "/auth/resend-email-link")
	}
}
