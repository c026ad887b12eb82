package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-gateway-auth/internal/application/login"
	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/transport/http/views"
)

const msgLoginFailed = "Login failed. Please try again."

// AuthHandler serves the login, callback and logout pages.
type AuthHandler struct {
	web
	svc login.Service
}

func NewAuthHandler(svc login.Service, sessions SessionManager, v *views.Renderer) *AuthHandler {
	return &AuthHandler{web: web{sessions: sessions, views: v}, svc: svc}
}

func (h *AuthHandler) StartLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.Login, views.Page{
		Title:   "Log in",
		Options: h.svc.Options(),
		Next:    r.URL.Query().Get("next"),
	})
}

func (h *AuthHandler) PasswordForm(w http.ResponseWriter, r *http.Request) {
	if !h.svc.PasswordEnabled() {
		http.Error(w, "password login is not enabled", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	h.render(w, r, http.StatusOK, views.LoginPassword, views.Page{
		Title:     "Log in",
		Options:   h.svc.Options(),
		Next:      q.Get("next"),
		Username:  q.Get("username"),
		LoginType: "password",
	})
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	req := domain.LoginRequest{
		Username:  r.PostForm.Get("username"),
		Password:  r.PostForm.Get("password"),
		Next:      r.PostForm.Get("next"),
		LoginType: r.PostForm.Get("login_type"),
	}
	u, err := h.svc.PasswordLogin(r.Context(), req.Username, req.Password)
	if errors.Is(err, domain.ErrBadRequest) {
		http.Error(w, "password login is not enabled", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.render(w, r, http.StatusOK, views.LoginPassword, views.Page{
			Title:     "Log in",
			Messages:  []domain.Message{{Level: domain.MessageError, Text: msgLoginFailed}},
			Options:   h.svc.Options(),
			Next:      req.Next,
			Username:  req.Username,
			LoginType: req.LoginType,
		})
		return
	}
	h.logIn(w, r, u, req.Next)
}

func (h *AuthHandler) RedirectLogin(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "idp_alias")
	rd, err := h.svc.StartRedirect(alias, absURL(r, "/auth/callback"), r.URL.Query().Get("next"))
	if errors.Is(err, domain.ErrInvalidIdpAlias) {
		slog.Warn("redirect login with unknown idp_alias", "idp_alias", alias)
		http.Error(w, "idp_alias is not valid", http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("failed to start redirect login", "idp_alias", alias, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess := h.session(r)
	sess.OAuth2State = rd.State
	sess.OAuth2RedirectURI = rd.RedirectURI
	h.redirect(w, r, sess, rd.AuthURL)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	alias := q.Get("idp_alias")
	sess := h.session(r)
	req := login.CallbackRequest{
		Code:        q.Get("code"),
		State:       q.Get("state"),
		Error:       q.Get("error"),
		StoredState: sess.OAuth2State,
		RedirectURI: sess.OAuth2RedirectURI,
	}
	// The stored state is single use whatever the outcome.
	sess.OAuth2State = ""
	sess.OAuth2RedirectURI = ""

	u, err := h.svc.Callback(r.Context(), req)
	if err != nil {
		slog.Warn("oauth2 callback failed", "idp_alias", alias, "err", err)
		sess.AddFlash(domain.MessageError, "Failed to process OAuth2 callback. Please try again.")
		h.redirect(w, r, sess, callbackErrorURL(h.svc, alias))
		return
	}
	h.logIn(w, r, u, q.Get("next"))
}

// callbackErrorURL points at the IdP-scoped error page, or the login page
// when the alias is empty or not configured.
func callbackErrorURL(svc login.Service, alias string) string {
	if _, err := svc.CallbackErrorOptions(alias); err != nil {
		return "/auth/login"
	}
	return "/auth/callback-error/" + url.PathEscape(alias)
}

func (h *AuthHandler) CallbackError(w http.ResponseWriter, r *http.Request) {
	alias := chi.URLParam(r, "idp_alias")
	opts, err := h.svc.CallbackErrorOptions(alias)
	if err != nil {
		http.Error(w, "idp_alias is not valid", http.StatusBadRequest)
		return
	}
	h.render(w, r, http.StatusOK, views.CallbackError, views.Page{
		Title:    "Login failed",
		Options:  opts,
		IdpAlias: alias,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	if err := h.sessions.Destroy(w, r, sess); err != nil {
		slog.Error("failed to destroy session", "err", err)
	}
	if sess.Authenticated() {
		slog.Info("user logged out", "username", sess.Username)
	}
	target := h.svc.LogoutURL(func(path string) string { return absURL(r, path) })
	http.Redirect(w, r, target, http.StatusFound)
}

// logIn binds the user to a fresh session id and continues to next.
func (h *AuthHandler) logIn(w http.ResponseWriter, r *http.Request, u *domain.AuthenticatedUser, next string) {
	sess := h.session(r)
	h.sessions.Renew(r.Context(), sess)
	sess.Username = u.Username
	slog.Info("user logged in", "username", u.Username)
	h.redirect(w, r, sess, h.svc.NextURL(next))
}
