package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-gateway-auth/internal/domain"
	"github.com/go-gateway-auth/internal/pkg/id"
	"github.com/go-gateway-auth/internal/transport/http/middleware"
	"github.com/go-gateway-auth/internal/transport/http/views"
)

// SessionManager persists the browser session loaded by middleware.Sessions.
type SessionManager interface {
	Save(w http.ResponseWriter, r *http.Request, sess *domain.Session) error
	Renew(ctx context.Context, sess *domain.Session)
	Destroy(w http.ResponseWriter, r *http.Request, sess *domain.Session) error
}

// web bundles what the HTML handlers share.
type web struct {
	sessions SessionManager
	views    *views.Renderer
}

func (h web) session(r *http.Request) *domain.Session {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		return sess
	}
	return &domain.Session{SessionID: id.New()}
}

// render shows a page together with any pending flash messages.
func (h web) render(w http.ResponseWriter, r *http.Request, status int, name string, p views.Page) {
	sess := h.session(r)
	if flash := sess.PopFlash(); len(flash) > 0 {
		p.Messages = append(flash, p.Messages...)
		if err := h.sessions.Save(w, r, sess); err != nil {
			slog.Error("failed to save session", "err", err)
		}
	}
	h.views.Render(w, status, name, p)
}

func (h web) redirect(w http.ResponseWriter, r *http.Request, sess *domain.Session, target string) {
	if err := h.sessions.Save(w, r, sess); err != nil {
		slog.Error("failed to save session", "err", err)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h web) flashRedirect(w http.ResponseWriter, r *http.Request, level, text, target string) {
	sess := h.session(r)
	sess.AddFlash(level, text)
	h.redirect(w, r, sess, target)
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "https" || p == "http" {
		return p
	}
	return "http"
}

// absURL resolves a site path against the request's scheme and host.
func absURL(r *http.Request, path string) string {
	return scheme(r) + "://" + r.Host + path
}

// requestHost returns the request host without its port.
func requestHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		return r.Host
	}
	return host
}
