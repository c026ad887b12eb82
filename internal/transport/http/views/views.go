// Package views renders the server-side HTML pages of the login and account flows.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-gateway-auth/internal/domain"
)

//go:embed templates/*.html
var files embed.FS

// Page names.
const (
	Login         = "login"
	LoginPassword = "login_password"
	CallbackError = "callback_error"
	CreateAccount = "create_account"
	ResendLink    = "resend_email_link"
)

var pageNames = []string{Login, LoginPassword, CallbackError, CreateAccount, ResendLink}

// Page is the data every page template receives.
type Page struct {
	Title       string
	PortalTitle string
	Messages    []domain.Message
	Options     domain.AuthOptions
	Next        string
	Username    string
	LoginType   string
	IdpAlias    string
	Form        map[string]string
	Errors      []string
}

type Renderer struct {
	pages       map[string]*template.Template
	portalTitle string
}

func New(portalTitle string) (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template, len(pageNames)), portalTitle: portalTitle}
	for _, name := range pageNames {
		t, err := template.ParseFS(files, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes the page into a buffer first so a template error still
// produces a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, p Page) {
	t, ok := r.pages[name]
	if !ok {
		slog.Error("unknown page", "page", name)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if p.PortalTitle == "" {
		p.PortalTitle = r.portalTitle
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", p); err != nil {
		slog.Error("failed to render page", "page", name, "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
