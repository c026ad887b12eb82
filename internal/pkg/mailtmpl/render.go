// Package mailtmpl renders stored email templates against a context map.
// Subjects are rendered as plain text; bodies are HTML and auto-escaped.
package mailtmpl

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/go-gateway-auth/internal/domain"
)

// Renderer renders domain.EmailTemplate values.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Render returns the rendered subject and HTML body.
// Missing context keys render as empty strings.
func (r *Renderer) Render(tpl *domain.EmailTemplate, data map[string]string) (subject, body string, err error) {
	st, err := texttemplate.New(tpl.TemplateID + ":subject").Option("missingkey=zero").Parse(tpl.Subject)
	if err != nil {
		return "", "", fmt.Errorf("parse subject of %s: %w", tpl.TemplateID, err)
	}
	bt, err := htmltemplate.New(tpl.TemplateID + ":body").Option("missingkey=zero").Parse(tpl.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse body of %s: %w", tpl.TemplateID, err)
	}

	var sb, bb strings.Builder
	if err := st.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render subject of %s: %w", tpl.TemplateID, err)
	}
	if err := bt.Execute(&bb, data); err != nil {
		return "", "", fmt.Errorf("render body of %s: %w", tpl.TemplateID, err)
	}
	// Header injection guard: subjects are single-line.
	subject = strings.Join(strings.Fields(sb.String()), " ")
	return subject, bb.String(), nil
}
