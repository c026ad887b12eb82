package mailtmpl

import "github.com/go-gateway-auth/internal/domain"

// Defaults are seeded into the template store when no template exists yet.
var Defaults = []domain.EmailTemplate{
	{
		TemplateID: domain.VerifyEmailTemplate,
		Subject:    "{{.first_name}}, please verify your email address for {{.portal_title}}",
		Body: `<p>Dear {{.first_name}} {{.last_name}},</p>
<p>Someone (hopefully you) created an account with the {{.portal_title}} using
this email address. Click the link below to verify your email address and
finish creating your account:</p>
<p><a href="{{.url}}">{{.url}}</a></p>
<p>If you did not create this account, you can ignore this email.</p>`,
	},
	{
		TemplateID: domain.NewUserEmailTemplate,
		Subject:    "New user signed up: {{.username}} ({{.portal_title}})",
		Body: `<p>A new user has verified their email address on {{.portal_title}}
({{.http_host}}, gateway {{.gateway_id}}).</p>
<ul>
<li>Username: {{.username}}</li>
<li>Name: {{.first_name}} {{.last_name}}</li>
<li>Email: {{.email}}</li>
</ul>`,
	},
}
