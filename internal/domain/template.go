package domain

// Keys of the email templates used by the account flows.
const (
	VerifyEmailTemplate  = "verify-email"
	NewUserEmailTemplate = "new-user-email"
)

// EmailTemplate is a named subject/body pair rendered against a context map.
// Subject is plain text, Body is HTML.
type EmailTemplate struct {
	TemplateID string `json:"template_id" dynamodbav:"template_id"`
	Subject    string `json:"subject" dynamodbav:"subject"`
	Body       string `json:"body" dynamodbav:"body"`
}
