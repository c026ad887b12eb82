package domain

// UserProfile is the IAM service's view of a user. Read-only here.
type UserProfile struct {
	Username  string   `json:"username"`
	Emails    []string `json:"emails"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Enabled   bool     `json:"enabled"`
}

// PrimaryEmail returns the first email address on file, or "".
func (p *UserProfile) PrimaryEmail() string {
	if p == nil || len(p.Emails) == 0 {
		return ""
	}
	return p.Emails[0]
}

// AuthenticatedUser is what a successful login hands back.
type AuthenticatedUser struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// RegisterUserRequest is the IAM-level account creation payload.
type RegisterUserRequest struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

type CreateAccountRequest struct {
	Username      string `json:"username" validate:"required,min=2,max=64,username"`
	Email         string `json:"email" validate:"required,email"`
	FirstName     string `json:"first_name" validate:"required,max=100"`
	LastName      string `json:"last_name" validate:"required,max=100"`
	Password      string `json:"password" validate:"required,min=8,max=256"`
	PasswordAgain string `json:"password_again" validate:"required,eqfield=Password"`
}

type ResendEmailLinkRequest struct {
	Username string `json:"username" validate:"required"`
}

type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Next      string `json:"next"`
	LoginType string `json:"login_type"`
}
