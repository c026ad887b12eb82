package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes or user-facing
// messages without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Account and login flow failures.
	ErrInvalidIdpAlias         = errors.New("idp_alias is not valid")
	ErrInvalidVerificationCode = errors.New("invalid verification code")
	ErrRegistrationFailed      = errors.New("failed to register user")
	ErrEnableFailed            = errors.New("failed to enable user")
	ErrNotificationFailed      = errors.New("failed to send notification")
	ErrLoginFailed             = errors.New("login failed")
	ErrUserNotFound            = errors.New("user does not exist")
)
