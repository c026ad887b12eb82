package domain

import "time"

// EmailVerification tracks one emailed verification link.
// PK: verification_code. Records are never deleted; they are the audit trail
// of every link that was issued.
type EmailVerification struct {
	VerificationCode string     `json:"verification_code" dynamodbav:"verification_code"`
	Username         string     `json:"username" dynamodbav:"username"`
	Verified         bool       `json:"verified" dynamodbav:"verified"`
	CreatedAt        time.Time  `json:"created" dynamodbav:"created_at"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty" dynamodbav:"verified_at,omitempty"`
}

// VerifyResult reports which branch the verification flow took.
type VerifyResult int

const (
	// VerifyEnabled means the account was enabled by this visit and admins were notified.
	VerifyEnabled VerifyResult = iota + 1
	// VerifyAlreadyEnabled means the account was enabled earlier; nothing else happened.
	VerifyAlreadyEnabled
)
