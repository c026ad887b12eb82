package dynamo

// DynamoDB attribute names used in expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldVerificationCode = "verification_code"
	fieldVerified         = "verified"
	fieldVerifiedAt       = "verified_at"
	fieldTemplateID       = "template_id"
	fieldSessionID        = "session_id"
	fieldGroupID          = "group_id"
	fieldOwner            = "owner"
	fieldMembers          = "members"
	fieldUpdatedAt        = "updated_at"
)
