package domain

import "encoding/json"

// AuthSession statuses.
const (
	AuthAwaitingNew   = "awaiting_verification_new"
	AuthAwaitingLogin = "awaiting_verification_login"
	AuthVerified      = "verified"
)

// AuthSession holds the ephemeral state of one OTP challenge for an email.
// PK: email, at most one session per email; issuing a new challenge
// overwrites the previous one. ExpiresAt is a Unix timestamp used as DynamoDB
// TTL; physical deletion is lazy, so readers must still treat any record past
// ExpiresAt as invalid.
type AuthSession struct {
	Email          string            `json:"email" dynamodbav:"email"`
	SessionID      string            `json:"session_id" dynamodbav:"session_id"`
	DisplayName    string            `json:"display_name,omitempty" dynamodbav:"display_name"`
	SessionSecrets json.RawMessage   `json:"-" dynamodbav:"session_secrets"`
	Signers        []json.RawMessage `json:"-" dynamodbav:"signers"`
	Status         string            `json:"status" dynamodbav:"status"`
	OTPSentAt      int64             `json:"otp_sent_at" dynamodbav:"otp_sent_at"`
	ExpiresAt      int64             `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	VerifiedAt     *int64            `json:"verified_at,omitempty" dynamodbav:"verified_at"`
}

// Expired reports whether the session's OTP window has passed at the given
// Unix time.
func (s *AuthSession) Expired(nowUnix int64) bool {
	return nowUnix > s.ExpiresAt
}
