package domain

import "time"

// OTPRecord is a one-time password issued to an email address.
// PK: otp_id. GSI email-index on email.
// ExpiresAt is a Unix timestamp used as DynamoDB TTL; reads must also honour it since TTL deletion is lazy.
type OTPRecord struct {
	ID        string    `json:"otp_id" dynamodbav:"otp_id"`
	Email     string    `json:"email" dynamodbav:"email" validate:"required,otpemail"`
	OTP       string    `json:"otp" dynamodbav:"otp" validate:"required,min=6"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// ExpiryFor returns the Unix-second deadline for a record created at createdAt.
// Sub-second deadlines round up, so a record is never hidden before the full ttl has passed.
func ExpiryFor(createdAt time.Time, ttl time.Duration) int64 {
	deadline := createdAt.Add(ttl)
	if deadline.Nanosecond() > 0 {
		return deadline.Unix() + 1
	}
	return deadline.Unix()
}

// Expired reports whether the record is past its deadline at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.Unix()
}
