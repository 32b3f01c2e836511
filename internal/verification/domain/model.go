// Package domain contains persistence models for one-time verification codes.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Purpose scopes a code to the flow that requested it.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

func (p Purpose) Valid() bool {
	return p == PurposeRegistration || p == PurposeLogin
}

// VerificationCode is a short-lived one-time credential bound to an email
// address. At most one active row exists per (email, purpose); issuing a new
// code replaces any prior one. The code value is stored hashed.
type VerificationCode struct {
	ID             snowflake.ID      `gorm:"primaryKey"`
	Email          string            `gorm:"type:text;not null;index:idx_verification_email_purpose,unique"`
	Purpose        Purpose           `gorm:"type:text;not null;index:idx_verification_email_purpose,unique"`
	CodeHash       string            `gorm:"type:text;not null"`
	PendingPayload datatypes.JSONMap `gorm:"type:jsonb"`
	Attempts       int               `gorm:"not null;default:0"`
	ExpiresAt      time.Time         `gorm:"not null;index"`
	CreatedAt      time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (VerificationCode) TableName() string { return "verification_codes" }
