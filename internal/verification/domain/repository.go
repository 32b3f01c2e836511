package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Replace deletes any code for (email, purpose) and inserts the new row
	// in a single transaction.
	Replace(ctx context.Context, db *gorm.DB, code *VerificationCode) error
	FindByEmailPurpose(ctx context.Context, db *gorm.DB, email string, purpose Purpose) (*VerificationCode, error)
	IncrementAttempts(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// Delete reports whether a row was actually removed, making it usable
	// as an atomic consume.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
