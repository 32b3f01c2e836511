package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertEvent attempts to record the idempotency row, reporting false
	// when the (provider, provider_event_id) pair already exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	// ClaimEvent stamps processed_at only where it is still NULL, reporting
	// false when another delivery already claimed the event.
	ClaimEvent(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) (bool, error)
	AppendHistory(ctx context.Context, db *gorm.DB, history *PaymentHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]PaymentHistory, error)
}
