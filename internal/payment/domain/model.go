package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
)

// PaymentEvent is a parsed gateway confirmation. The boundary layer has
// already verified the signature over the raw body before this exists.
type PaymentEvent struct {
	Provider            string
	ProviderEventID     string
	Type                string
	UserID              snowflake.ID
	PackageID           snowflake.ID
	OriginalAmountCents int64
	OriginalCurrency    string
	ChargedAmountCents  int64
	ChargedCurrency     string
	ExchangeRate        float64
	OccurredAt          time.Time
}

// EventRecord is the idempotency row. The unique (provider,
// provider_event_id) index is what rejects a redelivered confirmation
// under race, not an application-level lookup.
type EventRecord struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Provider        string         `gorm:"uniqueIndex:idx_payment_events_provider_event"`
	ProviderEventID string         `gorm:"uniqueIndex:idx_payment_events_provider_event"`
	EventType       string
	UserID          snowflake.ID
	Payload         datatypes.JSON
	ReceivedAt      time.Time
	ProcessedAt     *time.Time
}

func (EventRecord) TableName() string {
	return "payment_events"
}

// PaymentHistory rows are append-only audit data; they are never updated.
type PaymentHistory struct {
	ID                  snowflake.ID `json:"id,string" gorm:"primaryKey"`
	UserID              snowflake.ID `json:"user_id,string" gorm:"index"`
	PackageID           snowflake.ID `json:"package_id,string"`
	ReferenceID         string       `json:"reference_id"`
	Provider            string       `json:"provider"`
	ProviderEventID     string       `json:"provider_event_id"`
	Status              string       `json:"status"`
	OriginalAmountCents int64        `json:"original_amount_cents"`
	OriginalCurrency    string       `json:"original_currency"`
	ChargedAmountCents  int64        `json:"charged_amount_cents"`
	ChargedCurrency     string       `json:"charged_currency"`
	ExchangeRate        float64      `json:"exchange_rate"`
	CreatedAt           time.Time    `json:"created_at"`
}

func (PaymentHistory) TableName() string {
	return "payment_histories"
}
