package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Reconcile applies an externally-confirmed payment exactly once. A
	// redelivered event is a benign no-op, not an error. Failed-payment
	// confirmations are recorded for audit and cause no grant or wallet
	// mutation.
	Reconcile(ctx context.Context, event *PaymentEvent, payload []byte) error
	ListHistory(ctx context.Context, userID snowflake.ID) ([]PaymentHistory, error)
}

var (
	ErrInvalidEvent     = errors.New("invalid_payment_event")
	ErrInvalidPayload   = errors.New("invalid_payment_payload")
	ErrInvalidAmount    = errors.New("invalid_payment_amount")
	ErrInvalidCurrency  = errors.New("invalid_payment_currency")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
)
