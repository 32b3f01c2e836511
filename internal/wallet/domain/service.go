package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type DeductRequest struct {
	UserID      snowflake.ID
	AmountCents int64
	Action      string
	Note        string
}

type CreditRequest struct {
	UserID      snowflake.ID
	AmountCents int64
	Reason      string
}

type Service interface {
	// Ensure creates the user's wallet with a zero balance if absent.
	Ensure(ctx context.Context, userID snowflake.ID, currency string) (*Wallet, error)
	GetBalance(ctx context.Context, userID snowflake.ID) (*Wallet, error)
	// Deduct subtracts the amount only where the balance covers it, and
	// appends the ledger row in the same transaction. Zero rows affected
	// means ErrInsufficientBalance and nothing is written.
	Deduct(ctx context.Context, req DeductRequest) error
	// Credit adds the amount unconditionally and appends the ledger row.
	Credit(ctx context.Context, req CreditRequest) error
	ListTransactions(ctx context.Context, userID snowflake.ID) ([]WalletTransaction, error)
}

var (
	ErrWalletNotFound      = errors.New("wallet_not_found")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidAmount       = errors.New("invalid_amount")
)
