package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, wallet *Wallet) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*Wallet, error)
	// DeductBalance subtracts amountCents where the balance covers it,
	// reporting false on zero rows affected.
	DeductBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amountCents int64, now time.Time) (bool, error)
	CreditBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amountCents int64, now time.Time) (bool, error)
	AppendTransaction(ctx context.Context, db *gorm.DB, txn *WalletTransaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]WalletTransaction, error)
}
