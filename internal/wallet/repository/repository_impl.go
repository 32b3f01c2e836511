package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/wallet/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, wallet *domain.Wallet) error {
	return db.WithContext(ctx).Create(wallet).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// DeductBalance performs the conditional debit. It reports false when the
// balance does not cover the amount (zero rows affected).
func (r *repo) DeductBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amountCents int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance_cents = balance_cents - ?, updated_at = ?
		 WHERE user_id = ? AND balance_cents >= ?`,
		amountCents,
		now,
		userID,
		amountCents,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CreditBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amountCents int64, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE wallets
		 SET balance_cents = balance_cents + ?, updated_at = ?
		 WHERE user_id = ?`,
		amountCents,
		now,
		userID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) AppendTransaction(ctx context.Context, db *gorm.DB, txn *domain.WalletTransaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.WalletTransaction, error) {
	var items []domain.WalletTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
