// Package domain contains persistence models for user wallets.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Wallet holds a user's monetary balance in integer cents. The balance is
// never negative; the conditional debit enforces it at the store.
type Wallet struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID `gorm:"not null;uniqueIndex" json:"user_id"`
	BalanceCents int64        `gorm:"not null;default:0" json:"balance_cents"`
	Currency     string       `gorm:"type:text;not null" json:"currency"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Wallet) TableName() string { return "wallets" }

// WalletTransaction is an append-only ledger row. Summing amounts for a user
// reconstructs the wallet balance.
type WalletTransaction struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"not null;index" json:"user_id"`
	AmountCents int64        `gorm:"not null" json:"amount_cents"`
	Reason      string       `gorm:"type:text;not null" json:"reason"`
	Note        string       `gorm:"type:text" json:"note,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (WalletTransaction) TableName() string { return "wallet_transactions" }
