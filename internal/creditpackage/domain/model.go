package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Package is a purchasable credit bundle. Catalog rows are immutable
// reference data seeded at startup.
type Package struct {
	ID            snowflake.ID `json:"id,string" gorm:"primaryKey"`
	Name          string       `json:"name" gorm:"uniqueIndex"`
	Credits       int          `json:"credits"`
	SendsPerEmail int          `json:"sends_per_email"`
	PriceCents    int64        `json:"price_cents"`
	Currency      string       `json:"currency"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (Package) TableName() string {
	return "packages"
}
