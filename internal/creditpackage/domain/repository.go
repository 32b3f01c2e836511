package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]Package, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Package, error)
	// Upsert keyed on name; used by the catalog seeder.
	Upsert(ctx context.Context, db *gorm.DB, pkg *Package) error
}
