package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	List(ctx context.Context) ([]Package, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Package, error)
	// Purchase replaces the user's current package grant with this package's
	// credits and per-email allowance. Plan eligibility is the caller's
	// concern: the HTTP purchase path gates on the pro plan, while the
	// payment reconciler has already established eligibility out of band.
	Purchase(ctx context.Context, userID, packageID snowflake.ID) (*Package, error)
}

var (
	ErrPackageNotFound = errors.New("package_not_found")
	ErrProPlanRequired = errors.New("pro_plan_required")
)
