package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/lumamail/backend/internal/auth/domain"
)

type Service interface {
	// Register issues a registration code. The pending profile travels with
	// the code; no user row exists until the address is proven.
	Register(ctx context.Context, req RegisterRequest) error
	// RequestLogin issues a login code for an existing verified user.
	RequestLogin(ctx context.Context, email string) error
	VerifyRegistration(ctx context.Context, email, code string) (*Result, error)
	VerifyLogin(ctx context.Context, email, code string) (*Result, error)
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Company  string `json:"company"`
	JobTitle string `json:"job_title"`
}

type Result struct {
	User      *authdomain.User
	RawToken  string
	ExpiresAt time.Time
}

// Provisioner sets up the accounts a fresh user needs: the free-plan
// subscription with its first usage period and the zero-balance wallet.
type Provisioner interface {
	Provision(ctx context.Context, userID snowflake.ID) error
}

var ErrInvalidRequest = errors.New("invalid_signup_request")
