package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*User, error)
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// CreateSession issues an opaque session token for the user. Only called
	// after a verification code was consumed successfully.
	CreateSession(ctx context.Context, userID snowflake.ID) (*SessionResult, error)
	// Authenticate resolves a session token to its user. Absent and expired
	// tokens are indistinguishable to the caller.
	Authenticate(ctx context.Context, rawToken string) (*User, error)
	Logout(ctx context.Context, rawToken string) error
}

type CreateUserRequest struct {
	Email    string
	Name     string
	Company  string
	JobTitle string
	// Verified is set when the creating flow has already proven mailbox
	// possession (registration via code).
	Verified bool
}

type SessionResult struct {
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}
