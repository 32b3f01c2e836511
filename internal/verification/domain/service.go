package domain

import (
	"context"
	"errors"
)

type IssueRequest struct {
	Email   string
	Purpose Purpose
	// Payload is carried until verification succeeds; registration stores
	// the pending profile here so the user row is only materialized after
	// the address is proven.
	Payload map[string]any
}

type VerifyRequest struct {
	Email   string
	Code    string
	Purpose Purpose
}

type Service interface {
	// Issue generates a fresh code, replacing any active one for the same
	// (email, purpose), and delivers it via the email collaborator. A
	// delivery failure invalidates the code before returning.
	Issue(ctx context.Context, req IssueRequest) error
	// Verify consumes the active code. It fails closed on absence, expiry
	// and mismatch, and counts every failed match toward lockout.
	Verify(ctx context.Context, req VerifyRequest) (map[string]any, error)
	// IncrementAttempts bumps the failure counter without a match attempt.
	IncrementAttempts(ctx context.Context, email string, purpose Purpose) error
}

var (
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidPurpose   = errors.New("invalid_purpose")
	ErrInvalidCode      = errors.New("invalid_code")
	ErrTooManyAttempts  = errors.New("too_many_attempts")
	ErrDeliveryFailed   = errors.New("delivery_failed")
	ErrIssueRateLimited = errors.New("issue_rate_limited")
)
