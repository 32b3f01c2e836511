package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrEmailNotVerified = errors.New("email not verified")
	ErrInvalidSession   = errors.New("invalid session")
)
