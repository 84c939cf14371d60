package domain

import "errors"

var (
	ErrInvalidDestination = errors.New("invalid destination url")
	ErrInvalidAlias       = errors.New("invalid custom alias")
	ErrAliasTaken         = errors.New("custom alias is already taken")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free short code")
	ErrNotFound           = errors.New("link not found")
	ErrStorage            = errors.New("storage error")
	ErrUnauthorized       = errors.New("unauthorized")

	// ErrConflict is returned by stores when a write violates code uniqueness.
	ErrConflict = errors.New("code already in use")
)
