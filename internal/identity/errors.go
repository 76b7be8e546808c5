package identity

import "errors"

var (
	// ErrUserNotFound is returned when no user matches the identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailExists is returned when the email is already registered.
	ErrEmailExists = errors.New("email already registered")

	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned when a token is malformed, expired or revoked.
	ErrInvalidToken = errors.New("invalid or expired token")
)
