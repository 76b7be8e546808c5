// Package identity provides user accounts and token-based authentication.
// There is no role model: authentication establishes the caller's
// identity for attribution only.
package identity

import (
	"context"

	"github.com/signalboard/signalboard/internal/domain"
)

// Repository defines the storage operations for users and refresh tokens.
type Repository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	SaveRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, tokenHash string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}
