package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/signalboard/signalboard/internal/domain"
)

// JWTManager issues HMAC-signed access tokens and opaque refresh tokens.
// Refresh tokens are stored hashed; the plain value never touches the
// database. It implements Authenticator and httputil.TokenValidator.
type JWTManager struct {
	secret     []byte
	repo       Repository
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewJWTManager creates a new JWT manager.
func NewJWTManager(secret string, repo Repository, accessTTL, refreshTTL time.Duration) *JWTManager {
	return &JWTManager{
		secret:     []byte(secret),
		repo:       repo,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// GenerateTokens issues a new access and refresh token pair for the user.
func (m *JWTManager) GenerateTokens(ctx context.Context, user *domain.User) (*TokenPair, error) {
	now := m.now()

	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := uuid.NewString()
	record := &domain.RefreshToken{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(m.refreshTTL),
	}
	if err := m.repo.SaveRefreshToken(ctx, record); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ValidateToken parses an access token and returns the user ID it carries.
func (m *JWTManager) ValidateToken(ctx context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

// RefreshTokens rotates a refresh token, revoking the old one.
func (m *JWTManager) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	record, err := m.repo.GetRefreshToken(ctx, hashToken(refreshToken))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if m.now().After(record.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := m.repo.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if err := m.repo.DeleteRefreshToken(ctx, record.TokenHash); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	return m.GenerateTokens(ctx, user)
}

// RevokeRefreshToken invalidates a refresh token.
func (m *JWTManager) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return m.repo.DeleteRefreshToken(ctx, hashToken(refreshToken))
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
