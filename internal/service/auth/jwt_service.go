package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kwren/taskhive-api/internal/domain"
)

// JWTService defines operations for managing JWT authentication tokens.
// The same ValidateToken path serves both the HTTP middleware and the
// websocket handshake.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the user.
	// Returns the token string or an error if signing fails.
	GenerateToken(ctx context.Context, user *domain.User) (string, error)

	// ValidateToken validates the token string and extracts the claims.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims carried by an access token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"userId"`

	// Email and Role are carried so downstream consumers can act without a
	// user lookup; the middleware still re-resolves the user to pick up
	// role/name changes made after issuance.
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
