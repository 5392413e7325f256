package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/kwren/taskhive-api/internal/config"
	"github.com/kwren/taskhive-api/internal/domain"
)

const testSecret = "test-jwt-secret-that-is-32-chars-long"

// newFixedClockService builds a service whose clock is pinned to at,
// with clock skew disabled for deterministic expiry tests.
func newFixedClockService(t *testing.T, secret string, lifetime time.Duration, at time.Time) *hmacJWTService {
	t.Helper()
	svc, err := NewJWTService(config.AuthConfig{
		JWTSecret:            secret,
		TokenLifetimeMinutes: int(lifetime.Minutes()),
	})
	require.NoError(t, err)

	impl := svc.(*hmacJWTService)
	impl.timeFunc = func() time.Time { return at }
	impl.clockSkew = 0
	return impl
}

func testTokenUser() *domain.User {
	return &domain.User{
		ID:    uuid.New(),
		Name:  "Alice",
		Email: "alice@example.com",
		Role:  domain.RoleAdmin,
	}
}

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lifetime := 60 * time.Minute
	user := testTokenUser()

	svc := newFixedClockService(t, testSecret, lifetime, fixedTime)

	token, err := svc.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, user.ID.String(), claims.Subject)
	// Compare Unix timestamps to avoid timezone issues
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(lifetime).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()

	fixedTime := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	lifetime := 60 * time.Minute
	user := testTokenUser()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T) (JWTService, string)
		wantErr   error
	}{
		{
			name: "valid token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newFixedClockService(t, testSecret, lifetime, fixedTime)
				token, err := svc.GenerateToken(context.Background(), user)
				require.NoError(t, err)
				return svc, token
			},
			wantErr: nil,
		},
		{
			name: "expired token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newFixedClockService(t, testSecret, lifetime, fixedTime)
				token, err := genSvc.GenerateToken(context.Background(), user)
				require.NoError(t, err)

				// Validate well after expiry
				valSvc := newFixedClockService(t, testSecret, lifetime, fixedTime.Add(lifetime+time.Hour))
				return valSvc, token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "invalid signature",
			setupFunc: func(t *testing.T) (JWTService, string) {
				genSvc := newFixedClockService(t, "wrong-secret-that-is-32-chars-long!!", lifetime, fixedTime)
				token, err := genSvc.GenerateToken(context.Background(), user)
				require.NoError(t, err)

				valSvc := newFixedClockService(t, testSecret, lifetime, fixedTime)
				return valSvc, token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "malformed token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newFixedClockService(t, testSecret, lifetime, fixedTime)
				return svc, "not.a.token"
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "empty token",
			setupFunc: func(t *testing.T) (JWTService, string) {
				svc := newFixedClockService(t, testSecret, lifetime, fixedTime)
				return svc, ""
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			svc, token := tc.setupFunc(t)

			claims, err := svc.ValidateToken(context.Background(), token)
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
		})
	}
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short", TokenLifetimeMinutes: 60})
	require.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := NewBcryptHasher()

	hashed, err := hasher.Hash("s3cret-password")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-password", hashed)

	assert.NoError(t, hasher.Compare(hashed, "s3cret-password"))
	assert.Error(t, hasher.Compare(hashed, "wrong-password"))
}
