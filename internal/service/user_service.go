package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kwren/taskhive-api/internal/domain"
	"github.com/kwren/taskhive-api/internal/service/auth"
	"github.com/kwren/taskhive-api/internal/store"
)

// UserService provides account operations: registration, credential checks
// and profile management.
type UserService interface {
	// Register creates a new account and returns the user with a signed
	// access token. Returns store.ErrEmailExists if the email is taken.
	Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, string, error)

	// Authenticate verifies the credentials and returns the user with a
	// signed access token. Returns auth.ErrInvalidCredentials on any
	// mismatch; whether the email or the password was wrong is not
	// distinguishable.
	Authenticate(ctx context.Context, email, password string) (*domain.User, string, error)

	// GetUser retrieves a user by their ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// UpdateProfile changes the user's display name and returns the updated
	// user.
	UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*domain.User, error)

	// ListUsers returns all users sorted by name, for assignee pickers.
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// minPasswordLength mirrors the password rule enforced at registration.
const minPasswordLength = 8

// UserServiceImpl implements the UserService interface.
type UserServiceImpl struct {
	userStore  store.UserStore
	hasher     auth.PasswordHasher
	jwtService auth.JWTService
	logger     *slog.Logger
	timeFunc   func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(
	userStore store.UserStore,
	hasher auth.PasswordHasher,
	jwtService auth.JWTService,
	logger *slog.Logger,
) (*UserServiceImpl, error) {
	if userStore == nil {
		return nil, domain.NewValidationError("userStore", "cannot be nil", domain.ErrValidation)
	}
	if hasher == nil {
		return nil, domain.NewValidationError("hasher", "cannot be nil", domain.ErrValidation)
	}
	if jwtService == nil {
		return nil, domain.NewValidationError("jwtService", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &UserServiceImpl{
		userStore:  userStore,
		hasher:     hasher,
		jwtService: jwtService,
		logger:     logger.With("component", "user_service"),
		timeFunc:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Register implements UserService.Register
func (s *UserServiceImpl) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, string, error) {
	if len(password) < minPasswordLength {
		return nil, "", domain.NewValidationError("password", "must be at least 8 characters", domain.ErrValidation)
	}

	user, err := domain.NewUser(name, email, role)
	if err != nil {
		return nil, "", err
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed

	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to register existing email", "email", user.Email)
		} else {
			s.logger.Error("failed to save user", "error", err, "email", user.Email)
		}
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email, "role", user.Role)
	return user, token, nil
}

// Authenticate implements UserService.Authenticate
func (s *UserServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, "", auth.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to retrieve user by email: %w", err)
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return nil, "", auth.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID, "email", user.Email)
	return user, token, nil
}

// GetUser implements UserService.GetUser
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile implements UserService.UpdateProfile
func (s *UserServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.UpdatedAt = s.timeFunc()
	if err := user.Validate(); err != nil {
		return nil, err
	}

	if err := s.userStore.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", userID)
	return user, nil
}

// ListUsers implements UserService.ListUsers
func (s *UserServiceImpl) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userStore.List(ctx)
}
