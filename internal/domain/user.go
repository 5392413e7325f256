package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies a user's privilege level.
type Role string

// Valid roles. RoleAdmin grants elevated visibility and moderation rights.
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether the role is one of the known role values.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a registered user of the application.
type User struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewUser creates a new User with the given name, email and role.
// It generates a new UUID and sets the creation/update timestamps.
// Returns an error if validation fails.
//
// The caller is responsible for hashing the password and setting
// HashedPassword before the user is stored.
func NewUser(name, email string, role Role) (*User, error) {
	if role == "" {
		role = RoleUser
	}

	user := &User{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if u.Name == "" {
		return NewValidationError("name", "cannot be empty", ErrValidation)
	}
	if u.Email == "" {
		return NewValidationError("email", "cannot be empty", ErrInvalidEmail)
	}
	at := strings.IndexByte(u.Email, '@')
	if at <= 0 || at == len(u.Email)-1 || !strings.Contains(u.Email[at+1:], ".") {
		return NewValidationError("email", "has invalid format", ErrInvalidEmail)
	}
	if !u.Role.IsValid() {
		return NewValidationError("role", "must be user or admin", ErrInvalidRole)
	}
	return nil
}
