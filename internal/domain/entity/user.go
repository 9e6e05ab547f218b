// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core identity record of the marketplace, shared by patients,
// physiotherapists and administrators. The auth subsystem reads and mutates
// only the login-related fields; profile data lives with the account modules.
type User struct {
	ID                  uuid.UUID  // The unique identifier for the user.
	Email               string     // The user's login identifier and contact address.
	Name                string     // The user's display name.
	PasswordHash        string     // Stores the bcrypt-hashed password.
	Role                Role       // The user's role in the system (admin, physiotherapist, user).
	IsEmailVerified     bool       // Whether the user has confirmed ownership of their email address.
	TwoFactorEnabled    bool       // Whether an OTP second factor is required after the password check.
	FailedLoginAttempts int        // Consecutive failed password checks since the last successful login.
	LastLogin           *time.Time // Timestamp of the last successful login, nil before the first one.
	CreatedAt           time.Time  // Timestamp of when this user account was created.
	UpdatedAt           time.Time  // Timestamp of the last modification to this user's data.
}

// PublicUser is the sanitized view of a User that may leave the backend.
// It excludes the password hash and internal security counters.
type PublicUser struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             Role       `json:"role"`
	IsEmailVerified  bool       `json:"isEmailVerified"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	LastLogin        *time.Time `json:"lastLogin"`
}

// Public returns the sanitized view of the user.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}

	return &PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             u.Role,
		IsEmailVerified:  u.IsEmailVerified,
		TwoFactorEnabled: u.TwoFactorEnabled,
		LastLogin:        u.LastLogin,
	}
}
