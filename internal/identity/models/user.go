package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "covergate/pkg/domain-errors"
)

// Role determines what a user may do. Customers own policies, claims and
// payments; agents supervise the entities assigned to them; admins are
// unrestricted.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAgent    Role = "AGENT"
	RoleCustomer Role = "CUSTOMER"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleCustomer:
		return true
	}
	return false
}

// User is a registered identity. Transient credentials (OTP, reset token,
// refresh token) are NOT stored here; they live in the auth credentials
// store with their own expiries.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Age          int       `json:"age,omitempty"`
	Occupation   string    `json:"occupation,omitempty"`
	Address      string    `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewUser validates and constructs a user. Email is lowercased so uniqueness
// is case-insensitive.
func NewUser(id uuid.UUID, name, email, passwordHash string, role Role, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "valid email is required")
	}
	if role == "" {
		role = RoleCustomer
	}
	if !role.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid role")
	}
	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ProfileUpdate carries optional profile mutations; nil fields are left
// untouched.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Age        *int    `json:"age,omitempty"`
	Occupation *string `json:"occupation,omitempty"`
	Address    *string `json:"address,omitempty"`
}

// Apply mutates the user with the non-nil fields of the update.
func (u *User) Apply(upd ProfileUpdate, now time.Time) error {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
		}
		u.Name = name
	}
	if upd.Phone != nil {
		u.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Age != nil {
		if *upd.Age < 18 || *upd.Age > 120 {
			return dErrors.New(dErrors.CodeValidation, "age must be between 18 and 120")
		}
		u.Age = *upd.Age
	}
	if upd.Occupation != nil {
		u.Occupation = strings.TrimSpace(*upd.Occupation)
	}
	if upd.Address != nil {
		u.Address = strings.TrimSpace(*upd.Address)
	}
	u.UpdatedAt = now
	return nil
}
