package domain

import (
	"strings"
	"time"
)

// Role values carried by a session. Anything that is not RoleAdmin is
// treated as RoleCustomer.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// NormalizeRole folds free-text roles ("user", "", ...) into RoleCustomer.
func NormalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), RoleAdmin) {
		return RoleAdmin
	}
	return RoleCustomer
}

// SessionUser is the authenticated identity attached to a session store.
type SessionUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName,omitempty"`
}

// IsAdmin reports whether the user may perform admin actions.
func (u *SessionUser) IsAdmin() bool {
	return u != nil && NormalizeRole(u.Role) == RoleAdmin
}

// User is an account stored by the authentication collaborator.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session returns the identity view of the account.
func (u *User) Session() *SessionUser {
	return &SessionUser{
		ID:          u.ID,
		Email:       u.Email,
		Role:        NormalizeRole(u.Role),
		DisplayName: u.DisplayName,
	}
}
