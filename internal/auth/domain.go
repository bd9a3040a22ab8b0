package auth

import "time"

// Account statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Account represents a user account as seen by the authentication flows.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Status       string
	Image        *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Suspended reports whether the account has been suspended by an admin.
func (a *Account) Suspended() bool {
	return a.Status == StatusSuspended
}

// NewAccount carries the fields required to create an account.
type NewAccount struct {
	Name         string
	Email        string
	PasswordHash string
}

// AccountView is the public representation returned to clients.
type AccountView struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Role   string  `json:"role"`
	Status string  `json:"status"`
	Image  *string `json:"image"`
}

// View strips credentials from the account.
func (a *Account) View() AccountView {
	return AccountView{
		ID:     a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Role:   a.Role,
		Status: a.Status,
		Image:  a.Image,
	}
}

// Session is the result of a successful signup or login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      AccountView `json:"user"`
}
