package users

import (
	"time"

	"github.com/octane-tech/nfc-tracker/internal/shared"
)

// Account statuses.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User represents a user account for management.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is one page of the admin user listing.
type Page struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// StatusChange reports the outcome of a suspend or activate request.
type StatusChange struct {
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
	Changed bool   `json:"changed"`
}
