package shared

import "errors"

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountSuspended is returned for suspended accounts at login and by the gate.
	ErrAccountSuspended = errors.New("account suspended")
	// ErrInvalidMonth occurs when a month is not in YYYY-MM form.
	ErrInvalidMonth = errors.New("month must be in YYYY-MM format")
	// ErrInvalidDate occurs when a date is not in YYYY-MM-DD form.
	ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")
)
