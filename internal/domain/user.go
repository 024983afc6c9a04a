package domain

import "time"

// User represents a platform account. Consent flags stay false unless the
// user explicitly opts in.
type User struct {
	ID              string
	Username        string
	Email           string
	FirstName       string
	LastName        string
	PasswordHash    []byte
	Age             int
	CanBeContacted  bool
	CanDataBeShared bool
	CreatedAt       time.Time
}
