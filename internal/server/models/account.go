// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a registered user. Credential fields are populated only when
// the repository is asked for them.
type Account struct {
	ID            string
	Email         string
	PasswordHash  []byte
	Salt          []byte
	SessionMarker []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
