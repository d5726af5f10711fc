// Package domain contains core domain types for the Mindora backend.
package domain

import (
	"time"
)

// Role is the account role carried in access tokens.
type Role string

const (
	RolePatient   Role = "PATIENT"
	RoleTherapist Role = "THERAPIST"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleTherapist, RoleAdmin:
		return true
	}
	return false
}

// User represents a platform account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Therapist links a therapist profile to the user account behind it.
// Monitoring records reference the profile ID, notifications go to UserID.
type Therapist struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
