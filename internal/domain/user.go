package domain

import "time"

// Role is the closed set of access roles in the tracker.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
)

// Valid reports whether the role is a known member of the enum.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleTester:
		return true
	}
	return false
}

// User is an account that can report, resolve, or administer bugs.
type User struct {
	ID           string
	Username     string
	DisplayName  string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRef carries the display fields of a user for embedding in responses.
// Historical rows reference users by id only; refs are resolved at read time.
type UserRef struct {
	ID          string
	Username    string
	DisplayName string
}

// Ref projects the display fields of a user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName}
}
