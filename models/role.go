package models

import (
	"fmt"
	"strings"
)

// Role is the access category assigned to a user.
// The set is closed; the users table carries a CHECK constraint with the same values.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"

	// DefaultRole is what the store substitutes when no role is given on insert.
	DefaultRole = RoleUser
)

// Roles returns every known role, lowest privilege first.
func Roles() []Role {
	return []Role{RoleUser, RoleModerator, RoleAdmin}
}

// ParseRole normalizes s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

// IsModerator is true for moderators and admins.
func (r Role) IsModerator() bool { return r == RoleModerator || r == RoleAdmin }

func (r Role) String() string { return string(r) }
