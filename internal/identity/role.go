// Package identity defines the actor and role model. Role equivalence
// (owner and admin share full administrative scope) lives here and only
// here; permission checks elsewhere call OwnerEquivalent instead of
// comparing role strings.
package identity

import "strings"

type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleDriver  Role = "driver"
)

// NormalizeRole cleans a raw role claim before comparison. Tokens issued by
// older credential-service builds carry mixed-case or padded role strings.
func NormalizeRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// ParseRole normalizes and validates a role string. Unknown roles return
// false; callers must deny, never default to a permissive role.
func ParseRole(s string) (Role, bool) {
	r := NormalizeRole(s)
	switch r {
	case RoleOwner, RoleAdmin, RoleManager, RoleDriver:
		return r, true
	}
	return "", false
}

// OwnerEquivalent reports whether the role carries full administrative
// scope. Owner and admin are interchangeable for every permission check.
func (r Role) OwnerEquivalent() bool {
	return r == RoleOwner || r == RoleAdmin
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}
