package types

import (
	"errors"
	"fmt"
	"strings"
)

// Role is an authorization role granted to a user.
type Role string

// Supported roles. Anything else is rejected at signup.
const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

var knownRoles = map[Role]struct{}{
	RoleBuyer:  {},
	RoleSeller: {},
}

// ErrNoRoles is returned when a role set is empty.
var ErrNoRoles = errors.New("at least one role is required")

// ParseRole normalizes raw and checks it against the allow-list.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownRoles[role]; !ok {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// ParseRoles normalizes and de-duplicates raw, preserving first-seen order.
func ParseRoles(raw []string) ([]Role, error) {
	roles := make([]Role, 0, len(raw))
	seen := make(map[Role]struct{}, len(raw))
	for _, r := range raw {
		role, err := ParseRole(r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}
	return roles, nil
}

// ContainsRole reports whether role is in roles.
func ContainsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleStrings converts roles to plain strings, e.g. for array columns.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
