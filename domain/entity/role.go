package entity

import (
	"sort"
	"strings"
)

// RoleName is a capability tag. Roles never imply one another.
type RoleName string

const (
	RoleAdmin      RoleName = "ADMIN"
	RoleUser       RoleName = "USER"
	RoleSupervisor RoleName = "SUPERVISOR"
	RoleManager    RoleName = "MANAGER"
	RoleGuest      RoleName = "GUEST"
)

// KnownRoles lists the roles an identity may be assigned.
var KnownRoles = []RoleName{RoleAdmin, RoleUser, RoleSupervisor, RoleManager, RoleGuest}

// ParseRole normalizes name and reports whether it is a known role.
func ParseRole(name string) (RoleName, bool) {
	role := RoleName(strings.ToUpper(strings.TrimSpace(name)))
	for _, known := range KnownRoles {
		if role == known {
			return role, true
		}
	}
	return "", false
}

// RoleSet is an unordered set of roles. A single role is a one-element set.
type RoleSet map[RoleName]struct{}

func NewRoleSet(roles ...RoleName) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		if r == "" {
			continue
		}
		set[r] = struct{}{}
	}
	return set
}

// Has is a plain membership test.
func (s RoleSet) Has(role RoleName) bool {
	_, ok := s[role]
	return ok
}

// Names returns the roles sorted, for stable serialization.
func (s RoleSet) Names() []string {
	names := make([]string, 0, len(s))
	for r := range s {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return names
}

func (s RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}

// RoleSetFromStrings builds a set from stored role names, skipping blanks.
func RoleSetFromStrings(names []string) RoleSet {
	set := make(RoleSet, len(names))
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		set[RoleName(n)] = struct{}{}
	}
	return set
}
