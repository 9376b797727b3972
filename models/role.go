package models

import (
	"fmt"
	"strings"
)

// Role is the authorization role stored on a user.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleCustomer Role = "CUSTOMER"
)

// ParseRole accepts a role name in any case ("admin", "Customer", ...).
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleCustomer:
		return RoleCustomer, nil
	default:
		return "", fmt.Errorf("invalid role: %s", s)
	}
}

// Kind is the lowercased form carried in bearer tokens ("admin" | "customer").
func (r Role) Kind() string {
	return strings.ToLower(string(r))
}
