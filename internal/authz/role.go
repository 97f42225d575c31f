// Package authz derives capabilities from account roles. The resolver is
// pure and stateless: every check re-derives from the role value, holds no
// cache, and is total over arbitrary input (malformed roles resolve to
// RoleUnknown, which grants no special capability).
package authz

import "strings"

// Role is the closed set of account roles.
type Role int

const (
	// RoleUnknown is the zero role: absent, empty or malformed role values
	// resolve here and carry no special capability.
	RoleUnknown Role = iota
	RoleAdmin
	RoleLeader
	RoleSales
	RoleInventoryManager
	RoleWarehouseStaff
)

var roleNames = map[Role]string{
	RoleUnknown:          "Unknown",
	RoleAdmin:            "Admin",
	RoleLeader:           "Leader",
	RoleSales:            "Sales",
	RoleInventoryManager: "Inventory Manager",
	RoleWarehouseStaff:   "Warehouse Staff",
}

// String returns the canonical role label.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

// ParseRole maps a stored role string to a Role. Matching is
// case-insensitive and accepts the legacy "Sales Rep" label; anything else
// resolves to RoleUnknown rather than failing.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin
	case "leader":
		return RoleLeader
	case "sales", "sales rep":
		return RoleSales
	case "inventory manager":
		return RoleInventoryManager
	case "warehouse staff":
		return RoleWarehouseStaff
	default:
		return RoleUnknown
	}
}

// User is the minimal account view the resolver needs. A nil *User is a
// valid input everywhere and behaves like an unauthenticated caller.
type User struct {
	ID       int64
	Role     Role
	CostTier string
}
