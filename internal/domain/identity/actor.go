package identity

import (
	"slices"

	"github.com/google/uuid"
)

// Role codes recognised by the back office
const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleAdmin      = "ADMIN"
	RoleSalesRep   = "SALES_REP"
)

// Actor is the authenticated user performing an operation
type Actor struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Username string
	Roles    []string
}

// HasRole reports whether the actor holds any of the given roles
func (a Actor) HasRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(a.Roles, r) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor may approve back-office documents
func (a Actor) IsAdmin() bool {
	return a.HasRole(RoleAdmin, RoleSuperAdmin)
}
