package auth

import (
	"context"

	"github.com/ryanuber/go-glob"
)

const (
	RoleUser      = "USER"
	RoleOperation = "OPERATION"
	RoleAdmin     = "ADMIN"
)

const (
	PermIppRead         = "ipp.read"
	PermIppWrite        = "ipp.write"
	PermIppReview       = "ipp.review"
	PermMasterdataRead  = "masterdata.read"
	PermMasterdataWrite = "masterdata.write"
	PermUsersRead       = "users.read"
	PermUsersWrite      = "users.write"
	PermAuditRead       = "audit.read"
)

// RolePermissions grants permission patterns per role. A pattern may end
// in "*" to cover every permission of an area.
var RolePermissions = map[string][]string{
	RoleUser: {
		PermIppRead,
		PermIppWrite,
		PermMasterdataRead,
	},
	RoleOperation: {
		"ipp.*",
		PermMasterdataRead,
		PermUsersRead,
	},
	RoleAdmin: {
		"*",
	},
}

func ValidRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// Granted reports whether role holds permission directly or through a
// pattern.
func Granted(role, permission string) bool {
	for _, pattern := range RolePermissions[role] {
		if glob.Glob(pattern, permission) {
			return true
		}
	}
	return false
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return Granted(role, permission), nil
}

// UserContext is the authenticated caller resolved from a bearer token.
type UserContext struct {
	NPK  string
	Role string
}
