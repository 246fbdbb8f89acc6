package domain

// Permissions checked by the services.
const (
	PermOrdersCreate       = "orders:create"
	PermOrdersRead         = "orders:read"
	PermOrdersReadAll      = "orders:read:all"
	PermOrdersUpdateStatus = "orders:update:status"
	PermMenuWrite          = "menu:write"
	PermRealtimeAdmin      = "realtime:admin"
)

var rolePermissions = map[Role][]string{
	RoleCustomer: {
		PermOrdersCreate,
		PermOrdersRead,
	},
	RoleAdmin: {
		PermOrdersRead,
		PermOrdersReadAll,
		PermOrdersUpdateStatus,
		PermMenuWrite,
		PermRealtimeAdmin,
	},
}

// PermissionsFor returns a copy of the permissions granted to a role.
func PermissionsFor(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// RoleHas reports whether role grants permission.
func RoleHas(role Role, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}
