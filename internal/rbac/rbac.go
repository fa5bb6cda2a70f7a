package rbac

import "strings"

// Role names match the account roles stored on employee and customer
// accounts. A role not present in the table holds no permissions.
const (
	RoleManager      = "manager"
	RoleKeeper       = "keeper"
	RoleCoordinator  = "coordinator"
	RoleCashier      = "cashier"
	RoleGuide        = "guide"
	RoleVeterinarian = "veterinarian"
	RoleMaintenance  = "maintenance"
	RoleSecurity     = "security"
	RoleOther        = "other"
	RoleCustomer     = "customer"
)

// Table maps each role to the set of permission patterns it holds. A
// pattern is "resource:action", "resource:*", or the global wildcard "*".
// The table is built once at startup and never mutated, so it is safe to
// share across requests without locking.
type Table struct {
	grants map[string][]string
}

func NewTable(grants map[string][]string) *Table {
	copied := make(map[string][]string, len(grants))
	for role, patterns := range grants {
		copied[role] = append([]string(nil), patterns...)
	}
	return &Table{grants: copied}
}

// DefaultTable returns the standard zoo role grants. Roles are flat: no
// role inherits another role's permissions.
func DefaultTable() *Table {
	return NewTable(map[string][]string{
		RoleManager: {"*"},
		RoleKeeper: {
			"animals:read",
			"animals:update",
			"feeding_logs:*",
			"habitats:read",
			"zookeeper_assignments:read",
		},
		RoleVeterinarian: {
			"animals:*",
			"habitats:read",
			"feeding_logs:read",
			"medical:*",
		},
		RoleCoordinator: {
			"events:*",
			"event_registrations:*",
			"customers:read",
		},
		RoleCashier: {
			"tickets:*",
			"gift_shop_sales:*",
			"cafe_sales:*",
			"customers:read",
		},
		RoleGuide: {
			"animals:read",
			"habitats:read",
			"attractions:read",
			"events:read",
		},
		RoleMaintenance: {
			"habitats:read",
			"habitats:update",
			"attractions:read",
			"attractions:update",
		},
		RoleSecurity: {
			"dashboard:read",
			"incidents:*",
		},
		RoleOther: {
			"dashboard:read",
		},
		RoleCustomer: {
			"tickets:create",
			"events:read",
			"event_registrations:create",
			"animals:read",
			"profile:update",
		},
	})
}

// Allowed reports whether the role may perform the requested permission.
// The check is, in order: global wildcard, resource wildcard, exact match.
// It is pure and performs no I/O.
func (t *Table) Allowed(role string, permission string) bool {
	if t == nil || permission == "" {
		return false
	}
	patterns, ok := t.grants[role]
	if !ok {
		return false
	}

	resource := permission
	if idx := strings.IndexByte(permission, ':'); idx >= 0 {
		resource = permission[:idx]
	}

	for _, pattern := range patterns {
		switch pattern {
		case "*", permission:
			return true
		case resource + ":*":
			return true
		}
	}
	return false
}

// Roles returns every role declared in the table.
func (t *Table) Roles() []string {
	roles := make([]string, 0, len(t.grants))
	for role := range t.grants {
		roles = append(roles, role)
	}
	return roles
}
