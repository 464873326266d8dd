package model

// Role is the closed set of access levels a session can carry.
type Role string

const (
	// RoleAdmin is the tenant owner: full read/write on the tenant's ledgers.
	RoleAdmin Role = "admin"
	// RoleGuest is read-only access granted through the tenant's secret code.
	RoleGuest Role = "guest"
	// RoleSuper is the platform owner: directory visibility, no tenant data access.
	RoleSuper Role = "super_admin"
)

// CanWrite reports whether the role may persist tenant ledger data
func (r Role) CanWrite() bool {
	return r == RoleAdmin
}

// CanReadTenantData reports whether the role may read a tenant's ledgers
func (r Role) CanReadTenantData() bool {
	return r == RoleAdmin || r == RoleGuest
}
