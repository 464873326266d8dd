package store

import "ledger-service/internal/model"

// Session identifies the acting principal for store operations. Write
// operations require an admin session scoped to the target tenant; the
// super role never carries a tenant id.
type Session struct {
	TenantID string
	Role     model.Role
}

// AdminSession builds an owner session for a tenant
func AdminSession(tenantID string) Session {
	return Session{TenantID: tenantID, Role: model.RoleAdmin}
}

// GuestSession builds a read-only session for a tenant
func GuestSession(tenantID string) Session {
	return Session{TenantID: tenantID, Role: model.RoleGuest}
}

// SuperSession builds a platform-owner session with no tenant scope
func SuperSession() Session {
	return Session{Role: model.RoleSuper}
}
