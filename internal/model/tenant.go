package model

import "time"

// Tenant represents one registered organization in the global tenant
// directory. The whole directory is persisted as a single serialized
// collection, so the password hash and guest secret code round-trip
// through JSON; handlers strip them before returning tenants to clients.
type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Password   string    `json:"password"`
	SecretCode string    `json:"secret_code"`
	Address    string    `json:"address,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public returns a copy safe for API responses: credentials removed,
// guest secret kept (the owning admin needs it to share guest access).
func (t Tenant) Public() Tenant {
	t.Password = ""
	return t
}

// Sanitized returns a copy with every secret removed, for listings
// exposed outside the owning tenant.
func (t Tenant) Sanitized() Tenant {
	t.Password = ""
	t.SecretCode = ""
	return t
}
