package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-service/internal/model"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Directory is the single global collection of tenant identity records.
// It is persisted as one serialized collection under KeyTenantDirectory
// and always read back from the KV before matching, so no stale in-memory
// copy is ever trusted for authentication.
type Directory struct {
	kv  KV
	log *zap.Logger
	ids idGenerator
}

// NewDirectory creates a tenant directory over the given KV
func NewDirectory(kv KV, log *zap.Logger) *Directory {
	return &Directory{kv: kv, log: log}
}

func (d *Directory) load(ctx context.Context) ([]model.Tenant, error) {
	raw, _, err := d.kv.Get(ctx, KeyTenantDirectory)
	if err != nil {
		return nil, fmt.Errorf("load tenant directory: %w", err)
	}
	return decodeCollection[model.Tenant](d.log, KeyTenantDirectory, raw), nil
}

func (d *Directory) save(ctx context.Context, tenants []model.Tenant) error {
	raw, err := json.Marshal(tenants)
	if err != nil {
		return fmt.Errorf("marshal tenant directory: %w", err)
	}
	if err := d.kv.Put(ctx, KeyTenantDirectory, raw); err != nil {
		return fmt.Errorf("save tenant directory: %w", err)
	}
	return nil
}

// List returns all registered tenants
func (d *Directory) List(ctx context.Context) ([]model.Tenant, error) {
	return d.load(ctx)
}

// FindByID looks up a tenant by id
func (d *Directory) FindByID(ctx context.Context, id string) (model.Tenant, error) {
	tenants, err := d.load(ctx)
	if err != nil {
		return model.Tenant{}, err
	}
	for _, t := range tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Tenant{}, ErrNotFound
}

// FindByIdentifier looks up a tenant by email or phone
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (model.Tenant, error) {
	tenants, err := d.load(ctx)
	if err != nil {
		return model.Tenant{}, err
	}
	for _, t := range tenants {
		if identifierTaken(t, identifier) {
			return t, nil
		}
	}
	return model.Tenant{}, ErrNotFound
}

// Register appends a new tenant after checking the directory invariants:
// no existing record may share the candidate's email or phone (either
// identifier matched against both fields), and the guest secret code must
// be unique across all tenants since it is the sole key for guest lookup.
// Candidate.Password is stored as given; callers hash it first.
func (d *Directory) Register(ctx context.Context, candidate model.Tenant) (model.Tenant, error) {
	tenants, err := d.load(ctx)
	if err != nil {
		return model.Tenant{}, err
	}

	for _, t := range tenants {
		if identifierTaken(t, candidate.Email) || identifierTaken(t, candidate.Phone) {
			return model.Tenant{}, ErrDuplicateIdentity
		}
		if t.SecretCode == candidate.SecretCode {
			return model.Tenant{}, ErrDuplicateSecretCode
		}
	}

	now := time.Now().UTC()
	candidate.ID = d.ids.Next(now)
	candidate.CreatedAt = now

	tenants = append(tenants, candidate)
	if err := d.save(ctx, tenants); err != nil {
		return model.Tenant{}, err
	}

	d.log.Info("Tenant registered",
		zap.String("tenant_id", candidate.ID),
		zap.String("name", candidate.Name))
	return candidate, nil
}

func identifierTaken(t model.Tenant, identifier string) bool {
	if identifier == "" {
		return false
	}
	return t.Email == identifier || t.Phone == identifier
}

// Authenticate matches a tenant by email or phone and verifies the
// password against the stored bcrypt hash.
func (d *Directory) Authenticate(ctx context.Context, identifier, password string) (model.Tenant, error) {
	tenants, err := d.load(ctx)
	if err != nil {
		return model.Tenant{}, err
	}
	for _, t := range tenants {
		if !identifierTaken(t, identifier) {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(t.Password), []byte(password)) == nil {
			return t, nil
		}
	}
	return model.Tenant{}, ErrInvalidCredentials
}

// AuthenticateGuest resolves a tenant by exact guest secret code. The
// directory is re-read from persistent storage on every call: a stale
// match here would grant access to the wrong tenant.
func (d *Directory) AuthenticateGuest(ctx context.Context, secretCode string) (model.Tenant, error) {
	if secretCode == "" {
		return model.Tenant{}, ErrInvalidGuestCode
	}
	tenants, err := d.load(ctx)
	if err != nil {
		return model.Tenant{}, err
	}
	for _, t := range tenants {
		if t.SecretCode == secretCode {
			return t, nil
		}
	}
	return model.Tenant{}, ErrInvalidGuestCode
}

// UpdateProfile replaces the tenant record. Every record matching the
// updated id OR email is removed before appending, which also repairs a
// directory that previously held a duplicate under either key.
func (d *Directory) UpdateProfile(ctx context.Context, updated model.Tenant) error {
	tenants, err := d.load(ctx)
	if err != nil {
		return err
	}

	kept := tenants[:0]
	for _, t := range tenants {
		if t.ID == updated.ID || t.Email == updated.Email {
			continue
		}
		kept = append(kept, t)
	}
	kept = append(kept, updated)

	if err := d.save(ctx, kept); err != nil {
		return err
	}
	d.log.Info("Tenant profile updated", zap.String("tenant_id", updated.ID))
	return nil
}

// ResetPassword replaces the password secret of the tenant matched by
// email or phone. The new secret is stored as given; callers hash it.
func (d *Directory) ResetPassword(ctx context.Context, identifier, newSecret string) error {
	tenants, err := d.load(ctx)
	if err != nil {
		return err
	}
	for i, t := range tenants {
		if identifierTaken(t, identifier) {
			tenants[i].Password = newSecret
			if err := d.save(ctx, tenants); err != nil {
				return err
			}
			d.log.Info("Tenant password reset", zap.String("tenant_id", t.ID))
			return nil
		}
	}
	return ErrNotFound
}

// Dedup collapses directory records sharing an email down to one,
// keeping the record closest to the end of the stored order (treated as
// most recent). The cleaned directory is persisted only when duplicates
// were actually removed, so repeated runs converge to a no-op. Returns
// how many records were removed.
func (d *Directory) Dedup(ctx context.Context) (int, error) {
	tenants, err := d.load(ctx)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(tenants))
	unique := make([]model.Tenant, 0, len(tenants))
	for i := len(tenants) - 1; i >= 0; i-- {
		t := tenants[i]
		// Records without an email cannot be matched to each other.
		if t.Email != "" {
			if seen[t.Email] {
				continue
			}
			seen[t.Email] = true
		}
		unique = append([]model.Tenant{t}, unique...)
	}

	removed := len(tenants) - len(unique)
	if removed == 0 {
		return 0, nil
	}

	if err := d.save(ctx, unique); err != nil {
		return 0, err
	}
	d.log.Info("Removed duplicate tenant records", zap.Int("removed", removed))
	return removed, nil
}
