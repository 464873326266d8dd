package store

import (
	"context"
	"fmt"
	"sync"

	"ledger-service/internal/model"

	"go.uber.org/zap"
)

// Migrator seeds a tenant's scoped collections from the unscoped legacy
// keys left behind by the single-tenant era of the data set. Seeding
// runs at most once per tenant per process and only for admin sessions;
// the legacy keys are left in place afterwards.
type Migrator struct {
	kv      KV
	log     *zap.Logger
	checked sync.Map
}

// NewMigrator creates a migrator over the given KV
func NewMigrator(kv KV, log *zap.Logger) *Migrator {
	return &Migrator{kv: kv, log: log}
}

// EnsureScoped copies every legacy collection into the session tenant's
// scoped keys when the tenant has no member data of its own and legacy
// member data exists. Guest sessions never trigger seeding and do not
// consume the tenant's one-shot check. Returns whether a seed happened.
func (m *Migrator) EnsureScoped(ctx context.Context, sess Session) (bool, error) {
	if sess.Role != model.RoleAdmin {
		return false, nil
	}
	if _, loaded := m.checked.LoadOrStore(sess.TenantID, true); loaded {
		return false, nil
	}

	scopedRaw, scopedOK, err := m.kv.Get(ctx, ScopedKey(sess.TenantID, RecordMembers))
	if err != nil {
		return false, fmt.Errorf("check scoped members: %w", err)
	}
	if scopedOK && len(decodeCollection[map[string]any](m.log, ScopedKey(sess.TenantID, RecordMembers), scopedRaw)) > 0 {
		return false, nil
	}

	legacyRaw, legacyOK, err := m.kv.Get(ctx, LegacyKey(RecordMembers))
	if err != nil {
		return false, fmt.Errorf("check legacy members: %w", err)
	}
	if !legacyOK {
		return false, nil
	}

	// Legacy values are copied verbatim so whatever shape the old data
	// had survives the move unchanged.
	if err := m.kv.Put(ctx, ScopedKey(sess.TenantID, RecordMembers), legacyRaw); err != nil {
		return false, fmt.Errorf("seed members: %w", err)
	}
	for _, rt := range RecordTypes {
		if rt == RecordMembers {
			continue
		}
		raw, ok, err := m.kv.Get(ctx, LegacyKey(rt))
		if err != nil {
			return false, fmt.Errorf("check legacy %s: %w", rt, err)
		}
		if !ok {
			continue
		}
		if err := m.kv.Put(ctx, ScopedKey(sess.TenantID, rt), raw); err != nil {
			return false, fmt.Errorf("seed %s: %w", rt, err)
		}
	}

	m.log.Info("Seeded tenant collections from legacy data",
		zap.String("tenant_id", sess.TenantID))
	return true, nil
}
