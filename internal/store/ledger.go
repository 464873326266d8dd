package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Record is a ledger entry that can be identified and stamped with a
// generated id and creation time before being appended.
type Record interface {
	GetID() string
	Stamp(id string, at time.Time)
}

// Ledger persists per-tenant record collections. Each collection lives
// under one scoped key as a serialized JSON array; mutations follow a
// load, modify, save cycle serialized per tenant so concurrent writers
// cannot clobber each other's collections. Every mutation checks the
// acting session: only the tenant-owning admin holds a write permit,
// guest and super sessions get ErrPermissionDenied.
type Ledger struct {
	kv    KV
	log   *zap.Logger
	ids   idGenerator
	locks sync.Map
}

// NewLedger creates a ledger over the given KV
func NewLedger(kv KV, log *zap.Logger) *Ledger {
	return &Ledger{kv: kv, log: log}
}

func (l *Ledger) lock(tenantID string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(tenantID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (l *Ledger) authorize(sess Session) error {
	if !sess.Role.CanWrite() || sess.TenantID == "" {
		l.log.Warn("Ledger write denied",
			zap.String("tenant_id", sess.TenantID),
			zap.String("role", string(sess.Role)))
		return ErrPermissionDenied
	}
	return nil
}

func (l *Ledger) stamp(rec Record) {
	now := time.Now().UTC()
	rec.Stamp(l.ids.Next(now), now)
}

// Load reads a tenant's collection of the given record type. A missing
// or malformed stored value yields an empty collection, never an error.
func Load[T any](ctx context.Context, l *Ledger, tenantID string, rt RecordType) ([]T, error) {
	key := ScopedKey(tenantID, rt)
	raw, _, err := l.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return decodeCollection[T](l.log, key, raw), nil
}

// Save replaces the session tenant's collection wholesale
func Save[T any](ctx context.Context, l *Ledger, sess Session, rt RecordType, records []T) error {
	if err := l.authorize(sess); err != nil {
		return err
	}
	mu := l.lock(sess.TenantID)
	mu.Lock()
	defer mu.Unlock()
	return save(ctx, l, sess.TenantID, rt, records)
}

func save[T any](ctx context.Context, l *Ledger, tenantID string, rt RecordType, records []T) error {
	key := ScopedKey(tenantID, rt)
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := l.kv.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Append stamps the record with a generated id and creation time, then
// adds it to the session tenant's collection. The stamped record is
// returned.
func Append[T Record](ctx context.Context, l *Ledger, sess Session, rt RecordType, rec T) (T, error) {
	if err := l.authorize(sess); err != nil {
		return rec, err
	}
	mu := l.lock(sess.TenantID)
	mu.Lock()
	defer mu.Unlock()

	records, err := Load[T](ctx, l, sess.TenantID, rt)
	if err != nil {
		return rec, err
	}
	l.stamp(rec)
	records = append(records, rec)
	if err := save(ctx, l, sess.TenantID, rt, records); err != nil {
		return rec, err
	}
	return rec, nil
}

// Update replaces the record with a matching id in the session tenant's
// collection. ErrNotFound when no record carries that id.
func Update[T Record](ctx context.Context, l *Ledger, sess Session, rt RecordType, rec T) error {
	if err := l.authorize(sess); err != nil {
		return err
	}
	mu := l.lock(sess.TenantID)
	mu.Lock()
	defer mu.Unlock()

	records, err := Load[T](ctx, l, sess.TenantID, rt)
	if err != nil {
		return err
	}
	for i, existing := range records {
		if existing.GetID() == rec.GetID() {
			records[i] = rec
			return save(ctx, l, sess.TenantID, rt, records)
		}
	}
	return ErrNotFound
}

// Remove deletes the record with the given id from the session tenant's
// collection. Removing a member cascades to that member's dues payments;
// salary payments referencing the member are deliberately left in place
// as historical expense records.
func (l *Ledger) Remove(ctx context.Context, sess Session, rt RecordType, id string) error {
	if err := l.authorize(sess); err != nil {
		return err
	}
	mu := l.lock(sess.TenantID)
	mu.Lock()
	defer mu.Unlock()

	if err := l.removeByField(ctx, sess.TenantID, rt, "id", id); err != nil {
		return err
	}
	if rt == RecordMembers {
		if err := l.removeByField(ctx, sess.TenantID, RecordDues, "member_id", id); err != nil {
			return err
		}
		l.log.Info("Removed member and cascaded dues payments",
			zap.String("tenant_id", sess.TenantID),
			zap.String("member_id", id))
	}
	return nil
}

// removeByField filters the raw collection without decoding into a
// concrete record type, so the dues cascade does not need type dispatch.
func (l *Ledger) removeByField(ctx context.Context, tenantID string, rt RecordType, field, id string) error {
	key := ScopedKey(tenantID, rt)
	raw, _, err := l.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	records := decodeCollection[map[string]any](l.log, key, raw)

	kept := records[:0]
	for _, rec := range records {
		if v, ok := rec[field].(string); ok && v == id {
			continue
		}
		kept = append(kept, rec)
	}
	return save(ctx, l, tenantID, rt, kept)
}
