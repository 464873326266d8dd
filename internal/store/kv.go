package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// KV is the persisted state contract: logical keys mapping to serialized
// collections. Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the stored value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
}

// KeyTenantDirectory holds the global collection of tenant records.
const KeyTenantDirectory = "tenant_directory"

// Legacy unscoped collections, read-only migration source.
const (
	KeyLegacyMembers  = "legacy_members"
	KeyLegacyDues     = "legacy_dues"
	KeyLegacySalary   = "legacy_salary"
	KeyLegacyIncome   = "legacy_income"
	KeyLegacyExpenses = "legacy_expenses"
)

// RecordType names one of the five per-tenant ledger collections
type RecordType string

const (
	RecordMembers  RecordType = "members"
	RecordDues     RecordType = "dues"
	RecordSalary   RecordType = "salary"
	RecordIncome   RecordType = "income"
	RecordExpenses RecordType = "expenses"
)

// RecordTypes lists the five collections in migration order
var RecordTypes = []RecordType{RecordMembers, RecordDues, RecordSalary, RecordIncome, RecordExpenses}

// ScopedKey builds the storage key for a tenant's collection
func ScopedKey(tenantID string, rt RecordType) string {
	return fmt.Sprintf("tenant_%s_%s", tenantID, rt)
}

// LegacyKey returns the unscoped key backing a record type
func LegacyKey(rt RecordType) string {
	switch rt {
	case RecordDues:
		return KeyLegacyDues
	case RecordSalary:
		return KeyLegacySalary
	case RecordIncome:
		return KeyLegacyIncome
	case RecordExpenses:
		return KeyLegacyExpenses
	default:
		return KeyLegacyMembers
	}
}

// decodeCollection unmarshals a stored collection. Absent or malformed
// content degrades to an empty slice: corrupted persisted state shows as
// "no data" rather than an error.
func decodeCollection[T any](log *zap.Logger, key string, raw []byte) []T {
	if len(raw) == 0 {
		return []T{}
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn("Malformed persisted collection, treating as empty",
			zap.String("key", key),
			zap.Error(err))
		return []T{}
	}
	if out == nil {
		out = []T{}
	}
	return out
}
