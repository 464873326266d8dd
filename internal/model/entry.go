package model

import "time"

// StoreEntry is the persisted state layout: one row per logical key, the
// value being a JSON-serialized collection. Every durable structure of the
// service (tenant directory, legacy collections, per-tenant scoped ledgers)
// lives in this table.
type StoreEntry struct {
	Key       string    `gorm:"primaryKey;type:varchar(191)"`
	Value     []byte    `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

// TableName overrides the gorm table name
func (StoreEntry) TableName() string {
	return "store_entries"
}
