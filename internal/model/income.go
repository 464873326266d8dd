package model

import "time"

// IncomeEntry is a one-off income record outside the monthly dues cycle
// (donations, rent, event collections and similar).
type IncomeEntry struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Amount        Amount    `json:"amount"`
	Date          string    `json:"date"` // "YYYY-MM-DD"
	Payer         string    `json:"payer,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

func (e *IncomeEntry) GetID() string { return e.ID }

func (e *IncomeEntry) Stamp(id string, at time.Time) {
	e.ID = id
	e.RecordedAt = at
}
