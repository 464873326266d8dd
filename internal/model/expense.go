package model

import "time"

// ExpenseEntry is a recorded expenditure. Category is free-form; records
// without one are grouped under "Other" by the aggregation engine.
type ExpenseEntry struct {
	ID            string    `json:"id"`
	Purpose       string    `json:"purpose"`
	Category      string    `json:"category,omitempty"`
	Amount        Amount    `json:"amount"`
	Date          string    `json:"date"` // "YYYY-MM-DD"
	PaidTo        string    `json:"paid_to,omitempty"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

func (e *ExpenseEntry) GetID() string { return e.ID }

func (e *ExpenseEntry) Stamp(id string, at time.Time) {
	e.ID = id
	e.RecordedAt = at
}
