package model

import "time"

// Member represents a contributing member of a tenant's ledger
type Member struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	MonthlyAmount Amount    `json:"monthly_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

func (m *Member) GetID() string { return m.ID }

func (m *Member) Stamp(id string, at time.Time) {
	m.ID = id
	m.CreatedAt = at
}
