package model

import "time"

// Payment is a monthly contribution recorded against a member. The same
// shape backs both dues payments and salary payments, which live in
// separate collections. MemberID is not enforced referentially: a payment
// may outlive its member and is then reported under the "Unknown"
// placeholder.
type Payment struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	Month       string    `json:"month"` // calendar bucket, "YYYY-MM"
	Amount      Amount    `json:"amount"`
	PaymentDate string    `json:"payment_date,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func (p *Payment) GetID() string { return p.ID }

func (p *Payment) Stamp(id string, at time.Time) {
	p.ID = id
	p.RecordedAt = at
}
