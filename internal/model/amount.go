package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value as carried in ledger records. Persisted data
// holds amounts either as JSON numbers or as strings (form input from older
// clients); a missing or malformed value counts as zero and is never an
// unmarshal error.
type Amount struct {
	raw string
}

// NewAmount builds an Amount from a decimal value
func NewAmount(d decimal.Decimal) Amount {
	return Amount{raw: d.String()}
}

// AmountFromString builds an Amount from its raw textual form
func AmountFromString(s string) Amount {
	return Amount{raw: s}
}

// Decimal returns the parsed value, or zero when the raw form is not numeric
func (a Amount) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(a.raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) String() string {
	return a.raw
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.raw = ""
		return nil
	}

	// String form first, then anything else verbatim. Decimal() decides
	// whether the content is numeric.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.raw = s
		return nil
	}
	a.raw = string(data)
	return nil
}
